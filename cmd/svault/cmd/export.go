package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/siliconvault/internal/backup"
)

var exportCmd = &cobra.Command{
	Use:   "export <dest.svdata>",
	Short: "Export the store to a bundle",
	Long: `Writes parts, projects, project part lists and every referenced file to a
.svdata bundle.

With --project or --item only those records are exported. A project brings
along every part it uses.

Examples:
  svault export backup.svdata
  svault export blinker.svdata --project 3
  svault export parts.svdata --item 12 --item 15`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectIDs, _ := cmd.Flags().GetInt64Slice("project")
		itemIDs, _ := cmd.Flags().GetInt64Slice("item")

		return withEngine(cmd.Context(), func(ctx context.Context, e *backup.Engine) error {
			var (
				res *backup.ExportResult
				err error
			)
			if len(projectIDs) == 0 && len(itemIDs) == 0 {
				res, err = e.ExportAll(ctx, args[0])
			} else {
				res, err = e.ExportSubset(ctx, args[0], projectIDs, itemIDs)
			}
			if err != nil {
				return err
			}
			printExportResult(cmd.OutOrStdout(), res)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().Int64Slice("project", nil, "export only this project id (repeatable)")
	exportCmd.Flags().Int64Slice("item", nil, "export only this part id (repeatable)")
}
