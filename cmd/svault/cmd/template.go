package cmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/siliconvault/internal/backup"
)

var templateCmd = &cobra.Command{
	Use:   "template <dest.svdata>",
	Short: "Write a sample bundle",
	Long: `Writes a small bundle with one part, one project and placeholder files.
Useful for trying 'svault scan' and 'svault import'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(_ context.Context, e *backup.Engine) error {
			res, err := e.GenerateTemplate(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, %d files)\n",
				okStyle.Render("Wrote"), res.Path, humanize.Bytes(uint64(res.Size)), res.Assets)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(templateCmd)
}
