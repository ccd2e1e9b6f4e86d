package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/siliconvault/internal/backup"
)

var scanCmd = &cobra.Command{
	Use:   "scan <bundle.svdata>",
	Short: "Compare a bundle with the store without importing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(ctx context.Context, e *backup.Engine) error {
			report, err := e.Scan(ctx, args[0])
			if err != nil {
				return err
			}
			defer e.Discard(report.SessionID)

			printScanReport(cmd.OutOrStdout(), report)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
