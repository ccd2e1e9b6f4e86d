package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/siliconvault/internal/backup"
)

// backupCmd is the parent command for automatic backups.
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage automatic backups",
	Long: `Automatic backups are full exports named AutoBackup_YYYYMMDD_HHMMSS.svdata
in the backup directory (backup.dir in the config). Only the newest
backup.max_auto_backups are kept.

Examples:
  svault backup run
  svault backup prune --max 5
  svault backup watch`,
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupRunCmd)
	backupCmd.AddCommand(backupPruneCmd)
	backupCmd.AddCommand(backupWatchCmd)

	backupPruneCmd.Flags().Int("max", -1, "backups to keep (default: backup.max_auto_backups)")
	backupWatchCmd.Flags().Duration("interval", 0, "check interval (default: backup.interval)")
}

var backupRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Take an automatic backup now and prune old ones",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.BackupDir()
		return withEngine(cmd.Context(), func(ctx context.Context, e *backup.Engine) error {
			res, err := e.AutoBackup(ctx, dir)
			if err != nil {
				return err
			}
			printExportResult(cmd.OutOrStdout(), res)
			return prune(cmd, dir, cfg.Backup.MaxAutoBackups)
		})
	},
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete automatic backups beyond the configured count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		max, _ := cmd.Flags().GetInt("max")
		if max < 0 {
			max = cfg.Backup.MaxAutoBackups
		}
		return prune(cmd, cfg.BackupDir(), max)
	},
}

var backupWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Back up periodically while the store changes",
	Long: `Watches the data and asset directories and, on every interval tick,
takes an automatic backup if anything changed since the last one. Runs
until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		if interval <= 0 {
			interval = cfg.Backup.Interval.Duration()
		}
		if interval <= 0 {
			return fmt.Errorf("backup.interval is 0; set it or pass --interval")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withEngine(ctx, func(ctx context.Context, e *backup.Engine) error {
			return e.Watch(ctx, backup.WatchConfig{
				Paths:      []string{cfg.Storage.DataDir, cfg.AssetsPath()},
				Dir:        cfg.BackupDir(),
				MaxBackups: cfg.Backup.MaxAutoBackups,
				Interval:   interval,
			})
		})
	},
}

func prune(cmd *cobra.Command, dir string, max int) error {
	removed, err := backup.PruneAutoBackups(dir, max)
	for _, p := range removed {
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", p)
	}
	return err
}
