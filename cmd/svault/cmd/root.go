// Package cmd implements the svault command line.
//
// svault exports a component inventory (parts, projects, the parts each
// project uses, and their image and datasheet files) into a portable
// .svdata bundle, and merges such bundles back into a store:
//
//	svault export all.svdata
//	svault scan all.svdata
//	svault import all.svdata --strategy skip
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Dicklesworthstone/siliconvault/internal/assets"
	"github.com/Dicklesworthstone/siliconvault/internal/backup"
	"github.com/Dicklesworthstone/siliconvault/internal/config"
	"github.com/Dicklesworthstone/siliconvault/internal/db"
	"github.com/Dicklesworthstone/siliconvault/internal/logging"
	"github.com/Dicklesworthstone/siliconvault/internal/metrics"
	"github.com/Dicklesworthstone/siliconvault/internal/session"
)

var (
	cfg    *config.Config
	logger *slog.Logger

	configPath string
	logLevel   string
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "svault",
	Short: "Back up and merge component inventories",
	Long: `svault packs an inventory store into a .svdata bundle and merges bundles
back in, one record at a time:

  1. Export:  svault export backup.svdata
  2. Inspect: svault scan backup.svdata
  3. Merge:   svault import backup.svdata --strategy keep_both

Records that match a local record (same name, package and value for parts,
same name for projects) are merged with a strategy: skip, overwrite or
keep_both. Stock quantity and location are never overwritten.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.LoadFrom(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger, err = logging.New(logging.Config{
			Level:     cfg.Logging.Level,
			Format:    cfg.Logging.Format,
			Timestamp: cfg.Logging.Timestamp,
			Output:    cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: "+config.Path()+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// withEngine opens the store described by cfg, runs fn, and tears everything
// down again. Metrics are written to the configured textfile afterwards,
// whether fn succeeded or not.
func withEngine(ctx context.Context, fn func(ctx context.Context, e *backup.Engine) error) (err error) {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	store, err := db.OpenAt(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	m := metrics.New()
	defer func() {
		if werr := m.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			logger.Warn("write metrics textfile failed", "path", cfg.Metrics.Textfile, "error", werr)
		}
	}()

	engine, err := backup.New(backup.Options{
		DB:                 store,
		Assets:             assets.NewStore(cfg.AssetsPath(), logger),
		Sessions:           session.NewManager(cfg.Session.TempDir, logger),
		Metrics:            m,
		Logger:             logger,
		DefaultMinStock:    cfg.Import.DefaultMinStock,
		ImportedSuffix:     cfg.Import.ImportedSuffix,
		KeepRemoteQuantity: cfg.Import.KeepRemoteQuantity,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil {
			logger.Warn("session cleanup failed", "error", cerr)
		}
	}()

	return fn(ctx, engine)
}

// isTerminal returns true if stdin is a terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// promptConfirm asks a yes/no question. Anything but y or yes is a no.
func promptConfirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	reader := bufio.NewReader(in)
	input, _ := reader.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
