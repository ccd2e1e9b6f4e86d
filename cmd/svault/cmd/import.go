package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/siliconvault/internal/backup"
)

var importCmd = &cobra.Command{
	Use:   "import <bundle.svdata>",
	Short: "Merge a bundle into the store",
	Long: `Scans the bundle, shows what would change, and merges it in one
transaction.

--strategy applies to every conflicting record. --item and --project
override it for single records, by their id in the bundle (shown by
'svault scan'):

  skip       keep the local record and use it for the bundle's links
  overwrite  update the local record; stock quantity and location stay
  keep_both  add the bundle record under a suffixed name (default)

Examples:
  svault import backup.svdata
  svault import backup.svdata --strategy skip --item 12=overwrite
  svault import backup.svdata --project 3=keep_both --yes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strategyName, _ := cmd.Flags().GetString("strategy")
		itemOverrides, _ := cmd.Flags().GetStringArray("item")
		projectOverrides, _ := cmd.Flags().GetStringArray("project")
		yes, _ := cmd.Flags().GetBool("yes")

		base, err := backup.ParseStrategy(strategyName)
		if err != nil {
			return err
		}
		items, err := parseOverrides(itemOverrides)
		if err != nil {
			return fmt.Errorf("--item: %w", err)
		}
		projects, err := parseOverrides(projectOverrides)
		if err != nil {
			return fmt.Errorf("--project: %w", err)
		}

		return withEngine(cmd.Context(), func(ctx context.Context, e *backup.Engine) error {
			report, err := e.Scan(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printScanReport(out, report)

			if !yes && isTerminal() {
				if !promptConfirm(cmd.InOrStdin(), out, "Import this bundle?") {
					fmt.Fprintln(out, "Cancelled")
					return e.Discard(report.SessionID)
				}
			}

			res, err := e.Import(ctx, report.SessionID, buildStrategies(report, base, items, projects))
			if err != nil {
				return err
			}
			printImportResult(out, res)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().String("strategy", string(backup.DefaultStrategy), "strategy for conflicting records: skip, overwrite, keep_both")
	importCmd.Flags().StringArray("item", nil, "per-part override as ID=STRATEGY (repeatable)")
	importCmd.Flags().StringArray("project", nil, "per-project override as ID=STRATEGY (repeatable)")
	importCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
}

// parseOverrides parses ID=STRATEGY pairs.
func parseOverrides(values []string) (map[int64]backup.Strategy, error) {
	out := make(map[int64]backup.Strategy, len(values))
	for _, v := range values {
		idPart, strategyPart, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("invalid override %q (want ID=STRATEGY)", v)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id in %q: %w", v, err)
		}
		st, err := backup.ParseStrategy(strategyPart)
		if err != nil {
			return nil, err
		}
		out[id] = st
	}
	return out, nil
}

// buildStrategies applies base to every conflict, then the explicit
// overrides.
func buildStrategies(report *backup.ScanReport, base backup.Strategy, items, projects map[int64]backup.Strategy) backup.Strategies {
	st := backup.Uniform(report, base)
	for id, s := range items {
		st.Inventory[id] = s
	}
	for id, s := range projects {
		st.Projects[id] = s
	}
	return st
}
