package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/Dicklesworthstone/siliconvault/internal/backup"
)

var (
	colorBlue   = lipgloss.Color("#4f8cff")
	colorGreen  = lipgloss.Color("#2fd576")
	colorYellow = lipgloss.Color("#f2c94c")
	colorGray   = lipgloss.Color("#9aa4b2")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	okStyle     = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle   = lipgloss.NewStyle().Foreground(colorYellow)
	dimStyle    = lipgloss.NewStyle().Foreground(colorGray)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...)
}

func yesNo(b bool) string {
	if b {
		return warnStyle.Render("yes")
	}
	return "no"
}

func printExportResult(w io.Writer, res *backup.ExportResult) {
	fmt.Fprintf(w, "%s %s (%s)\n", okStyle.Render("Exported"), res.Path, humanize.Bytes(uint64(res.Size)))
	fmt.Fprintf(w, "  parts: %s  projects: %s  links: %s  files: %s\n",
		humanize.Comma(int64(res.Inventory)),
		humanize.Comma(int64(res.Projects)),
		humanize.Comma(int64(res.Links)),
		humanize.Comma(int64(res.Assets)))
	if res.MissingAssets > 0 {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("  %d referenced file(s) were missing and left out", res.MissingAssets)))
	}
}

func printScanReport(w io.Writer, report *backup.ScanReport) {
	meta := report.Metadata
	fmt.Fprintf(w, "%s version %s, created %s\n",
		headerStyle.Render("Bundle"), meta.Version, humanize.Time(meta.Created()))
	fmt.Fprintf(w, "  new parts: %d  new projects: %d\n", report.NewItems.Inventory, report.NewItems.Projects)

	if len(report.Conflicts.Inventory) == 0 && len(report.Conflicts.Projects) == 0 {
		fmt.Fprintln(w, okStyle.Render("No conflicts."))
		return
	}

	if len(report.Conflicts.Inventory) > 0 {
		t := newTable("ID", "Part", "Package", "Value", "Local qty", "Bundle qty", "Files differ")
		for _, c := range report.Conflicts.Inventory {
			t.Row(
				strconv.FormatInt(c.Remote.ID, 10),
				c.Remote.Name,
				c.Remote.Package,
				c.Remote.Value,
				humanize.Comma(c.Local.Quantity),
				humanize.Comma(c.Remote.Quantity),
				yesNo(c.HasAssetDifference),
			)
		}
		fmt.Fprintln(w, headerStyle.Render("Conflicting parts"))
		fmt.Fprintln(w, t.Render())
	}

	if len(report.Conflicts.Projects) > 0 {
		t := newTable("ID", "Project", "Local description", "Bundle description", "Files differ")
		for _, c := range report.Conflicts.Projects {
			t.Row(
				strconv.FormatInt(c.Remote.ID, 10),
				c.Remote.Name,
				c.Local.Description,
				c.Remote.Description,
				yesNo(c.HasAssetDifference),
			)
		}
		fmt.Fprintln(w, headerStyle.Render("Conflicting projects"))
		fmt.Fprintln(w, t.Render())
	}
}

func printImportResult(w io.Writer, res *backup.ImportResult) {
	t := newTable("", "Created", "Updated", "Skipped")
	t.Row("Parts",
		strconv.Itoa(res.Inventory.Created),
		strconv.Itoa(res.Inventory.Updated),
		strconv.Itoa(res.Inventory.Skipped))
	t.Row("Projects",
		strconv.Itoa(res.Projects.Created),
		strconv.Itoa(res.Projects.Updated),
		strconv.Itoa(res.Projects.Skipped))

	fmt.Fprintln(w, okStyle.Render("Import complete"))
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "  links: %d created, %d dropped\n", res.LinksCreated, res.LinksDropped)
	fmt.Fprintf(w, "  files: %d copied, %d already present\n", res.AssetsCopied, res.AssetsReused)
	if res.AssetFailures > 0 {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("  %d file reference(s) could not be imported", res.AssetFailures)))
	}
}
