// Package cmd implements the report command for the slop CLI.
package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/slopdetect/slop/internal/cache"
	"github.com/slopdetect/slop/internal/config"
	"github.com/slopdetect/slop/internal/score"
	"github.com/spf13/cobra"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report the latest scan and density history",
	Long: `Report reads the scan history from .slop/cache.db and prints the
latest verdict with its per-finding breakdown, plus recent history so
density drift is visible.

With --fail-band (or report.fail_band in config.yaml), report exits
non-zero when the latest band is that bad or worse. This is the CI
gate: run slop scan in the pipeline, then slop report --fail-band.

Examples:
  slop report                        # Latest scan plus history
  slop report --history 10           # Show the last 10 scans
  slop report --fail-band needs-work # Exit 1 at needs-work or heavy`,
	RunE: runReport,
}

var (
	reportHistory  int
	reportFailBand string
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().IntVar(&reportHistory, "history", 5, "Number of past scans to show")
	reportCmd.Flags().StringVar(&reportFailBand, "fail-band", "", "Exit non-zero at this band or worse (good|needs-work|heavy)")
}

func runReport(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slopDir, err := config.FindConfigDir(cwd)
	if err != nil {
		return fmt.Errorf("slop not initialized: run 'slop init && slop scan' first")
	}
	c, err := cache.Open(slopDir)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer c.Close()

	latest, err := c.LatestScan()
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("no scans recorded: run 'slop scan' first")
	}
	if err != nil {
		return fmt.Errorf("reading scan history: %w", err)
	}

	fmt.Printf("Latest scan: %s\n", latest.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Bloat density: %.1f%% (%s) over %d lines in %d files\n",
		latest.Density, latest.Band, latest.TotalLines, latest.Files)
	fmt.Printf("Removable: %d raw lines, %.1f weighted\n", latest.RawLines, latest.WeightedLines)

	findings, err := c.Findings(latest.ID)
	if err != nil {
		return fmt.Errorf("reading findings: %w", err)
	}
	if len(findings) > 0 {
		fmt.Println()
		writeFindingRecords(findings)
	}

	if reportHistory > 0 {
		history, err := c.History(reportHistory)
		if err != nil {
			return fmt.Errorf("reading scan history: %w", err)
		}
		if len(history) > 1 {
			fmt.Println()
			writeHistory(history)
		}
	}

	return checkFailBand(cfg, latest.Band)
}

// writeFindingRecords prints persisted findings as a table.
func writeFindingRecords(findings []cache.FindingRecord) {
	fmt.Printf("Findings (%d):\n", len(findings))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Location", "Pattern", "Category", "Lines", "Technique"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	for _, f := range findings {
		loc := fmt.Sprintf("%s:%d", f.File, f.StartLine)
		if f.EndLine != f.StartLine {
			loc = fmt.Sprintf("%s:%d-%d", f.File, f.StartLine, f.EndLine)
		}
		table.Append([]string{loc, f.Pattern, f.Category, strconv.Itoa(f.LinesSaved), f.Technique})
	}
	table.Render()
}

// writeHistory prints the density trend across recent scans.
func writeHistory(history []cache.ScanRecord) {
	fmt.Printf("History (last %d scans):\n", len(history))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"When", "Files", "Lines", "Density", "Band"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	for _, h := range history {
		table.Append([]string{
			h.CreatedAt.Format("2006-01-02 15:04"),
			strconv.Itoa(h.Files),
			strconv.Itoa(h.TotalLines),
			fmt.Sprintf("%.1f%%", h.Density),
			h.Band,
		})
	}
	table.Render()
}

// checkFailBand applies the CI gate. The flag wins over the config.
func checkFailBand(cfg *config.Config, band string) error {
	threshold := cfg.Report.FailBand
	if reportFailBand != "" {
		threshold = reportFailBand
	}
	if threshold == "" {
		return nil
	}
	if !config.IsValidBand(threshold) {
		return fmt.Errorf("invalid fail band: %q (expected good, needs-work, or heavy)", threshold)
	}

	if score.Band(band).Severity() >= score.Band(threshold).Severity() {
		return fmt.Errorf("density band %s is at or beyond the %s gate", band, threshold)
	}
	return nil
}
