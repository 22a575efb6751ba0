// Package cmd implements the plan command for the slop CLI.
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/slopdetect/slop/internal/config"
	"github.com/slopdetect/slop/internal/discover"
	"github.com/slopdetect/slop/internal/engine"
	"github.com/slopdetect/slop/internal/output"
	"github.com/spf13/cobra"
)

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan [path]",
	Short: "Produce an ordered fix plan for confirmed findings",
	Long: `Plan scans like slop scan, then orders the confirmed findings into an
edit plan that applies cleanly top to bottom: edits are grouped per
file and sorted by descending start line, so applying one never shifts
the line numbers of the edits still pending. Within each file the
documentation removals come after the code edits. Overlapping edits
are resolved by category weight, and the
losers are listed as dropped with the winning finding named.

The plan never touches config files; their findings are report-only.

Examples:
  slop plan                  # Plan for the current directory
  slop plan ./src --format yaml
  slop plan --excerpts       # Include replacements and excerpts`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

var planExcerpts bool

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().BoolVar(&planExcerpts, "excerpts", false, "Include replacements and source excerpts")
}

func runPlan(cmd *cobra.Command, args []string) error {
	scanPath := "."
	if len(args) > 0 {
		scanPath = args[0]
	}
	absPath, err := filepath.Abs(scanPath)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(absPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	set, err := discover.Walk(absPath, cfg.Scan.Exclude)
	if err != nil {
		return fmt.Errorf("walking directory: %w", err)
	}
	in, err := discover.ReadInput(absPath, set)
	if err != nil {
		return err
	}
	// Planning only rewrites code; the config scan adds nothing here.
	in.Configs = nil
	in.Workers = cfg.Scan.Workers

	res, err := engine.Run(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	report := output.NewReport(res, output.Options{
		IncludePlan:  true,
		MaxFindings:  cfg.Output.MaxFindings,
		WithExcerpts: planExcerpts,
	})
	return renderReport(report, cfg)
}
