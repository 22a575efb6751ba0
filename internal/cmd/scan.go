// Package cmd implements the scan command for the slop CLI.
package cmd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/slopdetect/slop/internal/cache"
	"github.com/slopdetect/slop/internal/config"
	"github.com/slopdetect/slop/internal/discover"
	"github.com/slopdetect/slop/internal/engine"
	"github.com/slopdetect/slop/internal/exclude"
	"github.com/slopdetect/slop/internal/output"
	"github.com/spf13/cobra"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a Python codebase and score its bloat density",
	Long: `Scan traverses the specified directory (or current directory if none
given), parses Python sources, and scores the tree's bloat density.

The scan process:
  1. Discovers production sources, test sources, and config files
  2. Builds a source model per file using tree-sitter
  3. Indexes every call site across the tree
  4. Runs pattern detectors over production files
  5. Verifies each candidate against the call graph
  6. Scores confirmed findings and saves the scan to .slop/cache.db

Test files are indexed so their calls count as references, but they are
never scanned for bloat. Config files get a duplicate-key check whose
findings stay outside the score.

Examples:
  slop scan                      # Scan current directory
  slop scan ./src                # Scan specific directory
  slop scan --exclude 'gen/**'   # Add exclude patterns
  slop scan --show-discarded     # Include rejected candidates
  slop scan --force              # Rescan even if nothing changed`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

// Command-line flags
var (
	scanExclude       []string
	scanWorkers       int
	scanShowDiscarded bool
	scanMaxFindings   int
	scanExcerpts      bool
	scanForce         bool
	scanNoCache       bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringSliceVar(&scanExclude, "exclude", nil, "Exclude patterns (comma-separated globs)")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 0, "Worker count (default: config, then all CPUs)")
	scanCmd.Flags().BoolVar(&scanShowDiscarded, "show-discarded", false, "Include rejected candidates with reasons")
	scanCmd.Flags().IntVar(&scanMaxFindings, "max-findings", 0, "Cap the findings list (default: config)")
	scanCmd.Flags().BoolVar(&scanExcerpts, "excerpts", false, "Include source excerpts in findings")
	scanCmd.Flags().BoolVar(&scanForce, "force", false, "Rescan even if no file changed")
	scanCmd.Flags().BoolVar(&scanNoCache, "no-cache", false, "Skip the cache entirely")
}

// runScan implements the scan command logic
func runScan(cmd *cobra.Command, args []string) error {
	scanPath := "."
	if len(args) > 0 {
		scanPath = args[0]
	}
	absPath, err := filepath.Abs(scanPath)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	scanPath = absPath

	cfg, err := config.Load(scanPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Merge exclude patterns (CLI flags take precedence)
	excludes := cfg.Scan.Exclude
	if len(scanExclude) > 0 {
		excludes = append(excludes, scanExclude...)
	}

	auto := exclude.DetectAutoExcludes(scanPath)
	excludes = append(excludes, auto.Directories...)
	if verbose {
		for _, dir := range auto.Directories {
			fmt.Fprintf(os.Stderr, "Auto-excluding %s: %s\n", dir, auto.Reasons[dir])
		}
	}

	set, err := discover.Walk(scanPath, excludes)
	if err != nil {
		return fmt.Errorf("walking directory: %w", err)
	}

	in, err := discover.ReadInput(scanPath, set)
	if err != nil {
		return err
	}
	if !cfg.Scan.ConfigFiles {
		in.Configs = nil
	}
	in.Workers = cfg.Scan.Workers
	if scanWorkers > 0 {
		in.Workers = scanWorkers
	}

	var c *cache.Cache
	if !scanNoCache {
		c = openScanCache(scanPath)
		if c != nil {
			defer c.Close()
		}
	}

	hashes := fileHashes(in)
	if c != nil && !scanForce {
		changed, err := c.AnyFileChanged(hashes)
		if err == nil && !changed {
			if latest, err := c.LatestScan(); err == nil {
				fmt.Printf("No files changed since last scan (density %.1f%%, %s). Use --force to rescan.\n",
					latest.Density, latest.Band)
				return nil
			}
		}
	}

	res, err := engine.Run(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if c != nil {
		persistScan(c, res, len(in.Files), hashes)
	}

	report := output.NewReport(res, output.Options{
		ShowDiscarded: scanShowDiscarded || cfg.Output.ShowDiscarded,
		MaxFindings:   resolveMaxFindings(cfg),
		WithExcerpts:  scanExcerpts,
	})
	return renderReport(report, cfg)
}

// openScanCache opens the cache next to the nearest .slop directory,
// creating one at the scan root when no project exists yet. An
// unopenable cache degrades to a cacheless scan.
func openScanCache(scanPath string) *cache.Cache {
	slopDir, err := config.FindConfigDir(scanPath)
	if err != nil {
		slopDir, err = config.EnsureConfigDir(scanPath)
		if err != nil {
			return nil
		}
	}
	c, err := cache.Open(slopDir)
	if err != nil {
		if verbose {
			fmt.Fprintf(os.Stderr, "Warning: cache unavailable: %v\n", err)
		}
		return nil
	}
	return c
}

// persistScan saves the scan record and refreshes the file index.
// Cache failures degrade to warnings; the scan output stands on its own.
func persistScan(c *cache.Cache, res *engine.Result, files int, hashes map[string]string) {
	if _, err := c.SaveScan(res.Score, res.Findings, files); err != nil && verbose {
		fmt.Fprintf(os.Stderr, "Warning: saving scan failed: %v\n", err)
	}

	entries := make([]cache.FileEntry, 0, len(hashes))
	valid := make(map[string]bool, len(hashes))
	for path, hash := range hashes {
		entries = append(entries, cache.FileEntry{FilePath: path, ScanHash: hash})
		valid[path] = true
	}
	if err := c.SetBulkFilesScanned(entries); err != nil && verbose {
		fmt.Fprintf(os.Stderr, "Warning: file index update failed: %v\n", err)
	}
	if _, err := c.PruneStaleEntries(valid); err != nil && verbose {
		fmt.Fprintf(os.Stderr, "Warning: file index prune failed: %v\n", err)
	}
}

// fileHashes computes content hashes for the file index.
func fileHashes(in engine.Input) map[string]string {
	hashes := make(map[string]string, len(in.Files))
	for _, f := range in.Files {
		sum := sha256.Sum256(f.Content)
		hashes[f.Path] = hex.EncodeToString(sum[:])
	}
	return hashes
}

// resolveMaxFindings merges the flag over the config cap.
func resolveMaxFindings(cfg *config.Config) int {
	if scanMaxFindings > 0 {
		return scanMaxFindings
	}
	return cfg.Output.MaxFindings
}

// renderReport writes a report to stdout in the effective format.
// The --format flag wins over the config file.
func renderReport(report *output.Report, cfg *config.Config) error {
	name := cfg.Output.Format
	if outputFormat != "" {
		name = outputFormat
	}
	format, err := output.ParseFormat(name)
	if err != nil {
		return err
	}
	formatter, err := output.GetFormatter(format)
	if err != nil {
		return err
	}
	return formatter.FormatToWriter(os.Stdout, report)
}
