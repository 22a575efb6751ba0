// Package cmd implements the init command for the slop CLI.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/slopdetect/slop/internal/cache"
	"github.com/slopdetect/slop/internal/config"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize .slop directory, config, and cache",
	Long: `Initialize the .slop directory in the current directory with a default
config.yaml and an empty cache.db.

The cache stores scan history and a file index, which lets slop report
on density drift and skip unchanged trees.

Examples:
  slop init          # Initialize in current directory
  slop init --force  # Rewrite config.yaml and empty the cache`,
	RunE: runInit,
}

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if .slop already exists")
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	slopDir := filepath.Join(cwd, config.ConfigDirName)
	configPath := filepath.Join(slopDir, "config.yaml")

	_, statErr := os.Stat(configPath)
	if statErr == nil && !initForce {
		relPath, _ := filepath.Rel(cwd, slopDir)
		fmt.Printf("Already initialized at %s\n", relPath)
		return nil
	}
	if statErr == nil && initForce {
		if err := os.Remove(configPath); err != nil {
			return fmt.Errorf("removing existing config: %w", err)
		}
	}

	if _, err := config.SaveDefault(cwd); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}

	// Open the cache to create cache.db and its schema
	c, err := cache.Open(slopDir)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer c.Close()

	if initForce {
		if err := c.Clear(); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
	}

	relPath, _ := filepath.Rel(cwd, slopDir)
	fmt.Printf("Initialized slop at %s\n", relPath)

	return nil
}
