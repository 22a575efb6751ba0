// Package cmd implements the serve command for the slop CLI.
package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/slopdetect/slop/internal/mcp"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"mcp"},
	Short:   "Start MCP server for AI agent integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio.

This lets AI agents query bloat findings through MCP tools instead of
spawning CLI commands, which pays off during iterative cleanup work
where the same project is scanned repeatedly.

Available Tools:
  slop_scan    Scan the project and return the density verdict
  slop_report  Latest saved scan plus density history
  slop_plan    Ordered fix plan for confirmed findings

Examples:
  slop serve                           # Start with default tools
  slop serve --tools slop_scan         # Expose specific tools only
  slop serve --timeout 30m             # Auto-stop after 30 minutes idle
  slop serve --list-tools              # Show available tools`,
	RunE: runServe,
}

var (
	serveTools     string
	serveTimeout   string
	serveListTools bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveTools, "tools", "", "Comma-separated list of tools to expose (default: all)")
	serveCmd.Flags().StringVar(&serveTimeout, "timeout", "30m", "Inactivity timeout (0 for no timeout)")
	serveCmd.Flags().BoolVar(&serveListTools, "list-tools", false, "List available tools")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveListTools {
		fmt.Println("Available MCP tools:")
		fmt.Println()
		for _, name := range mcp.AllTools {
			schema := mcp.Schemas()[name]
			fmt.Printf("  %-12s %s\n", name, schema.Description)
		}
		return nil
	}

	var timeout time.Duration
	if serveTimeout != "" && serveTimeout != "0" {
		var err error
		timeout, err = time.ParseDuration(serveTimeout)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
	}

	var tools []string
	if serveTools != "" {
		for _, t := range strings.Split(serveTools, ",") {
			tools = append(tools, strings.TrimSpace(t))
		}
	}

	server, err := mcp.New(mcp.Config{Tools: tools, Timeout: timeout})
	if err != nil {
		return err
	}

	return server.ServeStdio()
}
