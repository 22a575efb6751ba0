// Package mcp provides an MCP (Model Context Protocol) server for slop.
// This allows AI agents to query bloat findings through MCP tools instead
// of CLI commands.
package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/slopdetect/slop/internal/cache"
	"github.com/slopdetect/slop/internal/config"
	"github.com/slopdetect/slop/internal/discover"
	"github.com/slopdetect/slop/internal/engine"
	"github.com/slopdetect/slop/internal/output"
)

// Server wraps the MCP server with slop-specific functionality
type Server struct {
	mcpServer    *server.MCPServer
	cfg          *config.Config
	slopDir      string
	projectRoot  string
	tools        map[string]bool
	lastActivity time.Time
	timeout      time.Duration
	mu           sync.RWMutex
}

// Config holds server configuration
type Config struct {
	Tools   []string      // Which tools to expose (empty = all)
	Timeout time.Duration // Inactivity timeout (0 = no timeout)
}

// DefaultTools is the default set of tools to expose
var DefaultTools = []string{"slop_scan", "slop_report", "slop_plan"}

// AllTools lists all available tools
var AllTools = []string{"slop_scan", "slop_report", "slop_plan"}

// New creates a new MCP server for slop
func New(cfg Config) (*Server, error) {
	slopDir, err := config.FindConfigDir(".")
	if err != nil {
		return nil, fmt.Errorf("slop not initialized: run 'slop init && slop scan' first")
	}
	projectRoot := filepath.Dir(slopDir)

	projectCfg, err := config.Load(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	mcpServer := server.NewMCPServer(
		"slop",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcpServer:    mcpServer,
		cfg:          projectCfg,
		slopDir:      slopDir,
		projectRoot:  projectRoot,
		tools:        make(map[string]bool),
		lastActivity: time.Now(),
		timeout:      cfg.Timeout,
	}

	toolsToRegister := cfg.Tools
	if len(toolsToRegister) == 0 {
		toolsToRegister = DefaultTools
	}

	for _, toolName := range toolsToRegister {
		if err := s.registerTool(toolName); err != nil {
			return nil, fmt.Errorf("failed to register tool %s: %w", toolName, err)
		}
		s.tools[toolName] = true
	}

	return s, nil
}

// registerTool registers a single tool with the MCP server
func (s *Server) registerTool(name string) error {
	switch name {
	case "slop_scan":
		return s.registerScanTool()
	case "slop_report":
		return s.registerReportTool()
	case "slop_plan":
		return s.registerPlanTool()
	default:
		return fmt.Errorf("unknown tool: %s", name)
	}
}

// ServeStdio starts the server using stdio transport
func (s *Server) ServeStdio() error {
	if s.timeout > 0 {
		go s.timeoutChecker()
	}

	return server.ServeStdio(s.mcpServer)
}

// timeoutChecker monitors for inactivity and exits if timeout exceeded
func (s *Server) timeoutChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.RLock()
		elapsed := time.Since(s.lastActivity)
		s.mu.RUnlock()

		if elapsed > s.timeout {
			fmt.Fprintf(os.Stderr, "slop serve: timeout after %v of inactivity\n", s.timeout)
			os.Exit(0)
		}
	}
}

// updateActivity updates the last activity timestamp
func (s *Server) updateActivity() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// ListTools returns the list of registered tools
func (s *Server) ListTools() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]string, 0, len(s.tools))
	for t := range s.tools {
		tools = append(tools, t)
	}
	return tools
}

// ToolSchema describes a tool's name, description, and parameters.
type ToolSchema struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Parameters  []ParameterSchema `json:"parameters" yaml:"parameters"`
}

// ParameterSchema describes a single tool parameter.
type ParameterSchema struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Required    bool   `json:"required" yaml:"required"`
}

// toolSchemaRegistry holds the schema definitions for all tools.
// These mirror the mcp.NewTool() definitions in the register*Tool() functions.
var toolSchemaRegistry = map[string]ToolSchema{
	"slop_scan": {
		Name:        "slop_scan",
		Description: "Scan the project for bloat and return the density score with confirmed findings.",
		Parameters: []ParameterSchema{
			{Name: "path", Type: "string", Description: "Subdirectory to scan (default: project root)"},
			{Name: "show_discarded", Type: "boolean", Description: "Include rejected candidates with rejection reasons"},
			{Name: "excerpts", Type: "boolean", Description: "Include source excerpts and replacements"},
		},
	},
	"slop_report": {
		Name:        "slop_report",
		Description: "Return the latest saved scan verdict with its findings and recent density history.",
		Parameters: []ParameterSchema{
			{Name: "history", Type: "number", Description: "Number of past scans to include (default: 5)"},
		},
	},
	"slop_plan": {
		Name:        "slop_plan",
		Description: "Scan the project and return an ordered fix plan that applies cleanly top to bottom.",
		Parameters: []ParameterSchema{
			{Name: "path", Type: "string", Description: "Subdirectory to plan for (default: project root)"},
		},
	},
}

// Schemas returns the schema registry for tool discovery.
func Schemas() map[string]ToolSchema {
	return toolSchemaRegistry
}

// registerScanTool registers the slop_scan tool
func (s *Server) registerScanTool() error {
	tool := mcp.NewTool("slop_scan",
		mcp.WithDescription("Scan the project for bloat and return the density score with confirmed findings."),
		mcp.WithString("path",
			mcp.Description("Subdirectory to scan (default: project root)"),
		),
		mcp.WithBoolean("show_discarded",
			mcp.Description("Include rejected candidates with rejection reasons"),
		),
		mcp.WithBoolean("excerpts",
			mcp.Description("Include source excerpts and replacements"),
		),
	)

	s.mcpServer.AddTool(tool, s.handleScan)
	return nil
}

// registerReportTool registers the slop_report tool
func (s *Server) registerReportTool() error {
	tool := mcp.NewTool("slop_report",
		mcp.WithDescription("Return the latest saved scan verdict with its findings and recent density history."),
		mcp.WithNumber("history",
			mcp.Description("Number of past scans to include (default: 5)"),
		),
	)

	s.mcpServer.AddTool(tool, s.handleReport)
	return nil
}

// registerPlanTool registers the slop_plan tool
func (s *Server) registerPlanTool() error {
	tool := mcp.NewTool("slop_plan",
		mcp.WithDescription("Scan the project and return an ordered fix plan that applies cleanly top to bottom."),
		mcp.WithString("path",
			mcp.Description("Subdirectory to plan for (default: project root)"),
		),
	)

	s.mcpServer.AddTool(tool, s.handlePlan)
	return nil
}

// Tool handlers

func (s *Server) handleScan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	args := req.GetArguments()
	path, _ := args["path"].(string)
	showDiscarded, _ := args["show_discarded"].(bool)
	excerpts, _ := args["excerpts"].(bool)

	res, err := s.scanProject(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report := output.NewReport(res, output.Options{
		ShowDiscarded: showDiscarded,
		MaxFindings:   s.cfg.Output.MaxFindings,
		WithExcerpts:  excerpts,
	})
	text, err := toJSON(report)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	args := req.GetArguments()
	history := 5
	if h, ok := args["history"].(float64); ok && h > 0 {
		history = int(h)
	}

	text, err := s.executeReport(history)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handlePlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	args := req.GetArguments()
	path, _ := args["path"].(string)

	res, err := s.scanProject(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report := output.NewReport(res, output.Options{
		IncludePlan:  true,
		WithExcerpts: true,
	})
	text, err := toJSON(report)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

// Execution functions (implementations)

// scanProject runs a full scan rooted at the project, optionally scoped
// to a subdirectory.
func (s *Server) scanProject(ctx context.Context, path string) (*engine.Result, error) {
	root := s.projectRoot
	if path != "" {
		if filepath.IsAbs(path) {
			return nil, fmt.Errorf("path must be relative to the project root")
		}
		root = filepath.Join(s.projectRoot, path)
	}

	set, err := discover.Walk(root, s.cfg.Scan.Exclude)
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	in, err := discover.ReadInput(root, set)
	if err != nil {
		return nil, err
	}
	if !s.cfg.Scan.ConfigFiles {
		in.Configs = nil
	}
	in.Workers = s.cfg.Scan.Workers

	return engine.Run(ctx, in)
}

// executeReport reads the saved scan history from the cache.
func (s *Server) executeReport(history int) (string, error) {
	c, err := cache.Open(s.slopDir)
	if err != nil {
		return "", fmt.Errorf("opening cache: %w", err)
	}
	defer c.Close()

	latest, err := c.LatestScan()
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("no scans recorded: run 'slop scan' first")
	}
	if err != nil {
		return "", fmt.Errorf("reading scan history: %w", err)
	}

	findings, err := c.Findings(latest.ID)
	if err != nil {
		return "", fmt.Errorf("reading findings: %w", err)
	}
	records, err := c.History(history)
	if err != nil {
		return "", fmt.Errorf("reading scan history: %w", err)
	}

	result := map[string]interface{}{
		"latest": map[string]interface{}{
			"created_at":     latest.CreatedAt,
			"files":          latest.Files,
			"total_lines":    latest.TotalLines,
			"raw_lines":      latest.RawLines,
			"weighted_lines": latest.WeightedLines,
			"density":        latest.Density,
			"band":           latest.Band,
		},
		"findings": findings,
		"history":  records,
	}
	return toJSON(result)
}

func toJSON(v interface{}) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
