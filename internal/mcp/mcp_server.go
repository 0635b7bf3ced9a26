// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/monoscope/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the monoscope MCP server without starting it.
// The base input carries the flags, env and config file values every tool call starts from.
func NewMCPServer(baseInput contract.ConfigRawInput, mgr contract.HistoryManager, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"Monoscope Analysis Server",
		version,
		server.WithLogging(),
	)

	h := &toolHandler{
		baseInput: baseInput,
		mgr:       mgr,
	}

	// --- 1. Tool: analyze_modules ---
	s.AddTool(mcp.NewTool("analyze_modules",
		mcp.WithDescription("Analyze every addon and engine module matched by the globs and summarize the results per owner and category."),
		mcp.WithString("globs", mcp.Description("Comma-separated manifest globs (e.g. 'addons/*/package.json,engines/**/package.json').")),
		mcp.WithString("output", mcp.Description("Directory receiving the per-module reports.")),
		mcp.WithString("eslintrc", mcp.Description("Path to the eslintrc forwarded to the analyzer.")),
		mcp.WithString("owners", mcp.Description("Executable printing the owning team for a module directory.")),
		mcp.WithNumber("workers", mcp.Description("Number of concurrent analysis workers.")),
	), h.handleAnalyzeModules)

	// --- 2. Tool: get_run_history ---
	s.AddTool(mcp.NewTool("get_run_history",
		mcp.WithDescription("Return the stored run history with the status of the history backend."),
		mcp.WithNumber("limit", mcp.Description("Only return the most recent runs (0 returns all).")),
		mcp.WithBoolean("include_modules", mcp.Description("Include the per-module summaries of the returned runs.")),
	), h.handleGetRunHistory)

	return s
}

// StartMCPServer starts the monoscope MCP server on stdio.
func StartMCPServer(_ context.Context, baseInput contract.ConfigRawInput, mgr contract.HistoryManager, version string) error {
	s := NewMCPServer(baseInput, mgr, version)
	return server.ServeStdio(s)
}
