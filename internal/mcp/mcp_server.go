// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/internal/upstream"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the Worktally MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager) *server.MCPServer {
	return newMCPServer(baseCfg, mgr, upstream.New)
}

func newMCPServer(baseCfg *contract.Config, mgr contract.StoreManager, newSource sourceFactory) *server.MCPServer {
	s := server.NewMCPServer(
		"Worktally Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg:   baseCfg,
		mgr:       mgr,
		newSource: newSource,
	}

	// --- 1. Tool: calculate_target_hours ---
	s.AddTool(mcp.NewTool("calculate_target_hours",
		mcp.WithDescription("Compute expected working hours per setting combination for users over a date range."),
		mcp.WithString("start_date", mcp.Description("First day of the range (YYYY-MM-DD)."), mcp.Required()),
		mcp.WithString("end_date", mcp.Description("Last day of the range, inclusive (YYYY-MM-DD)."), mcp.Required()),
		mcp.WithString("user_ids", mcp.Description("Comma-separated IVA user ids.")),
		mcp.WithBoolean("all", mcp.Description("Compute for every active user instead of user_ids.")),
	), h.handleCalculateTargetHours)

	// --- 2. Tool: calculate_performance ---
	s.AddTool(mcp.NewTool("calculate_performance",
		mcp.WithDescription("Compare billable hours against target hours and classify each user as EXCEEDED, MEET or BELOW."),
		mcp.WithString("start_date", mcp.Description("First day of the range (YYYY-MM-DD)."), mcp.Required()),
		mcp.WithString("end_date", mcp.Description("Last day of the range, inclusive (YYYY-MM-DD)."), mcp.Required()),
		mcp.WithString("user_ids", mcp.Description("Comma-separated IVA user ids.")),
		mcp.WithBoolean("all", mcp.Description("Compute for every active user instead of user_ids.")),
		mcp.WithNumber("actual_billable_hours", mcp.Description("Use this value instead of stored summaries. Only valid for a single user.")),
	), h.handleCalculatePerformance)

	// --- 3. Tool: list_weeks ---
	s.AddTool(mcp.NewTool("list_weeks",
		mcp.WithDescription("List the reporting weeks of a year, optionally narrowed to one 4-week month."),
		mcp.WithNumber("year", mcp.Description("Nominal reporting year."), mcp.Required()),
		mcp.WithNumber("month", mcp.Description("4-week month number (1-based).")),
	), h.handleListWeeks)

	// --- 4. Tool: current_week ---
	s.AddTool(mcp.NewTool("current_week",
		mcp.WithDescription("Return the reporting week that contains today."),
	), h.handleCurrentWeek)

	// --- 5. Tool: sync_status ---
	s.AddTool(mcp.NewTool("sync_status",
		mcp.WithDescription("Show per-day worklog sync status for a date range."),
		mcp.WithString("start_date", mcp.Description("First day (YYYY-MM-DD)."), mcp.Required()),
		mcp.WithString("end_date", mcp.Description("Last day, inclusive (YYYY-MM-DD)."), mcp.Required()),
	), h.handleSyncStatus)

	// --- 6. Tool: sync_worklogs ---
	s.AddTool(mcp.NewTool("sync_worklogs",
		mcp.WithDescription("Pull worklogs from the upstream API into the store for a date range."),
		mcp.WithString("start_date", mcp.Description("First day (YYYY-MM-DD)."), mcp.Required()),
		mcp.WithString("end_date", mcp.Description("Last day, inclusive (YYYY-MM-DD)."), mcp.Required()),
		mcp.WithBoolean("dry_run", mcp.Description("Fetch and count without writing.")),
		mcp.WithBoolean("force", mcp.Description("Re-sync days already marked completed.")),
	), h.handleSyncWorklogs)

	return s
}

// StartMCPServer starts the Worktally MCP server.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
