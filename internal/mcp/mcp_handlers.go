package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/worktally/core"
	"github.com/huangsam/worktally/core/ingest"
	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// sourceFactory builds the upstream worklog source for a config.
type sourceFactory func(cfg contract.UpstreamConfig) (contract.WorklogSource, error)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg   *contract.Config
	mgr       contract.StoreManager
	newSource sourceFactory
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) services() (*core.Services, error) {
	if h.mgr == nil {
		return nil, fmt.Errorf("%w: store is not initialized", contract.ErrPersistence)
	}
	return core.NewServicesFromManager(h.baseCfg, h.mgr)
}

func dateRange(request mcp.CallToolRequest) (time.Time, time.Time, error) {
	return contract.ParseDateRange(request.GetString("start_date", ""), request.GetString("end_date", ""))
}

func calculationRequest(request mcp.CallToolRequest) (schema.CalculationRequest, error) {
	start, end, err := dateRange(request)
	if err != nil {
		return schema.CalculationRequest{}, err
	}
	req := schema.CalculationRequest{StartDate: start, EndDate: end, CalculateAll: request.GetBool("all", false)}
	if !req.CalculateAll {
		ids, err := contract.ParseUserIDs(request.GetString("user_ids", ""))
		if err != nil {
			return schema.CalculationRequest{}, err
		}
		if len(ids) == 0 {
			return schema.CalculationRequest{}, contract.Validationf("user_ids is required unless all is set")
		}
		req.UserIDs = ids
	}
	return req, nil
}

func (h *toolHandler) handleCalculateTargetHours(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := calculationRequest(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	svc, err := h.services()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := svc.Targets(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("target calculation failed: %v", err)), nil
	}
	return jsonResult(results)
}

func (h *toolHandler) handleCalculatePerformance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := calculationRequest(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	args := request.GetArguments()
	_, hasActual := args["actual_billable_hours"]
	if hasActual && (req.CalculateAll || len(req.UserIDs) != 1) {
		return mcp.NewToolResultError("invalid parameters: actual_billable_hours requires exactly one user id"), nil
	}

	svc, err := h.services()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if hasActual {
		actual := request.GetFloat("actual_billable_hours", 0)
		resp := svc.Performance.CalculatePerformance(ctx, req.UserIDs[0], req.StartDate, req.EndDate, &actual)
		return jsonResult([]schema.PerformanceResponse{resp})
	}
	results, err := svc.PerformanceFor(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("performance calculation failed: %v", err)), nil
	}
	return jsonResult(results)
}

func (h *toolHandler) handleListWeeks(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	year := request.GetInt("year", 0)
	month := request.GetInt("month", 0)
	if year <= 0 {
		return mcp.NewToolResultError("invalid parameters: year must be positive"), nil
	}
	weeks, err := core.NewServices(h.baseCfg, nil).Weeks(year, month)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	return jsonResult(weeks)
}

func (h *toolHandler) handleCurrentWeek(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	week, err := core.NewServices(h.baseCfg, nil).CurrentWeek()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(week)
}

func (h *toolHandler) handleSyncStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := dateRange(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	svc, err := h.services()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	days, err := svc.Store.ListSyncDays(ctx, start, end)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read sync status: %v", err)), nil
	}
	if days == nil {
		days = []schema.SyncDayMeta{}
	}
	return jsonResult(days)
}

func (h *toolHandler) handleSyncWorklogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := dateRange(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	svc, err := h.services()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := contract.ValidateUpstreamCredentials(h.baseCfg.Upstream); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid upstream configuration: %v", err)), nil
	}
	source, err := h.newSource(h.baseCfg.Upstream)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid upstream configuration: %v", err)), nil
	}

	opts := ingest.SyncOptions{
		DryRun:             request.GetBool("dry_run", false),
		Force:              request.GetBool("force", false),
		RecomputeSummaries: true,
	}
	result, err := svc.Sync(ctx, svc.SyncServiceWith(source), start, end, opts)
	if err != nil && len(result.Days) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("sync failed: %v", err)), nil
	}
	// Partial failures are reported inside the per-day results.
	return jsonResult(result)
}
