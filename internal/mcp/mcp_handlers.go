package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/huangsam/monoscope/core"
	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/internal/outwriter"
	"github.com/huangsam/monoscope/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseInput contract.ConfigRawInput
	mgr       contract.HistoryManager
}

// analyzeResponse is the payload of analyze_modules. Error is set when some
// jobs failed but the run still produced reports.
type analyzeResponse struct {
	Result schema.RunResult `json:"result"`
	Output string           `json:"output"`
	Error  string           `json:"error,omitempty"`
}

// historyResponse is the payload of get_run_history.
type historyResponse struct {
	Status  schema.HistoryStatus         `json:"status"`
	Runs    []schema.RunRecord           `json:"runs"`
	Modules []schema.ModuleSummaryRecord `json:"modules,omitempty"`
}

func (h *toolHandler) handleAnalyzeModules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input := h.baseInput
	if g := request.GetString("globs", ""); g != "" {
		input.Globs = g
	}
	if o := request.GetString("output", ""); o != "" {
		input.Output = o
	}
	if e := request.GetString("eslintrc", ""); e != "" {
		input.ESLintRC = e
	}
	if o := request.GetString("owners", ""); o != "" {
		input.Owners = o
	}
	if w := request.GetInt("workers", 0); w > 0 {
		input.Workers = w
	}
	input.Color = "no" // labels end up in JSON

	cfg := &contract.Config{}
	if err := contract.ProcessAndValidate(cfg, &input); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid analysis parameters: %v", err)), nil
	}

	deps, err := core.NewDeps(cfg, h.mgr, outwriter.BuildEmitters(cfg, nil)...)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis setup failed: %v", err)), nil
	}

	result, err := core.Run(core.WithSuppressHeader(ctx), cfg, deps)
	resp := analyzeResponse{Result: result, Output: cfg.OutputDir}
	if err != nil {
		if !errors.Is(err, contract.ErrJobsFailed) {
			return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
		}
		resp.Error = err.Error()
	}

	jsonData, _ := json.MarshalIndent(resp, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetRunHistory(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var store contract.HistoryStore
	if h.mgr != nil {
		store = h.mgr.GetHistoryStore()
	}
	if store == nil {
		return mcp.NewToolResultError("run history is not initialized"), nil
	}

	status, err := store.GetStatus()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get history status: %v", err)), nil
	}
	resp := historyResponse{Status: status, Runs: []schema.RunRecord{}}
	if !status.Connected {
		jsonData, _ := json.MarshalIndent(resp, "", "  ")
		return mcp.NewToolResultText(string(jsonData)), nil
	}

	runs, err := store.GetAllRuns()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to retrieve runs: %v", err)), nil
	}
	if limit := request.GetInt("limit", 0); limit > 0 && len(runs) > limit {
		runs = runs[len(runs)-limit:]
	}
	if runs != nil {
		resp.Runs = runs
	}

	if request.GetBool("include_modules", false) && len(runs) > 0 {
		summaries, err := store.GetAllModuleSummaries()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to retrieve module summaries: %v", err)), nil
		}
		resp.Modules = modulesForRuns(summaries, runs)
	}

	jsonData, _ := json.MarshalIndent(resp, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

// modulesForRuns keeps the summaries that belong to one of the runs.
func modulesForRuns(summaries []schema.ModuleSummaryRecord, runs []schema.RunRecord) []schema.ModuleSummaryRecord {
	ids := make(map[int64]struct{}, len(runs))
	for _, r := range runs {
		ids[r.RunID] = struct{}{}
	}
	var out []schema.ModuleSummaryRecord
	for _, s := range summaries {
		if _, ok := ids[s.RunID]; ok {
			out = append(out, s)
		}
	}
	return out
}
