package core

import (
	"time"

	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/schema"
)

// beginRun opens a run in the history store. Tracking failures are logged
// and never fail the run; a zero ID disables the remaining tracking calls.
func beginRun(store contract.HistoryStore, cfg *contract.Config, start time.Time) int64 {
	if store == nil {
		return 0
	}
	runID, err := store.BeginRun(start, cfg.Params())
	if err != nil {
		contract.LogWarn("Run tracking initialization failed", err)
		return 0
	}
	return runID
}

// endRun finalizes the run row.
func endRun(store contract.HistoryStore, runID int64, end time.Time, modules, failedJobs int) {
	if store == nil || runID == 0 {
		return
	}
	if err := store.EndRun(runID, end, modules, failedJobs); err != nil {
		contract.LogWarn("Failed to finalize run tracking", err)
	}
}

// recordModules stores one summary row per module leaf.
func recordModules(store contract.HistoryStore, runID int64, view schema.TreeView) {
	if store == nil || runID == 0 {
		return
	}
	for _, o := range view.Owners {
		for _, c := range o.Categories {
			for _, m := range c.Modules {
				if err := store.RecordModuleSummary(runID, moduleSummaryRecord(runID, o.Owner, c.Category, m)); err != nil {
					contract.LogWarn("Failed to record module summary for "+m.Module.Title, err)
				}
			}
		}
	}
}

func moduleSummaryRecord(runID int64, owner string, category schema.Category, m schema.ModuleView) schema.ModuleSummaryRecord {
	return schema.ModuleSummaryRecord{
		RunID:                  runID,
		Owner:                  owner,
		Category:               string(category),
		ModuleDir:              m.Module.Dir,
		ModuleTitle:            m.Module.Title,
		Failed:                 m.Failed,
		Files:                  int32(m.Summary.Files),
		TotalSLOC:              int32(m.Summary.TotalSLOC),
		AverageMaintainability: m.Summary.AverageMaintainability,
		AverageCyclomatic:      m.Summary.AverageCyclomatic,
		MaxCyclomatic:          int32(m.Summary.MaxCyclomatic),
		TotalLintMessages:      int32(m.Summary.TotalLintMessages),
	}
}
