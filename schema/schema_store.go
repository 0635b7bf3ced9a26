package schema

import "time"

// RunRecord represents a row from the monoscope_runs table.
type RunRecord struct {
	RunID         int64      `json:"run_id"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	RunDurationMs *int32     `json:"run_duration_ms,omitempty"`
	TotalModules  int32      `json:"total_modules"`
	FailedJobs    int32      `json:"failed_jobs"`
	ConfigParams  *string    `json:"config_params,omitempty"`
}

// ModuleSummaryRecord represents a row from the monoscope_module_summaries table.
type ModuleSummaryRecord struct {
	RunID                  int64   `json:"run_id"`
	Owner                  string  `json:"owner"`
	Category               string  `json:"category"`
	ModuleDir              string  `json:"module_dir"`
	ModuleTitle            string  `json:"module_title"`
	Failed                 bool    `json:"failed"`
	Files                  int32   `json:"files"`
	TotalSLOC              int32   `json:"total_sloc"`
	AverageMaintainability float64 `json:"average_maintainability"`
	AverageCyclomatic      float64 `json:"average_cyclomatic"`
	MaxCyclomatic          int32   `json:"max_cyclomatic"`
	TotalLintMessages      int32   `json:"total_lint_messages"`
}

// HistoryStatus represents the status of the run history store.
type HistoryStatus struct {
	Backend       string           `json:"backend"`
	Connected     bool             `json:"connected"`
	TotalRuns     int              `json:"total_runs"`
	LastRunID     int64            `json:"last_run_id"`
	LastRunTime   time.Time        `json:"last_run_time"`
	OldestRunTime time.Time        `json:"oldest_run_time"`
	TotalModules  int              `json:"total_modules"`
	TableSizes map[string]int64 `json:"table_sizes"`
}
