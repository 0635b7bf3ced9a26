// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/monoscope/schema"
)

// Analyzer runs static analysis over one job's source directory.
// Implementations must be safe for concurrent use by the scheduler's workers.
type Analyzer interface {
	// Analyze produces the raw report for the job, honoring its exclusion pattern.
	Analyze(ctx context.Context, job schema.Job) (schema.Report, error)

	// Overview reduces a record set into a summary. It must be deterministic
	// for a given input order.
	Overview(records schema.Report) schema.Summary
}

// ModuleDiscoverer turns glob patterns into the modules to analyze.
type ModuleDiscoverer interface {
	Discover(patterns []string) ([]schema.Module, error)
}

// OwnerClassifier maps a module directory to the team that owns it.
type OwnerClassifier interface {
	Classify(ctx context.Context, modulePath string) (string, error)
}

// Emitter renders a summarized tree somewhere. Emitters are only invoked
// after every job is terminal and every summary is computed.
type Emitter interface {
	Name() string
	Emit(ctx context.Context, view schema.TreeView) error
}

// HistoryManager defines the interface for reaching the run history store.
// This allows the persistence layer to be mocked for testing.
type HistoryManager interface {
	GetHistoryStore() HistoryStore
}

// HistoryStore defines the interface for tracking runs and their module summaries.
type HistoryStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, totalModules int, failedJobs int) error

	// RecordModuleSummary stores one leaf summary for the run
	RecordModuleSummary(runID int64, record schema.ModuleSummaryRecord) error

	// GetStatus returns status information about the store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllRuns returns every stored run ordered by ID
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllModuleSummaries returns every stored module summary ordered by run and module
	GetAllModuleSummaries() ([]schema.ModuleSummaryRecord, error)

	// Close closes the underlying connection
	Close() error
}
