package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/monoscope/core/agg"
	"github.com/huangsam/monoscope/internal/analyzer"
	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/internal/discover"
	"github.com/huangsam/monoscope/internal/telemetry"
	"github.com/huangsam/monoscope/schema"
	"go.uber.org/zap"
)

// Deps bundles the collaborators of a run. History and Metrics are optional.
type Deps struct {
	Discoverer contract.ModuleDiscoverer
	Classifier contract.OwnerClassifier
	Analyzer   contract.Analyzer
	Emitters   []contract.Emitter
	History    contract.HistoryStore
	Metrics    *telemetry.Metrics
}

// NewDeps wires the default collaborators for the config.
func NewDeps(cfg *contract.Config, mgr contract.HistoryManager, emitters ...contract.Emitter) (Deps, error) {
	a, err := analyzer.New(cfg)
	if err != nil {
		return Deps{}, err
	}
	deps := Deps{
		Discoverer: discover.New(cfg),
		Classifier: contract.NewClassifier(cfg),
		Analyzer:   a,
		Emitters:   emitters,
		Metrics:    telemetry.New(),
	}
	if mgr != nil {
		deps.History = mgr.GetHistoryStore()
	}
	return deps, nil
}

// Run discovers modules, classifies them, analyzes them on the worker pool,
// rolls the results up and hands the summarized tree to every emitter.
//
// The returned result is populated even when an error is returned. A
// *contract.JobsFailedError means the run completed but some jobs failed.
func Run(ctx context.Context, cfg *contract.Config, deps Deps) (schema.RunResult, error) {
	start := time.Now()
	var result schema.RunResult

	// --- 1. Discovery ---
	modules, err := deps.Discoverer.Discover(cfg.Globs)
	if err != nil {
		return result, err
	}
	AssignSegments(modules)
	countModules(&result, modules)
	deps.Metrics.SetModules(string(schema.AddonCategory), result.Addons)
	deps.Metrics.SetModules(string(schema.EngineCategory), result.Engines)
	if len(modules) == 0 {
		contract.Logger().Warn("No addon modules matched the globs", zap.Strings("globs", cfg.Globs))
	}
	if !shouldSuppressHeader(ctx) {
		fmt.Printf("🔍 Found %d modules (%d addons, %d engines), analyzing with %d workers...\n",
			result.Modules, result.Addons, result.Engines, cfg.Workers)
	}

	// --- 2. Begin Run Tracking (if configured) ---
	result.RunID = beginRun(deps.History, cfg, start)

	// --- 3. Classification and Scheduling ---
	tree := agg.NewTree(deps.Analyzer.Overview)
	sched := NewScheduler(ctx, cfg.Workers,
		WithRetries(cfg.Retries),
		WithJobTimeout(cfg.JobTimeout),
		WithOnComplete(mergeInto(tree, deps.Metrics)),
	)

	futures, err := classifyAndSubmit(ctx, cfg, deps, tree, sched, modules)
	if err != nil {
		// Ownership is in doubt: drop queued jobs, let running ones drain, abort.
		sched.Stop()
		counts := sched.AwaitAll()
		applyCounts(&result, counts)
		for _, f := range futures {
			if o := f.Outcome(); o.Cancelled() {
				deps.Metrics.ObserveJob(string(o.Job.Category), telemetry.StatusCancelled, 0, 0)
			}
		}
		result.Duration = time.Since(start)
		endRun(deps.History, result.RunID, time.Now(), result.Modules, counts.Failed)
		contract.Logger().Error("Aborting run after classification failure",
			zap.Int("cancelled", counts.Cancelled),
			zap.Int("drained", counts.Succeeded+counts.Failed))
		return result, err
	}

	// --- 4. Join Barrier ---
	counts := sched.AwaitAll()
	applyCounts(&result, counts)

	// --- 5. Summary Pass ---
	tree.ComputeSummaries()
	view, err := tree.Snapshot()
	if err != nil {
		return result, err
	}
	result.Owners = len(view.Owners)
	result.FailedModules = countFailedModules(view)
	deps.Metrics.SetOwners(result.Owners)

	// --- 6. Emission ---
	result.EmitErrors = emitAll(ctx, deps.Emitters, view)
	recordModules(deps.History, result.RunID, view)

	// --- 7. End Run Tracking ---
	end := time.Now()
	result.Duration = end.Sub(start)
	endRun(deps.History, result.RunID, end, result.Modules, result.Failed)
	deps.Metrics.ObserveRun(result.Duration, end)
	if err := deps.Metrics.WriteTextfile(cfg.MetricsFile); err != nil {
		contract.LogWarn("Failed to write metrics textfile", err)
	}

	if result.Failed > 0 {
		return result, &contract.JobsFailedError{Failed: result.Failed, Total: result.Jobs}
	}
	if cfg.StrictEmit && result.EmitErrors > 0 {
		return result, fmt.Errorf("%d report emitters failed", result.EmitErrors)
	}
	return result, nil
}

// classifyAndSubmit resolves each module's owner, one module at a time, and
// submits its jobs. It stops at the first classification error.
func classifyAndSubmit(ctx context.Context, cfg *contract.Config, deps Deps, tree *agg.Tree, sched *Scheduler, modules []schema.Module) ([]*Future, error) {
	task := analyzeTask(deps.Analyzer)

	var futures []*Future
	for _, m := range modules {
		owner, err := deps.Classifier.Classify(ctx, m.Dir)
		if err != nil {
			return futures, err
		}
		tree.EnsureOwner(owner)

		for _, job := range BuildJobs(m, owner, cfg) {
			futures = append(futures, sched.Submit(job, task))
		}
		contract.Logger().Debug("Scheduled module",
			zap.String("module", m.Title()),
			zap.String("owner", owner),
			zap.String("category", string(m.Category)),
			zap.Bool("tests", m.HasTests))
	}
	return futures, nil
}

// analyzeTask adapts an Analyzer to a scheduler Task.
func analyzeTask(a contract.Analyzer) Task {
	return func(ctx context.Context, job schema.Job) (schema.Report, error) {
		if attempt, ok := getAttempt(ctx); ok && attempt > 1 {
			contract.Logger().Debug("Retrying analysis", zap.String("job", job.Title), zap.Int("attempt", attempt))
		}
		return a.Analyze(ctx, job)
	}
}

// mergeInto returns the completion callback that writes job results into the tree.
func mergeInto(tree *agg.Tree, metrics *telemetry.Metrics) func(Outcome) {
	return func(o Outcome) {
		job := o.Job
		if o.Err != nil {
			contract.Logger().Error("Analysis failed",
				zap.String("module", job.Module.Title),
				zap.String("category", string(job.Category)),
				zap.Int("attempts", o.Attempts),
				zap.Error(o.Err))
			tree.RecordFailure(job.Owner, job.Category, job.Module, o.Err)
			metrics.ObserveJob(string(job.Category), telemetry.StatusFailed, o.Attempts, o.Duration)
			return
		}
		tree.RecordLeaf(job.Owner, job.Category, job.Module, o.Report)
		metrics.ObserveJob(string(job.Category), telemetry.StatusSucceeded, o.Attempts, o.Duration)
	}
}

// emitAll runs every emitter in order and returns how many failed.
func emitAll(ctx context.Context, emitters []contract.Emitter, view schema.TreeView) int {
	var failed int
	for _, e := range emitters {
		if err := e.Emit(ctx, view); err != nil {
			failed++
			contract.Logger().Error("Report emitter failed", zap.String("emitter", e.Name()), zap.Error(err))
		}
	}
	return failed
}

func countModules(result *schema.RunResult, modules []schema.Module) {
	result.Modules = len(modules)
	for _, m := range modules {
		switch m.Category {
		case schema.EngineCategory:
			result.Engines++
		default:
			result.Addons++
		}
	}
}

func applyCounts(result *schema.RunResult, c Counts) {
	result.Jobs = c.Submitted
	result.Succeeded = c.Succeeded
	result.Failed = c.Failed
	result.Cancelled = c.Cancelled
}

// countFailedModules counts distinct modules with at least one failed job.
func countFailedModules(view schema.TreeView) int {
	failed := make(map[string]struct{})
	for _, o := range view.Owners {
		for _, c := range o.Categories {
			for _, m := range c.Modules {
				if m.Failed {
					failed[m.Module.Dir] = struct{}{}
				}
			}
		}
	}
	return len(failed)
}
