package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/huangsam/monoscope/internal/analyzer"
	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/internal/telemetry"
	"github.com/huangsam/monoscope/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeAnalyzer returns canned reports keyed by source directory.
type fakeAnalyzer struct {
	mu      sync.Mutex
	reports map[string]schema.Report
	errs    map[string]error
	calls   []string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, job schema.Job) (schema.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, job.SourceDir)
	if err := f.errs[job.SourceDir]; err != nil {
		return nil, err
	}
	return f.reports[job.SourceDir], nil
}

func (f *fakeAnalyzer) Overview(records schema.Report) schema.Summary {
	return analyzer.Overview(records)
}

// blockingAnalyzer announces every job on started and holds it until release is closed.
type blockingAnalyzer struct {
	fakeAnalyzer
	started chan string
	release chan struct{}
}

func (b *blockingAnalyzer) Analyze(ctx context.Context, job schema.Job) (schema.Report, error) {
	b.started <- job.SourceDir
	<-b.release
	return b.fakeAnalyzer.Analyze(ctx, job)
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var (
	moduleA = schema.Module{ManifestPath: "/repo/a/package.json", Dir: "/repo/a", Name: "a", Category: schema.AddonCategory, HasTests: true}
	moduleB = schema.Module{ManifestPath: "/repo/b/package.json", Dir: "/repo/b", Name: "b", Category: schema.EngineCategory}
	moduleC = schema.Module{ManifestPath: "/repo/c/package.json", Dir: "/repo/c", Name: "c", Category: schema.AddonCategory}
)

func team1Analyzer() *fakeAnalyzer {
	return &fakeAnalyzer{
		reports: map[string]schema.Report{
			"/repo/a":       {{File: "addon/a.js", SLOC: 10, Cyclomatic: 2, Maintainability: 80}},
			"/repo/a/tests": {{File: "unit/a-test.js", SLOC: 5, Cyclomatic: 1, Maintainability: 90}},
			"/repo/b":       {{File: "addon/b.js", SLOC: 40, Cyclomatic: 6, Maintainability: 60}},
			"/repo/c":       {{File: "addon/c.js", SLOC: 7, Cyclomatic: 1, Maintainability: 95}},
		},
	}
}

func testConfig(t *testing.T) *contract.Config {
	t.Helper()
	return &contract.Config{
		Globs:     []string{"/repo/**/package.json"},
		OutputDir: t.TempDir(),
		Workers:   4,
	}
}

func discovering(modules ...schema.Module) *contract.MockDiscoverer {
	d := &contract.MockDiscoverer{}
	d.On("Discover", mock.Anything).Return(modules, nil)
	return d
}

// capturingEmitter records the view it was given.
func capturingEmitter(view *schema.TreeView) *contract.MockEmitter {
	e := &contract.MockEmitter{}
	e.On("Emit", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		*view = args.Get(1).(schema.TreeView)
	})
	return e
}

func TestRun_Team1Scenario(t *testing.T) {
	var view schema.TreeView
	emitter := capturingEmitter(&view)
	deps := Deps{
		Discoverer: discovering(moduleA, moduleB),
		Classifier: contract.StaticClassifier{Owner: "Team1"},
		Analyzer:   team1Analyzer(),
		Emitters:   []contract.Emitter{emitter},
	}

	result, err := Run(WithSuppressHeader(context.Background()), testConfig(t), deps)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Modules)
	assert.Equal(t, 1, result.Addons)
	assert.Equal(t, 1, result.Engines)
	assert.Equal(t, 1, result.Owners)
	assert.Equal(t, 3, result.Jobs)
	assert.Equal(t, 3, result.Succeeded)
	assert.Zero(t, result.Failed)
	emitter.AssertNumberOfCalls(t, "Emit", 1)

	require.Len(t, view.Owners, 1)
	owner := view.Owners[0]
	assert.Equal(t, "Team1", owner.Owner)
	require.Len(t, owner.Categories, 3)

	byCategory := make(map[schema.Category]schema.CategoryView)
	for _, c := range owner.Categories {
		byCategory[c.Category] = c
	}
	assert.Equal(t, "/repo/a", byCategory[schema.AddonCategory].Modules[0].Module.Dir)
	assert.Equal(t, "/repo/b", byCategory[schema.EngineCategory].Modules[0].Module.Dir)
	assert.Equal(t, "/repo/a", byCategory[schema.TestsCategory].Modules[0].Module.Dir)

	assert.Equal(t, analyzer.Overview(owner.AllRecords()), owner.Summary)
	assert.Equal(t, 55, view.Summary.TotalSLOC)
}

func TestRun_EmptyGlobFailsBeforeScheduling(t *testing.T) {
	d := &contract.MockDiscoverer{}
	d.On("Discover", mock.Anything).Return(nil, contract.ErrNoFiles)
	a := team1Analyzer()
	emitter := &contract.MockEmitter{}
	classifier := &contract.MockClassifier{}

	_, err := Run(WithSuppressHeader(context.Background()), testConfig(t), Deps{
		Discoverer: d,
		Classifier: classifier,
		Analyzer:   a,
		Emitters:   []contract.Emitter{emitter},
	})

	assert.ErrorIs(t, err, contract.ErrNoFiles)
	assert.Zero(t, a.callCount())
	classifier.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything)
	emitter.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)
}

func TestRun_NoModulesIsAnEmptySuccess(t *testing.T) {
	var view schema.TreeView
	result, err := Run(WithSuppressHeader(context.Background()), testConfig(t), Deps{
		Discoverer: discovering(),
		Classifier: contract.StaticClassifier{Owner: "ALL"},
		Analyzer:   team1Analyzer(),
		Emitters:   []contract.Emitter{capturingEmitter(&view)},
	})
	require.NoError(t, err)
	assert.Zero(t, result.Modules)
	assert.Zero(t, result.Jobs)
	assert.Empty(t, view.Owners)
}

func TestRun_ClassifierErrorAborts(t *testing.T) {
	classifier := &contract.MockClassifier{}
	classifier.On("Classify", mock.Anything, "/repo/a").Return("Team1", nil)
	classifier.On("Classify", mock.Anything, "/repo/b").
		Return("", &contract.ClassifyError{Module: "/repo/b", Err: errors.New("Error: unknown module")})

	emitter := &contract.MockEmitter{}
	history := &contract.MockHistoryStore{}
	history.On("BeginRun", mock.Anything, mock.Anything).Return(int64(3), nil)
	history.On("EndRun", int64(3), mock.Anything, 3, mock.Anything).Return(nil)

	result, err := Run(WithSuppressHeader(context.Background()), testConfig(t), Deps{
		Discoverer: discovering(moduleA, moduleB, moduleC),
		Classifier: classifier,
		Analyzer:   team1Analyzer(),
		Emitters:   []contract.Emitter{emitter},
		History:    history,
		Metrics:    telemetry.New(),
	})

	assert.ErrorIs(t, err, contract.ErrClassification)
	classifier.AssertNotCalled(t, "Classify", mock.Anything, "/repo/c")
	emitter.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)
	history.AssertNotCalled(t, "RecordModuleSummary", mock.Anything, mock.Anything)
	history.AssertExpectations(t)

	// Only module A's two jobs were ever submitted; each either drained or was cancelled.
	assert.Equal(t, 2, result.Jobs)
	assert.Equal(t, 2, result.Succeeded+result.Cancelled)
}

func TestRun_ClassifierErrorAbortsWithJobInFlight(t *testing.T) {
	a := &blockingAnalyzer{
		fakeAnalyzer: fakeAnalyzer{reports: team1Analyzer().reports},
		started:      make(chan string, 2),
		release:      make(chan struct{}),
	}

	var inFlight string
	var released sync.WaitGroup
	released.Add(1)
	classifier := &contract.MockClassifier{}
	classifier.On("Classify", mock.Anything, "/repo/a").Return("Team1", nil)
	classifier.On("Classify", mock.Anything, "/repo/b").
		Return("", &contract.ClassifyError{Module: "/repo/b", Err: errors.New("Error: unknown module")}).
		Run(func(mock.Arguments) {
			// One of module A's jobs holds the only worker while B fails.
			inFlight = <-a.started
			go func() {
				defer released.Done()
				time.Sleep(50 * time.Millisecond)
				close(a.release)
			}()
		})

	cfg := testConfig(t)
	cfg.Workers = 1
	emitter := &contract.MockEmitter{}
	result, err := Run(WithSuppressHeader(context.Background()), cfg, Deps{
		Discoverer: discovering(moduleA, moduleB, moduleC),
		Classifier: classifier,
		Analyzer:   a,
		Emitters:   []contract.Emitter{emitter},
	})
	released.Wait()

	assert.ErrorIs(t, err, contract.ErrClassification)
	assert.True(t, strings.HasPrefix(inFlight, "/repo/a"), "in flight: %s", inFlight)
	classifier.AssertNotCalled(t, "Classify", mock.Anything, "/repo/c")
	emitter.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)

	// The running job drained; its queued sibling never started.
	assert.Equal(t, 2, result.Jobs)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Cancelled)
	assert.Equal(t, 1, a.callCount())
}

func TestRun_FailedJobIsExcludedAndReported(t *testing.T) {
	a := team1Analyzer()
	a.errs = map[string]error{"/repo/b": errors.New("analyzer crashed")}

	var view schema.TreeView
	emitter := capturingEmitter(&view)
	result, err := Run(WithSuppressHeader(context.Background()), testConfig(t), Deps{
		Discoverer: discovering(moduleA, moduleB, moduleC),
		Classifier: contract.StaticClassifier{Owner: "Team1"},
		Analyzer:   a,
		Emitters:   []contract.Emitter{emitter},
	})

	var jfe *contract.JobsFailedError
	require.ErrorAs(t, err, &jfe)
	assert.Equal(t, 1, jfe.Failed)
	assert.Equal(t, 4, jfe.Total)
	assert.ErrorIs(t, err, contract.ErrJobsFailed)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.FailedModules)
	assert.Equal(t, 3, result.Succeeded)
	emitter.AssertNumberOfCalls(t, "Emit", 1)

	// a (10) + a tests (5) + c (7); b is excluded.
	assert.Equal(t, 22, view.Summary.TotalSLOC)
	assert.Equal(t, 3, view.Summary.Files)
}

func TestRun_EmitErrors(t *testing.T) {
	failing := &contract.MockEmitter{}
	failing.On("Emit", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	var view schema.TreeView
	next := capturingEmitter(&view)

	deps := Deps{
		Discoverer: discovering(moduleC),
		Classifier: contract.StaticClassifier{Owner: "ALL"},
		Analyzer:   team1Analyzer(),
		Emitters:   []contract.Emitter{failing, next},
	}

	cfg := testConfig(t)
	result, err := Run(WithSuppressHeader(context.Background()), cfg, deps)
	require.NoError(t, err, "emission errors do not fail the run by default")
	assert.Equal(t, 1, result.EmitErrors)
	next.AssertNumberOfCalls(t, "Emit", 1)
	assert.Equal(t, 7, view.Summary.TotalSLOC, "summaries survive a failed emitter")

	cfg.StrictEmit = true
	_, err = Run(WithSuppressHeader(context.Background()), cfg, deps)
	assert.ErrorContains(t, err, "1 report emitters failed")
}

func TestRun_RecordsHistory(t *testing.T) {
	history := &contract.MockHistoryStore{}
	history.On("BeginRun", mock.Anything, mock.Anything).Return(int64(42), nil)
	history.On("RecordModuleSummary", int64(42), mock.Anything).Return(nil)
	history.On("EndRun", int64(42), mock.Anything, 2, 0).Return(nil)

	result, err := Run(WithSuppressHeader(context.Background()), testConfig(t), Deps{
		Discoverer: discovering(moduleA, moduleB),
		Classifier: contract.StaticClassifier{Owner: "Team1"},
		Analyzer:   team1Analyzer(),
		History:    history,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.RunID)

	history.AssertExpectations(t)
	history.AssertNumberOfCalls(t, "RecordModuleSummary", 3)
	history.AssertCalled(t, "RecordModuleSummary", int64(42), mock.MatchedBy(func(r schema.ModuleSummaryRecord) bool {
		return r.Category == "engine" && r.ModuleDir == "/repo/b" && r.TotalSLOC == 40 && r.Owner == "Team1"
	}))
}

func TestRun_HistoryFailureDoesNotFailRun(t *testing.T) {
	history := &contract.MockHistoryStore{}
	history.On("BeginRun", mock.Anything, mock.Anything).Return(int64(0), errors.New("db locked"))

	_, err := Run(WithSuppressHeader(context.Background()), testConfig(t), Deps{
		Discoverer: discovering(moduleC),
		Classifier: contract.StaticClassifier{Owner: "ALL"},
		Analyzer:   team1Analyzer(),
		History:    history,
	})
	require.NoError(t, err)
	history.AssertNotCalled(t, "RecordModuleSummary", mock.Anything, mock.Anything)
	history.AssertNotCalled(t, "EndRun", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_WritesMetricsTextfile(t *testing.T) {
	cfg := testConfig(t)
	cfg.MetricsFile = filepath.Join(t.TempDir(), "monoscope.prom")

	_, err := Run(WithSuppressHeader(context.Background()), cfg, Deps{
		Discoverer: discovering(moduleA),
		Classifier: contract.StaticClassifier{Owner: "ALL"},
		Analyzer:   team1Analyzer(),
		Metrics:    telemetry.New(),
	})
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `monoscope_jobs_total{category="tests",status="succeeded"} 1`)
}

func TestRun_DeterministicAcrossRuns(t *testing.T) {
	modules := []schema.Module{moduleA, moduleB, moduleC}
	owners := map[string]string{"/repo/a": "Alpha", "/repo/b": "Beta", "/repo/c": "Alpha"}

	runOnce := func(workers int) schema.TreeView {
		classifier := &contract.MockClassifier{}
		for dir, owner := range owners {
			classifier.On("Classify", mock.Anything, dir).Return(owner, nil)
		}
		var view schema.TreeView
		cfg := testConfig(t)
		cfg.Workers = workers
		_, err := Run(WithSuppressHeader(context.Background()), cfg, Deps{
			Discoverer: discovering(modules...),
			Classifier: classifier,
			Analyzer:   team1Analyzer(),
			Emitters:   []contract.Emitter{capturingEmitter(&view)},
		})
		require.NoError(t, err)
		return view
	}

	sequential, parallel := runOnce(1), runOnce(8)
	if diff := cmp.Diff(sequential, parallel); diff != "" {
		t.Errorf("tree depends on scheduling (-workers=1 +workers=8):\n%s", diff)
	}
	require.Len(t, parallel.Owners, 2)
	assert.Equal(t, "Alpha", parallel.Owners[0].Owner)
	assert.Equal(t, 3, parallel.Owners[0].Summary.Files)
}

func TestNewDeps(t *testing.T) {
	rc := filepath.Join(t.TempDir(), ".eslintrc.json")
	require.NoError(t, os.WriteFile(rc, []byte(`{"rules": {}}`), 0o644))

	cfg := &contract.Config{ESLintRC: rc, Analyzer: schema.BuiltinAnalyzer}
	deps, err := NewDeps(cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, deps.Discoverer)
	assert.NotNil(t, deps.Metrics)
	assert.Nil(t, deps.History)
	assert.IsType(t, contract.StaticClassifier{}, deps.Classifier)

	_, err = NewDeps(&contract.Config{Analyzer: schema.ExecAnalyzer}, nil)
	assert.Error(t, err)
}
