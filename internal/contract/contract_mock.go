package contract

import (
	"context"
	"time"

	"github.com/huangsam/monoscope/schema"
	"github.com/stretchr/testify/mock"
)

// MockAnalyzer is a mock implementation of Analyzer for testing.
type MockAnalyzer struct {
	mock.Mock
}

var _ Analyzer = &MockAnalyzer{} // Compile-time check

// Analyze implements the Analyzer interface.
func (m *MockAnalyzer) Analyze(ctx context.Context, job schema.Job) (schema.Report, error) {
	args := m.Called(ctx, job)
	report, _ := args.Get(0).(schema.Report)
	return report, args.Error(1)
}

// Overview implements the Analyzer interface.
func (m *MockAnalyzer) Overview(records schema.Report) schema.Summary {
	args := m.Called(records)
	return args.Get(0).(schema.Summary)
}

// MockDiscoverer is a mock implementation of ModuleDiscoverer for testing.
type MockDiscoverer struct {
	mock.Mock
}

var _ ModuleDiscoverer = &MockDiscoverer{} // Compile-time check

// Discover implements the ModuleDiscoverer interface.
func (m *MockDiscoverer) Discover(patterns []string) ([]schema.Module, error) {
	args := m.Called(patterns)
	modules, _ := args.Get(0).([]schema.Module)
	return modules, args.Error(1)
}

// MockClassifier is a mock implementation of OwnerClassifier for testing.
type MockClassifier struct {
	mock.Mock
}

var _ OwnerClassifier = &MockClassifier{} // Compile-time check

// Classify implements the OwnerClassifier interface.
func (m *MockClassifier) Classify(ctx context.Context, modulePath string) (string, error) {
	args := m.Called(ctx, modulePath)
	return args.String(0), args.Error(1)
}

// MockEmitter is a mock implementation of Emitter for testing.
type MockEmitter struct {
	mock.Mock
}

var _ Emitter = &MockEmitter{} // Compile-time check

// Name implements the Emitter interface.
func (m *MockEmitter) Name() string {
	return "mock"
}

// Emit implements the Emitter interface.
func (m *MockEmitter) Emit(ctx context.Context, view schema.TreeView) error {
	args := m.Called(ctx, view)
	return args.Error(0)
}

// MockHistoryStore is a mock implementation of HistoryStore for testing.
type MockHistoryStore struct {
	mock.Mock
}

var _ HistoryStore = &MockHistoryStore{} // Compile-time check

// BeginRun implements the HistoryStore interface.
func (m *MockHistoryStore) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	args := m.Called(startTime, configParams)
	return args.Get(0).(int64), args.Error(1)
}

// EndRun implements the HistoryStore interface.
func (m *MockHistoryStore) EndRun(runID int64, endTime time.Time, totalModules int, failedJobs int) error {
	args := m.Called(runID, endTime, totalModules, failedJobs)
	return args.Error(0)
}

// RecordModuleSummary implements the HistoryStore interface.
func (m *MockHistoryStore) RecordModuleSummary(runID int64, record schema.ModuleSummaryRecord) error {
	args := m.Called(runID, record)
	return args.Error(0)
}

// GetStatus implements the HistoryStore interface.
func (m *MockHistoryStore) GetStatus() (schema.HistoryStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.HistoryStatus), args.Error(1)
}

// GetAllRuns implements the HistoryStore interface.
func (m *MockHistoryStore) GetAllRuns() ([]schema.RunRecord, error) {
	args := m.Called()
	runs, _ := args.Get(0).([]schema.RunRecord)
	return runs, args.Error(1)
}

// GetAllModuleSummaries implements the HistoryStore interface.
func (m *MockHistoryStore) GetAllModuleSummaries() ([]schema.ModuleSummaryRecord, error) {
	args := m.Called()
	records, _ := args.Get(0).([]schema.ModuleSummaryRecord)
	return records, args.Error(1)
}

// Close implements the HistoryStore interface.
func (m *MockHistoryStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
