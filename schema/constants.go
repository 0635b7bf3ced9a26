package schema

// Custom string types for type safety.
type (
	// Category is the module-type bucket a job's report is filed under.
	Category string

	// SummaryFormat represents the format of the per-module summary table.
	SummaryFormat string

	// AnalyzerKind selects which Analyzer implementation runs the jobs.
	AnalyzerKind string

	// DatabaseBackend represents the database backend for run history.
	DatabaseBackend string
)

// All categories supported.
const (
	AddonCategory  Category = "addon"
	EngineCategory Category = "engine"
	TestsCategory  Category = "tests"
)

// AllCategories lists categories in display order.
var AllCategories = []Category{AddonCategory, EngineCategory, TestsCategory}

// All summary formats supported.
const (
	CSVSummary  SummaryFormat = "csv"
	JSONSummary SummaryFormat = "json"
)

// All analyzer kinds supported.
const (
	BuiltinAnalyzer AnalyzerKind = "builtin" // default
	ExecAnalyzer    AnalyzerKind = "exec"
)

// All history backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// DefaultOwner is the owner label used when no classifier is configured.
const DefaultOwner = "ALL"

// ValidSummaryFormats lists all valid summary formats.
var ValidSummaryFormats = map[SummaryFormat]struct{}{
	CSVSummary:  {},
	JSONSummary: {},
}

// ValidAnalyzerKinds lists all valid analyzer kinds.
var ValidAnalyzerKinds = map[AnalyzerKind]struct{}{
	BuiltinAnalyzer: {},
	ExecAnalyzer:    {},
}

// ValidDatabaseBackends lists all valid history backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}
