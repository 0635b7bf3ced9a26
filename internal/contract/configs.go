package contract

import (
	"fmt"
	"os/exec"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/monoscope/schema"
)

// Default values for configuration.
const (
	DefaultManifestName  = "package.json"
	DefaultAddonKeyword  = "ember-addon"
	DefaultEngineKeyword = "ember-engine"
	DefaultErrorMarker   = "Error"
	DefaultRetries       = 0
	MaxRetries           = 10
	MaxWorkers           = 256
)

// DefaultWorkers is three quarters of the available CPUs, never less than one.
var DefaultWorkers = max(1, runtime.GOMAXPROCS(0)*3/4)

// DefaultExcludes are directory names never descended into during discovery.
var DefaultExcludes = []string{
	"node_modules/", "bower_components/", "vendor/", "dist/", "tmp/", "build/", ".git/",
}

// Config holds the runtime configuration for a run.
// This struct is the "final, validated" config.
type Config struct {
	Globs             []string
	OutputDir         string
	OwnersScript      string
	OwnersErrorMarker string
	ESLintRC          string
	Excludes          []string

	Workers    int
	Retries    int
	JobTimeout time.Duration // zero means no timeout

	Analyzer    schema.AnalyzerKind
	AnalyzerCmd string

	ManifestName  string
	AddonKeyword  string
	EngineKeyword string

	SummaryFormat schema.SummaryFormat
	SummaryFile   string
	ParquetFile   string
	MetricsFile   string
	StrictEmit    bool

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	Verbose   bool
	UseColors bool
	Width     int // Terminal width override (0 = auto-detect)
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from runCmd.Flags() ---
	Globs             string `mapstructure:"globs"`
	Output            string `mapstructure:"output"`
	Owners            string `mapstructure:"owners"`
	OwnersErrorMarker string `mapstructure:"owners-error-marker"`
	ESLintRC          string `mapstructure:"eslintrc"`
	Exclude           string `mapstructure:"exclude"`
	Workers           int    `mapstructure:"workers"`
	Retries           int    `mapstructure:"retries"`
	JobTimeout        string `mapstructure:"job-timeout"`
	Analyzer          string `mapstructure:"analyzer"`
	AnalyzerCmd       string `mapstructure:"analyzer-cmd"`
	ManifestName      string `mapstructure:"manifest-name"`
	AddonKeyword      string `mapstructure:"addon-keyword"`
	EngineKeyword     string `mapstructure:"engine-keyword"`
	SummaryFormat     string `mapstructure:"summary-format"`
	SummaryFile       string `mapstructure:"summary-file"`
	ParquetFile       string `mapstructure:"parquet-file"`
	MetricsFile       string `mapstructure:"metrics-file"`
	StrictEmit        bool   `mapstructure:"strict-emit"`

	// --- Fields from rootCmd.PersistentFlags() ---
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`
	Verbose          bool   `mapstructure:"verbose"`
	Color            string `mapstructure:"color"`
	Width            int    `mapstructure:"width"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Globs = slices.Clone(c.Globs)
	clone.Excludes = slices.Clone(c.Excludes)
	return &clone
}

// Params returns the subset of the config that is stored alongside a run.
func (c *Config) Params() map[string]any {
	return map[string]any{
		"globs":    c.Globs,
		"owners":   c.OwnersScript,
		"eslintrc": c.ESLintRC,
		"workers":  c.Workers,
		"retries":  c.Retries,
		"analyzer": string(c.Analyzer),
	}
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateRequiredInputs(cfg, input); err != nil {
		return err
	}
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processAnalyzer(cfg, input); err != nil {
		return err
	}
	if err := processOwners(cfg, input); err != nil {
		return err
	}
	if err := validateHistoryConfig(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("history-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("history-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ParseBackend maps a raw backend string to a DatabaseBackend. Empty means none.
func ParseBackend(raw string) (schema.DatabaseBackend, error) {
	if raw == "" {
		return schema.NoneBackend, nil
	}
	backend := schema.DatabaseBackend(strings.ToLower(raw))
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", raw)
	}
	return backend, nil
}

// SplitList splits a comma-separated flag value, dropping blanks.
func SplitList(raw string) []string {
	var out []string
	for p := range strings.SplitSeq(raw, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// validateRequiredInputs checks the flags a run cannot start without.
func validateRequiredInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Globs = SplitList(input.Globs)
	if len(cfg.Globs) == 0 {
		return fmt.Errorf("%w: --globs", ErrMissingFlag)
	}

	cfg.OutputDir = strings.TrimSpace(input.Output)
	if cfg.OutputDir == "" {
		return fmt.Errorf("%w: --output", ErrMissingFlag)
	}

	// Forwarded to the analyzer unmodified
	cfg.ESLintRC = input.ESLintRC
	if strings.TrimSpace(cfg.ESLintRC) == "" {
		return fmt.Errorf("%w: --eslintrc", ErrMissingFlag)
	}
	return nil
}

// validateSimpleInputs processes and validates the numeric and enum fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Verbose = input.Verbose
	cfg.Width = input.Width
	cfg.SummaryFile = input.SummaryFile
	cfg.ParquetFile = input.ParquetFile
	cfg.MetricsFile = input.MetricsFile
	cfg.StrictEmit = input.StrictEmit

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. Workers Validation ---
	if input.Workers <= 0 || input.Workers > MaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d (received %d)", MaxWorkers, input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 2. Retries Validation ---
	if input.Retries < 0 || input.Retries > MaxRetries {
		return fmt.Errorf("retries must be between 0 and %d (received %d)", MaxRetries, input.Retries)
	}
	cfg.Retries = input.Retries

	// --- 3. Job Timeout ---
	cfg.JobTimeout = 0
	if s := strings.TrimSpace(input.JobTimeout); s != "" && s != "0" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid --job-timeout %q: %w", s, err)
		}
		if d < 0 {
			return fmt.Errorf("job-timeout cannot be negative (received %s)", d)
		}
		cfg.JobTimeout = d
	}

	// --- 4. Summary Format ---
	cfg.SummaryFormat = schema.SummaryFormat(strings.ToLower(input.SummaryFormat))
	if cfg.SummaryFormat == "" {
		cfg.SummaryFormat = schema.CSVSummary
	}
	if _, ok := schema.ValidSummaryFormats[cfg.SummaryFormat]; !ok {
		return fmt.Errorf("invalid summary format '%s'. must be csv, json", input.SummaryFormat)
	}

	// --- 5. Manifest Matching ---
	cfg.ManifestName = firstNonEmpty(input.ManifestName, DefaultManifestName)
	cfg.AddonKeyword = firstNonEmpty(input.AddonKeyword, DefaultAddonKeyword)
	cfg.EngineKeyword = firstNonEmpty(input.EngineKeyword, DefaultEngineKeyword)

	// --- 6. Excludes Processing ---
	cfg.Excludes = slices.Clone(DefaultExcludes)
	cfg.Excludes = append(cfg.Excludes, SplitList(input.Exclude)...)

	return nil
}

// processAnalyzer validates the analyzer selection.
func processAnalyzer(cfg *Config, input *ConfigRawInput) error {
	cfg.Analyzer = schema.AnalyzerKind(strings.ToLower(input.Analyzer))
	if cfg.Analyzer == "" {
		cfg.Analyzer = schema.BuiltinAnalyzer
	}
	if _, ok := schema.ValidAnalyzerKinds[cfg.Analyzer]; !ok {
		return fmt.Errorf("invalid analyzer '%s'. must be builtin, exec", input.Analyzer)
	}
	cfg.AnalyzerCmd = strings.TrimSpace(input.AnalyzerCmd)
	if cfg.Analyzer == schema.ExecAnalyzer && cfg.AnalyzerCmd == "" {
		return fmt.Errorf("%w: --analyzer-cmd is required with --analyzer exec", ErrMissingFlag)
	}
	return nil
}

// processOwners resolves the optional owners script.
func processOwners(cfg *Config, input *ConfigRawInput) error {
	cfg.OwnersErrorMarker = firstNonEmpty(input.OwnersErrorMarker, DefaultErrorMarker)
	cfg.OwnersScript = strings.TrimSpace(input.Owners)
	if cfg.OwnersScript == "" {
		return nil
	}
	if _, err := exec.LookPath(cfg.OwnersScript); err != nil {
		return fmt.Errorf("owners script %q is not executable: %w", cfg.OwnersScript, err)
	}
	return nil
}

// validateHistoryConfig validates the run history backend configuration.
func validateHistoryConfig(cfg *Config, input *ConfigRawInput) error {
	backend, err := ParseBackend(input.HistoryBackend)
	if err != nil {
		return err
	}
	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = input.HistoryDBConnect
	return ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
