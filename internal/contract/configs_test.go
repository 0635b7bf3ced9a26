package contract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/monoscope/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInput returns a raw input that passes validation.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Globs:    "addons/*/package.json, engines/*/package.json",
		Output:   "out",
		ESLintRC: ".eslintrc.json",
		Workers:  4,
		Color:    "yes",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
		expectIs    error
	}{
		{
			name:   "valid minimal config",
			mutate: func(*ConfigRawInput) {},
		},
		{
			name:        "missing globs",
			mutate:      func(in *ConfigRawInput) { in.Globs = " , " },
			expectError: true,
			expectIs:    ErrMissingFlag,
		},
		{
			name:        "missing output",
			mutate:      func(in *ConfigRawInput) { in.Output = "" },
			expectError: true,
			expectIs:    ErrMissingFlag,
		},
		{
			name:        "missing eslintrc",
			mutate:      func(in *ConfigRawInput) { in.ESLintRC = "" },
			expectError: true,
			expectIs:    ErrMissingFlag,
		},
		{
			name:        "zero workers",
			mutate:      func(in *ConfigRawInput) { in.Workers = 0 },
			expectError: true,
		},
		{
			name:        "too many retries",
			mutate:      func(in *ConfigRawInput) { in.Retries = MaxRetries + 1 },
			expectError: true,
		},
		{
			name:        "bad job timeout",
			mutate:      func(in *ConfigRawInput) { in.JobTimeout = "soon" },
			expectError: true,
		},
		{
			name:        "invalid color",
			mutate:      func(in *ConfigRawInput) { in.Color = "rainbow" },
			expectError: true,
		},
		{
			name:        "invalid summary format",
			mutate:      func(in *ConfigRawInput) { in.SummaryFormat = "xml" },
			expectError: true,
		},
		{
			name:        "exec analyzer without command",
			mutate:      func(in *ConfigRawInput) { in.Analyzer = "exec" },
			expectError: true,
			expectIs:    ErrMissingFlag,
		},
		{
			name:        "unknown analyzer",
			mutate:      func(in *ConfigRawInput) { in.Analyzer = "plato" },
			expectError: true,
		},
		{
			name:        "owners script missing",
			mutate:      func(in *ConfigRawInput) { in.Owners = "/definitely/not/here.sh" },
			expectError: true,
		},
		{
			name:        "invalid history backend",
			mutate:      func(in *ConfigRawInput) { in.HistoryBackend = "redis" },
			expectError: true,
		},
		{
			name: "mysql without tcp",
			mutate: func(in *ConfigRawInput) {
				in.HistoryBackend = "mysql"
				in.HistoryDBConnect = "root@localhost/db"
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError {
				require.Error(t, err)
				if tt.expectIs != nil {
					assert.True(t, errors.Is(err, tt.expectIs), "expected %v, got %v", tt.expectIs, err)
				}
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProcessAndValidate_Defaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, validInput()))

	assert.Equal(t, []string{"addons/*/package.json", "engines/*/package.json"}, cfg.Globs)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, ".eslintrc.json", cfg.ESLintRC)
	assert.Equal(t, DefaultManifestName, cfg.ManifestName)
	assert.Equal(t, DefaultAddonKeyword, cfg.AddonKeyword)
	assert.Equal(t, DefaultEngineKeyword, cfg.EngineKeyword)
	assert.Equal(t, DefaultErrorMarker, cfg.OwnersErrorMarker)
	assert.Equal(t, schema.BuiltinAnalyzer, cfg.Analyzer)
	assert.Equal(t, schema.CSVSummary, cfg.SummaryFormat)
	assert.Equal(t, schema.NoneBackend, cfg.HistoryBackend)
	assert.Equal(t, time.Duration(0), cfg.JobTimeout)
	assert.Empty(t, cfg.OwnersScript)
	assert.True(t, cfg.UseColors)
	assert.Equal(t, DefaultExcludes, cfg.Excludes)
}

func TestProcessAndValidate_Supplements(t *testing.T) {
	script := filepath.Join(t.TempDir(), "owners.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho Team1\n"), 0o755))

	input := validInput()
	input.Owners = script
	input.OwnersErrorMarker = "NOPE"
	input.JobTimeout = "90s"
	input.Exclude = "legacy/, *.bak"
	input.Analyzer = "EXEC"
	input.AnalyzerCmd = "plato-json"
	input.HistoryBackend = "SQLite"

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.Equal(t, script, cfg.OwnersScript)
	assert.Equal(t, "NOPE", cfg.OwnersErrorMarker)
	assert.Equal(t, 90*time.Second, cfg.JobTimeout)
	assert.Equal(t, schema.ExecAnalyzer, cfg.Analyzer)
	assert.Equal(t, schema.SQLiteBackend, cfg.HistoryBackend)
	assert.Contains(t, cfg.Excludes, "legacy/")
	assert.Contains(t, cfg.Excludes, "*.bak")
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{Globs: []string{"a"}, Excludes: []string{"b"}, Workers: 2}
	clone := cfg.Clone()
	clone.Globs[0] = "changed"
	clone.Excludes = append(clone.Excludes, "c")

	assert.Equal(t, "a", cfg.Globs[0])
	assert.Len(t, cfg.Excludes, 1)
	assert.Equal(t, 2, clone.Workers)
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		backend schema.DatabaseBackend
		conn    string
		wantErr bool
	}{
		{schema.SQLiteBackend, "", false},
		{schema.NoneBackend, "", false},
		{schema.MySQLBackend, "", true},
		{schema.MySQLBackend, "root:pw@tcp(localhost:3306)/db", false},
		{schema.MySQLBackend, "root:pw@tcp(localhost:3306)", true}, // no database name
		{schema.PostgreSQLBackend, "host=localhost dbname=x", false},
		{schema.PostgreSQLBackend, "host=localhost", true},
		{schema.PostgreSQLBackend, "dbname=x", true},
	}

	for _, tt := range tests {
		err := ValidateDatabaseConnectionString(tt.backend, tt.conn)
		if tt.wantErr {
			assert.Error(t, err, "%s %q", tt.backend, tt.conn)
		} else {
			assert.NoError(t, err, "%s %q", tt.backend, tt.conn)
		}
	}
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, schema.NoneBackend, b)

	b, err = ParseBackend("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, schema.PostgreSQLBackend, b)

	_, err = ParseBackend("oracle")
	assert.Error(t, err)
}

func TestDefaultWorkers(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultWorkers, 1)
}
