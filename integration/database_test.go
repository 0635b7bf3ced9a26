//go:build database

package integration

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/monoscope/internal/iocache"
	"github.com/huangsam/monoscope/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startMySQL starts a MySQL container and returns its connection string.
func startMySQL(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "monoscope",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mysqlC.Terminate(ctx) })

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	return fmt.Sprintf("root:secret123@tcp(%s:%s)/monoscope", host, port.Port())
}

// startPostgres starts a PostgreSQL container and returns its connection string.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())
}

// TestMonoscopeWithMySQL runs the CLI against a MySQL history backend.
func TestMonoscopeWithMySQL(t *testing.T) {
	connStr := startMySQL(t)
	checkHistoryStore(t, schema.MySQLBackend, connStr)
	checkCLI(t, "mysql", connStr)
}

// TestMonoscopeWithPostgres runs the CLI against a PostgreSQL history backend.
func TestMonoscopeWithPostgres(t *testing.T) {
	connStr := startPostgres(t)
	checkHistoryStore(t, schema.PostgreSQLBackend, connStr)
	checkCLI(t, "postgresql", connStr)
}

// checkHistoryStore exercises the store and migrations directly.
func checkHistoryStore(t *testing.T, backend schema.DatabaseBackend, connStr string) {
	t.Helper()

	var out bytes.Buffer
	require.NoError(t, iocache.MigrateHistory(&out, backend, connStr, -1))
	assert.Contains(t, out.String(), "to version 2")

	store, err := iocache.NewHistoryStore(backend, connStr)
	require.NoError(t, err)

	start := time.Now().UTC().Truncate(time.Second)
	runID, err := store.BeginRun(start, map[string]any{"workers": 2})
	require.NoError(t, err)
	require.Positive(t, runID)

	record := schema.ModuleSummaryRecord{
		RunID: runID, Owner: "Team1", Category: "addon", ModuleDir: "/repo/addons/forms", ModuleTitle: "acme-forms",
		Files: 2, TotalSLOC: 40, AverageMaintainability: 71.5, AverageCyclomatic: 2.5, MaxCyclomatic: 4, TotalLintMessages: 1,
	}
	require.NoError(t, store.RecordModuleSummary(runID, record))
	require.NoError(t, store.EndRun(runID, start.Add(2*time.Second), 1, 0))

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, start.Equal(runs[0].StartTime))
	require.NotNil(t, runs[0].RunDurationMs)
	assert.Equal(t, int32(2000), *runs[0].RunDurationMs)

	summaries, err := store.GetAllModuleSummaries()
	require.NoError(t, err)
	assert.Equal(t, []schema.ModuleSummaryRecord{record}, summaries)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, status.TotalRuns)
	require.NoError(t, store.Close())

	// Rolling back drops the tables; clearing afterwards is a no-op
	out.Reset()
	require.NoError(t, iocache.MigrateHistory(&out, backend, connStr, 0))
	require.NoError(t, iocache.ClearHistory(backend, "", connStr))
}

// checkCLI runs the binary end to end with the history in the given backend.
func checkCLI(t *testing.T, backend, connStr string) {
	t.Helper()
	root := writeMonorepo(t)
	env := []string{
		"MONOSCOPE_HISTORY_BACKEND=" + backend,
		"MONOSCOPE_HISTORY_DB_CONNECT=" + connStr,
	}

	_, err := runMonoscope(t, root, env, "history", "clear")
	require.NoError(t, err)

	_, err = runMonoscope(t, root, env, "history", "migrate")
	require.NoError(t, err)

	_, err = runMonoscope(t, root, env, runArgs(root, filepath.Join(t.TempDir(), "reports"))...)
	require.NoError(t, err)

	out, err := runMonoscope(t, root, env, "history", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Runs: 1")
	assert.Contains(t, out, "Total Modules Analyzed: 3")

	prefix := filepath.Join(t.TempDir(), "export")
	_, err = runMonoscope(t, root, env, "history", "export", "--output-file", prefix)
	require.NoError(t, err)
	assert.FileExists(t, prefix+".runs.parquet")
	assert.FileExists(t, prefix+".module_summaries.parquet")

	_, err = runMonoscope(t, root, env, "history", "clear")
	require.NoError(t, err)
}
