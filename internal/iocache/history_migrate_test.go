package iocache

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/huangsam/monoscope/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateHistory_NoneBackend(t *testing.T) {
	err := MigrateHistory(&bytes.Buffer{}, schema.NoneBackend, "", -1)
	assert.ErrorContains(t, err, "migrations are not supported for the none backend")
}

// tableExists looks the table up in the SQLite catalog.
func tableExists(t *testing.T, dbPath, name string) bool {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'index') AND name = ?`, name).Scan(&n))
	return n > 0
}

func TestMigrateHistory_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	var out bytes.Buffer

	require.NoError(t, MigrateHistory(&out, schema.SQLiteBackend, dbPath, -1))
	assert.Contains(t, out.String(), "to version 2")
	assert.True(t, tableExists(t, dbPath, runsTable))
	assert.True(t, tableExists(t, dbPath, "idx_monoscope_module_summaries_owner"))

	out.Reset()
	require.NoError(t, MigrateHistory(&out, schema.SQLiteBackend, dbPath, -1))
	assert.Contains(t, out.String(), "already at the latest version")

	out.Reset()
	require.NoError(t, MigrateHistory(&out, schema.SQLiteBackend, dbPath, 1))
	assert.False(t, tableExists(t, dbPath, "idx_monoscope_module_summaries_owner"))
	assert.True(t, tableExists(t, dbPath, moduleSummariesTable))

	out.Reset()
	require.NoError(t, MigrateHistory(&out, schema.SQLiteBackend, dbPath, 0))
	assert.Contains(t, out.String(), "rolled back")
	assert.False(t, tableExists(t, dbPath, runsTable))

	require.NoError(t, MigrateHistory(&out, schema.SQLiteBackend, dbPath, 2))
	assert.True(t, tableExists(t, dbPath, migrationsTable))
}

func TestMigrateHistory_StoreCreatedFirst(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	store, err := NewHistoryStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// The initial migration tolerates tables the store already created
	require.NoError(t, MigrateHistory(&bytes.Buffer{}, schema.SQLiteBackend, dbPath, -1))

	store, err = NewHistoryStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	defer store.Close()
	_, err = store.BeginRun(testTime, nil)
	assert.NoError(t, err)
}
