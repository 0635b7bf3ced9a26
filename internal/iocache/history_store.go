package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/schema"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Table names for run history.
const (
	runsTable            = "monoscope_runs"
	moduleSummariesTable = "monoscope_module_summaries"
)

// historyTables lists the history tables in drop order.
var historyTables = []string{moduleSummariesTable, runsTable}

// HistoryStoreImpl implements the HistoryStore interface on database/sql.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// driverFor returns the database/sql driver name of a backend.
func driverFor(backend schema.DatabaseBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "sqlite", nil
	case schema.MySQLBackend:
		return "mysql", nil
	case schema.PostgreSQLBackend:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported backend: %s", backend)
	}
}

// normalizeMySQLDSN turns on the DSN options the store relies on:
// DATETIME columns scanned into time.Time and multi-statement DDL.
func normalizeMySQLDSN(connStr string) (string, error) {
	cfg, err := mysql.ParseDSN(connStr)
	if err != nil {
		return "", fmt.Errorf("invalid MySQL connection string: %w. Expected user:password@tcp(host:port)/dbname", err)
	}
	cfg.ParseTime = true
	cfg.MultiStatements = true
	return cfg.FormatDSN(), nil
}

// openDB opens and pings the database for a backend.
func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, error) {
	driverName, err := driverFor(backend)
	if err != nil {
		return nil, err
	}

	switch backend {
	case schema.SQLiteBackend:
		if connStr == "" {
			connStr = GetHistoryDBFilePath()
		}
	case schema.MySQLBackend:
		if connStr, err = normalizeMySQLDSN(connStr); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", backend, err)
	}
	if backend == schema.SQLiteBackend {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		var connDetail string
		switch backend {
		case schema.MySQLBackend, schema.PostgreSQLBackend:
			connDetail = fmt.Sprintf("Check that %s is running and the connection string is correct.", backend)
		default:
			connDetail = "Check that the directory is writable."
		}
		return nil, fmt.Errorf("failed to connect to %s database: %w. %s", backend, err, connDetail)
	}
	return db, nil
}

// NewHistoryStore creates a new HistoryStore with the specified backend.
// The none backend yields a store whose writes are no-ops.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (*HistoryStoreImpl, error) {
	if backend == schema.NoneBackend {
		return &HistoryStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}
	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}
	return &HistoryStoreImpl{db: db, backend: backend}, nil
}

// createHistoryTables applies the initial schema migration directly, so a
// store works without running `history migrate` first.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	ddl, err := migrationsFS.ReadFile(fmt.Sprintf("migrations/%s/000001_create_history_tables.up.sql", backend))
	if err != nil {
		return err
	}
	_, err = db.Exec(string(ddl))
	return err
}

// disabled reports whether writes should be skipped.
func (hs *HistoryStoreImpl) disabled() bool {
	return hs.backend == schema.NoneBackend || hs.db == nil
}

// bind rewrites ? placeholders into $n for PostgreSQL.
func (hs *HistoryStoreImpl) bind(query string) string {
	if hs.backend != schema.PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// BeginRun creates a new run and returns its unique ID.
func (hs *HistoryStoreImpl) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	if hs.disabled() {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	table := quoteTableName(runsTable, hs.backend)
	var runID int64
	switch hs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES ($1, $2) RETURNING run_id`, table)
		err = hs.db.QueryRow(query, startTime, string(configJSON)).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (?, ?)`, table)
		var result sql.Result
		result, err = hs.db.Exec(query, formatTime(startTime, hs.backend), string(configJSON))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

// EndRun updates the run with completion data.
func (hs *HistoryStoreImpl) EndRun(runID int64, endTime time.Time, totalModules int, failedJobs int) error {
	if hs.disabled() {
		return nil
	}

	table := quoteTableName(runsTable, hs.backend)
	row := hs.db.QueryRow(hs.bind(fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = ?`, table)), runID)
	startTime, err := hs.scanTime(row)
	if err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}

	durationMs := endTime.Sub(startTime).Milliseconds()
	query := hs.bind(fmt.Sprintf(`UPDATE %s SET end_time = ?, run_duration_ms = ?, total_modules = ?, failed_jobs = ? WHERE run_id = ?`, table))
	if _, err := hs.db.Exec(query, formatTime(endTime, hs.backend), durationMs, totalModules, failedJobs, runID); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// RecordModuleSummary stores one module leaf of a run.
func (hs *HistoryStoreImpl) RecordModuleSummary(runID int64, record schema.ModuleSummaryRecord) error {
	if hs.disabled() {
		return nil
	}

	query := hs.bind(fmt.Sprintf(`
		INSERT INTO %s (run_id, owner, category, module_dir, module_title, failed, files, total_sloc,
		                average_maintainability, average_cyclomatic, max_cyclomatic, total_lint_messages)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, quoteTableName(moduleSummariesTable, hs.backend)))
	_, err := hs.db.Exec(query,
		runID, record.Owner, record.Category, record.ModuleDir, record.ModuleTitle, record.Failed,
		record.Files, record.TotalSLOC, record.AverageMaintainability, record.AverageCyclomatic,
		record.MaxCyclomatic, record.TotalLintMessages,
	)
	if err != nil {
		return fmt.Errorf("failed to insert module summary: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if hs.disabled() {
		return status, nil
	}

	runs := quoteTableName(runsTable, hs.backend)
	if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", runs)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		row := hs.db.QueryRow(fmt.Sprintf("SELECT run_id FROM %s ORDER BY run_id DESC LIMIT 1", runs))
		if err := row.Scan(&status.LastRunID); err != nil {
			return status, fmt.Errorf("failed to get last run id: %w", err)
		}

		var err error
		row = hs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id DESC LIMIT 1", runs))
		if status.LastRunTime, err = hs.scanTime(row); err != nil {
			return status, fmt.Errorf("failed to get last run time: %w", err)
		}
		row = hs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", runs))
		if status.OldestRunTime, err = hs.scanTime(row); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}

		row = hs.db.QueryRow(fmt.Sprintf("SELECT COALESCE(SUM(total_modules), 0) FROM %s", runs))
		if err := row.Scan(&status.TotalModules); err != nil {
			return status, fmt.Errorf("failed to get total modules: %w", err)
		}
	}

	for _, table := range historyTables {
		var count int64
		row := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, hs.backend)))
		if err := row.Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	return status, nil
}

// GetAllRuns retrieves all runs ordered by ID.
func (hs *HistoryStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	if hs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, start_time, end_time, run_duration_ms, total_modules, failed_jobs, config_params
		FROM %s ORDER BY run_id`, quoteTableName(runsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var record schema.RunRecord
		switch hs.backend {
		case schema.SQLiteBackend:
			var startTimeStr string
			var endTimeStr *string
			if err := rows.Scan(&record.RunID, &startTimeStr, &endTimeStr, &record.RunDurationMs,
				&record.TotalModules, &record.FailedJobs, &record.ConfigParams); err != nil {
				return nil, fmt.Errorf("failed to scan run: %w", err)
			}
			if record.StartTime, err = time.Parse(time.RFC3339Nano, startTimeStr); err != nil {
				return nil, fmt.Errorf("failed to parse start_time: %w", err)
			}
			if endTimeStr != nil {
				endTime, err := time.Parse(time.RFC3339Nano, *endTimeStr)
				if err != nil {
					return nil, fmt.Errorf("failed to parse end_time: %w", err)
				}
				record.EndTime = &endTime
			}
		default: // MySQL and PostgreSQL store native datetimes
			if err := rows.Scan(&record.RunID, &record.StartTime, &record.EndTime, &record.RunDurationMs,
				&record.TotalModules, &record.FailedJobs, &record.ConfigParams); err != nil {
				return nil, fmt.Errorf("failed to scan run: %w", err)
			}
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// GetAllModuleSummaries retrieves all module summaries ordered by run, category and module.
func (hs *HistoryStoreImpl) GetAllModuleSummaries() ([]schema.ModuleSummaryRecord, error) {
	if hs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, owner, category, module_dir, module_title, failed, files, total_sloc,
		average_maintainability, average_cyclomatic, max_cyclomatic, total_lint_messages
		FROM %s ORDER BY run_id, category, module_dir`, quoteTableName(moduleSummariesTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query module summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ModuleSummaryRecord
	for rows.Next() {
		var r schema.ModuleSummaryRecord
		if err := rows.Scan(&r.RunID, &r.Owner, &r.Category, &r.ModuleDir, &r.ModuleTitle, &r.Failed,
			&r.Files, &r.TotalSLOC, &r.AverageMaintainability, &r.AverageCyclomatic,
			&r.MaxCyclomatic, &r.TotalLintMessages); err != nil {
			return nil, fmt.Errorf("failed to scan module summary: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating module summaries: %w", err)
	}
	return results, nil
}

// scanTime reads a single timestamp column, parsing SQLite's text encoding.
func (hs *HistoryStoreImpl) scanTime(row *sql.Row) (time.Time, error) {
	if hs.backend != schema.SQLiteBackend {
		var t time.Time
		err := row.Scan(&t)
		return t, err
	}
	var s string
	if err := row.Scan(&s); err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	if backend == schema.SQLiteBackend {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t
}

// quoteTableName quotes a table name for the backend's SQL dialect.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	if backend == schema.MySQLBackend {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}
