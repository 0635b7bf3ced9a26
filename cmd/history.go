package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/internal/iocache"
	"github.com/huangsam/monoscope/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// loadHistoryConfig resolves the history backend settings without the
// run-only validation of sharedSetup.
func loadHistoryConfig() error {
	if err := readConfig(); err != nil {
		return err
	}
	if err := setupLogging(); err != nil {
		return err
	}

	backend, err := contract.ParseBackend(input.HistoryBackend)
	if err != nil {
		return err
	}
	if err := contract.ValidateDatabaseConnectionString(backend, input.HistoryDBConnect); err != nil {
		return err
	}
	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = input.HistoryDBConnect
	return nil
}

// historySetup loads the history settings and opens the store.
func historySetup(_ *cobra.Command, _ []string) error {
	if err := loadHistoryConfig(); err != nil {
		return err
	}
	if err := iocache.InitStores(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("failed to initialize run history: %w", err)
	}
	return nil
}

// historyDBFilePath is the SQLite file used by the history commands.
func historyDBFilePath() string {
	if cfg.HistoryDBConnect != "" {
		return cfg.HistoryDBConnect
	}
	return iocache.GetHistoryDBFilePath()
}

// historyCmd focused on run history management.
//
// Note: history subcommands use a minimal setup instead of the full
// sharedSetup, so they work without --globs, --output or --eslintrc.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the stored history of analysis runs",
	Long: `Manage the history of analysis runs used for trend tracking and reporting.

Every run stores:
- Run metadata (timestamps, duration, configuration, failed jobs)
- One summary row per module and category (files, SLOC, maintainability, complexity, lint)

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show run history statistics
  export  - Export data to Parquet for analytics
  clear   - Remove all run history
  migrate - Run database schema migrations`,
}

// historyStatusCmd shows the history status.
var historyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run history statistics and connection details",
	Long: `Show the backend, connection state, number of stored runs, first and last
run times and the row count of each history table.

Examples:
  monoscope history status
  monoscope history status --history-backend postgresql \
    --history-db-connect "host=localhost user=postgres dbname=monoscope"`,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iocache.Manager.GetHistoryStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get history status", err)
		}
		iocache.PrintHistoryStatus(os.Stdout, status)
	},
}

// historyClearCmd clears the run history.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored run history",
	Long: `Delete all stored runs and module summaries.

For SQLite the database file is removed. For MySQL and PostgreSQL the
history tables and the migration version table are dropped.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  monoscope history export --output-file backup
  monoscope history clear`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return loadHistoryConfig()
	},
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearHistory(cfg.HistoryBackend, historyDBFilePath(), cfg.HistoryDBConnect); err != nil {
			contract.LogFatal("Failed to clear run history", err)
		}
		fmt.Println("Run history cleared successfully.")
	},
}

// historyExportCmd exports the run history to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run history to Parquet for BI tools and analytics",
	Long: `Export all stored run history to Parquet.

Writes two files next to the given prefix:
- <prefix>.runs.parquet              - metadata about each run
- <prefix>.module_summaries.parquet  - per-module summaries of every run

Requires: --output-file

Examples:
  monoscope history export --output-file monoscope-history
  duckdb -c "SELECT owner, avg(average_maintainability) FROM read_parquet('monoscope-history.module_summaries.parquet') GROUP BY owner"`,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetHistoryStore()
		if _, err := iocache.ExportHistory(os.Stdout, store, viper.GetString("output-file")); err != nil {
			contract.LogFatal("Failed to export run history", err)
		}
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage schema versions of the run history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  monoscope history migrate

  # Migrate to specific version
  monoscope history migrate --target-version 1

  # Rollback everything
  monoscope history migrate --target-version 0`,
	// Migrations must run on a fresh database, so the store is not opened here
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return loadHistoryConfig()
	},
	Run: func(_ *cobra.Command, _ []string) {
		connStr := cfg.HistoryDBConnect
		if cfg.HistoryBackend == schema.SQLiteBackend {
			connStr = historyDBFilePath()
		}
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateHistory(os.Stdout, cfg.HistoryBackend, connStr, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
