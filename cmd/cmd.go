// Package cmd defines the command-line interface for monoscope.
package cmd

import (
	"github.com/huangsam/monoscope/internal/contract"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("history-backend", "sqlite", "Run history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for mysql/postgresql, or the SQLite file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug details to stderr")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of runCmd to Viper
	runCmd.Flags().String("globs", "", "Comma-separated glob patterns matching module manifests (required)")
	runCmd.Flags().String("output", "", "Directory receiving the per-module reports (required)")
	runCmd.Flags().String("eslintrc", "", "Path to the eslintrc forwarded to the analyzer (required)")
	runCmd.Flags().String("owners", "", "Executable printing the owning team for a module directory")
	runCmd.Flags().String("owners-error-marker", contract.DefaultErrorMarker, "Owners output containing this text is treated as a failure")
	runCmd.Flags().String("exclude", "", "Comma-separated list of path prefixes or patterns to ignore")
	runCmd.Flags().Int("workers", contract.DefaultWorkers, "Number of concurrent analysis workers")
	runCmd.Flags().Int("retries", contract.DefaultRetries, "Extra attempts for a failed analysis job")
	runCmd.Flags().String("job-timeout", "", "Per-attempt analysis timeout such as 5m (empty means no timeout)")
	runCmd.Flags().String("analyzer", "builtin", "Analyzer: builtin or exec")
	runCmd.Flags().String("analyzer-cmd", "", "Command run by the exec analyzer")
	runCmd.Flags().String("manifest-name", contract.DefaultManifestName, "File name identifying a module manifest")
	runCmd.Flags().String("addon-keyword", contract.DefaultAddonKeyword, "Manifest keyword marking an addon")
	runCmd.Flags().String("engine-keyword", contract.DefaultEngineKeyword, "Manifest keyword marking an engine")
	runCmd.Flags().String("summary-format", "csv", "Summary table format: csv or json")
	runCmd.Flags().String("summary-file", "", "Summary table path (defaults to <output>/summary.<format>)")
	runCmd.Flags().String("parquet-file", "", "Optional Parquet file receiving every file record")
	runCmd.Flags().String("metrics-file", "", "Optional Prometheus textfile receiving run metrics")
	runCmd.Flags().Bool("strict-emit", false, "Fail the run when a report emitter fails")
	if err := viper.BindPFlags(runCmd.Flags()); err != nil {
		contract.LogFatal("Error binding run flags", err)
	}

	// Bind all flags of historyExportCmd to Viper
	historyExportCmd.Flags().String("output-file", "", "Prefix of the exported Parquet files (required)")
	if err := viper.BindPFlags(historyExportCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history export flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
