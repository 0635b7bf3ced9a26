package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/internal/iocache"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations. Execute replaces it with
// one that is cancelled on SIGINT/SIGTERM.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "monoscope",
	Short: "Measure the addons and engines of an Ember monorepo.",
	Long: `Monoscope finds every addon and engine in a monorepo, analyzes each one in
parallel and rolls the results up per owning team and module category.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Check if a specific config file is provided
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".monoscope") // Name of config file (without extension)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("MONOSCOPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Set defaults in Viper
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("retries", contract.DefaultRetries)
	viper.SetDefault("analyzer", "builtin")
	viper.SetDefault("manifest-name", contract.DefaultManifestName)
	viper.SetDefault("addon-keyword", contract.DefaultAddonKeyword)
	viper.SetDefault("engine-keyword", contract.DefaultEngineKeyword)
	viper.SetDefault("owners-error-marker", contract.DefaultErrorMarker)
	viper.SetDefault("summary-format", "csv")
	viper.SetDefault("history-backend", "sqlite")
	viper.SetDefault("history-db-connect", "")
	viper.SetDefault("color", "yes")
}

// readConfig merges the config file, if any, into viper and unmarshals
// every resolved value into the raw input.
func readConfig() error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	return nil
}

// setupLogging applies the verbosity and color switches of the raw input.
func setupLogging() error {
	if err := contract.InitLogger(input.Verbose); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if useColors, err := contract.ParseBoolString(input.Color); err == nil && !useColors {
		color.NoColor = true
	}
	return nil
}

// sharedSetup unmarshals config, runs validation and opens the history store.
func sharedSetup(_ context.Context, _ *cobra.Command, _ []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := readConfig(); err != nil {
		return err
	}
	if err := setupLogging(); err != nil {
		return err
	}

	// 2. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}

	// 3. Initialize the history store with validated config
	if err := iocache.InitStores(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("failed to initialize run history: %w", err)
	}
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCtx = ctx
	return rootCmd.ExecuteContext(ctx)
}
