package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/internal/iocache"
	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// logger is built from the validated config in sharedSetup.
var logger = contract.DiscardLogger()

// rootCmd is the command-line entrypoint. Without a subcommand it runs the pipeline.
var rootCmd = &cobra.Command{
	Use:   "repoanalysis [path]",
	Short: "Evaluate code samples and record their quality in an analytical store.",
	Long: `repoanalysis walks a file, a directory, a CSV of GitHub sample links or an
error log from a previous run, evaluates every supported sample that carries a
region tag, categorizes it by product and stores one row per sample version.

Examples:
  # Evaluate every sample under a checkout
  repoanalysis ./python-docs-samples

  # Evaluate the samples listed in a CSV, cloning repositories as needed
  repoanalysis --from-csv samples.csv

  # Retry the failures of a previous run
  repoanalysis --reprocess-log errors_20240601_120000.log --regen`,
	Version:            version,
	Args:               cobra.MaximumNArgs(1),
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	PreRunE:            sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		defer iocache.CloseStores()
		return runPipeline(rootCtx, cmd)
	},
}

// initConfig reads in the .env file, config file and ENV variables if set.
func initConfig() {
	// A missing .env is the normal case
	_ = godotenv.Load()

	// Set environment variable prefix
	viper.SetEnvPrefix("REPOANALYSIS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("dataset", contract.DefaultDataset)
	viper.SetDefault("backend", schema.SQLiteBackend)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("evaluator", schema.HTTPEvaluator)
	viper.SetDefault("http-timeout", contract.DefaultHTTPTimeout.String())
	viper.SetDefault("max-retries", contract.DefaultMaxRetries)
	viper.SetDefault("max-consecutive-errors", contract.DefaultMaxConsecutiveErrors)
	viper.SetDefault("model", contract.DefaultModel)
	viper.SetDefault("llm-rps", contract.DefaultLLMRequestsPerSecond)
	viper.SetDefault("clone-dir", contract.DefaultCloneDir)
	viper.SetDefault("error-log-dir", contract.DefaultErrorLogDir)
	viper.SetDefault("color", "auto")
	viper.SetDefault("progress", "auto")
	viper.SetDefault("log-level", "info")
	viper.SetDefault("log-format", "text")
}

// loadConfigFile handles config file loading logic common to all setup functions.
func loadConfigFile() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".repoanalysis") // Name of config file (without extension)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// loadAndValidate merges every config source into cfg.
func loadAndValidate(args []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Handle positional arguments (which Viper doesn't do).
	input.PathStr = ""
	if len(args) == 1 {
		input.PathStr = args[0]
	}

	// 4. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}

	logger = logrus.NewEntry(contract.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr))
	return nil
}

// sharedSetup validates config and opens the store for a pipeline run.
func sharedSetup(_ context.Context, _ *cobra.Command, args []string) error {
	if err := loadAndValidate(args); err != nil {
		return err
	}
	if err := contract.ValidateRunInputs(cfg); err != nil {
		return err
	}
	if cfg.EvalOnly {
		return nil
	}
	if err := iocache.InitStores(cfg.Backend, cfg.DBConnect, cfg.Table); err != nil {
		return fmt.Errorf("failed to initialize sample store: %w", err)
	}
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
