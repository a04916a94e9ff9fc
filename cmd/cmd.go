// Package cmd defines the command-line interface for repoanalysis.
package cmd

import (
	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(samplesCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the samples subcommands to the parent samples command
	samplesCmd.AddCommand(samplesStatusCmd)
	samplesCmd.AddCommand(samplesExportCmd)
	samplesCmd.AddCommand(samplesClearCmd)
	samplesCmd.AddCommand(samplesMigrateCmd)
	samplesCmd.AddCommand(samplesShowCmd)
	samplesCmd.AddCommand(samplesReportCmd)

	// Bind all persistent flags of rootCmd to Viper
	pf := rootCmd.PersistentFlags()
	pf.Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	pf.String("project", "", "Cloud project that owns the dataset (recorded with each run)")
	pf.String("dataset", contract.DefaultDataset, "Dataset name; selects the default sqlite file")
	pf.String("db", schema.DefaultTableName, "Table that stores analyzed samples")
	pf.String("backend", string(schema.SQLiteBackend), "Store backend: sqlite or mysql or postgresql or none")
	pf.String("db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	pf.String("evaluator", string(schema.HTTPEvaluator), "Evaluation client: http or llm")
	pf.String("api-url", "", "URL of the remote analysis service")
	pf.String("http-timeout", contract.DefaultHTTPTimeout.String(), "Timeout of one evaluation request (e.g., 900s, 15m)")
	pf.Int("max-retries", contract.DefaultMaxRetries, "Retries for transient evaluation failures")
	pf.String("model", contract.DefaultModel, "Chat model used by the llm evaluator and the classifier")
	pf.String("grounding-model", "", "Model used for the grounded review stage (defaults to --model)")
	pf.String("llm-base-url", "", "Base URL of an OpenAI-compatible chat endpoint")
	pf.String("llm-api-key", "", "API key for the chat endpoint (prefer REPOANALYSIS_LLM_API_KEY)")
	pf.Float64("llm-rps", contract.DefaultLLMRequestsPerSecond, "Maximum chat requests per second (0 = unlimited)")
	pf.String("output", string(schema.TextOut), "Output format: text or csv or json")
	pf.String("output-file", "", "Optional path to write output to")
	pf.String("color", "auto", "Enable colored labels in output (auto/yes/no/true/false/1/0)")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-format", "text", "Log format: text or json")
	pf.String("config", "", "Path to config file")
	if err := viper.BindPFlags(pf); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of the pipeline run to Viper
	f := rootCmd.Flags()
	f.String("from-csv", "", "CSV of GitHub sample links to clone and evaluate")
	f.String("reprocess-log", "", "Error log of a previous run; reprocess the listed files")
	f.Bool("regen", false, "Re-evaluate samples whose version is already stored")
	f.Bool("eval-only", false, "Evaluate a single file and print the result without storing it")
	f.Bool("categorize-only", false, "Only categorize samples and print CSV")
	f.Bool("generated", false, "Mark stored rows as generated samples")
	f.String("clone-dir", contract.DefaultCloneDir, "Directory that holds clones for --from-csv")
	f.String("error-log-dir", contract.DefaultErrorLogDir, "Directory for the run's error log")
	f.Int("max-consecutive-errors", contract.DefaultMaxConsecutiveErrors, "Halt the run after this many consecutive failures")
	f.String("metrics-file", "", "Write run metrics in Prometheus textfile format to this path")
	f.String("progress", "auto", "Show a progress bar on a terminal (auto/yes/no)")
	f.String("exclude", "", "Comma-separated list of path prefixes or patterns to ignore")
	if err := viper.BindPFlags(f); err != nil {
		contract.LogFatal("Error binding run flags", err)
	}

	// Bind all flags of samplesMigrateCmd to Viper
	samplesMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(samplesMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding samples migrate flags", err)
	}

	// Bind all flags of samplesReportCmd to Viper
	samplesReportCmd.Flags().String("repo", "", "Only report samples of this repository (name or owner/name)")
	if err := viper.BindPFlags(samplesReportCmd.Flags()); err != nil {
		contract.LogFatal("Error binding samples report flags", err)
	}
}
