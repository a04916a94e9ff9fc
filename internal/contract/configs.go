package contract

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joeshirey/JSRepoAnalysis/schema"
)

// Default values for configuration.
const (
	DefaultHTTPTimeout          = 900 * time.Second
	DefaultMaxRetries           = 3
	DefaultMaxConsecutiveErrors = 20
	DefaultDataset              = "code_samples"
	DefaultModel                = "gemini-2.5-flash"
	DefaultLLMRequestsPerSecond = 2.0
	DefaultCloneDir             = "cloned_repos"
	DefaultErrorLogDir          = "."
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// tableNamePattern limits table overrides to plain SQL identifiers.
var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config holds the runtime configuration for the pipeline.
// This struct remains the "final, validated" config.
type Config struct {
	// Inputs, at most one of which is set for a batch run
	InputPath    string
	FromCSV      string
	ReprocessLog string

	Regen          bool
	EvalOnly       bool
	CategorizeOnly bool
	Generated      bool
	Workers        int
	Excludes       []string

	Project   string
	Dataset   string
	Table     string
	Backend   schema.DatabaseBackend
	DBConnect string // Please use env var as this is plaintext

	Evaluator      schema.EvaluatorKind
	APIURL         string
	HTTPTimeout    time.Duration
	MaxRetries     int
	Model          string
	GroundingModel string
	LLMBaseURL     string
	LLMAPIKey      string // Please use env var as this is plaintext
	LLMRPS         float64

	CloneDir             string
	ErrorLogDir          string
	MaxConsecutiveErrors int

	Output      schema.OutputMode
	OutputFile  string
	MetricsFile string
	Progress    bool
	UseColors   bool
	LogLevel    string
	LogFormat   string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	PathStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Workers     int    `mapstructure:"workers"`
	Project     string `mapstructure:"project"`
	Dataset     string `mapstructure:"dataset"`
	DB          string `mapstructure:"db"`
	Backend     string `mapstructure:"backend"`
	DBConnect   string `mapstructure:"db-connect"`
	Output      string `mapstructure:"output"`
	OutputFile  string `mapstructure:"output-file"`
	Color       string `mapstructure:"color"`
	LogLevel    string `mapstructure:"log-level"`
	LogFormat   string `mapstructure:"log-format"`
	Evaluator   string `mapstructure:"evaluator"`
	APIURL      string `mapstructure:"api-url"`
	HTTPTimeout string `mapstructure:"http-timeout"`
	MaxRetries  int    `mapstructure:"max-retries"`
	Model       string `mapstructure:"model"`
	GroundModel string `mapstructure:"grounding-model"`
	LLMBaseURL  string `mapstructure:"llm-base-url"`
	LLMAPIKey   string `mapstructure:"llm-api-key"`

	LLMRPS float64 `mapstructure:"llm-rps"`

	// --- Fields from the batch runner flags ---
	FromCSV              string `mapstructure:"from-csv"`
	ReprocessLog         string `mapstructure:"reprocess-log"`
	Regen                bool   `mapstructure:"regen"`
	EvalOnly             bool   `mapstructure:"eval-only"`
	CategorizeOnly       bool   `mapstructure:"categorize-only"`
	Generated            bool   `mapstructure:"generated"`
	CloneDir             string `mapstructure:"clone-dir"`
	ErrorLogDir          string `mapstructure:"error-log-dir"`
	MaxConsecutiveErrors int    `mapstructure:"max-consecutive-errors"`
	MetricsFile          string `mapstructure:"metrics-file"`
	Progress             string `mapstructure:"progress"`
	Exclude              string `mapstructure:"exclude"`
}

// DefaultExcludes returns the patterns skipped when walking a directory.
func DefaultExcludes() []string {
	return []string{
		".git/", "node_modules/", "vendor/", "venv/", ".venv/", "__pycache__/",
		"dist/", "build/", "out/", "target/", "bin/",
		".min.js", "_test.go", "_pb2.py",
	}
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateStoreConfigs(cfg, input); err != nil {
		return err
	}
	if err := validateEvaluatorConfigs(cfg, input); err != nil {
		return err
	}
	return processInputs(cfg, input)
}

// ValidateRunInputs checks the input combination for the batch runner.
// Storage-only subcommands skip this.
func ValidateRunInputs(cfg *Config) error {
	sources := 0
	for _, s := range []string{cfg.InputPath, cfg.FromCSV, cfg.ReprocessLog} {
		if s != "" {
			sources++
		}
	}
	if sources == 0 {
		return ErrNoInput
	}
	if sources > 1 {
		return fmt.Errorf("only one of a path, --from-csv, or --reprocess-log may be given")
	}
	if cfg.EvalOnly && cfg.CategorizeOnly {
		return fmt.Errorf("--eval-only and --categorize-only are mutually exclusive")
	}
	if cfg.EvalOnly {
		if cfg.InputPath == "" {
			return fmt.Errorf("--eval-only requires a single file path")
		}
		if info, err := os.Stat(cfg.InputPath); err != nil || info.IsDir() {
			return fmt.Errorf("--eval-only requires a single file path, got %q", cfg.InputPath)
		}
	}
	if cfg.CategorizeOnly {
		return nil
	}
	switch cfg.Evaluator {
	case schema.HTTPEvaluator:
		if cfg.APIURL == "" {
			return fmt.Errorf("api-url is required when using the %s evaluator", cfg.Evaluator)
		}
	case schema.LLMEvaluator:
		if cfg.Model == "" {
			return fmt.Errorf("model is required when using the %s evaluator", cfg.Evaluator)
		}
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
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
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

// ValidateTableName rejects table names that are not plain identifiers.
func ValidateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("invalid table name %q: must match %s", name, tableNamePattern.String())
	}
	return nil
}

// validateSimpleInputs processes and validates the flags that need no I/O.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.Regen = input.Regen
	cfg.EvalOnly = input.EvalOnly
	cfg.CategorizeOnly = input.CategorizeOnly
	cfg.Generated = input.Generated
	cfg.OutputFile = input.OutputFile
	cfg.MetricsFile = input.MetricsFile
	cfg.Project = input.Project
	cfg.LogFormat = strings.ToLower(input.LogFormat)
	cfg.LogLevel = strings.ToLower(input.LogLevel)

	colors, err := parseBoolOrAuto(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	progress, err := parseBoolOrAuto(input.Progress)
	if err != nil {
		return fmt.Errorf("invalid --progress value: %w", err)
	}
	cfg.Progress = progress

	// --- 1. Workers Validation ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 2. Breaker Validation ---
	if input.MaxConsecutiveErrors <= 0 {
		return fmt.Errorf("max-consecutive-errors must be greater than 0 (received %d)", input.MaxConsecutiveErrors)
	}
	cfg.MaxConsecutiveErrors = input.MaxConsecutiveErrors

	// --- 3. Output Validation ---
	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}

	// --- 4. Logging Validation ---
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format '%s'. must be text, json", input.LogFormat)
	}

	// --- 5. Directories ---
	cfg.CloneDir = input.CloneDir
	if cfg.CloneDir == "" {
		cfg.CloneDir = DefaultCloneDir
	}
	cfg.ErrorLogDir = input.ErrorLogDir
	if cfg.ErrorLogDir == "" {
		cfg.ErrorLogDir = DefaultErrorLogDir
	}

	// --- 6. Excludes Processing ---
	cfg.Excludes = DefaultExcludes()
	if input.Exclude != "" {
		for p := range strings.SplitSeq(input.Exclude, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				cfg.Excludes = append(cfg.Excludes, trimmed)
			}
		}
	}

	return nil
}

// validateStoreConfigs validates the backend, table and dataset.
func validateStoreConfigs(cfg *Config, input *ConfigRawInput) error {
	cfg.Dataset = input.Dataset
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	if err := ValidateTableName(cfg.Dataset); err != nil {
		return fmt.Errorf("invalid dataset: %w", err)
	}

	cfg.Table = input.DB
	if cfg.Table == "" {
		cfg.Table = schema.DefaultTableName
	}
	if err := ValidateTableName(cfg.Table); err != nil {
		return err
	}

	cfg.Backend = schema.DatabaseBackend(strings.ToLower(input.Backend))
	if _, ok := schema.ValidDatabaseBackends[cfg.Backend]; !ok {
		return fmt.Errorf("invalid backend '%s'. must be sqlite, mysql, postgresql, none", input.Backend)
	}
	cfg.DBConnect = input.DBConnect
	if cfg.Backend == schema.SQLiteBackend && cfg.DBConnect == "" {
		cfg.DBConnect = GetSampleDBFilePath(cfg.Dataset)
	}
	return ValidateDatabaseConnectionString(cfg.Backend, cfg.DBConnect)
}

// validateEvaluatorConfigs validates the evaluation client settings.
func validateEvaluatorConfigs(cfg *Config, input *ConfigRawInput) error {
	cfg.Evaluator = schema.EvaluatorKind(strings.ToLower(input.Evaluator))
	if _, ok := schema.ValidEvaluatorKinds[cfg.Evaluator]; !ok {
		return fmt.Errorf("invalid evaluator '%s'. must be http, llm", input.Evaluator)
	}

	cfg.APIURL = strings.TrimSpace(input.APIURL)
	if cfg.APIURL != "" {
		u, err := url.Parse(cfg.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid api-url %q: must be an absolute http(s) URL", input.APIURL)
		}
	}

	cfg.HTTPTimeout = DefaultHTTPTimeout
	if input.HTTPTimeout != "" {
		d, err := ParseTimeout(input.HTTPTimeout)
		if err != nil {
			return fmt.Errorf("invalid --http-timeout value: %w", err)
		}
		cfg.HTTPTimeout = d
	}

	if input.MaxRetries < 0 {
		return fmt.Errorf("max-retries cannot be negative (received %d)", input.MaxRetries)
	}
	cfg.MaxRetries = input.MaxRetries

	cfg.Model = input.Model
	cfg.GroundingModel = input.GroundModel
	cfg.LLMBaseURL = input.LLMBaseURL
	cfg.LLMAPIKey = input.LLMAPIKey
	if input.LLMRPS < 0 {
		return fmt.Errorf("llm-rps cannot be negative (received %g)", input.LLMRPS)
	}
	cfg.LLMRPS = input.LLMRPS
	return nil
}

// processInputs resolves the positional path and input files.
func processInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.FromCSV = input.FromCSV
	cfg.ReprocessLog = input.ReprocessLog

	if input.PathStr == "" {
		return nil
	}
	if input.PathStr == "-" {
		cfg.InputPath = input.PathStr
		return nil
	}
	absPath, err := filepath.Abs(input.PathStr)
	if err != nil {
		return fmt.Errorf("failed to resolve path %q: %w", input.PathStr, err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return fmt.Errorf("path %q does not exist: %w", input.PathStr, err)
	}
	cfg.InputPath = absPath
	return nil
}

// parseBoolOrAuto treats an empty or "auto" value as enabled.
func parseBoolOrAuto(s string) (bool, error) {
	if s == "" || strings.EqualFold(s, "auto") {
		return true, nil
	}
	return ParseBoolString(s)
}

// ParseTimeout parses a timeout as a Go duration ("90s", "15m") or a bare number of seconds.
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("timeout must be positive: %s", s)
		}
		return d, nil
	}
	var secs int
	if _, err := fmt.Sscanf(s, "%d", &secs); err != nil || fmt.Sprint(secs) != s {
		return 0, fmt.Errorf("invalid timeout %q: expected a duration like 90s or a number of seconds", s)
	}
	if secs <= 0 {
		return 0, fmt.Errorf("timeout must be positive: %s", s)
	}
	return time.Duration(secs) * time.Second, nil
}
