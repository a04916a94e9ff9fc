package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for the sample store.
	DatabaseBackend string

	// EvaluatorKind selects the evaluation client variant.
	EvaluatorKind string

	// ProcessStatus is the terminal status of a single file.
	ProcessStatus string

	// SkipReason explains why a file was skipped.
	SkipReason string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All store backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All evaluator variants supported.
const (
	HTTPEvaluator EvaluatorKind = "http" // default
	LLMEvaluator  EvaluatorKind = "llm"
)

// Process statuses. Failures are returned as errors, never as a status.
const (
	StatusProcessed ProcessStatus = "processed"
	StatusSkipped   ProcessStatus = "skipped"
)

// Skip reasons.
const (
	SkipUnsupported        SkipReason = "unsupported"
	SkipAlreadyProcessed   SkipReason = "already_processed"
	SkipNoRegionTags       SkipReason = "no_region_tags"
	SkipEvaluationDeclined SkipReason = "evaluation_declined"
)

// Uncategorized is used for both category and product when nothing matched.
const Uncategorized = "Uncategorized"

// DefaultTableName is the analytical table used when no override is given.
const DefaultTableName = "code_sample_analysis"

// RunsTableName tracks batch runs alongside the sample table.
const RunsTableName = "analysis_runs"

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid store backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidEvaluatorKinds lists all valid evaluator variants.
var ValidEvaluatorKinds = map[EvaluatorKind]struct{}{
	HTTPEvaluator: {},
	LLMEvaluator:  {},
}

// AllSkipReasons returns the skip reasons in display order.
var AllSkipReasons = []SkipReason{SkipUnsupported, SkipAlreadyProcessed, SkipNoRegionTags, SkipEvaluationDeclined}
