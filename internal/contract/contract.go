// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/joeshirey/JSRepoAnalysis/schema"
)

// GitClient defines the git operations needed to attribute a sample to its repository.
// This allows the pipeline to be tested without needing a real git executable.
type GitClient interface {
	// --- Generic / Low-Level ---

	// Run executes a git command inside repoPath and returns its stdout.
	// Its use should be minimized in favor of the explicit methods below.
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)

	// --- Repository Identity ---

	// IsInsideWorkTree reports whether dir is inside a git working tree.
	IsInsideWorkTree(ctx context.Context, dir string) (bool, error)

	// GetRemoteURL returns the URL of the origin remote, or "" when none is configured.
	GetRemoteURL(ctx context.Context, dir string) (string, error)

	// GetBranchName returns the short name of the checked out branch.
	GetBranchName(ctx context.Context, dir string) (string, error)

	// GetRepoRoot returns the absolute path to the root of the Git repository
	// containing the given context path.
	GetRepoRoot(ctx context.Context, contextPath string) (string, error)

	// --- History ---

	// GetFileLog returns the raw, separator-delimited commit log for a file (follows renames).
	GetFileLog(ctx context.Context, repoPath string, relPath string) ([]byte, error)

	// --- Remote Sync ---

	// Clone clones url into dest.
	Clone(ctx context.Context, url string, dest string) error

	// Pull fetches and fast-forwards repoPath, switching to branch when it is not empty.
	Pull(ctx context.Context, repoPath string, branch string) error
}

// Evaluator obtains a structured review of a sample's code.
// It is the single external network dependency of the pipeline and must not mutate its input.
type Evaluator interface {
	Evaluate(ctx context.Context, req schema.EvaluationRequest) (schema.EvaluationResult, error)
}

// Classifier decides a (category, product) pair from code when keyword rules fail.
type Classifier interface {
	Classify(ctx context.Context, code string, candidates []schema.Categorization) (schema.Categorization, error)
}

// ChatMessage is one turn sent to a chat model.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatRequest is a single completion request.
type ChatRequest struct {
	Messages    []ChatMessage
	Temperature float32
	TopP        float32
	Grounded    bool // route to the grounded model when one is configured
	JSONMode    bool
}

// ChatClient is the generative model transport used by the LLM evaluator and classifier.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// StoreManager defines the interface for managing sample stores.
// This allows the persistence layer to be mocked for testing.
type StoreManager interface {
	GetSampleStore() SampleStore
}

// SampleStore defines the analytical store for evaluated samples and run tracking.
// Implementations must be safe for concurrent use by batch workers.
type SampleStore interface {
	// RecordExists reports whether a row exists for the dedup key (githubLink, lastUpdated).
	// A nil lastUpdated never matches.
	RecordExists(ctx context.Context, githubLink string, lastUpdated *string) (bool, error)

	// Create inserts a row. Any failure surfaces as a *RepositoryError.
	Create(ctx context.Context, row schema.Row) error

	// Delete removes rows for the dedup key and returns once the store has applied it.
	Delete(ctx context.Context, githubLink string, lastUpdated *string) error

	// Read returns the newest row for a link, or nil when none exists.
	Read(ctx context.Context, githubLink string) (*schema.Row, error)

	// List returns every stored row.
	List(ctx context.Context) ([]schema.Row, error)

	// BeginRun creates a run record and returns its ID.
	BeginRun(ctx context.Context, runUUID string, startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun completes a run record with the final counters.
	EndRun(ctx context.Context, runID int64, endTime time.Time, summary schema.RunSummary) error

	// ListRuns returns all run records, newest first.
	ListRuns(ctx context.Context) ([]schema.RunRecord, error)

	// GetStatus returns status information about the store.
	GetStatus() (schema.StoreStatus, error)

	// Close closes the underlying connection.
	Close() error
}
