package contract

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across packages.
var (
	// ErrCircuitOpen is returned when a batch halts after too many consecutive failures.
	ErrCircuitOpen = errors.New("circuit breaker open: too many consecutive failures")

	// ErrNoInput is returned when no path, CSV, or reprocess log was given.
	ErrNoInput = errors.New("no input: provide a path, --from-csv, or --reprocess-log")
)

// GitRepositoryError means a file cannot be attributed to a GitHub location.
type GitRepositoryError struct {
	Path string
	Err  error
}

func (e *GitRepositoryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("file not in a linked git repository: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("file not in a linked git repository: %s", e.Path)
}

func (e *GitRepositoryError) Unwrap() error { return e.Err }

// UnsupportedFileTypeError means the file extension maps to no supported language.
type UnsupportedFileTypeError struct {
	Path string
}

func (e *UnsupportedFileTypeError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.Path)
}

// RegionTagError means region tags could not be read from a file.
type RegionTagError struct {
	Path string
	Err  error
}

func (e *RegionTagError) Error() string {
	return fmt.Sprintf("extracting region tags from %s: %v", e.Path, e.Err)
}

func (e *RegionTagError) Unwrap() error { return e.Err }

// APIError means the remote evaluation service failed or broke its response contract.
type APIError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Timeout    bool
	Msg        string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("API call timed out for %s", e.URL)
	case e.StatusCode != 0:
		return fmt.Sprintf("API call failed for %s: status %d: %s", e.URL, e.StatusCode, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("API call failed for %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("API call failed for %s: %s", e.URL, e.Msg)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// IsTimeout reports whether the failure was a request timeout.
func (e *APIError) IsTimeout() bool { return e.Timeout }

// CodeEvaluatorError means the model-driven evaluator could not produce a valid result.
type CodeEvaluatorError struct {
	Stage string
	Err   error
}

func (e *CodeEvaluatorError) Error() string {
	return fmt.Sprintf("code evaluator (%s): %v", e.Stage, e.Err)
}

func (e *CodeEvaluatorError) Unwrap() error { return e.Err }

// RepositoryError means the analytical store rejected an operation.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

// IsTimeoutError reports whether err is, or wraps, an evaluation timeout.
func IsTimeoutError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Timeout
}
