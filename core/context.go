package core

import "context"

// Context keys for run options
type contextKey string

const (
	runIDKey contextKey = "runID"
)

// WithRunID attaches the run identifier to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFrom returns the run identifier, or "" when none was attached
func RunIDFrom(ctx context.Context) string {
	val := ctx.Value(runIDKey)
	if val == nil {
		return ""
	}
	id, ok := val.(string)
	if !ok {
		return ""
	}
	return id
}
