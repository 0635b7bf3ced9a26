package core

import "context"

// Context keys for run options
type contextKey string

const (
	suppressHeaderKey contextKey = "suppressHeader"
	attemptKey        contextKey = "attempt"
)

// WithSuppressHeader returns a context that silences progress output on stdout.
func WithSuppressHeader(ctx context.Context) context.Context {
	return context.WithValue(ctx, suppressHeaderKey, true)
}

// shouldSuppressHeader returns whether headers should be suppressed from context
func shouldSuppressHeader(ctx context.Context) bool {
	val := ctx.Value(suppressHeaderKey)
	if val == nil {
		return false // default: show headers
	}
	suppress, ok := val.(bool)
	return ok && suppress
}

// withAttempt records the 1-based analyzer attempt number in the context
func withAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, attemptKey, attempt)
}

// getAttempt returns the analyzer attempt number from context
func getAttempt(ctx context.Context) (int, bool) {
	val := ctx.Value(attemptKey)
	if val == nil {
		return 0, false
	}
	attempt, ok := val.(int)
	return attempt, ok
}
