// Package correlation carries request and run identifiers through context so
// every log line of one HTTP request or one scheduler run can be joined.
package correlation

import (
	"context"

	"github.com/google/uuid"
)

type requestIDKey struct{}

type runIDKey struct{}

// NewID generates a random UUID v4.
func NewID() string {
	return uuid.NewString()
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns "" if absent.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns "" if absent.
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
