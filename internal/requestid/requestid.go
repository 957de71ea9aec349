// Package requestid carries the per-request correlation ID that the
// context-aware log handler stamps onto every record.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// New mints a fresh request ID.
func New() string {
	return uuid.NewString()
}

// WithRequestID attaches id to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request ID attached to ctx, or "" when the
// request came in without one.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
