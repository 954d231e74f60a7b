package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const correlationIDKey ctxKey = "correlation_id"

// ContextWithCorrelationID stores the correlation id in the context.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext extracts the correlation id if present.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(correlationIDKey).(string); ok {
		return v
	}
	return ""
}

// WithContext returns l annotated with the correlation id carried by ctx.
func WithContext(ctx context.Context, l zerolog.Logger) zerolog.Logger {
	id := CorrelationIDFromContext(ctx)
	if id == "" {
		return l
	}
	return l.With().Str("correlation_id", id).Logger()
}
