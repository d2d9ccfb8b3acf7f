package flow

import (
	"context"
	"log/slog"
)

type ctxKey string

const (
	loggerKey  ctxKey = "flow.logger"
	traceIDKey ctxKey = "flow.trace_id"
)

// WithLogger stores a *slog.Logger in the context. Combinators that log
// (the log combinator, Error.Log, the LogXxx helpers below) read it back
// via Logger, falling back to slog.Default() when absent. Grounded on the
// teacher's pkg/calque/context.go WithLogger/Logger pair.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger retrieves the *slog.Logger stored in ctx, or slog.Default().
func Logger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithTraceID stores a trace ID in the context, picked up by Error and by
// the LogXxx helpers (and so the log combinator) for correlation.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID retrieves the trace ID from context, or "" if none was set.
func TraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return ""
}
