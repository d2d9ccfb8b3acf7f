package flow

import (
	"context"
	"log/slog"
)

// LogInfo logs an info-level message using the logger installed in ctx,
// appending trace_id when present. Grounded on the teacher's
// pkg/calque/logging.go LogInfo.
func LogInfo(ctx context.Context, msg string, args ...any) {
	logger := Logger(ctx)
	if !logger.Enabled(ctx, slog.LevelInfo) {
		return
	}
	logger.InfoContext(ctx, msg, appendTraceID(ctx, args)...)
}

// LogDebug logs a debug-level message using the logger installed in ctx.
func LogDebug(ctx context.Context, msg string, args ...any) {
	logger := Logger(ctx)
	if !logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	logger.DebugContext(ctx, msg, appendTraceID(ctx, args)...)
}

// LogWarn logs a warn-level message using the logger installed in ctx.
func LogWarn(ctx context.Context, msg string, args ...any) {
	logger := Logger(ctx)
	if !logger.Enabled(ctx, slog.LevelWarn) {
		return
	}
	logger.WarnContext(ctx, msg, appendTraceID(ctx, args)...)
}

// LogError logs an error-level message using the logger installed in ctx.
// If err is non-nil it is attached under the "error" key.
func LogError(ctx context.Context, msg string, err error, args ...any) {
	logger := Logger(ctx)
	if !logger.Enabled(ctx, slog.LevelError) {
		return
	}
	args = appendTraceID(ctx, args)
	if err != nil {
		args = append(args, "error", err)
	}
	logger.ErrorContext(ctx, msg, args...)
}

// LogAttr logs at the given level using slog.Attr, for callers that want
// type-safe attributes (used internally by Error.Log).
func LogAttr(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	logger := Logger(ctx)
	if !logger.Enabled(ctx, level) {
		return
	}
	if traceID := TraceID(ctx); traceID != "" {
		attrs = append(attrs, slog.String("trace_id", traceID))
	}
	logger.LogAttrs(ctx, level, msg, attrs...)
}

func appendTraceID(ctx context.Context, args []any) []any {
	if traceID := TraceID(ctx); traceID != "" {
		args = append(args, "trace_id", traceID)
	}
	return args
}
