package flow

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerDefaultsWhenAbsent(t *testing.T) {
	if Logger(context.Background()) == nil {
		t.Fatalf("expected a non-nil default logger")
	}
}

func TestWithLoggerRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithLogger(context.Background(), logger)
	if Logger(ctx) != logger {
		t.Fatalf("expected Logger(ctx) to return the installed logger")
	}
}

func TestTraceIDRoundTrips(t *testing.T) {
	if got := TraceID(context.Background()); got != "" {
		t.Fatalf("expected empty trace id by default, got %q", got)
	}
	ctx := WithTraceID(context.Background(), "abc-123")
	if got := TraceID(ctx); got != "abc-123" {
		t.Fatalf("got %q", got)
	}
}

func TestLogInfoAppendsTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithLogger(context.Background(), logger)
	ctx = WithTraceID(ctx, "trace-xyz")

	LogInfo(ctx, "hello")

	if !strings.Contains(buf.String(), "trace-xyz") {
		t.Fatalf("expected trace_id in log output, got %q", buf.String())
	}
}

func TestLogErrorAttachesError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithLogger(context.Background(), logger)

	LogError(ctx, "failed", errBoom)

	if !strings.Contains(buf.String(), "boom") {
		t.Fatalf("expected error text in log output, got %q", buf.String())
	}
}

var errBoom = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
