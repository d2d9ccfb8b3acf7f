package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Kind classifies a flow error into one of the five disjoint categories
// from the specification. Generic is a super-kind catch-all handlers can
// match against regardless of the specific failure.
type Kind int

const (
	// Generic covers all kinds for catch-all handling.
	Generic Kind = iota
	// Validation marks an item that failed a guard predicate.
	Validation
	// Execution marks a downstream operation that failed irrecoverably
	// (retries exhausted, all racers failed, circuit open).
	Execution
	// Timeout marks a bounded wait that elapsed.
	Timeout
	// Configuration marks a flow built with invalid parameters.
	Configuration
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Execution:
		return "execution"
	case Timeout:
		return "timeout"
	case Configuration:
		return "configuration"
	default:
		return "generic"
	}
}

// Error is a context-aware, kind-classified error that carries the
// originating flow name and structured metadata for logging, grounded on
// the teacher's pkg/calque/errors.go *Error (WrapErr/NewErr/Tag/Log),
// extended with the Kind taxonomy of spec.md §3.
type Error struct {
	kind     Kind
	flowName string
	msg      string
	cause    error
	traceID  string
	attrs    []slog.Attr
}

// newError is the shared constructor behind the per-kind helpers below.
func newError(ctx context.Context, kind Kind, flowName, msg string, cause error) *Error {
	traceID := TraceID(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return &Error{
		kind:     kind,
		flowName: flowName,
		msg:      msg,
		cause:    cause,
		traceID:  traceID,
	}
}

// ValidationError builds a Validation-kind error, as raised by guard on
// its first failing item.
func ValidationError(ctx context.Context, flowName, msg string, cause error) *Error {
	return newError(ctx, Validation, flowName, msg, cause)
}

// ExecutionError builds an Execution-kind error, as raised when retries
// are exhausted, every racer fails, or a circuit breaker is open.
func ExecutionError(ctx context.Context, flowName, msg string, cause error) *Error {
	return newError(ctx, Execution, flowName, msg, cause)
}

// TimeoutError builds a Timeout-kind error, as raised when a bounded wait
// elapses.
func TimeoutError(ctx context.Context, flowName, msg string, cause error) *Error {
	return newError(ctx, Timeout, flowName, msg, cause)
}

// ConfigError builds a Configuration-kind error, as raised synchronously
// at combinator-construction time for invalid parameters.
func ConfigError(flowName, msg string) *Error {
	return newError(context.Background(), Configuration, flowName, msg, nil)
}

// GenericError builds a Generic-kind error for situations not covered by
// the other four kinds.
func GenericError(ctx context.Context, flowName, msg string, cause error) *Error {
	return newError(ctx, Generic, flowName, msg, cause)
}

// Tag adds a slog.Attr to the error for structured logging. Returns the
// error for fluent chaining.
func (e *Error) Tag(attr slog.Attr) *Error {
	e.attrs = append(e.attrs, attr)
	return e
}

// Kind returns the error's classification.
func (e *Error) Kind() Kind { return e.kind }

// FlowName returns the name of the flow that raised the error, or "" if
// unknown.
func (e *Error) FlowName() string { return e.flowName }

// TraceID returns the trace ID associated with this error.
func (e *Error) TraceID() string { return e.traceID }

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := e.kind.String()
	if e.flowName != "" {
		prefix = fmt.Sprintf("%s[%s]", prefix, e.flowName)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.msg)
}

// Unwrap enables errors.Is / errors.As against the wrapped cause.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is a *Error of the same Kind, enabling
// errors.Is(err, flow.ExecutionError(...)) style kind checks.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.kind == t.kind
}

// LogAttrs returns the error's structured attributes plus trace_id and
// flow_name, ready to pass to a slog.Logger.LogAttrs call.
func (e *Error) LogAttrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)
	if e.traceID != "" {
		attrs = append(attrs, slog.String("trace_id", e.traceID))
	}
	if e.flowName != "" {
		attrs = append(attrs, slog.String("flow_name", e.flowName))
	}
	attrs = append(attrs, e.attrs...)
	return attrs
}

// Log logs this error at error level with all metadata, using the
// logger installed in ctx.
func (e *Error) Log(ctx context.Context) {
	LogAttr(ctx, slog.LevelError, e.msg, e.LogAttrs()...)
}

// ErrNotApplied is the dedicated type-misuse error raised when a Flow is
// iterated without ever being applied to an input stream (spec.md §3).
var ErrNotApplied = fmt.Errorf("flow: cannot iterate a Flow directly; call Apply(ctx, stream) first")
