// Package observability implements spec.md §4.4.6's instrumentation
// combinators: log, trace, metrics, inspect, tag, materialize. log,
// trace, and metrics each accept a small backend interface so they can be
// wired to the concrete providers in the top-level observability package
// (PrometheusCounter, OTLPTracer, NewZerologLogger) without this package
// importing them directly.
package observability

import (
	"context"

	"github.com/goldentooth/flowengine/flow"
)

// Log emits a structured log line for every item of f via the logger
// installed in ctx (flow.Logger / flow.LogInfo), labeled with name.
func Log[I, O any](f flow.Flow[I, O], name string, describe func(O) string) flow.Flow[I, O] {
	wrapped := f.Name() + " |> log"
	return flow.New[I, O](wrapped, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			v, ok, err := out.Next(ctx)
			if err != nil {
				flow.LogError(ctx, name+": stream failed", err)
				return v, false, err
			}
			if !ok {
				flow.LogDebug(ctx, name+": stream completed")
				return v, false, nil
			}
			msg := name
			if describe != nil {
				msg = describe(v)
			}
			flow.LogInfo(ctx, msg)
			return v, true, nil
		}, out.Close)
	})
}

// Tracer is the minimal span-emitting backend trace needs; OTLPTracer
// (top-level observability package) implements it over
// go.opentelemetry.io/otel.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, func(err error))
}

// Trace wraps every pull from f in a span named name, closing it with the
// pull's error (if any) when the pull returns. The final pull that reports
// end-of-stream gets a span too, so n items produce n+1 spans.
func Trace[I, O any](f flow.Flow[I, O], tracer Tracer, name string) flow.Flow[I, O] {
	wrapped := f.Name() + " |> trace"
	return flow.New[I, O](wrapped, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			spanCtx, end := tracer.StartSpan(ctx, name)
			v, ok, err := out.Next(spanCtx)
			end(err)
			return v, ok, err
		}, out.Close)
	})
}

// Counter is the minimal metrics backend metrics needs; PrometheusCounter
// (top-level observability package) implements it over
// github.com/prometheus/client_golang.
type Counter interface {
	IncSuccess(flowName string)
	IncFailure(flowName string)
	ObserveDuration(flowName string, seconds float64)
}

// Metrics records a success count for every item of f and a failure count
// for an error, plus a duration for every pull (the final end-of-stream
// pull included), against counter, labeled by flowName.
func Metrics[I, O any](f flow.Flow[I, O], counter Counter, flowName string) flow.Flow[I, O] {
	wrapped := f.Name() + " |> metrics"
	return flow.New[I, O](wrapped, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		clock := flow.ClockFromContext(ctx)
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			start := clock.Now()
			v, ok, err := out.Next(ctx)
			elapsed := clock.Now().Sub(start).Seconds()
			counter.ObserveDuration(flowName, elapsed)
			if err != nil {
				counter.IncFailure(flowName)
			} else if ok {
				counter.IncSuccess(flowName)
			}
			return v, ok, err
		}, out.Close)
	})
}

// Inspect calls fn with every item of f, for debugging/diagnostics — the
// same shape as control.Tap, kept here as its own name since spec.md §4.4.6
// lists it among the observability operators rather than the control-flow
// ones.
func Inspect[I, O any](f flow.Flow[I, O], fn func(O)) flow.Flow[I, O] {
	name := f.Name() + " |> inspect"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			v, ok, err := out.Next(ctx)
			if err == nil && ok {
				fn(v)
			}
			return v, ok, err
		}, out.Close)
	})
}

// Tagged pairs a value with the metadata keyFn derived from it, without
// altering the value itself — original_source's combinators/observability.py
// metadata(key_fn), supplemented here per SPEC_FULL.md §C.
type Tagged[O any] struct {
	Value    O
	Metadata flow.Metadata
}

// Tag attaches metadata (built by keyFn) to every item of f, emitting
// Tagged[O] instead of bare O.
func Tag[I, O any](f flow.Flow[I, O], keyFn func(O) flow.Metadata) flow.Flow[I, Tagged[O]] {
	name := f.Name() + " |> tag"
	return flow.New[I, Tagged[O]](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[Tagged[O]] {
		out := f.Apply(ctx, in)
		return flow.NewStream(func(ctx context.Context) (Tagged[O], bool, error) {
			v, ok, err := out.Next(ctx)
			if err != nil || !ok {
				var zero Tagged[O]
				return zero, false, err
			}
			return Tagged[O]{Value: v, Metadata: keyFn(v)}, true, nil
		}, out.Close)
	})
}

// Materialize reifies every event of f — each value as an OnNext, the
// terminal error (if any) as an OnError, and normal completion as a final
// OnComplete — so downstream code can handle stream lifecycle events as
// ordinary values instead of via the Stream contract's control flow.
// Grounded on original_source's StreamNotification / materialize_stream.
func Materialize[I, O any](f flow.Flow[I, O]) flow.Flow[I, flow.Notification[O]] {
	name := f.Name() + " |> materialize"
	return flow.New[I, flow.Notification[O]](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[flow.Notification[O]] {
		out := f.Apply(ctx, in)
		terminated := false
		return flow.NewStream(func(ctx context.Context) (flow.Notification[O], bool, error) {
			if terminated {
				var zero flow.Notification[O]
				return zero, false, nil
			}
			v, ok, err := out.Next(ctx)
			if err != nil {
				terminated = true
				return flow.Err[O](err), true, nil
			}
			if !ok {
				terminated = true
				return flow.Complete[O](), true, nil
			}
			return flow.Next(v), true, nil
		}, out.Close)
	})
}
