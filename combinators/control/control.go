// Package control implements spec.md §4.4.4's control-flow combinators:
// ifThen, switch, branch, retry, recover, catchAndContinue,
// circuitBreaker, tap, then, whileCondition, chainFlows.
package control

import (
	"context"
	"fmt"
	"time"

	"github.com/goldentooth/flowengine/flow"
)

// IfThen routes each item of f to thenFlow if pred is true, or passes it
// through unchanged otherwise.
func IfThen[I, O any](f flow.Flow[I, O], pred func(O) bool, thenFlow flow.Flow[O, O]) flow.Flow[I, O] {
	name := f.Name() + " |> if_then"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		var current flow.Stream[O]
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			for {
				if current != nil {
					if v, ok, err := current.Next(ctx); err != nil || ok {
						return v, ok, err
					}
					_ = current.Close()
					current = nil
				}
				v, ok, err := out.Next(ctx)
				if err != nil || !ok {
					var zero O
					return zero, false, err
				}
				if !pred(v) {
					return v, true, nil
				}
				current = thenFlow.Apply(ctx, flow.Single(v))
			}
		}, func() error {
			if current != nil {
				_ = current.Close()
			}
			return out.Close()
		})
	})
}

// Switch routes each item of f to the first matching case's flow (tested
// in order), or to defaultFlow if none match.
type Case[O any] struct {
	Pred func(O) bool
	Flow flow.Flow[O, O]
}

func Switch[I, O any](f flow.Flow[I, O], cases []Case[O], defaultFlow flow.Flow[O, O]) flow.Flow[I, O] {
	name := f.Name() + " |> switch"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		var current flow.Stream[O]
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			for {
				if current != nil {
					if v, ok, err := current.Next(ctx); err != nil || ok {
						return v, ok, err
					}
					_ = current.Close()
					current = nil
				}
				v, ok, err := out.Next(ctx)
				if err != nil || !ok {
					var zero O
					return zero, false, err
				}
				chosen := defaultFlow
				for _, c := range cases {
					if c.Pred(v) {
						chosen = c.Flow
						break
					}
				}
				current = chosen.Apply(ctx, flow.Single(v))
			}
		}, func() error {
			if current != nil {
				_ = current.Close()
			}
			return out.Close()
		})
	})
}

// Branch is Switch's two-way special case: items matching pred go
// through trueFlow, everything else through falseFlow.
func Branch[I, O any](f flow.Flow[I, O], pred func(O) bool, trueFlow, falseFlow flow.Flow[O, O]) flow.Flow[I, O] {
	return Switch(f, []Case[O]{{Pred: pred, Flow: trueFlow}}, falseFlow)
}

// RetryPolicy controls Retry's backoff.
type RetryPolicy struct {
	MaxAttempts int
	// BaseDelay is multiplied by the attempt number (1-indexed) for a
	// simple linear backoff, matching the original's 0.1*attempt schedule.
	BaseDelay time.Duration
}

// Retry re-applies f to a failing item up to policy.MaxAttempts times,
// sleeping BaseDelay*attempt between attempts, before giving up with an
// Execution error wrapping the last failure.
func Retry[I, O any](f flow.Flow[I, O], policy RetryPolicy) (flow.Flow[I, O], error) {
	if policy.MaxAttempts <= 0 {
		return flow.Flow[I, O]{}, flow.ConfigError("retry", "max attempts must be positive")
	}
	name := f.Name() + " |> retry"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		var items []I
		var readErr error
		loaded := false
		idx := 0
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			if !loaded {
				loaded = true
				items, readErr = flow.ToSlice(ctx, in)
			}
			if readErr != nil {
				var zero O
				return zero, false, readErr
			}
			if idx >= len(items) {
				var zero O
				return zero, false, nil
			}
			item := items[idx]
			idx++

			var lastErr error
			for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
				out := f.Apply(ctx, flow.Single(item))
				v, ok, err := out.Next(ctx)
				_ = out.Close()
				if err == nil && ok {
					return v, true, nil
				}
				lastErr = err
				if attempt < policy.MaxAttempts && policy.BaseDelay > 0 {
					if sleepErr := flow.Sleep(ctx, policy.BaseDelay*time.Duration(attempt)); sleepErr != nil {
						var zero O
						return zero, false, sleepErr
					}
				}
			}
			var zero O
			return zero, false, flow.ExecutionError(ctx, name, fmt.Sprintf("exhausted %d attempts", policy.MaxAttempts), lastErr)
		}, nil)
	}), nil
}

// Recover substitutes fallback(err) for an error raised while pulling from
// f: the fallback value is yielded in place of the failure and the stream
// then ends cleanly instead of propagating the error.
func Recover[I, O any](f flow.Flow[I, O], fallback func(error) O) flow.Flow[I, O] {
	name := f.Name() + " |> recover"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		recovered := false
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			if recovered {
				var zero O
				return zero, false, nil
			}
			v, ok, err := out.Next(ctx)
			if err != nil {
				recovered = true
				return fallback(err), true, nil
			}
			return v, ok, nil
		}, out.Close)
	})
}

// CatchAndContinue is Recover's skip-instead-of-substitute sibling: an
// item that fails is silently dropped and the stream continues, instead
// of being replaced with a fallback value.
func CatchAndContinue[I, O any](f flow.Flow[I, O], onError func(error)) flow.Flow[I, O] {
	name := f.Name() + " |> catch_and_continue"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			for {
				v, ok, err := out.Next(ctx)
				if err != nil {
					if onError != nil {
						onError(err)
					}
					continue
				}
				return v, ok, nil
			}
		}, out.Close)
	})
}

// CircuitState is CircuitBreaker's current state.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// CircuitBreaker opens after failureThreshold consecutive failures,
// rejecting every further item with an Execution error until resetAfter
// has elapsed, at which point it goes half-open and lets the next item
// through as a trial. Returns a ConfigError if failureThreshold is not
// positive.
func CircuitBreaker[I, O any](f flow.Flow[I, O], failureThreshold int, resetAfter time.Duration) (flow.Flow[I, O], error) {
	if failureThreshold <= 0 {
		return flow.Flow[I, O]{}, flow.ConfigError("circuit_breaker", "failure threshold must be positive")
	}
	name := f.Name() + " |> circuit_breaker"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		clock := flow.ClockFromContext(ctx)
		state := CircuitClosed
		consecutiveFailures := 0
		var openedAt time.Time
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			if state == CircuitOpen {
				if clock.Now().Sub(openedAt) >= resetAfter {
					state = CircuitHalfOpen
				} else {
					var zero O
					return zero, false, flow.ExecutionError(ctx, name, "circuit breaker is open", nil)
				}
			}
			v, ok, err := out.Next(ctx)
			if err != nil {
				consecutiveFailures++
				if consecutiveFailures >= failureThreshold {
					state = CircuitOpen
					openedAt = clock.Now()
				}
				var zero O
				return zero, false, err
			}
			consecutiveFailures = 0
			if state == CircuitHalfOpen {
				state = CircuitClosed
			}
			return v, ok, nil
		}, out.Close)
	}), nil
}

// Tap calls fn with every item of f for its side effect, without altering
// the stream.
func Tap[I, O any](f flow.Flow[I, O], fn func(O)) flow.Flow[I, O] {
	name := f.Name() + " |> tap"
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

// Then composes a and b left to right; a thin re-export of flow.Then so
// callers of combinators/control don't need to import flow separately
// just to sequence two flows inside a control-flow pipeline.
func Then[I, O, P any](a flow.Flow[I, O], b flow.Flow[O, P]) flow.Flow[I, P] {
	return flow.Then(a, b)
}

// WhileCondition tests cond against each item of f's output in turn. While
// cond holds, the item is fed through body as a single-item stream and
// every result body produces is yielded (a per-item flatMap); once cond
// fails for an item, the entire stream ends there — that item and
// everything after it is discarded, not skipped-and-continued. Grounded on
// original_source's while_condition_stream, which breaks out of the whole
// generator on the first failing item rather than looping a single value.
func WhileCondition[I, O any](f flow.Flow[I, O], cond func(O) bool, body flow.Flow[O, O]) flow.Flow[I, O] {
	name := f.Name() + " |> while_condition"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		done := false
		var current flow.Stream[O]
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			for {
				if done {
					var zero O
					return zero, false, nil
				}
				if current != nil {
					v, ok, err := current.Next(ctx)
					if err != nil {
						_ = current.Close()
						var zero O
						return zero, false, err
					}
					if ok {
						return v, true, nil
					}
					_ = current.Close()
					current = nil
					continue
				}
				v, ok, err := out.Next(ctx)
				if err != nil {
					var zero O
					return zero, false, err
				}
				if !ok {
					done = true
					var zero O
					return zero, false, nil
				}
				if !cond(v) {
					done = true
					var zero O
					return zero, false, nil
				}
				current = body.Apply(ctx, flow.Single(v))
			}
		}, func() error {
			if current != nil {
				_ = current.Close()
			}
			return out.Close()
		})
	})
}

// ChainFlows composes a slice of same-type flows in order, equivalent to
// repeated flow.Then but expressed as a list for callers assembling a
// pipeline dynamically (e.g. from a registry lookup).
func ChainFlows[T any](flows []flow.Flow[T, T]) flow.Flow[T, T] {
	if len(flows) == 0 {
		return flow.Identity[T]()
	}
	result := flows[0]
	for _, f := range flows[1:] {
		result = flow.Then(result, f)
	}
	return result
}
