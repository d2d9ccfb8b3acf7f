// Package sources implements spec.md §4.4.7's source combinators:
// rangeInts, repeat, empty, startWith.
package sources

import (
	"context"
	"fmt"

	"github.com/goldentooth/flowengine/flow"
)

// RangeInts returns a source flow that ignores its input and yields the
// arithmetic progression start, start+step, start+2*step, … stopping before
// stop is reached or passed, matching Python's range(start, stop, step).
// A positive step counts up while stop > start is required to yield
// anything; a negative step counts down while stop < start is required.
// Returns a ConfigError if step is 0.
func RangeInts[I any](start, stop, step int) (flow.Flow[I, int], error) {
	if step == 0 {
		return flow.Flow[I, int]{}, flow.ConfigError("range_ints", "step must not be zero")
	}
	name := fmt.Sprintf("range_ints(%d, %d, %d)", start, stop, step)
	return flow.New[I, int](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[int] {
		_ = in.Close()
		next := start
		return flow.NewStream(func(ctx context.Context) (int, bool, error) {
			if (step > 0 && next >= stop) || (step < 0 && next <= stop) {
				return 0, false, nil
			}
			v := next
			next += step
			return v, true, nil
		}, nil)
	}), nil
}

// Repeat returns a source flow that ignores its input and yields v
// exactly n times. Returns a ConfigError if n is negative.
func Repeat[I, O any](v O, n int) (flow.Flow[I, O], error) {
	if n < 0 {
		return flow.Flow[I, O]{}, flow.ConfigError("repeat", "count must not be negative")
	}
	return flow.New[I, O]("repeat", func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		_ = in.Close()
		count := 0
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			if count >= n {
				var zero O
				return zero, false, nil
			}
			count++
			return v, true, nil
		}, nil)
	}), nil
}

// Empty returns a source flow that ignores its input and yields nothing.
func Empty[I, O any]() flow.Flow[I, O] {
	return flow.New[I, O]("empty", func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		_ = in.Close()
		return flow.Empty[O]()
	})
}

// StartWith prepends items before f's own output, preserving order.
func StartWith[I, O any](f flow.Flow[I, O], items ...O) flow.Flow[I, O] {
	name := f.Name() + " |> start_with"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		idx := 0
		var out flow.Stream[O]
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			if idx < len(items) {
				v := items[idx]
				idx++
				return v, true, nil
			}
			if out == nil {
				out = f.Apply(ctx, in)
			}
			return out.Next(ctx)
		}, func() error {
			if out != nil {
				return out.Close()
			}
			return in.Close()
		})
	})
}
