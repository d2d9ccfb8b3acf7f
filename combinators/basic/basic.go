// Package basic implements the one-to-one and simple structural
// combinators of spec.md §4.4.1: identity, map, filter, flatMap, flatten,
// take, skip, guard, until, collect, share, runFold. Each is a free
// function over flow.Flow[I,O], never a method, per flow.Flow's doc
// comment and SPEC_FULL.md §C.
package basic

import (
	"context"
	"fmt"

	"github.com/goldentooth/flowengine/flow"
)

// Identity returns the no-op flow: every item passes through unchanged.
// Exposed here too (flow.Identity already provides it) so callers working
// entirely against combinators/basic never need to reach into flow
// directly for the trivial case.
func Identity[T any]() flow.Flow[T, T] {
	return flow.Identity[T]()
}

// Map applies fn to every item produced by f, changing its type from O to
// O2. This is one of the operators that could never be a Flow method: Go
// forbids a method from introducing a type parameter (O2) beyond its
// receiver's.
func Map[I, O, O2 any](f flow.Flow[I, O], fn func(O) O2) flow.Flow[I, O2] {
	return flow.Pipe(f, flow.FromSyncFn(fn))
}

// MapErr is Map for functions that can fail per item; the first error
// terminates the stream.
func MapErr[I, O, O2 any](f flow.Flow[I, O], fn func(context.Context, O) (O2, error)) flow.Flow[I, O2] {
	return flow.Pipe(f, flow.FromAsyncFn(fn))
}

// Filter keeps only the items of f for which pred returns true.
func Filter[I, O any](f flow.Flow[I, O], pred func(O) bool) flow.Flow[I, O] {
	name := f.Name() + " |> filter"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			for {
				v, ok, err := out.Next(ctx)
				if err != nil || !ok {
					var zero O
					return zero, false, err
				}
				if pred(v) {
					return v, true, nil
				}
			}
		}, out.Close)
	})
}

// FlatMap replaces every item of f with every item of the stream fn
// returns for it, draining each sub-stream fully, in order, before moving
// to the next input item.
func FlatMap[I, O, O2 any](f flow.Flow[I, O], fn func(O) flow.Stream[O2]) flow.Flow[I, O2] {
	name := f.Name() + " |> flat_map"
	return flow.New[I, O2](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O2] {
		out := f.Apply(ctx, in)
		var current flow.Stream[O2]
		return flow.NewStream(func(ctx context.Context) (O2, bool, error) {
			for {
				if current != nil {
					v, ok, err := current.Next(ctx)
					if err != nil {
						var zero O2
						return zero, false, err
					}
					if ok {
						return v, true, nil
					}
					_ = current.Close()
					current = nil
				}
				v, ok, err := out.Next(ctx)
				if err != nil {
					var zero O2
					return zero, false, err
				}
				if !ok {
					var zero O2
					return zero, false, nil
				}
				current = fn(v)
			}
		}, func() error {
			if current != nil {
				_ = current.Close()
			}
			return out.Close()
		})
	})
}

// Flatten concatenates the sub-streams produced by f, in order. It is
// FlatMap with the identity function, kept as a separate name because
// spec.md §4.4.1 lists flatten and flatMap as distinct operators.
func Flatten[I, O any](f flow.Flow[I, flow.Stream[O]]) flow.Flow[I, O] {
	return FlatMap(f, func(s flow.Stream[O]) flow.Stream[O] { return s })
}

// Take yields at most the first n items of f, then ends the stream and
// closes f's output early.
func Take[I, O any](f flow.Flow[I, O], n int) flow.Flow[I, O] {
	name := f.Name() + " |> take"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		count := 0
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			if count >= n {
				_ = out.Close()
				var zero O
				return zero, false, nil
			}
			v, ok, err := out.Next(ctx)
			if err != nil || !ok {
				var zero O
				return zero, false, err
			}
			count++
			if count >= n {
				_ = out.Close()
			}
			return v, true, nil
		}, out.Close)
	})
}

// Skip discards the first n items of f and yields the rest unchanged.
func Skip[I, O any](f flow.Flow[I, O], n int) flow.Flow[I, O] {
	name := f.Name() + " |> skip"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		skipped := 0
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			for skipped < n {
				_, ok, err := out.Next(ctx)
				if err != nil {
					var zero O
					return zero, false, err
				}
				if !ok {
					var zero O
					return zero, false, nil
				}
				skipped++
			}
			return out.Next(ctx)
		}, out.Close)
	})
}

// Guard raises a Validation error ("msg: item") on the first item for
// which pred returns false; items before that point pass through
// unchanged, and the offending item itself is not yielded.
func Guard[I, O any](f flow.Flow[I, O], pred func(O) bool, msg string) flow.Flow[I, O] {
	name := f.Name() + " |> guard"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			v, ok, err := out.Next(ctx)
			if err != nil || !ok {
				var zero O
				return zero, false, err
			}
			if !pred(v) {
				var zero O
				return zero, false, flow.ValidationError(ctx, name, fmt.Sprintf("%s: %v", msg, v), nil)
			}
			return v, true, nil
		}, out.Close)
	})
}

// Until yields items of f up to and including the first one for which
// pred returns true, then ends the stream.
func Until[I, O any](f flow.Flow[I, O], pred func(O) bool) flow.Flow[I, O] {
	name := f.Name() + " |> until"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		done := false
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			if done {
				var zero O
				return zero, false, nil
			}
			v, ok, err := out.Next(ctx)
			if err != nil || !ok {
				var zero O
				return zero, false, err
			}
			if pred(v) {
				done = true
			}
			return v, true, nil
		}, out.Close)
	})
}

// Collect drains f entirely and emits the accumulated items as a single
// slice, once. The drain itself is deferred to the first pull against the
// returned stream, keeping Flow.Apply's laziness contract.
func Collect[I, O any](f flow.Flow[I, O]) flow.Flow[I, []O] {
	name := f.Name() + " |> collect"
	return flow.New[I, []O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[[]O] {
		out := f.Apply(ctx, in)
		done := false
		return flow.NewStream(func(ctx context.Context) ([]O, bool, error) {
			if done {
				var zero []O
				return zero, false, nil
			}
			done = true
			items, err := flow.ToSlice(ctx, out)
			if err != nil {
				var zero []O
				return zero, false, err
			}
			return items, true, nil
		}, nil)
	})
}

// Share is the documented pass-through stub for spec.md's open question on
// multicast/sharing: it behaves exactly like Identity. A real broadcast
// primitive (fan-out to multiple independent consumers of one upstream)
// is intentionally not implemented — spec.md §9 asks not to guess at the
// semantics, so this repo doesn't.
func Share[I, O any](f flow.Flow[I, O]) flow.Flow[I, O] {
	return f.WithName(f.Name() + " |> share")
}

// RunFold drains f entirely, folding every item into an accumulator with
// fn starting from init, and emits the final accumulator value once. The
// drain is deferred to the first pull against the returned stream.
func RunFold[I, O, A any](f flow.Flow[I, O], init A, fn func(A, O) A) flow.Flow[I, A] {
	name := f.Name() + " |> run_fold"
	return flow.New[I, A](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[A] {
		out := f.Apply(ctx, in)
		done := false
		return flow.NewStream(func(ctx context.Context) (A, bool, error) {
			if done {
				var zero A
				return zero, false, nil
			}
			done = true
			defer out.Close()
			acc := init
			for {
				v, ok, err := out.Next(ctx)
				if err != nil {
					var zero A
					return zero, false, err
				}
				if !ok {
					return acc, true, nil
				}
				acc = fn(acc, v)
			}
		}, nil)
	})
}
