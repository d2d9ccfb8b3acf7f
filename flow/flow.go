package flow

import (
	"context"
)

// Metadata is an open key-value bag attached to a Flow for observability
// tooling (spec.md §3). It is kept distinct from the typed I/O payload
// rather than threaded through the stream itself.
type Metadata map[string]any

// Flow is an immutable value representing a stream-to-stream
// transformation from I to O. Constructing a Flow never starts work — all
// work happens when it is Applied to a concrete input stream — and a Flow
// may be Applied many times to many streams, each application independent.
//
// Flow carries no methods that import an operator package: per spec.md §9,
// that would create a cyclic reference between this package and the
// combinator packages. Every operator (map, filter, batch, retry, ...)
// lives in a combinators/* package as a free function over Flow[I,O];
// composition uses Pipe/Then here, not fluent methods.
type Flow[I, O any] struct {
	name      string
	metadata  Metadata
	transform func(ctx context.Context, in Stream[I]) Stream[O]
}

// New builds a Flow from its name and transform function. transform must
// not perform any work itself — it should return a lazily-evaluated
// Stream[O] (typically built with NewStream) that does its work only as
// the caller pulls from it.
func New[I, O any](name string, transform func(ctx context.Context, in Stream[I]) Stream[O]) Flow[I, O] {
	return Flow[I, O]{name: name, metadata: Metadata{}, transform: transform}
}

// Name returns the flow's human-readable name, used in diagnostics and
// composition traces.
func (f Flow[I, O]) Name() string { return f.name }

// Metadata returns the flow's open metadata bag.
func (f Flow[I, O]) Metadata() Metadata { return f.metadata }

// WithName returns a copy of f with a new name.
func (f Flow[I, O]) WithName(name string) Flow[I, O] {
	f.name = name
	return f
}

// WithMetadata returns a copy of f with one additional metadata entry.
func (f Flow[I, O]) WithMetadata(key string, value any) Flow[I, O] {
	md := make(Metadata, len(f.metadata)+1)
	for k, v := range f.metadata {
		md[k] = v
	}
	md[key] = value
	f.metadata = md
	return f
}

// Apply applies the flow to a concrete input stream, returning a fresh
// output stream; ownership of in transfers to the flow, and ownership of
// the result transfers to the caller. Apply itself performs no work
// synchronously — the transform is expected to be lazy.
func (f Flow[I, O]) Apply(ctx context.Context, in Stream[I]) Stream[O] {
	if f.transform == nil {
		return Empty[O]()
	}
	return f.transform(ctx, in)
}

// Iterate always fails with ErrNotApplied. It exists so that direct
// iteration of a Flow without giving it an input stream — the Go analogue
// of the source's Flow.__aiter__ raising TypeError — has a single,
// distinctly-typed failure mode to detect and report, per spec.md §3.
func (f Flow[I, O]) Iterate(ctx context.Context) (Stream[O], error) {
	return nil, ErrNotApplied
}

// Pipe composes two flows left to right: Pipe(a, b) first runs a, then
// feeds its output through b. The composed name is "n(a) ∘ n(b)" and
// composition is associative up to naming: Pipe(Pipe(a,b),c) and
// Pipe(a,Pipe(b,c)) both apply a then b then c.
func Pipe[I, O, P any](a Flow[I, O], b Flow[O, P]) Flow[I, P] {
	name := a.name + " ∘ " + b.name
	return New[I, P](name, func(ctx context.Context, in Stream[I]) Stream[P] {
		mid := a.Apply(ctx, in)
		return b.Apply(ctx, mid)
	})
}

// Then is Pipe as a free function in call-receiver order, for readability
// at call sites that prefer flow.Then(a, b) over flow.Pipe(a, b). Both
// names exist because spec.md §6 asks for either an overloaded operator or
// a named pipe/then method; Go gets neither a method (new type parameter)
// nor overloading, so both spellings are offered as functions.
func Then[I, O, P any](a Flow[I, O], b Flow[O, P]) Flow[I, P] {
	return Pipe(a, b)
}

// Identity returns a flow whose output stream is exactly its input stream.
func Identity[T any]() Flow[T, T] {
	return New[T, T]("identity", func(ctx context.Context, in Stream[T]) Stream[T] {
		return in
	})
}

// Pure returns a source flow that yields v exactly once, ignoring its
// input stream (which is still closed, to respect ownership transfer).
func Pure[I, O any](v O) Flow[I, O] {
	return New[I, O]("pure", func(ctx context.Context, in Stream[I]) Stream[O] {
		_ = in.Close()
		return Single(v)
	})
}

// FromIterable returns a source flow that ignores its input stream and
// yields the given items once, in order.
func FromIterable[I, O any](items []O) Flow[I, O] {
	return New[I, O]("from_iterable", func(ctx context.Context, in Stream[I]) Stream[O] {
		_ = in.Close()
		return FromSlice(items)
	})
}

// FromSyncFn returns a Flow that applies fn to every input item,
// one-to-one. It is the synchronous factory of spec.md §4.2 and also
// usable as a plain function-to-handler decorator.
func FromSyncFn[I, O any](fn func(I) O) Flow[I, O] {
	return New[I, O]("from_sync_fn", func(ctx context.Context, in Stream[I]) Stream[O] {
		return NewStream(func(ctx context.Context) (O, bool, error) {
			v, ok, err := in.Next(ctx)
			if !ok || err != nil {
				var zero O
				return zero, false, err
			}
			return fn(v), true, nil
		}, in.Close)
	})
}

// FromAsyncFn returns a Flow that awaits fn for every input item. fn
// receives a context so it can observe cancellation while awaiting
// whatever asynchronous work it performs.
func FromAsyncFn[I, O any](fn func(ctx context.Context, v I) (O, error)) Flow[I, O] {
	return New[I, O]("from_async_fn", func(ctx context.Context, in Stream[I]) Stream[O] {
		return NewStream(func(ctx context.Context) (O, bool, error) {
			v, ok, err := in.Next(ctx)
			if !ok || err != nil {
				var zero O
				return zero, false, err
			}
			out, err := fn(ctx, v)
			if err != nil {
				var zero O
				return zero, false, err
			}
			return out, true, nil
		}, in.Close)
	})
}

// FromEventFn returns a Flow that flat-maps fn over every input item: for
// each input, fn's resulting stream is drained to completion, in order,
// before the next input is read.
func FromEventFn[I, O any](fn func(I) Stream[O]) Flow[I, O] {
	return New[I, O]("from_event_fn", func(ctx context.Context, in Stream[I]) Stream[O] {
		var current Stream[O]
		return NewStream(func(ctx context.Context) (O, bool, error) {
			for {
				if current != nil {
					v, ok, err := current.Next(ctx)
					if err != nil {
						var zero O
						return zero, false, err
					}
					if ok {
						return v, true, nil
					}
					_ = current.Close()
					current = nil
				}
				v, ok, err := in.Next(ctx)
				if err != nil {
					var zero O
					return zero, false, err
				}
				if !ok {
					var zero O
					return zero, false, nil
				}
				current = fn(v)
			}
		}, func() error {
			if current != nil {
				_ = current.Close()
			}
			return in.Close()
		})
	})
}

// EmitterRegistrar registers a callback to be invoked with each produced
// value and returns an unregister function, the shape FromEmitter bridges
// to a Flow.
type EmitterRegistrar[O any] func(emit func(O)) (unregister func())

// FromEmitter bridges a push-based source into a pull-based Flow. The
// first Apply performs registration; values pushed by the emitter before
// they are pulled are queued on a bounded channel (see
// combinators/fanio for the same queue discipline used by merge).
func FromEmitter[I, O any](registrar EmitterRegistrar[O], bufferSize int) Flow[I, O] {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return New[I, O]("from_emitter", func(ctx context.Context, in Stream[I]) Stream[O] {
		_ = in.Close()
		ch := make(chan O, bufferSize)
		done := make(chan struct{})
		var closeOnce func() error
		unregister := registrar(func(v O) {
			select {
			case ch <- v:
			case <-done:
			}
		})
		closeOnce = onceCloser(func() error {
			close(done)
			unregister()
			return nil
		})
		return NewStream(func(ctx context.Context) (O, bool, error) {
			select {
			case v, ok := <-ch:
				if !ok {
					var zero O
					return zero, false, nil
				}
				return v, true, nil
			case <-ctx.Done():
				var zero O
				return zero, false, ctx.Err()
			case <-done:
				var zero O
				return zero, false, nil
			}
		}, closeOnce)
	})
}
