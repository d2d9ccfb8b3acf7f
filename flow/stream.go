// Package flow implements the core stream and flow abstractions of the
// engine: a lazy, pull-driven Stream[T] contract and the Flow[I,O] value
// that transforms one stream into another.
package flow

import (
	"context"
	"sync"
)

// Stream is a lazy, pull-driven, single-consumer, finite-or-infinite
// sequence of values of type T.
//
// Next advances the stream by one step. It returns (value, true, nil) for
// a value, (zero, false, nil) for end-of-stream, or (zero, false, err) for
// a failure. Once Next reports end-of-stream or failure, every subsequent
// call must report end-of-stream again; it must never raise.
//
// Close is idempotent and infallible from the caller's perspective: it
// releases upstream resources, cancels any background work the stream
// spawned on its behalf, and transitions the stream to end-of-stream.
// Closing a stream mid-iteration is legal.
//
// A Stream has at most one logical consumer at a time; it is not
// thread-safe. Multi-consumer fan-out is the job of explicit operators
// (merge, parallel, race), never of the primitive itself.
type Stream[T any] interface {
	Next(ctx context.Context) (T, bool, error)
	Close() error
}

// funcStream adapts a next/close pair of closures into a Stream. Most
// combinators build one of these rather than a named type, the way the
// source builds an async generator per operator.
type funcStream[T any] struct {
	next  func(ctx context.Context) (T, bool, error)
	close func() error
}

// NewStream builds a Stream from a next function and an optional close
// function. If close is nil, Close is a no-op.
func NewStream[T any](next func(ctx context.Context) (T, bool, error), close func() error) Stream[T] {
	if close == nil {
		close = func() error { return nil }
	}
	return &funcStream[T]{next: next, close: onceCloser(close)}
}

func (s *funcStream[T]) Next(ctx context.Context) (T, bool, error) { return s.next(ctx) }
func (s *funcStream[T]) Close() error                              { return s.close() }

// onceCloser wraps a close function so repeated Close calls are idempotent
// and concurrency-safe, matching the "idempotent, infallible" contract.
func onceCloser(close func() error) func() error {
	var once sync.Once
	return func() error {
		once.Do(func() {
			if close != nil {
				_ = close()
			}
		})
		return nil
	}
}

// Single returns a stream that yields exactly one value then ends. Used
// pervasively by per-item sub-pipelines: switch, ifThen, retry,
// whileCondition, flatMapWithContext.
func Single[T any](v T) Stream[T] {
	done := false
	return NewStream(func(ctx context.Context) (T, bool, error) {
		if done {
			var zero T
			return zero, false, nil
		}
		done = true
		return v, true, nil
	}, func() error {
		done = true
		return nil
	})
}

// FromSlice replays the contents of a slice in order, then ends. Used
// when an operator must feed the same inputs into multiple downstream
// flows (parallel, parallelSuccessful and race all buffer their input
// into a slice first, then replay it per sub-flow).
func FromSlice[T any](items []T) Stream[T] {
	i := 0
	return NewStream(func(ctx context.Context) (T, bool, error) {
		if i >= len(items) {
			var zero T
			return zero, false, nil
		}
		v := items[i]
		i++
		return v, true, nil
	}, func() error {
		i = len(items)
		return nil
	})
}

// Empty returns a stream that yields nothing.
func Empty[T any]() Stream[T] {
	return FromSlice[T](nil)
}

// Drain pulls every remaining item out of s, discarding them, then closes
// it.
func Drain[T any](ctx context.Context, s Stream[T]) {
	defer s.Close()
	for {
		_, ok, err := s.Next(ctx)
		if !ok || err != nil {
			return
		}
	}
}

// ToSlice fully drains s into a slice, closing it on both normal and
// exceptional exit. It is the building block under ToList and the
// buffering fan-out operators.
func ToSlice[T any](ctx context.Context, s Stream[T]) ([]T, error) {
	defer s.Close()
	var out []T
	for {
		v, ok, err := s.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
