// Package aggregation implements spec.md §4.4.2's grouping and
// memoization combinators: batch/chunk, window, scan, groupBy, distinct,
// pairwise, memoize, buffer, expand, finalize.
package aggregation

import (
	"context"
	"fmt"
	"sync"

	"github.com/goldentooth/flowengine/flow"
)

// Batch groups consecutive items of f into slices of size n (the last
// batch may be shorter). Returns a ConfigError if n is not positive.
func Batch[I, O any](f flow.Flow[I, O], n int) (flow.Flow[I, []O], error) {
	if n <= 0 {
		return flow.Flow[I, []O]{}, flow.ConfigError("batch", "batch size must be positive")
	}
	name := f.Name() + " |> batch"
	return flow.New[I, []O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[[]O] {
		out := f.Apply(ctx, in)
		done := false
		return flow.NewStream(func(ctx context.Context) ([]O, bool, error) {
			if done {
				var zero []O
				return zero, false, nil
			}
			batch := make([]O, 0, n)
			for len(batch) < n {
				v, ok, err := out.Next(ctx)
				if err != nil {
					var zero []O
					return zero, false, err
				}
				if !ok {
					done = true
					if len(batch) == 0 {
						return nil, false, nil
					}
					return batch, true, nil
				}
				batch = append(batch, v)
			}
			return batch, true, nil
		}, out.Close)
	}), nil
}

// Window yields sliding windows of size n over f's items (overlapping,
// unlike Batch), emitted every step arrivals once the window first fills —
// e.g. size 3, step 2 over [1,2,3,4,5,6] yields [1,2,3], [3,4,5]. Returns a
// ConfigError if n or step is not positive. Grounded on
// original_source's window_stream(size, step), including its
// (items_seen - size) % step == 0 emission test.
func Window[I, O any](f flow.Flow[I, O], n, step int) (flow.Flow[I, []O], error) {
	if n <= 0 {
		return flow.Flow[I, []O]{}, flow.ConfigError("window", "window size must be positive")
	}
	if step <= 0 {
		return flow.Flow[I, []O]{}, flow.ConfigError("window", "step must be positive")
	}
	name := f.Name() + " |> window"
	return flow.New[I, []O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[[]O] {
		out := f.Apply(ctx, in)
		buf := make([]O, 0, n)
		itemsSeen := 0
		return flow.NewStream(func(ctx context.Context) ([]O, bool, error) {
			for {
				v, ok, err := out.Next(ctx)
				if err != nil {
					var zero []O
					return zero, false, err
				}
				if !ok {
					var zero []O
					return zero, false, nil
				}
				if len(buf) == n {
					buf = buf[1:]
				}
				buf = append(buf, v)
				itemsSeen++
				if len(buf) == n && (itemsSeen-n)%step == 0 {
					window := make([]O, n)
					copy(window, buf)
					return window, true, nil
				}
			}
		}, out.Close)
	}), nil
}

// Scan emits init first, then every intermediate accumulator value of
// folding f's items with fn — unlike basic.RunFold, which emits only the
// final value. spec.md §8's E2 requires the leading init emission:
// scan(+, 0) over [1,2,3] yields [0,1,3,6], not [1,3,6].
func Scan[I, O, A any](f flow.Flow[I, O], init A, fn func(A, O) A) flow.Flow[I, A] {
	name := f.Name() + " |> scan"
	return flow.New[I, A](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[A] {
		out := f.Apply(ctx, in)
		acc := init
		emittedInit := false
		return flow.NewStream(func(ctx context.Context) (A, bool, error) {
			if !emittedInit {
				emittedInit = true
				return acc, true, nil
			}
			v, ok, err := out.Next(ctx)
			if err != nil || !ok {
				var zero A
				return zero, false, err
			}
			acc = fn(acc, v)
			return acc, true, nil
		}, out.Close)
	})
}

// GroupBy drains f entirely and emits, once, a map from key (as computed
// by keyFn) to the items sharing that key, in first-seen key order being
// irrelevant since Go maps have no order; see flow.Registry for the
// ordered-map pattern where order does matter.
func GroupBy[I, O any, K comparable](f flow.Flow[I, O], keyFn func(O) K) flow.Flow[I, map[K][]O] {
	name := f.Name() + " |> group_by"
	return flow.New[I, map[K][]O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[map[K][]O] {
		out := f.Apply(ctx, in)
		done := false
		return flow.NewStream(func(ctx context.Context) (map[K][]O, bool, error) {
			if done {
				return nil, false, nil
			}
			done = true
			defer out.Close()
			groups := map[K][]O{}
			for {
				v, ok, err := out.Next(ctx)
				if err != nil {
					return nil, false, err
				}
				if !ok {
					return groups, true, nil
				}
				k := keyFn(v)
				groups[k] = append(groups[k], v)
			}
		}, nil)
	})
}

// Distinct yields only the first occurrence of each key, as computed by
// keyFn, in the order items arrive.
func Distinct[I, O any, K comparable](f flow.Flow[I, O], keyFn func(O) K) flow.Flow[I, O] {
	name := f.Name() + " |> distinct"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		seen := map[K]struct{}{}
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			for {
				v, ok, err := out.Next(ctx)
				if err != nil || !ok {
					var zero O
					return zero, false, err
				}
				k := keyFn(v)
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				return v, true, nil
			}
		}, out.Close)
	})
}

// Pair is the two-element result of Pairwise.
type Pair[O any] struct {
	Prev O
	Cur  O
}

// Pairwise yields one Pair per adjacent pair of items from f; a stream of
// n items yields n-1 pairs (zero for n<2).
func Pairwise[I, O any](f flow.Flow[I, O]) flow.Flow[I, Pair[O]] {
	name := f.Name() + " |> pairwise"
	return flow.New[I, Pair[O]](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[Pair[O]] {
		out := f.Apply(ctx, in)
		var prev O
		havePrev := false
		return flow.NewStream(func(ctx context.Context) (Pair[O], bool, error) {
			for {
				v, ok, err := out.Next(ctx)
				if err != nil || !ok {
					var zero Pair[O]
					return zero, false, err
				}
				if !havePrev {
					prev = v
					havePrev = true
					continue
				}
				pair := Pair[O]{Prev: prev, Cur: v}
				prev = v
				return pair, true, nil
			}
		}, out.Close)
	})
}

// MemoizeStore is the pluggable cache behind Memoize; BadgerMemoizeStore
// is the durable implementation, and an in-process map-backed store is
// the zero-dependency default for tests.
type MemoizeStore[K comparable, V any] interface {
	Get(ctx context.Context, key K) (V, bool, error)
	Set(ctx context.Context, key K, value V) error
}

// mapStore is the default in-memory MemoizeStore.
type mapStore[K comparable, V any] struct {
	data map[K]V
}

// NewMapMemoizeStore returns an in-process MemoizeStore backed by a plain
// map, with no persistence across process restarts.
func NewMapMemoizeStore[K comparable, V any]() MemoizeStore[K, V] {
	return &mapStore[K, V]{data: map[K]V{}}
}

func (m *mapStore[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapStore[K, V]) Set(ctx context.Context, key K, value V) error {
	m.data[key] = value
	return nil
}

// Memoize caches fn's result per key (as computed by keyFn) in store,
// only invoking fn on a miss.
func Memoize[I, O any, K comparable](f flow.Flow[I, O], keyFn func(O) K, fn func(context.Context, O) (O, error), store MemoizeStore[K, O]) flow.Flow[I, O] {
	name := f.Name() + " |> memoize"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			v, ok, err := out.Next(ctx)
			if err != nil || !ok {
				var zero O
				return zero, false, err
			}
			k := keyFn(v)
			if cached, hit, err := store.Get(ctx, k); err == nil && hit {
				return cached, true, nil
			}
			computed, err := fn(ctx, v)
			if err != nil {
				var zero O
				return zero, false, flow.ExecutionError(ctx, name, fmt.Sprintf("memoize fn failed for key %v", k), err)
			}
			if err := store.Set(ctx, k, computed); err != nil {
				flow.LogWarn(ctx, "memoize: failed to persist computed value", "error", err)
			}
			return computed, true, nil
		}, out.Close)
	})
}

// Buffer accumulates f's items in the background and emits them as a
// batch each time trigger produces a value while the accumulator is
// non-empty, clearing it afterward; a trigger value that finds nothing
// accumulated emits nothing. Once trigger ends, Buffer waits for f to
// complete and flushes any items still accumulated as one final batch.
// Grounded on original_source's buffer_stream, which runs
// item collection and trigger-watching as two concurrent coroutines
// sharing one buffer list; here that's a flow.Spawn task guarded by a
// mutex instead of an event-loop task.
func Buffer[I, O, T any](f flow.Flow[I, O], trigger flow.Stream[T]) flow.Flow[I, []O] {
	name := f.Name() + " |> buffer"
	return flow.New[I, []O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[[]O] {
		out := f.Apply(ctx, in)
		var mu sync.Mutex
		var buf []O
		collector := flow.Spawn(ctx, func(ctx context.Context) (struct{}, error) {
			for {
				v, ok, err := out.Next(ctx)
				if err != nil {
					return struct{}{}, err
				}
				if !ok {
					return struct{}{}, nil
				}
				mu.Lock()
				buf = append(buf, v)
				mu.Unlock()
			}
		})
		triggerDone := false
		collectorDone := false
		return flow.NewStream(func(ctx context.Context) ([]O, bool, error) {
			for {
				if triggerDone {
					if collectorDone {
						var zero []O
						return zero, false, nil
					}
					collectorDone = true
					if _, err := collector.Await(ctx); err != nil {
						var zero []O
						return zero, false, err
					}
					mu.Lock()
					remaining := buf
					buf = nil
					mu.Unlock()
					if len(remaining) == 0 {
						var zero []O
						return zero, false, nil
					}
					return remaining, true, nil
				}
				_, ok, err := trigger.Next(ctx)
				if err != nil {
					collector.Cancel()
					collector.Settle()
					var zero []O
					return zero, false, err
				}
				if !ok {
					triggerDone = true
					continue
				}
				mu.Lock()
				if len(buf) == 0 {
					mu.Unlock()
					continue
				}
				emitted := buf
				buf = nil
				mu.Unlock()
				return emitted, true, nil
			}
		}, func() error {
			collector.Cancel()
			collector.Settle()
			_ = trigger.Close()
			return out.Close()
		})
	})
}

// Expand drains f, then yields every item in BFS order: each item is
// yielded, and if its depth is below maxDepth, expander's outputs are
// enqueued at depth+1 to be yielded (and possibly further expanded) later.
// Source items start at depth 0. Returns a ConfigError if maxDepth is
// negative. Grounded on original_source's expand_stream, which collects
// the whole input into a deque of (item, depth) pairs before popping from
// the front and pushing expansions to the back.
func Expand[I, O any](f flow.Flow[I, O], expander func(O) []O, maxDepth int) (flow.Flow[I, O], error) {
	if maxDepth < 0 {
		return flow.Flow[I, O]{}, flow.ConfigError("expand", "max depth must not be negative")
	}
	name := f.Name() + " |> expand"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		type queued struct {
			v     O
			depth int
		}
		var queue []queued
		loaded := false
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			if !loaded {
				loaded = true
				for {
					v, ok, err := out.Next(ctx)
					if err != nil {
						var zero O
						return zero, false, err
					}
					if !ok {
						break
					}
					queue = append(queue, queued{v: v, depth: 0})
				}
			}
			if len(queue) == 0 {
				var zero O
				return zero, false, nil
			}
			item := queue[0]
			queue = queue[1:]
			if item.depth < maxDepth {
				for _, child := range expander(item.v) {
					queue = append(queue, queued{v: child, depth: item.depth + 1})
				}
			}
			return item.v, true, nil
		}, out.Close)
	}), nil
}

// Finalize runs fn exactly once, after f's stream ends (normally or by
// error) or when the output stream is closed early — whichever comes
// first — guaranteeing cleanup runs regardless of how consumption stops.
func Finalize[I, O any](f flow.Flow[I, O], fn func()) flow.Flow[I, O] {
	name := f.Name() + " |> finalize"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		ran := false
		runOnce := func() {
			if !ran {
				ran = true
				fn()
			}
		}
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			v, ok, err := out.Next(ctx)
			if err != nil || !ok {
				runOnce()
			}
			return v, ok, err
		}, func() error {
			runOnce()
			return out.Close()
		})
	})
}
