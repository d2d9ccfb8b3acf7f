// Package fanio implements spec.md §4.4.5's concurrency fan-in/fan-out
// combinators: race, parallel, parallelSuccessful, merge, zip,
// combineLatest, chainStreams, flatMapWithContext,
// mergeAsyncGenerators. Fan-out over a single-consumer Stream[I] requires
// replicating the input, since a Stream can only be pulled by one
// consumer; every combinator here that fans an input out to several
// flows does so by draining it once into a slice and re-presenting that
// slice as an independent flow.FromSlice stream per consumer — the same
// documented simplification SPEC_FULL.md §E uses for flatMapWithContext.
package fanio

import (
	"context"

	"github.com/goldentooth/flowengine/flow"
)

// Merge interleaves several streams of the same type into one, in
// whatever order items actually arrive (spec.md §9: merge's interleaving
// is scheduler-dependent and not specified beyond "every item from every
// input stream eventually appears"). The first error from any input
// stream propagates and ends the merged stream; the remaining inputs are
// cancelled and drained before the error surfaces.
func Merge[O any](ctx context.Context, streams []flow.Stream[O]) flow.Stream[O] {
	if len(streams) == 0 {
		return flow.Empty[O]()
	}
	q := flow.NewBoundedQueue[flow.Notification[O]](len(streams) * 4)
	tasks := make([]*flow.Task[struct{}], len(streams))
	for i, s := range streams {
		s := s
		tasks[i] = flow.Spawn(ctx, func(ctx context.Context) (struct{}, error) {
			defer s.Close()
			for {
				v, ok, err := s.Next(ctx)
				if err != nil {
					_ = q.Put(ctx, flow.Err[O](err))
					return struct{}{}, nil
				}
				if !ok {
					return struct{}{}, nil
				}
				if putErr := q.Put(ctx, flow.Next(v)); putErr != nil {
					return struct{}{}, nil
				}
			}
		})
	}
	closer := flow.Spawn(ctx, func(ctx context.Context) (struct{}, error) {
		for _, tk := range tasks {
			tk.Settle()
		}
		q.Close()
		return struct{}{}, nil
	})
	closed := false
	return flow.NewStream(func(ctx context.Context) (O, bool, error) {
		n, ok, err := q.Get(ctx)
		if err != nil {
			var zero O
			return zero, false, err
		}
		if !ok {
			var zero O
			return zero, false, nil
		}
		if n.Kind == flow.OnError {
			for _, tk := range tasks {
				tk.Cancel()
			}
			closer.Settle()
			var zero O
			return zero, false, n.Err
		}
		return n.Value, true, nil
	}, func() error {
		if closed {
			return nil
		}
		closed = true
		for _, tk := range tasks {
			tk.Cancel()
		}
		closer.Settle()
		return nil
	})
}

// MergeAsyncGenerators runs each generator concurrently and merges their
// output, the streaming analogue of Merge for sources built on demand
// from an async-generator-shaped constructor rather than a pre-existing
// Stream value.
func MergeAsyncGenerators[I, O any](generators []func(ctx context.Context) flow.Stream[O]) flow.Flow[I, O] {
	return flow.New[I, O]("merge_async_generators", func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		_ = in.Close()
		streams := make([]flow.Stream[O], len(generators))
		for i, gen := range generators {
			streams[i] = gen(ctx)
		}
		return Merge(ctx, streams)
	})
}

// mergeFlows applies every flow in flows to its own replica of in (see
// package doc) and merges their outputs. failFast controls whether a
// single flow's error aborts the whole merge (Race/Parallel semantics) or
// is swallowed so the remaining flows keep going (ParallelSuccessful).
func mergeFlows[I, O any](name string, flows []flow.Flow[I, O], failFast bool) flow.Flow[I, O] {
	return flow.New[I, O](name, func(applyCtx context.Context, in flow.Stream[I]) flow.Stream[O] {
		var merged flow.Stream[O]
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			if merged == nil {
				items, err := flow.ToSlice(ctx, in)
				if err != nil {
					var zero O
					return zero, false, err
				}
				streams := make([]flow.Stream[O], 0, len(flows))
				for _, fl := range flows {
					out := fl.Apply(applyCtx, flow.FromSlice(items))
					if !failFast {
						out = swallowErrors(out)
					}
					streams = append(streams, out)
				}
				merged = Merge(applyCtx, streams)
			}
			return merged.Next(ctx)
		}, func() error {
			if merged != nil {
				return merged.Close()
			}
			return in.Close()
		})
	})
}

// swallowErrors adapts a stream so an error ends it cleanly (as if it had
// reached end-of-stream) instead of propagating, used by
// ParallelSuccessful so one failing flow doesn't abort its siblings.
func swallowErrors[O any](s flow.Stream[O]) flow.Stream[O] {
	return flow.NewStream(func(ctx context.Context) (O, bool, error) {
		v, ok, err := s.Next(ctx)
		if err != nil {
			var zero O
			return zero, false, nil
		}
		return v, ok, nil
	}, s.Close)
}

// Parallel runs every flow in flows concurrently against its own replica
// of the input and merges their outputs; any single flow's failure aborts
// the whole operation. Returns a ConfigError if flows is empty.
func Parallel[I, O any](flows []flow.Flow[I, O]) (flow.Flow[I, O], error) {
	if len(flows) == 0 {
		return flow.Flow[I, O]{}, flow.ConfigError("parallel", "at least one flow is required")
	}
	return mergeFlows("parallel", flows, true), nil
}

// ParallelSuccessful is Parallel's best-effort sibling: a flow that fails
// is dropped from the merge instead of aborting the others. A flow's
// error never fails the overall stream: it ends cleanly once every flow
// has ended or failed, even if all of them failed. Returns a ConfigError
// if flows is empty.
func ParallelSuccessful[I, O any](flows []flow.Flow[I, O]) (flow.Flow[I, O], error) {
	if len(flows) == 0 {
		return flow.Flow[I, O]{}, flow.ConfigError("parallel_successful", "at least one flow is required")
	}
	return mergeFlows("parallel_successful", flows, false), nil
}

// Race runs every flow in flows concurrently against its own replica of
// the input; the flow whose first pull completes first is declared the
// winner, the rest are cancelled, and the remainder of the output stream
// comes from the winner alone. The first pull to complete wins whether it
// yielded an item, an error or end-of-stream: a winner that fails or ends
// on that pull fails or ends the race, and the other flows are not
// consulted again. Returns a ConfigError if flows is empty.
func Race[I, O any](flows []flow.Flow[I, O]) (flow.Flow[I, O], error) {
	if len(flows) == 0 {
		return flow.Flow[I, O]{}, flow.ConfigError("race", "at least one flow is required")
	}
	name := "race"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		started := false
		var winner flow.Stream[O]
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			if !started {
				started = true
				items, err := flow.ToSlice(ctx, in)
				if err != nil {
					var zero O
					return zero, false, err
				}

				type raceResult struct {
					out flow.Stream[O]
					v   O
					ok  bool
					err error
				}
				tasks := make([]*flow.Task[raceResult], len(flows))
				for i, fl := range flows {
					fl := fl
					tasks[i] = flow.Spawn(ctx, func(ctx context.Context) (raceResult, error) {
						out := fl.Apply(ctx, flow.FromSlice(items))
						v, ok, nerr := out.Next(ctx)
						return raceResult{out: out, v: v, ok: ok, err: nerr}, nil
					})
				}
				awaiters := make([]interface{ Done() <-chan struct{} }, len(tasks))
				for i, tk := range tasks {
					awaiters[i] = tk
				}
				winnerIdx := flow.WaitAny(ctx, awaiters...)
				for i, tk := range tasks {
					if i != winnerIdx {
						tk.Cancel()
					}
				}
				for i, tk := range tasks {
					if i != winnerIdx {
						tk.Settle()
					}
				}
				if winnerIdx < 0 {
					var zero O
					return zero, false, ctx.Err()
				}
				res, _ := tasks[winnerIdx].Await(ctx)
				winner = res.out
				if res.err != nil {
					var zero O
					return zero, false, res.err
				}
				return res.v, res.ok, nil
			}
			return winner.Next(ctx)
		}, func() error {
			if winner != nil {
				return winner.Close()
			}
			return nil
		})
	}), nil
}

// Pair is the positional result of Zip.
type Pair[A, B any] struct {
	A A
	B B
}

// Zip pairs up items from a and b positionally, ending as soon as either
// input ends.
func Zip[A, B any](ctx context.Context, a flow.Stream[A], b flow.Stream[B]) flow.Stream[Pair[A, B]] {
	return flow.NewStream(func(ctx context.Context) (Pair[A, B], bool, error) {
		av, aok, aerr := a.Next(ctx)
		if aerr != nil || !aok {
			var zero Pair[A, B]
			return zero, false, aerr
		}
		bv, bok, berr := b.Next(ctx)
		if berr != nil || !bok {
			var zero Pair[A, B]
			return zero, false, berr
		}
		return Pair[A, B]{A: av, B: bv}, true, nil
	}, func() error {
		errA := a.Close()
		errB := b.Close()
		if errA != nil {
			return errA
		}
		return errB
	})
}

// CombineLatest emits a Pair of the most recently seen value from each of
// a and b every time either produces a new item, once both have produced
// at least one — unlike Zip, which pairs strictly positionally and waits
// for both sides every time.
func CombineLatest[A, B any](ctx context.Context, a flow.Stream[A], b flow.Stream[B]) flow.Stream[Pair[A, B]] {
	type update struct {
		fromA bool
		av    A
		bv    B
		err   error
		ok    bool
	}
	updates := make(chan update)
	doneA, doneB := make(chan struct{}), make(chan struct{})
	go func() {
		defer close(doneA)
		for {
			v, ok, err := a.Next(ctx)
			select {
			case updates <- update{fromA: true, av: v, err: err, ok: ok}:
			case <-ctx.Done():
				return
			}
			if !ok || err != nil {
				return
			}
		}
	}()
	go func() {
		defer close(doneB)
		for {
			v, ok, err := b.Next(ctx)
			select {
			case updates <- update{fromA: false, bv: v, err: err, ok: ok}:
			case <-ctx.Done():
				return
			}
			if !ok || err != nil {
				return
			}
		}
	}()

	var latestA A
	var latestB B
	haveA, haveB := false, false
	aLive, bLive := true, true

	return flow.NewStream(func(ctx context.Context) (Pair[A, B], bool, error) {
		for {
			if !aLive && !bLive {
				var zero Pair[A, B]
				return zero, false, nil
			}
			select {
			case u := <-updates:
				if u.err != nil {
					var zero Pair[A, B]
					return zero, false, u.err
				}
				if u.fromA {
					if !u.ok {
						aLive = false
						continue
					}
					latestA = u.av
					haveA = true
				} else {
					if !u.ok {
						bLive = false
						continue
					}
					latestB = u.bv
					haveB = true
				}
				if haveA && haveB {
					return Pair[A, B]{A: latestA, B: latestB}, true, nil
				}
			case <-ctx.Done():
				var zero Pair[A, B]
				return zero, false, ctx.Err()
			}
		}
	}, func() error {
		errA := a.Close()
		errB := b.Close()
		if errA != nil {
			return errA
		}
		return errB
	})
}

// ChainStreams concatenates streams in order: each is fully drained
// before the next begins, unlike Merge's interleaving.
func ChainStreams[O any](streams ...flow.Stream[O]) flow.Stream[O] {
	idx := 0
	return flow.NewStream(func(ctx context.Context) (O, bool, error) {
		for idx < len(streams) {
			v, ok, err := streams[idx].Next(ctx)
			if err != nil {
				var zero O
				return zero, false, err
			}
			if ok {
				return v, true, nil
			}
			_ = streams[idx].Close()
			idx++
		}
		var zero O
		return zero, false, nil
	}, func() error {
		var firstErr error
		for ; idx < len(streams); idx++ {
			if err := streams[idx].Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	})
}

// FlatMapWithContext pairs each original input item with every output
// item f produces for it and passes both to fn — the documented
// simplification of spec.md §9: since Flow doesn't thread per-item
// context through the stream, this re-applies f to each input item in
// isolation (reading the input twice, once to enumerate items and once
// per item through f) to recover that pairing.
func FlatMapWithContext[I, O, O2 any](f flow.Flow[I, O], fn func(I, O) flow.Stream[O2]) flow.Flow[I, O2] {
	name := f.Name() + " |> flat_map_with_context"
	return flow.New[I, O2](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O2] {
		var items []I
		var readErr error
		loaded := false
		itemIdx := 0
		var outStream flow.Stream[O]
		var current flow.Stream[O2]
		return flow.NewStream(func(ctx context.Context) (O2, bool, error) {
			if !loaded {
				loaded = true
				items, readErr = flow.ToSlice(ctx, in)
			}
			if readErr != nil {
				var zero O2
				return zero, false, readErr
			}
			for {
				if current != nil {
					v, ok, cErr := current.Next(ctx)
					if cErr != nil {
						var zero O2
						return zero, false, cErr
					}
					if ok {
						return v, true, nil
					}
					_ = current.Close()
					current = nil
				}
				if outStream == nil {
					if itemIdx >= len(items) {
						var zero O2
						return zero, false, nil
					}
					outStream = f.Apply(ctx, flow.Single(items[itemIdx]))
				}
				v, ok, oErr := outStream.Next(ctx)
				if oErr != nil {
					var zero O2
					return zero, false, oErr
				}
				if !ok {
					_ = outStream.Close()
					outStream = nil
					itemIdx++
					continue
				}
				current = fn(items[itemIdx], v)
			}
		}, func() error {
			if !loaded {
				_ = in.Close()
			}
			if current != nil {
				_ = current.Close()
			}
			if outStream != nil {
				_ = outStream.Close()
			}
			return nil
		})
	})
}
