// Package temporal implements spec.md §4.4.3's time-bound combinators:
// delay, throttle, debounce (leading- and trailing-edge), sample, timeout.
// Throttle, leading-edge debounce and sample read the clock from context
// via flow.ClockFromContext, so tests can inject a fake Clock instead of
// depending on wall-clock scheduling; delay, trailing-edge debounce and
// timeout wait on real timers and do not consult it.
package temporal

import (
	"context"
	"time"

	"github.com/goldentooth/flowengine/flow"
)

// Delay holds back every item of f by d before yielding it, preserving
// order. Returns a ConfigError if d is negative.
func Delay[I, O any](f flow.Flow[I, O], d time.Duration) (flow.Flow[I, O], error) {
	if d < 0 {
		return flow.Flow[I, O]{}, flow.ConfigError("delay", "delay duration must not be negative")
	}
	name := f.Name() + " |> delay"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			v, ok, err := out.Next(ctx)
			if err != nil || !ok {
				var zero O
				return zero, false, err
			}
			if sleepErr := flow.Sleep(ctx, d); sleepErr != nil {
				var zero O
				return zero, false, sleepErr
			}
			return v, true, nil
		}, out.Close)
	}), nil
}

// Throttle yields at most one item per interval d: the first item in each
// window passes, later arrivals within the same window are dropped.
// Returns a ConfigError if d is not positive.
func Throttle[I, O any](f flow.Flow[I, O], d time.Duration) (flow.Flow[I, O], error) {
	if d <= 0 {
		return flow.Flow[I, O]{}, flow.ConfigError("throttle", "throttle interval must be positive")
	}
	name := f.Name() + " |> throttle"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		clock := flow.ClockFromContext(ctx)
		var lastEmit time.Time
		first := true
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			for {
				v, ok, err := out.Next(ctx)
				if err != nil || !ok {
					var zero O
					return zero, false, err
				}
				now := clock.Now()
				if first || now.Sub(lastEmit) >= d {
					first = false
					lastEmit = now
					return v, true, nil
				}
			}
		}, out.Close)
	}), nil
}

// DebounceMode selects between Debounce's two emission strategies.
type DebounceMode int

const (
	// LeadingEdge emits the first item immediately, then suppresses every
	// arrival until d has elapsed since the last emission.
	LeadingEdge DebounceMode = iota
	// TrailingEdge resets a timer of d on every arrival and emits the most
	// recent one once the stream has been quiet for d.
	TrailingEdge
)

// Debounce yields items of f according to mode, either suppressing
// follow-on arrivals for d after an emission (LeadingEdge) or emitting the
// most recent arrival once the stream has been quiet for d (TrailingEdge).
// Returns a ConfigError if d is not positive.
func Debounce[I, O any](f flow.Flow[I, O], d time.Duration, mode DebounceMode) (flow.Flow[I, O], error) {
	if d <= 0 {
		return flow.Flow[I, O]{}, flow.ConfigError("debounce", "debounce duration must be positive")
	}
	if mode == LeadingEdge {
		return debounceLeadingEdge(f, d), nil
	}
	return debounceTrailingEdge(f, d), nil
}

// debounceLeadingEdge emits the first item, then suppresses subsequent
// items until d has elapsed since the last emission.
func debounceLeadingEdge[I, O any](f flow.Flow[I, O], d time.Duration) flow.Flow[I, O] {
	name := f.Name() + " |> debounce_leading"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		clock := flow.ClockFromContext(ctx)
		var lastEmit time.Time
		first := true
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			for {
				v, ok, err := out.Next(ctx)
				if err != nil || !ok {
					var zero O
					return zero, false, err
				}
				now := clock.Now()
				if first || now.Sub(lastEmit) >= d {
					first = false
					lastEmit = now
					return v, true, nil
				}
			}
		}, out.Close)
	})
}

// debounceTrailingEdge emits the most recent item once d has passed with
// no further arrivals, resetting the window on every new arrival —
// implemented with a single time.Timer per spec.md §9, not the original's
// 10ms poll loop. Any pending item is flushed when upstream completes.
func debounceTrailingEdge[I, O any](f flow.Flow[I, O], d time.Duration) flow.Flow[I, O] {
	name := f.Name() + " |> debounce_trailing"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)

		type pullResult struct {
			v   O
			ok  bool
			err error
		}
		pulls := make(chan pullResult)
		go func() {
			defer close(pulls)
			for {
				v, ok, err := out.Next(ctx)
				select {
				case pulls <- pullResult{v, ok, err}:
				case <-ctx.Done():
					return
				}
				if !ok || err != nil {
					return
				}
			}
		}()

		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			var pending O
			havePending := false
			timer := time.NewTimer(d)
			timer.Stop()
			defer timer.Stop()

			for {
				select {
				case r, chOk := <-pulls:
					if !chOk {
						if havePending {
							return pending, true, nil
						}
						var zero O
						return zero, false, nil
					}
					if r.err != nil {
						var zero O
						return zero, false, r.err
					}
					if !r.ok {
						if havePending {
							return pending, true, nil
						}
						var zero O
						return zero, false, nil
					}
					pending = r.v
					havePending = true
					timer.Stop()
					timer.Reset(d)
				case <-timer.C:
					if havePending {
						return pending, true, nil
					}
				case <-ctx.Done():
					var zero O
					return zero, false, ctx.Err()
				}
			}
		}, out.Close)
	})
}

// Sample yields the most recent item of f once per interval d, dropping
// everything else — the mirror image of throttle (which keeps the first
// of each window; sample keeps the latest). Returns a ConfigError if d is
// not positive.
func Sample[I, O any](f flow.Flow[I, O], d time.Duration) (flow.Flow[I, O], error) {
	if d <= 0 {
		return flow.Flow[I, O]{}, flow.ConfigError("sample", "sample interval must be positive")
	}
	name := f.Name() + " |> sample"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		clock := flow.ClockFromContext(ctx)
		var latest O
		haveLatest := false
		var lastEmit time.Time
		first := true
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			for {
				v, ok, err := out.Next(ctx)
				if err != nil {
					var zero O
					return zero, false, err
				}
				if !ok {
					if haveLatest {
						haveLatest = false
						return latest, true, nil
					}
					var zero O
					return zero, false, nil
				}
				latest = v
				haveLatest = true
				now := clock.Now()
				if first || now.Sub(lastEmit) >= d {
					first = false
					lastEmit = now
					haveLatest = false
					return v, true, nil
				}
			}
		}, out.Close)
	}), nil
}

// Timeout fails with a flow.Timeout error if any single pull from f takes
// longer than d. Returns a ConfigError if d is not positive.
func Timeout[I, O any](f flow.Flow[I, O], d time.Duration) (flow.Flow[I, O], error) {
	if d <= 0 {
		return flow.Flow[I, O]{}, flow.ConfigError("timeout", "timeout duration must be positive")
	}
	name := f.Name() + " |> timeout"
	return flow.New[I, O](name, func(ctx context.Context, in flow.Stream[I]) flow.Stream[O] {
		out := f.Apply(ctx, in)
		return flow.NewStream(func(ctx context.Context) (O, bool, error) {
			res, waitErr := flow.TimedWait(ctx, name, d, func(ctx context.Context) (timeoutResult[O], error) {
				v, ok, nextErr := out.Next(ctx)
				return timeoutResult[O]{v: v, ok: ok, err: nextErr}, nil
			})
			if waitErr != nil {
				var zero O
				return zero, false, waitErr
			}
			return res.v, res.ok, res.err
		}, out.Close)
	}), nil
}

type timeoutResult[O any] struct {
	v   O
	ok  bool
	err error
}
