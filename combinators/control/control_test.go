package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goldentooth/flowengine/flow"
)

func double() flow.Flow[int, int] {
	return flow.FromSyncFn(func(i int) int { return i * 2 })
}

func TestIfThenAppliesOnlyWhenTrue(t *testing.T) {
	ctx := context.Background()
	f := IfThen(flow.Identity[int](), func(i int) bool { return i%2 == 0 }, double())
	in := flow.FromSlice([]int{1, 2, 3, 4})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	want := []int{1, 4, 3, 8}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}

func TestSwitchRoutesToFirstMatch(t *testing.T) {
	ctx := context.Background()
	cases := []Case[int]{
		{Pred: func(i int) bool { return i < 0 }, Flow: flow.FromSyncFn(func(i int) int { return 0 })},
		{Pred: func(i int) bool { return i%2 == 0 }, Flow: double()},
	}
	f := Switch(flow.Identity[int](), cases, flow.Identity[int]())
	in := flow.FromSlice([]int{1, 2, -5})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	want := []int{1, 4, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}

func TestBranch(t *testing.T) {
	ctx := context.Background()
	f := Branch(flow.Identity[int](), func(i int) bool { return i%2 == 0 }, double(), flow.Identity[int]())
	in := flow.FromSlice([]int{1, 2, 3, 4})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	want := []int{1, 4, 3, 8}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}

func TestRetrySucceedsEventually(t *testing.T) {
	ctx := context.Background()
	attempts := 0
	flaky := flow.FromAsyncFn(func(ctx context.Context, i int) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("not yet")
		}
		return i, nil
	})
	f, err := Retry(flaky, RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	in := flow.FromSlice([]int{7})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	if len(out) != 1 || out[0] != 7 {
		t.Fatalf("got %v", out)
	}
}

func TestRetryExhaustsAndFails(t *testing.T) {
	ctx := context.Background()
	alwaysFails := flow.FromAsyncFn(func(ctx context.Context, i int) (int, error) {
		return 0, errors.New("always fails")
	})
	f, err := Retry(alwaysFails, RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	in := flow.FromSlice([]int{1})
	_, err = flow.ToList(ctx, f, in)
	var flowErr *flow.Error
	if !errors.As(err, &flowErr) || flowErr.Kind() != flow.Execution {
		t.Fatalf("expected an Execution-kind error, got %v", err)
	}
}

func TestRetryRejectsNonPositiveAttempts(t *testing.T) {
	if _, err := Retry(flow.Identity[int](), RetryPolicy{MaxAttempts: 0}); err == nil {
		t.Fatalf("expected a ConfigError for max attempts 0")
	}
}

func TestRecoverSubstitutesFallback(t *testing.T) {
	ctx := context.Background()
	failing := flow.FromAsyncFn(func(ctx context.Context, i int) (int, error) {
		if i == 2 {
			return 0, errors.New("boom")
		}
		return i, nil
	})
	f := Recover(failing, func(error) int { return -1 })
	in := flow.FromSlice([]int{1, 2, 3})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	if len(out) != 2 || out[0] != 1 {
		t.Fatalf("got %v", out)
	}
}

func TestCatchAndContinueDropsFailingItems(t *testing.T) {
	ctx := context.Background()
	failing := flow.FromAsyncFn(func(ctx context.Context, i int) (int, error) {
		if i == 2 {
			return 0, errors.New("boom")
		}
		return i, nil
	})
	var caught []error
	f := CatchAndContinue(failing, func(err error) { caught = append(caught, err) })
	in := flow.FromSlice([]int{1, 2, 3})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	want := []int{1, 3}
	if len(out) != len(want) {
		t.Fatalf("got %v, want %v", out, want)
	}
	if len(caught) != 1 {
		t.Fatalf("expected exactly one caught error, got %d", len(caught))
	}
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	ctx := context.Background()
	alwaysFails := flow.FromAsyncFn(func(ctx context.Context, i int) (int, error) {
		return 0, errors.New("boom")
	})
	f, err := CircuitBreaker(alwaysFails, 2, time.Hour)
	if err != nil {
		t.Fatalf("CircuitBreaker: %v", err)
	}
	in := flow.FromSlice([]int{1, 2, 3})
	out := f.Apply(ctx, in)
	defer out.Close()

	_, _, err1 := out.Next(ctx)
	_, _, err2 := out.Next(ctx)
	_, _, err3 := out.Next(ctx)

	if err1 == nil || err2 == nil {
		t.Fatalf("expected the first two pulls to fail from the underlying flow")
	}
	var flowErr *flow.Error
	if !errors.As(err3, &flowErr) || flowErr.Kind() != flow.Execution {
		t.Fatalf("expected the circuit to be open on the third pull, got %v", err3)
	}
}

func TestCircuitBreakerRejectsNonPositiveThreshold(t *testing.T) {
	if _, err := CircuitBreaker(flow.Identity[int](), 0, time.Second); err == nil {
		t.Fatalf("expected a ConfigError for threshold 0")
	}
}

func TestTapObservesWithoutAltering(t *testing.T) {
	ctx := context.Background()
	var seen []int
	f := Tap(flow.Identity[int](), func(i int) { seen = append(seen, i) })
	in := flow.FromSlice([]int{1, 2, 3})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	if len(out) != 3 || len(seen) != 3 {
		t.Fatalf("got out=%v seen=%v", out, seen)
	}
}

// duplicate is a Flow[int,int] that emits each item twice, used to verify
// WhileCondition flatMaps every one of body's outputs per item, not just
// the first.
func duplicate() flow.Flow[int, int] {
	return flow.New[int, int]("duplicate", func(ctx context.Context, in flow.Stream[int]) flow.Stream[int] {
		pending := 0
		var v int
		return flow.NewStream(func(ctx context.Context) (int, bool, error) {
			if pending > 0 {
				pending--
				return v, true, nil
			}
			next, ok, err := in.Next(ctx)
			if err != nil || !ok {
				return 0, false, err
			}
			v = next
			pending = 1
			return v, true, nil
		}, in.Close)
	})
}

func TestWhileConditionStopsEntireStreamOnFirstFailingItem(t *testing.T) {
	ctx := context.Background()
	f := WhileCondition(flow.Identity[int](), func(i int) bool { return i < 5 }, double())
	in := flow.FromSlice([]int{1, 2, 5, 3})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	want := []int{2, 4}
	if len(out) != len(want) {
		t.Fatalf("got %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}

func TestWhileConditionFlatMapsAllOfBodysOutputs(t *testing.T) {
	ctx := context.Background()
	f := WhileCondition(flow.Identity[int](), func(i int) bool { return i < 5 }, duplicate())
	in := flow.FromSlice([]int{1, 2})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	want := []int{1, 1, 2, 2}
	if len(out) != len(want) {
		t.Fatalf("got %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}

func TestChainFlowsComposesInOrder(t *testing.T) {
	ctx := context.Background()
	f := ChainFlows([]flow.Flow[int, int]{double(), double()})
	in := flow.FromSlice([]int{1, 2})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	if len(out) != 2 || out[0] != 4 || out[1] != 8 {
		t.Fatalf("got %v", out)
	}
}

func TestChainFlowsEmptyIsIdentity(t *testing.T) {
	ctx := context.Background()
	f := ChainFlows[int](nil)
	in := flow.FromSlice([]int{1, 2})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	if len(out) != 2 || out[0] != 1 {
		t.Fatalf("got %v", out)
	}
}
