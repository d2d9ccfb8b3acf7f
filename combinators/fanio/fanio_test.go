package fanio

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/goldentooth/flowengine/flow"
)

func TestMergeInterleavesAllItems(t *testing.T) {
	ctx := context.Background()
	a := flow.FromSlice([]int{1, 2})
	b := flow.FromSlice([]int{10, 20})
	merged := Merge(ctx, []flow.Stream[int]{a, b})
	defer merged.Close()

	got, err := flow.ToSlice(ctx, merged)
	if err != nil {
		t.Fatalf("ToSlice: %v", err)
	}
	sort.Ints(got)
	want := []int{1, 2, 10, 20}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestMergeEmptyIsEmpty(t *testing.T) {
	ctx := context.Background()
	merged := Merge[int](ctx, nil)
	v, ok, err := merged.Next(ctx)
	if err != nil || ok || v != 0 {
		t.Fatalf("got (%d, %v, %v)", v, ok, err)
	}
}

func TestParallelMergesAllFlows(t *testing.T) {
	ctx := context.Background()
	double := flow.FromSyncFn(func(i int) int { return i * 2 })
	triple := flow.FromSyncFn(func(i int) int { return i * 3 })
	f, err := Parallel([]flow.Flow[int, int]{double, triple})
	if err != nil {
		t.Fatalf("Parallel: %v", err)
	}
	in := flow.FromSlice([]int{1, 2})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	sort.Ints(out)
	want := []int{2, 3, 4, 6}
	if len(out) != len(want) {
		t.Fatalf("got %v, want %v", out, want)
	}
}

func TestParallelRejectsEmptyFlows(t *testing.T) {
	if _, err := Parallel[int, int](nil); err == nil {
		t.Fatalf("expected a ConfigError for no flows")
	}
}

func TestParallelSuccessfulSwallowsFailingFlow(t *testing.T) {
	ctx := context.Background()
	ok := flow.FromSyncFn(func(i int) int { return i })
	bad := flow.FromAsyncFn(func(ctx context.Context, i int) (int, error) {
		return 0, errors.New("always fails")
	})
	f, err := ParallelSuccessful([]flow.Flow[int, int]{ok, bad})
	if err != nil {
		t.Fatalf("ParallelSuccessful: %v", err)
	}
	in := flow.FromSlice([]int{1, 2})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("expected no error since one flow succeeded, got %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %v, expected the successful flow's two items", out)
	}
}

func TestRaceReturnsWinnersOutput(t *testing.T) {
	ctx := context.Background()
	slow := flow.FromAsyncFn(func(ctx context.Context, i int) (int, error) {
		_ = flow.Sleep(ctx, 50*time.Millisecond)
		return i, nil
	})
	fast := flow.FromSyncFn(func(i int) int { return i * 100 })
	f, err := Race([]flow.Flow[int, int]{slow, fast})
	if err != nil {
		t.Fatalf("Race: %v", err)
	}
	in := flow.FromSlice([]int{1})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	if len(out) != 1 || out[0] != 100 {
		t.Fatalf("expected the fast flow to win with [100], got %v", out)
	}
}

func TestRaceRejectsEmptyFlows(t *testing.T) {
	if _, err := Race[int, int](nil); err == nil {
		t.Fatalf("expected a ConfigError for no flows")
	}
}

func TestZipPairsPositionally(t *testing.T) {
	ctx := context.Background()
	a := flow.FromSlice([]int{1, 2, 3})
	b := flow.FromSlice([]string{"a", "b"})
	zipped := Zip[int, string](ctx, a, b)
	defer zipped.Close()

	out, err := flow.ToSlice(ctx, zipped)
	if err != nil {
		t.Fatalf("ToSlice: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected zip to end with the shorter stream, got %v", out)
	}
	if out[0].A != 1 || out[0].B != "a" {
		t.Fatalf("got %+v", out[0])
	}
}

func TestChainStreamsConcatenatesInOrder(t *testing.T) {
	ctx := context.Background()
	a := flow.FromSlice([]int{1, 2})
	b := flow.FromSlice([]int{3, 4})
	chained := ChainStreams[int](a, b)
	defer chained.Close()

	out, err := flow.ToSlice(ctx, chained)
	if err != nil {
		t.Fatalf("ToSlice: %v", err)
	}
	want := []int{1, 2, 3, 4}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}

func TestFlatMapWithContextPairsInputAndOutput(t *testing.T) {
	ctx := context.Background()
	double := flow.FromSyncFn(func(i int) int { return i * 2 })
	f := FlatMapWithContext(double, func(orig int, doubled int) flow.Stream[string] {
		return flow.Single("orig=" + strconv.Itoa(orig) + " doubled=" + strconv.Itoa(doubled))
	})
	in := flow.FromSlice([]int{1, 2})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	if len(out) != 2 || out[0] != "orig=1 doubled=2" || out[1] != "orig=2 doubled=4" {
		t.Fatalf("got %v", out)
	}
}

func TestCombineLatestEmitsOnEitherUpdate(t *testing.T) {
	ctx := context.Background()
	a := flow.FromSlice([]int{1, 2})
	b := flow.FromSlice([]string{"x", "y"})
	combined := CombineLatest[int, string](ctx, a, b)
	defer combined.Close()

	out, err := flow.ToSlice(ctx, combined)
	if err != nil {
		t.Fatalf("ToSlice: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("expected at least one combined pair")
	}
	last := out[len(out)-1]
	if last.A != 2 || last.B != "y" {
		t.Fatalf("expected the final pair to reflect both streams' latest values, got %+v", last)
	}
}
