package basic

import (
	"context"
	"errors"
	"testing"

	"github.com/goldentooth/flowengine/flow"
)

func TestMapChangesType(t *testing.T) {
	ctx := context.Background()
	src := flow.Identity[int]()
	f := Map(src, func(i int) string {
		if i == 1 {
			return "one"
		}
		return "other"
	})
	in := flow.FromSlice([]int{1, 2})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	want := []string{"one", "other"}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}

func TestFilterDropsNonMatching(t *testing.T) {
	ctx := context.Background()
	f := Filter(flow.Identity[int](), func(i int) bool { return i%2 == 0 })
	in := flow.FromSlice([]int{1, 2, 3, 4, 5})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	want := []int{2, 4}
	if len(out) != len(want) || out[0] != 2 || out[1] != 4 {
		t.Fatalf("got %v, want %v", out, want)
	}
}

func TestFlatMapInOrder(t *testing.T) {
	ctx := context.Background()
	f := FlatMap(flow.Identity[int](), func(i int) flow.Stream[int] {
		return flow.FromSlice([]int{i, i})
	})
	in := flow.FromSlice([]int{1, 2})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	want := []int{1, 1, 2, 2}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}

func TestTake(t *testing.T) {
	ctx := context.Background()
	f := Take(flow.Identity[int](), 2)
	in := flow.FromSlice([]int{1, 2, 3, 4})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	if len(out) != 2 || out[0] != 1 || out[1] != 2 {
		t.Fatalf("got %v", out)
	}
}

func TestTakeZero(t *testing.T) {
	ctx := context.Background()
	f := Take(flow.Identity[int](), 0)
	in := flow.FromSlice([]int{1, 2, 3})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("got %v, want empty", out)
	}
}

func TestSkip(t *testing.T) {
	ctx := context.Background()
	f := Skip(flow.Identity[int](), 2)
	in := flow.FromSlice([]int{1, 2, 3, 4})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	if len(out) != 2 || out[0] != 3 || out[1] != 4 {
		t.Fatalf("got %v", out)
	}
}

func TestGuardRaisesValidationError(t *testing.T) {
	ctx := context.Background()
	f := Guard(flow.Identity[int](), func(i int) bool { return i > 0 }, "neg")
	in := flow.FromSlice([]int{1, 2, -1, 3})
	out, err := flow.ToList(ctx, f, in)
	if len(out) != 2 || out[0] != 1 || out[1] != 2 {
		t.Fatalf("expected the two valid items before the guard trips, got %v", out)
	}
	var flowErr *flow.Error
	if !errors.As(err, &flowErr) || flowErr.Kind() != flow.Validation {
		t.Fatalf("expected a Validation-kind error, got %v", err)
	}
	if err.Error() == "" {
		t.Fatalf("expected a non-empty error message")
	}
}

func TestUntilIncludesMatchingItem(t *testing.T) {
	ctx := context.Background()
	f := Until(flow.Identity[int](), func(i int) bool { return i == 3 })
	in := flow.FromSlice([]int{1, 2, 3, 4, 5})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	want := []int{1, 2, 3}
	if len(out) != len(want) {
		t.Fatalf("got %v, want %v", out, want)
	}
}

func TestCollectEmitsOneSlice(t *testing.T) {
	ctx := context.Background()
	f := Collect(flow.Identity[int]())
	in := flow.FromSlice([]int{1, 2, 3})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected exactly one emission, got %d", len(out))
	}
	if len(out[0]) != 3 {
		t.Fatalf("got %v", out[0])
	}
}

func TestShareIsPassThrough(t *testing.T) {
	ctx := context.Background()
	f := Share(flow.Identity[int]())
	in := flow.FromSlice([]int{1, 2, 3})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("got %v", out)
	}
}

func TestRunFoldSums(t *testing.T) {
	ctx := context.Background()
	f := RunFold(flow.Identity[int](), 0, func(acc, v int) int { return acc + v })
	in := flow.FromSlice([]int{1, 2, 3, 4})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	if len(out) != 1 || out[0] != 10 {
		t.Fatalf("got %v, want [10]", out)
	}
}

func TestFlattenConcatenatesSubStreams(t *testing.T) {
	ctx := context.Background()
	src := flow.FromSyncFn(func(i int) flow.Stream[int] {
		return flow.FromSlice([]int{i, i + 1})
	})
	f := Flatten[int, int](src)
	in := flow.FromSlice([]int{10, 20})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	want := []int{10, 11, 20, 21}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}
