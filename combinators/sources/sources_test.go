package sources

import (
	"context"
	"testing"

	"github.com/goldentooth/flowengine/flow"
)

func TestRangeInts(t *testing.T) {
	ctx := context.Background()
	f, err := RangeInts[struct{}](2, 5, 1)
	if err != nil {
		t.Fatalf("RangeInts: %v", err)
	}
	out, err := flow.ToList(ctx, f, flow.Empty[struct{}]())
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	want := []int{2, 3, 4}
	if len(out) != len(want) {
		t.Fatalf("got %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}

func TestRangeIntsNegativeStepCountsDown(t *testing.T) {
	ctx := context.Background()
	f, err := RangeInts[struct{}](5, 2, -1)
	if err != nil {
		t.Fatalf("RangeInts: %v", err)
	}
	out, err := flow.ToList(ctx, f, flow.Empty[struct{}]())
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	want := []int{5, 4, 3}
	if len(out) != len(want) {
		t.Fatalf("got %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}

func TestRangeIntsRejectsZeroStep(t *testing.T) {
	if _, err := RangeInts[struct{}](2, 5, 0); err == nil {
		t.Fatalf("expected a ConfigError for a zero step")
	}
}

func TestRepeat(t *testing.T) {
	ctx := context.Background()
	f, err := Repeat[struct{}, string]("x", 3)
	if err != nil {
		t.Fatalf("Repeat: %v", err)
	}
	out, err := flow.ToList(ctx, f, flow.Empty[struct{}]())
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	if len(out) != 3 || out[0] != "x" {
		t.Fatalf("got %v", out)
	}
}

func TestRepeatRejectsNegativeCount(t *testing.T) {
	if _, err := Repeat[struct{}, string]("x", -1); err == nil {
		t.Fatalf("expected a ConfigError for a negative count")
	}
}

func TestEmptyYieldsNothing(t *testing.T) {
	ctx := context.Background()
	f := Empty[struct{}, int]()
	out, err := flow.ToList(ctx, f, flow.Empty[struct{}]())
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("got %v", out)
	}
}

func TestStartWithPrependsItems(t *testing.T) {
	ctx := context.Background()
	f := StartWith(flow.Identity[int](), -1, 0)
	in := flow.FromSlice([]int{1, 2})
	out, err := flow.ToList(ctx, f, in)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	want := []int{-1, 0, 1, 2}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}
