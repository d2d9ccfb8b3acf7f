package flow

import (
	"context"
	"strings"
	"testing"
)

func newTestRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(Entry{Name: "map", Category: "basic", Metadata: Metadata{"doc": "one-to-one transform"}})
	_ = r.Register(Entry{Name: "filter", Category: "basic", Metadata: Metadata{"doc": "drop non-matching items"}})
	_ = r.Register(Entry{Name: "batch", Category: "aggregation", Metadata: Metadata{"doc": "group into chunks"}})
	return r
}

func TestRegistryRegisterRejectsEmptyName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Entry{Name: ""}); err == nil {
		t.Fatalf("expected an error for an empty-named entry")
	}
}

func TestRegistryGet(t *testing.T) {
	r := newTestRegistry()
	e, ok := r.Get("map")
	if !ok || e.Category != "basic" {
		t.Fatalf("got %+v, %v", e, ok)
	}
	_, ok = r.Get("missing")
	if ok {
		t.Fatalf("expected missing lookup to fail")
	}
}

func TestRegistryListIsSorted(t *testing.T) {
	r := newTestRegistry()
	names := make([]string, 0)
	for _, e := range r.List() {
		names = append(names, e.Name)
	}
	want := []string{"batch", "filter", "map"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestRegistryListCategory(t *testing.T) {
	r := newTestRegistry()
	basic := r.ListCategory("basic")
	if len(basic) != 2 {
		t.Fatalf("expected 2 basic entries, got %d", len(basic))
	}
}

func TestRegistryUnregister(t *testing.T) {
	r := newTestRegistry()
	r.Unregister("map")
	if _, ok := r.Get("map"); ok {
		t.Fatalf("expected map to be gone after Unregister")
	}
}

func TestRegistrySearchSubstringScoresOne(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()
	results, err := r.Search(ctx, "filt")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].Entry.Name != "filter" || results[0].Score != 1.0 {
		t.Fatalf("got %+v", results)
	}
}

func TestRegistrySearchRejectsEmptyQuery(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()
	_, err := r.Search(ctx, "")
	if err == nil {
		t.Fatalf("expected an error for an empty query")
	}
}

func TestRegistryCategoriesSorted(t *testing.T) {
	r := newTestRegistry()
	cats := r.Categories()
	if strings.Join(cats, ",") != "aggregation,basic" {
		t.Fatalf("got %v", cats)
	}
}
