package flow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"github.com/hbollon/go-edlib"
)

// Entry is a registered flow: an erased handle (the Flow value itself is
// generic and can't be stored untyped without losing its type parameters,
// so Entry stores a Describe closure instead of the Flow) plus the
// metadata a registry needs to categorize and search it.
type Entry struct {
	Name     string
	Category string
	Metadata Metadata
	Describe func() string
}

// Registry is a named-flow directory: register once at startup, then look
// flows up by name, list them by category, or fuzzy-search by name/metadata.
// Backed by an ordered map rather than a bare Go map; List and the methods
// built on it return entries sorted by name, not in registration order —
// grounded on the teacher's registry.go pattern in
// middleware/tools/registry.go, generalized from tool definitions to flows.
type Registry struct {
	mu      sync.RWMutex
	entries *orderedmap.OrderedMap[string, Entry]
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: orderedmap.New[string, Entry]()}
}

// DefaultRegistry is the package-level registry most callers use; it is a
// distinct singleton from observability.DefaultHookRegistry (spec.md §9:
// the flow registry and the trampoline/signal-key registry must never be
// coupled).
var DefaultRegistry = NewRegistry()

// Register adds or replaces the entry for name. It returns a ConfigError if
// name is empty.
func (r *Registry) Register(e Entry) error {
	if e.Name == "" {
		return ConfigError("registry", "cannot register a flow with an empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries.Set(e.Name, e)
	return nil
}

// Unregister removes name, if present.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries.Delete(name)
}

// Get returns the entry registered under name, if any.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries.Get(name)
}

// List returns every entry, sorted by name — the original's registry
// category listing returns sorted names, so this does too, trading the
// ordered map's insertion order for determinism at the read API.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, r.entries.Len())
	for pair := r.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListCategory returns every entry in the given category, sorted by name.
func (r *Registry) ListCategory(category string) []Entry {
	all := r.List()
	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// Categories returns the distinct, sorted set of registered categories.
func (r *Registry) Categories() []string {
	seen := map[string]struct{}{}
	for _, e := range r.List() {
		seen[e.Category] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// searchText is one entry's searchable text, expanded with metadata
// values so a search matches on more than the bare name.
func (e Entry) searchText() string {
	var b strings.Builder
	b.WriteString(e.Name)
	for _, v := range e.Metadata {
		b.WriteByte(' ')
		fmt.Fprintf(&b, "%v", v)
	}
	return b.String()
}

// SearchResult pairs an Entry with its similarity score (0..1, higher is a
// better match).
type SearchResult struct {
	Entry Entry
	Score float64
}

// Search ranks every registered entry against query by edit-distance
// similarity over name+metadata text, going beyond spec.md's minimum
// substring-match requirement (a query that is a literal substring of an
// entry's searchable text always scores 1.0, satisfying that minimum
// exactly; everything else is ranked by go-edlib's Jaro-Winkler similarity).
// Results are returned in descending score order; ties break by name.
func (r *Registry) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if query == "" {
		return nil, ValidationError(ctx, "registry", "search query must not be empty", nil)
	}
	entries := r.List()
	results := make([]SearchResult, 0, len(entries))
	lowerQuery := strings.ToLower(query)
	for _, e := range entries {
		text := strings.ToLower(e.searchText())
		var score float64
		if strings.Contains(text, lowerQuery) {
			score = 1.0
		} else {
			sim, err := edlib.StringsSimilarity(lowerQuery, text, edlib.JaroWinkler)
			if err != nil {
				continue
			}
			score = float64(sim)
		}
		if score > 0 {
			results = append(results, SearchResult{Entry: e, Score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Entry.Name < results[j].Entry.Name
	})
	return results, nil
}
