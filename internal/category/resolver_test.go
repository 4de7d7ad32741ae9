package category_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/wannasleep66/vibe-barter-sub001/internal/category"
)

type mapLister struct {
	children map[string][]string
	err      error
}

func (m *mapLister) Children(_ context.Context, id string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.children[id], nil
}

func descendants(t *testing.T, lister *mapLister, root string) []string {
	t.Helper()
	got, err := category.NewResolver(lister).Descendants(context.Background(), root)
	if err != nil {
		t.Fatalf("Descendants(%q) unexpected error: %v", root, err)
	}
	sort.Strings(got)
	return got
}

func TestDescendants_IncludesInputID(t *testing.T) {
	got := descendants(t, &mapLister{children: map[string][]string{}}, "leaf")
	if len(got) != 1 || got[0] != "leaf" {
		t.Errorf("Descendants(leaf) = %v, want [leaf]", got)
	}
}

func TestDescendants_TransitiveClosure(t *testing.T) {
	lister := &mapLister{children: map[string][]string{
		"root": {"a", "b"},
		"a":    {"a1", "a2"},
		"b":    {"b1"},
		"a1":   {"deep"},
	}}

	got := descendants(t, lister, "root")
	want := []string{"a", "a1", "a2", "b", "b1", "deep", "root"}
	if len(got) != len(want) {
		t.Fatalf("Descendants(root) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Descendants(root) = %v, want %v", got, want)
		}
	}
}

// The hierarchy is externally managed and may be corrupted into a cycle;
// resolution must still terminate.
func TestDescendants_TerminatesOnCycle(t *testing.T) {
	lister := &mapLister{children: map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	}}

	got := descendants(t, lister, "a")
	if len(got) != 3 {
		t.Errorf("Descendants(a) on cycle = %v, want the 3 distinct ids", got)
	}
}

func TestDescendants_StoreErrorPropagates(t *testing.T) {
	lister := &mapLister{err: errors.New("store down")}
	_, err := category.NewResolver(lister).Descendants(context.Background(), "root")
	if err == nil {
		t.Fatal("expected store error to propagate")
	}
}
