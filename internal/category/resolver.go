// Package category resolves the category hierarchy for subcategory-aware
// filtering.
package category

import (
	"context"
	"fmt"
)

// ChildrenLister returns the direct child ids of a category.
type ChildrenLister interface {
	Children(ctx context.Context, categoryID string) ([]string, error)
}

// Resolver computes descendant closures over parent→children edges.
type Resolver struct {
	store ChildrenLister
}

// NewResolver returns a Resolver backed by the given category store.
func NewResolver(store ChildrenLister) *Resolver {
	return &Resolver{store: store}
}

// Descendants returns the transitive closure of categoryID's descendants,
// the input id included, walking breadth-first. A visited set guarantees
// termination even on cyclic hierarchies.
func (r *Resolver) Descendants(ctx context.Context, categoryID string) ([]string, error) {
	visited := map[string]struct{}{categoryID: {}}
	result := []string{categoryID}
	queue := []string{categoryID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := r.store.Children(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("children of %s: %w", current, err)
		}
		for _, child := range children {
			if _, seen := visited[child]; seen {
				continue
			}
			visited[child] = struct{}{}
			result = append(result, child)
			queue = append(queue, child)
		}
	}
	return result, nil
}
