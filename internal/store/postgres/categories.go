package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CategoryStore reads the parent→children edges of the category tree.
type CategoryStore struct {
	pool *pgxpool.Pool
}

// NewCategoryStore returns a CategoryStore backed by pool.
func NewCategoryStore(pool *pgxpool.Pool) *CategoryStore {
	return &CategoryStore{pool: pool}
}

// Children returns the direct child ids of a category.
func (s *CategoryStore) Children(ctx context.Context, categoryID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM categories WHERE parent_id = $1`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("category children query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("category scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
