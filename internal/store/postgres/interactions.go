package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wannasleep66/vibe-barter-sub001/internal/model"
)

// InteractionStore appends and reads the append-only behavioral signal.
type InteractionStore struct {
	pool *pgxpool.Pool
}

// NewInteractionStore returns an InteractionStore backed by pool.
func NewInteractionStore(pool *pgxpool.Pool) *InteractionStore {
	return &InteractionStore{pool: pool}
}

// History returns the viewer's records of the given types within the
// lookback window, newest first, capped at limit.
func (s *InteractionStore) History(ctx context.Context, viewerID string, types []model.InteractionType, lookbackDays, limit int) ([]model.InteractionRecord, error) {
	typeStrings := make([]string, len(types))
	for i, t := range types {
		typeStrings[i] = string(t)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT viewer_id, listing_id, type, category_id, ad_type, tag_ids, created_at
		 FROM interactions
		 WHERE viewer_id = $1
		   AND type = ANY($2)
		   AND created_at >= now() - make_interval(days => $3)
		 ORDER BY created_at DESC
		 LIMIT $4`,
		viewerID, typeStrings, lookbackDays, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("interaction history query: %w", err)
	}
	defer rows.Close()

	var out []model.InteractionRecord
	for rows.Next() {
		var rec model.InteractionRecord
		if err := rows.Scan(
			&rec.ViewerID, &rec.ListingID, &rec.Type,
			&rec.CategoryID, &rec.AdType, &rec.TagIDs, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("interaction scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// InteractedListingIDs returns the distinct listing ids the viewer touched.
func (s *InteractionStore) InteractedListingIDs(ctx context.Context, viewerID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT listing_id FROM interactions WHERE viewer_id = $1`,
		viewerID,
	)
	if err != nil {
		return nil, fmt.Errorf("interacted listings query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("interacted listings scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Record appends one interaction with its at-interaction-time snapshot.
func (s *InteractionStore) Record(ctx context.Context, rec *model.InteractionRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO interactions (viewer_id, listing_id, type, category_id, ad_type, tag_ids, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ViewerID, rec.ListingID, string(rec.Type),
		rec.CategoryID, string(rec.AdType), rec.TagIDs, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("interaction insert: %w", err)
	}
	return nil
}
