package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wannasleep66/vibe-barter-sub001/internal/model"
)

// PreferenceStore reads and writes viewer preferences. Score weights live
// in a jsonb column so the weight set can evolve without a migration.
type PreferenceStore struct {
	pool *pgxpool.Pool
}

// NewPreferenceStore returns a PreferenceStore backed by pool.
func NewPreferenceStore(pool *pgxpool.Pool) *PreferenceStore {
	return &PreferenceStore{pool: pool}
}

// Get returns the viewer's stored preference, or (nil, nil) when the viewer
// has none — absence is a valid state.
func (s *PreferenceStore) Get(ctx context.Context, viewerID string) (*model.ViewerPreference, error) {
	var (
		pref       model.ViewerPreference
		weightsRaw []byte
		types      []string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT viewer_id, preferred_categories, preferred_types, preferred_tags,
		        preferred_locations, min_rating, min_author_rating,
		        exclude_inactive_users, exclude_low_rating_users, weights
		 FROM viewer_preferences
		 WHERE viewer_id = $1`,
		viewerID,
	).Scan(
		&pref.ViewerID, &pref.PreferredCategories, &types, &pref.PreferredTags,
		&pref.PreferredLocations, &pref.MinRating, &pref.MinAuthorRating,
		&pref.ExcludeInactiveUsers, &pref.ExcludeLowRating, &weightsRaw,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("preference query: %w", err)
	}

	for _, t := range types {
		pref.PreferredTypes = append(pref.PreferredTypes, model.AdType(t))
	}
	if len(weightsRaw) > 0 {
		if err := json.Unmarshal(weightsRaw, &pref.Weights); err != nil {
			return nil, fmt.Errorf("decode score weights: %w", err)
		}
	}
	return &pref, nil
}

// Put upserts the viewer's preference row. The caller is responsible for
// invalidating the viewer's result cache afterwards.
func (s *PreferenceStore) Put(ctx context.Context, pref *model.ViewerPreference) error {
	weightsRaw, err := json.Marshal(pref.Weights)
	if err != nil {
		return fmt.Errorf("encode score weights: %w", err)
	}
	types := make([]string, len(pref.PreferredTypes))
	for i, t := range pref.PreferredTypes {
		types[i] = string(t)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO viewer_preferences (
		   viewer_id, preferred_categories, preferred_types, preferred_tags,
		   preferred_locations, min_rating, min_author_rating,
		   exclude_inactive_users, exclude_low_rating_users, weights
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb)
		 ON CONFLICT (viewer_id) DO UPDATE SET
		   preferred_categories     = EXCLUDED.preferred_categories,
		   preferred_types          = EXCLUDED.preferred_types,
		   preferred_tags           = EXCLUDED.preferred_tags,
		   preferred_locations      = EXCLUDED.preferred_locations,
		   min_rating               = EXCLUDED.min_rating,
		   min_author_rating        = EXCLUDED.min_author_rating,
		   exclude_inactive_users   = EXCLUDED.exclude_inactive_users,
		   exclude_low_rating_users = EXCLUDED.exclude_low_rating_users,
		   weights                  = EXCLUDED.weights`,
		pref.ViewerID, pref.PreferredCategories, types, pref.PreferredTags,
		pref.PreferredLocations, pref.MinRating, pref.MinAuthorRating,
		pref.ExcludeInactiveUsers, pref.ExcludeLowRating, string(weightsRaw),
	)
	if err != nil {
		return fmt.Errorf("preference upsert: %w", err)
	}
	return nil
}
