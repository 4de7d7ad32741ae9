package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wannasleep66/vibe-barter-sub001/internal/model"
	"github.com/wannasleep66/vibe-barter-sub001/internal/store"
)

const profileColumns = `p.id, p.user_id, p.rating, p.languages, p.portfolio_size, p.is_active`

// ProfileStore reads profiles by either join key.
type ProfileStore struct {
	pool *pgxpool.Pool
}

// NewProfileStore returns a ProfileStore backed by pool.
func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

// ByProfileID returns the profile with the given id.
func (s *ProfileStore) ByProfileID(ctx context.Context, profileID string) (*model.Profile, error) {
	return s.one(ctx, `SELECT `+profileColumns+` FROM profiles p WHERE p.id = $1`, profileID)
}

// ByUserID returns the profile owned by the given user.
func (s *ProfileStore) ByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	return s.one(ctx, `SELECT `+profileColumns+` FROM profiles p WHERE p.user_id = $1`, userID)
}

func (s *ProfileStore) one(ctx context.Context, sql string, arg any) (*model.Profile, error) {
	var p model.Profile
	err := s.pool.QueryRow(ctx, sql, arg).Scan(
		&p.ID, &p.UserID, &p.Rating, &p.Languages, &p.PortfolioSize, &p.IsActive,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile query: %w", err)
	}
	return &p, nil
}
