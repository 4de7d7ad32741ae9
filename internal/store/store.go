// Package store declares the retrieval contracts the discovery engine runs
// against. Two backends implement them: postgres (production) and memstore
// (tests, DB-less operation). The engine never talks to a database type
// directly, which keeps direct/joined consistency and cache behavior
// testable with a seeded in-memory store.
package store

import (
	"context"
	"errors"

	"github.com/wannasleep66/vibe-barter-sub001/internal/filter"
	"github.com/wannasleep66/vibe-barter-sub001/internal/model"
)

// ErrNotFound is returned when a keyed lookup has no match. Empty search
// results are not an error.
var ErrNotFound = errors.New("not found")

// ListingStore retrieves listings by compiled plan. FindByPlan executes the
// plan — direct mode for listing-local plans, joined mode when the plan
// carries cross-entity predicates — and returns the requested page plus the
// total match count under the same predicates.
type ListingStore interface {
	FindByPlan(ctx context.Context, plan *filter.Plan) (items []model.Listing, total int, err error)
	ByID(ctx context.Context, id string) (*model.Listing, error)

	// ResyncSearchBlobs recomputes the denormalized search blob for every
	// listing flagged dirty and returns how many were repaired.
	ResyncSearchBlobs(ctx context.Context) (int, error)
}

// ProfileStore looks profiles up by either join key: the profile's own id
// (listing.profileId) or the owning user's id (listing.ownerId).
type ProfileStore interface {
	ByProfileID(ctx context.Context, profileID string) (*model.Profile, error)
	ByUserID(ctx context.Context, userID string) (*model.Profile, error)
}

// PreferenceStore reads and writes viewer preferences. Get returns
// (nil, nil) when the viewer has none stored — absence is a valid state,
// not an error.
type PreferenceStore interface {
	Get(ctx context.Context, viewerID string) (*model.ViewerPreference, error)
	Put(ctx context.Context, pref *model.ViewerPreference) error
}

// InteractionStore appends and reads the behavioral signal.
type InteractionStore interface {
	// History returns records of the given types within the lookback
	// window, newest first, capped at limit.
	History(ctx context.Context, viewerID string, types []model.InteractionType, lookbackDays, limit int) ([]model.InteractionRecord, error)

	// InteractedListingIDs returns the ids of every listing the viewer has
	// interacted with, for exclusion filtering.
	InteractedListingIDs(ctx context.Context, viewerID string) ([]string, error)

	Record(ctx context.Context, rec *model.InteractionRecord) error
}

// CategoryStore exposes the parent→children edges of the category tree.
type CategoryStore interface {
	Children(ctx context.Context, categoryID string) ([]string, error)
}
