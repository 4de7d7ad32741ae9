// Package memstore implements the store contracts in memory. It backs the
// engine's tests with deterministic fixtures and serves as the
// STORE_DRIVER=memory backend for DB-less operation. Plans are evaluated
// through the same filter.Plan semantics the postgres backend renders to
// SQL, which is what makes the direct/joined consistency property checkable.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wannasleep66/vibe-barter-sub001/internal/filter"
	"github.com/wannasleep66/vibe-barter-sub001/internal/model"
	"github.com/wannasleep66/vibe-barter-sub001/internal/store"
)

// Store holds all seeded entities behind one lock. Safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	listings     map[string]model.Listing
	profiles     map[string]model.Profile // by profile id
	prefs        map[string]model.ViewerPreference
	interactions []model.InteractionRecord
	children     map[string][]string // category id → direct child ids
	tagNames     map[string]string   // tag id → display name
	now          func() time.Time
}

// New returns an empty Store. now is injectable for history-window tests
// and defaults to time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		listings: make(map[string]model.Listing),
		profiles: make(map[string]model.Profile),
		prefs:    make(map[string]model.ViewerPreference),
		children: make(map[string][]string),
		tagNames: make(map[string]string),
		now:      now,
	}
}

// ─── Seeding ─────────────────────────────────────────────────────────────────

// PutListing inserts or replaces a listing.
func (s *Store) PutListing(l model.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.ID] = l
}

// PutProfile inserts or replaces a profile.
func (s *Store) PutProfile(p model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

// PutCategory registers a category's direct children.
func (s *Store) PutCategory(id string, childIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children[id] = childIDs
}

// PutTagName registers a tag's display name for search-blob computation.
func (s *Store) PutTagName(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tagNames[id] = name
}

// ─── ListingStore ────────────────────────────────────────────────────────────

// FindByPlan evaluates the plan over the seeded listings: listing-local
// predicates first, profile joins when the plan needs them, then the plan's
// ordering and paging. The total counts every match before paging.
func (s *Store) FindByPlan(ctx context.Context, plan *filter.Plan) ([]model.Listing, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []model.Listing
	for _, l := range s.listings {
		l := l
		if !plan.MatchesListing(&l) {
			continue
		}
		if plan.NeedsJoin() && !plan.MatchesProfiles(s.ownerProfile(l.OwnerID), s.profileByID(l.ProfileID)) {
			continue
		}
		matched = append(matched, l)
	}

	plan.SortListings(matched)
	total := len(matched)

	start := plan.Offset()
	if start >= total {
		return []model.Listing{}, total, nil
	}
	end := start + plan.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// ByID returns the listing with the given id or store.ErrNotFound.
func (s *Store) ByID(_ context.Context, id string) (*model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &l, nil
}

// ResyncSearchBlobs recomputes the search blob for every dirty listing.
func (s *Store) ResyncSearchBlobs(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repaired := 0
	for id, l := range s.listings {
		if !l.SearchDirty {
			continue
		}
		names := make([]string, 0, len(l.TagIDs))
		for _, tagID := range l.TagIDs {
			if name, ok := s.tagNames[tagID]; ok {
				names = append(names, name)
			}
		}
		l.SearchText = filter.SearchBlob(&l, names)
		l.SearchDirty = false
		s.listings[id] = l
		repaired++
	}
	return repaired, nil
}

func (s *Store) profileByID(profileID string) *model.Profile {
	if p, ok := s.profiles[profileID]; ok {
		return &p
	}
	return nil
}

func (s *Store) ownerProfile(userID string) *model.Profile {
	for _, p := range s.profiles {
		if p.UserID == userID {
			p := p
			return &p
		}
	}
	return nil
}

// ─── ProfileStore ────────────────────────────────────────────────────────────

// ByProfileID returns the profile with the given id or store.ErrNotFound.
func (s *Store) ByProfileID(_ context.Context, profileID string) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p := s.profileByID(profileID); p != nil {
		return p, nil
	}
	return nil, store.ErrNotFound
}

// ByUserID returns the profile owned by userID or store.ErrNotFound.
func (s *Store) ByUserID(_ context.Context, userID string) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p := s.ownerProfile(userID); p != nil {
		return p, nil
	}
	return nil, store.ErrNotFound
}

// ─── PreferenceStore ─────────────────────────────────────────────────────────

// Get returns the viewer's stored preference, or (nil, nil) when absent.
func (s *Store) Get(_ context.Context, viewerID string) (*model.ViewerPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.prefs[viewerID]; ok {
		return &p, nil
	}
	return nil, nil
}

// Put inserts or replaces the viewer's preference.
func (s *Store) Put(_ context.Context, pref *model.ViewerPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[pref.ViewerID] = *pref
	return nil
}

// ─── InteractionStore ────────────────────────────────────────────────────────

// History returns the viewer's records of the given types within the
// lookback window, newest first, capped at limit.
func (s *Store) History(_ context.Context, viewerID string, types []model.InteractionType, lookbackDays, limit int) ([]model.InteractionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().AddDate(0, 0, -lookbackDays)
	wanted := make(map[model.InteractionType]struct{}, len(types))
	for _, t := range types {
		wanted[t] = struct{}{}
	}

	var out []model.InteractionRecord
	for _, rec := range s.interactions {
		if rec.ViewerID != viewerID || rec.CreatedAt.Before(cutoff) {
			continue
		}
		if _, ok := wanted[rec.Type]; !ok {
			continue
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// InteractedListingIDs returns the distinct listing ids the viewer touched.
func (s *Store) InteractedListingIDs(_ context.Context, viewerID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var ids []string
	for _, rec := range s.interactions {
		if rec.ViewerID != viewerID {
			continue
		}
		if _, ok := seen[rec.ListingID]; ok {
			continue
		}
		seen[rec.ListingID] = struct{}{}
		ids = append(ids, rec.ListingID)
	}
	return ids, nil
}

// Record appends an interaction.
func (s *Store) Record(_ context.Context, rec *model.InteractionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interactions = append(s.interactions, *rec)
	return nil
}

// ─── CategoryStore ───────────────────────────────────────────────────────────

// Children returns the direct child ids of a category.
func (s *Store) Children(_ context.Context, categoryID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.children[categoryID], nil
}
