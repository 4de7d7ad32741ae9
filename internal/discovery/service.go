// Package discovery contains the transport-agnostic business logic of the
// listing discovery engine: plain search, personalized recommendations with
// result caching, preference updates with synchronous cache invalidation,
// and the interaction write path.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wannasleep66/vibe-barter-sub001/internal/cache"
	"github.com/wannasleep66/vibe-barter-sub001/internal/category"
	"github.com/wannasleep66/vibe-barter-sub001/internal/filter"
	"github.com/wannasleep66/vibe-barter-sub001/internal/model"
	"github.com/wannasleep66/vibe-barter-sub001/internal/rank"
	"github.com/wannasleep66/vibe-barter-sub001/internal/store"
)

// SearchResult is one page of a plain (non-personalized) search.
type SearchResult struct {
	Items      []model.Listing  `json:"items"`
	Pagination model.Pagination `json:"pagination"`
}

// RecommendationFilters describes which path served a recommendation page.
type RecommendationFilters struct {
	Type  string `json:"type"` // "recommended" or "general"
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

// RecommendationResult is one ranked recommendation page as exposed to
// callers.
type RecommendationResult struct {
	Items      []model.RankedResult  `json:"items"`
	Pagination model.Pagination      `json:"pagination"`
	Filters    RecommendationFilters `json:"filters"`
}

// Service encapsulates the discovery engine. It is stateless apart from the
// shared result cache and safe for concurrent use; it has no dependency on
// net/http.
type Service struct {
	listings     store.ListingStore
	profiles     store.ProfileStore
	interactions store.InteractionStore
	resolver     *category.Resolver
	engine       *rank.Engine
	prefs        store.PreferenceStore
	cache        cache.ResultCache
	ttl          time.Duration
	now          func() time.Time
}

// NewService wires the discovery engine. ttl bounds result-cache entries,
// cache.DefaultTTL if unset; now is injectable for tests and defaults to
// time.Now.
func NewService(
	listings store.ListingStore,
	profiles store.ProfileStore,
	interactions store.InteractionStore,
	prefs store.PreferenceStore,
	resolver *category.Resolver,
	engine *rank.Engine,
	resultCache cache.ResultCache,
	ttl time.Duration,
	now func() time.Time,
) *Service {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		listings:     listings,
		profiles:     profiles,
		interactions: interactions,
		prefs:        prefs,
		resolver:     resolver,
		engine:       engine,
		cache:        resultCache,
		ttl:          ttl,
		now:          now,
	}
}

// Search compiles the raw parameter set and executes it. Malformed
// parameters surface as *filter.ValidationError before any retrieval runs;
// an empty result set is not an error.
func (s *Service) Search(ctx context.Context, raw filter.RawParams) (*SearchResult, error) {
	plan, err := filter.Compile(ctx, raw, s.resolver)
	if err != nil {
		return nil, err
	}

	items, total, err := s.listings.FindByPlan(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	return &SearchResult{
		Items:      items,
		Pagination: model.NewPagination(plan.Page, plan.Limit, total),
	}, nil
}

// ListingDetail is a listing enriched with its author's profile for detail
// views. Author is nil when the owner has no profile.
type ListingDetail struct {
	Listing model.Listing  `json:"listing"`
	Author  *model.Profile `json:"author,omitempty"`
}

// GetListing returns one listing with its author profile attached. A
// missing listing surfaces as store.ErrNotFound; a missing author profile
// only leaves Author nil.
func (s *Service) GetListing(ctx context.Context, id string) (*ListingDetail, error) {
	listing, err := s.listings.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &ListingDetail{Listing: *listing}
	author, err := s.profiles.ByUserID(ctx, listing.OwnerID)
	switch {
	case err == nil:
		detail.Author = author
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, fmt.Errorf("author profile for listing %s: %w", id, err)
	}
	return detail, nil
}

// GetRecommendations returns the ranked page for viewerID, served from the
// result cache when a fresh entry exists. Cache faults never fail the
// request — the service logs them and recomputes.
func (s *Service) GetRecommendations(ctx context.Context, viewerID string, opts rank.Options) (*RecommendationResult, error) {
	opts = opts.Normalized()
	key := cache.Key{
		ViewerID:          viewerID,
		Page:              opts.Page,
		Limit:             opts.Limit,
		MinScore:          opts.MinScore,
		ExcludeInteracted: opts.ExcludeInteracted,
	}

	if cached, ok, err := s.cache.Get(ctx, key); err != nil {
		slog.Warn("result cache read failed, recomputing", "viewerId", viewerID, "err", err)
	} else if ok {
		return wrapRecommendation(cached, opts), nil
	}

	result, err := s.engine.Recommend(ctx, viewerID, opts)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, result, s.ttl); err != nil {
		slog.Warn("result cache write failed", "viewerId", viewerID, "err", err)
	}
	return wrapRecommendation(result, opts), nil
}

func wrapRecommendation(r *rank.Result, opts rank.Options) *RecommendationResult {
	kind := "recommended"
	if !r.Personalized {
		kind = "general"
	}
	return &RecommendationResult{
		Items:      r.Items,
		Pagination: r.Pagination,
		Filters: RecommendationFilters{
			Type:  kind,
			Page:  opts.Page,
			Limit: opts.Limit,
		},
	}
}

// InvalidateViewerCache drops every cached page for viewerID. Unlike reads
// and writes, an invalidation failure propagates: the preference collaborator
// must not report success while stale rankings could still be served.
func (s *Service) InvalidateViewerCache(ctx context.Context, viewerID string) error {
	if err := s.cache.InvalidateViewer(ctx, viewerID); err != nil {
		return fmt.Errorf("invalidate cache for %s: %w", viewerID, err)
	}
	return nil
}

// UpdatePreferences stores the viewer's preferences and synchronously
// invalidates their cached rankings before returning.
func (s *Service) UpdatePreferences(ctx context.Context, pref *model.ViewerPreference) error {
	if err := s.prefs.Put(ctx, pref); err != nil {
		return fmt.Errorf("store preferences for %s: %w", pref.ViewerID, err)
	}
	return s.InvalidateViewerCache(ctx, pref.ViewerID)
}

// RecordInteraction appends a behavioral record for viewerID, snapshotting
// the listing's category, type and tags at interaction time. Unknown
// interaction types are a validation error; a missing listing surfaces as
// store.ErrNotFound.
func (s *Service) RecordInteraction(ctx context.Context, viewerID, listingID, interactionType string) error {
	itype, err := model.ParseInteractionType(interactionType)
	if err != nil {
		return &filter.ValidationError{Msg: err.Error()}
	}

	listing, err := s.listings.ByID(ctx, listingID)
	if err != nil {
		return err
	}

	rec := &model.InteractionRecord{
		ViewerID:   viewerID,
		ListingID:  listing.ID,
		Type:       itype,
		CategoryID: listing.CategoryID,
		AdType:     listing.Type,
		TagIDs:     listing.TagIDs,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.interactions.Record(ctx, rec); err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	return nil
}
