// Package rank implements the personalized relevance ranking engine.
//
// Ranking is a two-phase reduction: a coarse preference-derived plan pulls
// a popularity-pre-sorted candidate set bounded at five pages' worth, then
// the expensive per-candidate relevance score runs only over that set. The
// truncation is a deliberate trade-off: a highly relevant candidate outside
// the popularity cut is never scored.
package rank

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/wannasleep66/vibe-barter-sub001/internal/filter"
	"github.com/wannasleep66/vibe-barter-sub001/internal/model"
	"github.com/wannasleep66/vibe-barter-sub001/internal/store"
)

const (
	// candidateMultiplier bounds the scored candidate set to a small
	// multiple of the requested page size.
	candidateMultiplier = 5

	defaultPage     = 1
	defaultLimit    = 10
	defaultMinScore = 0.1

	// DefaultLookbackDays and DefaultHistoryLimit bound the behavioral
	// signal window.
	DefaultLookbackDays = 90
	DefaultHistoryLimit = 50
)

// Options control a single recommendation request.
type Options struct {
	Page              int
	Limit             int
	MinScore          float64 // minimum relevance score, default 0.1
	MinScoreSet       bool    // distinguishes an explicit 0 from absent
	ExcludeInteracted bool
	FallbackToGeneral bool // serve a general newest-first page when the viewer has no preferences
}

// Normalized fills absent fields with the documented defaults. The service
// layer applies it before deriving the cache key so equal requests map to
// equal keys.
func (o Options) Normalized() Options {
	if o.Page < 1 {
		o.Page = defaultPage
	}
	if o.Limit < 1 {
		o.Limit = defaultLimit
	}
	if !o.MinScoreSet && o.MinScore == 0 {
		o.MinScore = defaultMinScore
	}
	return o
}

// Result is one ranked, paginated recommendation page.
type Result struct {
	Items        []model.RankedResult `json:"items"`
	Pagination   model.Pagination     `json:"pagination"`
	Personalized bool                 `json:"personalized"`
}

// Engine computes ranked recommendation pages. It is stateless and safe for
// concurrent use; every request is independent.
type Engine struct {
	listings     store.ListingStore
	prefs        store.PreferenceStore
	interactions store.InteractionStore

	lookbackDays int
	historyLimit int
	now          func() time.Time
}

// NewEngine constructs an Engine. lookbackDays and historyLimit bound the
// behavioral history; zero values take the defaults. now is injectable for
// deterministic tests and defaults to time.Now.
func NewEngine(listings store.ListingStore, prefs store.PreferenceStore, interactions store.InteractionStore, lookbackDays, historyLimit int, now func() time.Time) *Engine {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{
		listings:     listings,
		prefs:        prefs,
		interactions: interactions,
		lookbackDays: lookbackDays,
		historyLimit: historyLimit,
		now:          now,
	}
}

// Recommend produces the ranked page for viewerID. Store errors propagate;
// a history read failure only degrades the behavioral contribution to zero.
func (e *Engine) Recommend(ctx context.Context, viewerID string, opts Options) (*Result, error) {
	opts = opts.Normalized()

	pref, err := e.prefs.Get(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("load preferences for %s: %w", viewerID, err)
	}
	if pref == nil {
		if opts.FallbackToGeneral {
			return e.general(ctx, opts)
		}
		return &Result{
			Items:        []model.RankedResult{},
			Pagination:   model.NewPagination(opts.Page, opts.Limit, 0),
			Personalized: true,
		}, nil
	}

	candidates, err := e.coarseCandidates(ctx, viewerID, pref, opts)
	if err != nil {
		return nil, err
	}

	history, err := e.interactions.History(ctx, viewerID, model.AllInteractionTypes, e.lookbackDays, e.historyLimit)
	if err != nil {
		slog.Warn("interaction history read failed, behavioral score degraded to zero",
			"viewerId", viewerID, "err", err)
		history = nil
	}

	now := e.now()
	ranked := make([]model.RankedResult, 0, len(candidates))
	for i := range candidates {
		score := preferenceRelevance(&candidates[i], pref, history, now)
		if score < opts.MinScore {
			continue
		}
		ranked = append(ranked, model.RankedResult{Listing: candidates[i], RelevanceScore: score})
	}

	// Descending by score; equal scores order by ascending listing id so
	// the ranking is deterministic across backends.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].RelevanceScore != ranked[j].RelevanceScore {
			return ranked[i].RelevanceScore > ranked[j].RelevanceScore
		}
		return ranked[i].Listing.ID < ranked[j].Listing.ID
	})

	total := len(ranked)
	return &Result{
		Items:        slicePage(ranked, opts.Page, opts.Limit),
		Pagination:   model.NewPagination(opts.Page, opts.Limit, total),
		Personalized: true,
	}, nil
}

// coarseCandidates builds the preference-derived coarse plan and pulls the
// popularity-pre-sorted candidate set, truncated to 5× the page size.
func (e *Engine) coarseCandidates(ctx context.Context, viewerID string, pref *model.ViewerPreference, opts Options) ([]model.Listing, error) {
	// The preference dimensions combine with OR: a candidate strong on one
	// dimension is kept even when it misses the others. Eligibility and the
	// exclusion predicates still AND on top.
	anyOf := &filter.AnyOf{
		Types:       pref.PreferredTypes,
		CategoryIDs: pref.PreferredCategories,
		TagIDs:      pref.PreferredTags,
	}
	for _, loc := range pref.PreferredLocations {
		if loc != "" {
			anyOf.Locations = append(anyOf.Locations, strings.ToLower(loc))
		}
	}

	active, archived := true, false
	plan := &filter.Plan{
		AnyOf:      anyOf,
		IsActive:   &active,
		IsArchived: &archived,
		Sort:       filter.SortSpec{Field: filter.SortPopularity, Desc: true},
		Page:       1,
		Limit:      candidateMultiplier * opts.Limit,
	}
	if pref.MinRating > 0 {
		minRating := pref.MinRating
		plan.MinRating = &minRating
	}
	if pref.ExcludeInactiveUsers {
		ownerActive := true
		plan.OwnerActive = &ownerActive
	}
	if pref.ExcludeLowRating && pref.MinAuthorRating > 0 {
		minAuthor := pref.MinAuthorRating
		plan.MinAuthorRating = &minAuthor
	}

	if opts.ExcludeInteracted {
		ids, err := e.interactions.InteractedListingIDs(ctx, viewerID)
		if err != nil {
			return nil, fmt.Errorf("load interacted listings for %s: %w", viewerID, err)
		}
		if len(ids) > 0 {
			plan.ExcludeListingIDs = make(map[string]struct{}, len(ids))
			for _, id := range ids {
				plan.ExcludeListingIDs[id] = struct{}{}
			}
		}
	}

	items, _, err := e.listings.FindByPlan(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("coarse candidate retrieval: %w", err)
	}
	return items, nil
}

// general serves the non-personalized fallback: newest active listings with
// the default relevance formula attached, no threshold filtering.
func (e *Engine) general(ctx context.Context, opts Options) (*Result, error) {
	active, archived := true, false
	plan := &filter.Plan{
		IsActive:   &active,
		IsArchived: &archived,
		Sort:       filter.SortSpec{Field: filter.SortCreatedAt, Desc: true},
		Page:       opts.Page,
		Limit:      opts.Limit,
	}

	items, total, err := e.listings.FindByPlan(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("general fallback retrieval: %w", err)
	}

	now := e.now()
	ranked := make([]model.RankedResult, 0, len(items))
	for i := range items {
		ranked = append(ranked, model.RankedResult{
			Listing:        items[i],
			RelevanceScore: defaultRelevance(&items[i], now),
		})
	}

	return &Result{
		Items:        ranked,
		Pagination:   model.NewPagination(opts.Page, opts.Limit, total),
		Personalized: false,
	}, nil
}

func slicePage(ranked []model.RankedResult, page, limit int) []model.RankedResult {
	start := (page - 1) * limit
	if start >= len(ranked) {
		return []model.RankedResult{}
	}
	end := start + limit
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[start:end]
}
