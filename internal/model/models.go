// Package model defines the shared data structures for the discovery service.
package model

import (
	"fmt"
	"math"
	"time"
)

// ─── Listings ────────────────────────────────────────────────────────────────

// AdType enumerates the kind of offering a listing advertises.
type AdType string

const (
	AdTypeService  AdType = "service"
	AdTypeProduct  AdType = "product"
	AdTypeExchange AdType = "exchange"
)

// ParseAdType converts a raw string to an AdType, returning an error for
// unknown values.
func ParseAdType(s string) (AdType, error) {
	t := AdType(s)
	switch t {
	case AdTypeService, AdTypeProduct, AdTypeExchange:
		return t, nil
	}
	return "", fmt.Errorf("unknown ad type %q", s)
}

// Rating aggregates review scores for a listing.
type Rating struct {
	Average float64 `json:"average"` // 0–5
	Count   int     `json:"count"`
}

// Listing is a catalog entry (advertisement) eligible for discovery and
// ranking. Created and mutated by the listing-management service; this
// engine only reads it.
type Listing struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	ExchangePreferences string    `json:"exchangePreferences"`
	Type                AdType    `json:"type"`
	CategoryID          string    `json:"categoryId"`
	TagIDs              []string  `json:"tagIds"`
	Location            string    `json:"location"`
	Rating              Rating    `json:"rating"`
	Views               int       `json:"views"`
	ApplicationCount    int       `json:"applicationCount"`
	IsActive            bool      `json:"isActive"`
	IsArchived          bool      `json:"isArchived"`
	IsUrgent            bool      `json:"isUrgent"`
	CreatedAt           time.Time `json:"createdAt"`
	ExpiresAt           time.Time `json:"expiresAt"`
	OwnerID             string    `json:"ownerId"`
	ProfileID           string    `json:"profileId"`

	// SearchText is the denormalized free-text blob
	// (title+description+exchangePreferences+location+tag names).
	// Kept in sync by the blob resync job; SearchDirty marks it stale.
	SearchText  string `json:"-"`
	SearchDirty bool   `json:"-"`
}

// HasTag reports whether the listing carries the given tag id.
func (l *Listing) HasTag(tagID string) bool {
	for _, t := range l.TagIDs {
		if t == tagID {
			return true
		}
	}
	return false
}

// ─── Profiles ────────────────────────────────────────────────────────────────

// Profile is the joined-mode view of a user profile. Note that a profile is
// addressable two ways: by its own id (listing.profileId) and by the id of
// the user who owns it (listing.ownerId). The portfolio/language predicates
// join on profileId while the author-rating predicate joins on ownerId.
type Profile struct {
	ID            string   `json:"id"`
	UserID        string   `json:"userId"`
	Rating        float64  `json:"rating"` // 0–5
	Languages     []string `json:"languages"`
	PortfolioSize int      `json:"portfolioSize"`
	IsActive      bool     `json:"isActive"`
}

// HasPortfolio reports whether the profile has at least one portfolio item.
func (p *Profile) HasPortfolio() bool { return p.PortfolioSize > 0 }

// ─── Viewer preferences ──────────────────────────────────────────────────────

// ScoreWeights are the per-component weights of the preference-based
// relevance score. Each weight is in [0,1].
type ScoreWeights struct {
	CategoryMatch float64 `json:"categoryMatch"`
	TypeMatch     float64 `json:"typeMatch"`
	TagMatch      float64 `json:"tagMatch"`
	LocationMatch float64 `json:"locationMatch"`
	RatingMatch   float64 `json:"ratingMatch"`
}

// DefaultScoreWeights returns the weights used when a viewer has not
// customized them.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		CategoryMatch: 0.3,
		TypeMatch:     0.2,
		TagMatch:      0.2,
		LocationMatch: 0.15,
		RatingMatch:   0.15,
	}
}

// ViewerPreference holds a viewer's stored discovery preferences. Absence is
// valid and triggers fallback ranking. Written by the profile-preferences
// collaborator; read-only here. Any mutation must invalidate the result
// cache for that viewer.
type ViewerPreference struct {
	ViewerID             string       `json:"viewerId"`
	PreferredCategories  []string     `json:"preferredCategories"`
	PreferredTypes       []AdType     `json:"preferredTypes"`
	PreferredTags        []string     `json:"preferredTags"`
	PreferredLocations   []string     `json:"preferredLocations"`
	MinRating            float64      `json:"minRating"`
	MinAuthorRating      float64      `json:"minAuthorRating"`
	ExcludeInactiveUsers bool         `json:"excludeInactiveUsers"`
	ExcludeLowRating     bool         `json:"excludeLowRatingUsers"`
	Weights              ScoreWeights `json:"scoreWeights"`
}

// ─── Interactions ────────────────────────────────────────────────────────────

// InteractionType enumerates the recorded viewer actions on a listing.
type InteractionType string

const (
	InteractionView     InteractionType = "view"
	InteractionApply    InteractionType = "apply"
	InteractionFavorite InteractionType = "favorite"
	InteractionAccept   InteractionType = "accept"
	InteractionReject   InteractionType = "reject"
)

// AllInteractionTypes lists every valid interaction type, in the order used
// by history queries.
var AllInteractionTypes = []InteractionType{
	InteractionView,
	InteractionApply,
	InteractionFavorite,
	InteractionAccept,
	InteractionReject,
}

// ParseInteractionType converts a raw string to an InteractionType,
// returning an error for unknown values.
func ParseInteractionType(s string) (InteractionType, error) {
	t := InteractionType(s)
	for _, v := range AllInteractionTypes {
		if t == v {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown interaction type %q", s)
}

// InteractionRecord is an append-only behavioral signal. Category, type and
// tags are denormalized snapshots of the listing at interaction time, so
// later listing edits do not rewrite history.
type InteractionRecord struct {
	ViewerID   string          `json:"viewerId"`
	ListingID  string          `json:"listingId"`
	Type       InteractionType `json:"type"`
	CategoryID string          `json:"categoryId"`
	AdType     AdType          `json:"adType"`
	TagIDs     []string        `json:"tagIds"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// ─── Ranked output ───────────────────────────────────────────────────────────

// RankedResult is a listing augmented with its computed relevance score.
// Ephemeral: never persisted, rebuilt on every cache miss.
type RankedResult struct {
	Listing        Listing `json:"listing"`
	RelevanceScore float64 `json:"relevanceScore"` // 0–1
}

// ─── Pagination ──────────────────────────────────────────────────────────────

// Pagination is the metadata attached to every paged response.
type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"hasNext"`
	HasPrev bool `json:"hasPrev"`
}

// NewPagination computes the derived pagination fields from page, limit and
// the total match count.
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{
		Page:    page,
		Limit:   limit,
		Total:   total,
		Pages:   pages,
		HasNext: page*limit < total,
		HasPrev: page > 1,
	}
}
