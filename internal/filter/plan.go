// Package filter compiles loosely-typed search parameters into an
// executable, closed query plan over listings and, when cross-entity
// predicates are present, over the owning profiles.
//
// The plan carries one typed field per supported predicate. Both store
// backends interpret the same plan: the postgres store renders it to SQL,
// the memory store evaluates it with the Match* methods below. Keeping the
// evaluation here is what makes direct/joined consistency testable.
package filter

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/wannasleep66/vibe-barter-sub001/internal/model"
)

// TagMode selects how a multi-tag predicate combines.
type TagMode string

const (
	// TagModeAll requires the listing's tag set to be a superset of the
	// requested tags.
	TagModeAll TagMode = "all"
	// TagModeAny requires a non-empty intersection.
	TagModeAny TagMode = "any"
)

// SortField enumerates the listing fields a plan may sort by.
type SortField string

const (
	SortCreatedAt        SortField = "createdAt"
	SortExpiresAt        SortField = "expiresAt"
	SortViews            SortField = "views"
	SortRating           SortField = "rating"
	SortApplicationCount SortField = "applicationCount"
	SortTitle            SortField = "title"
	// SortPopularity orders by the popularity pre-score used by the ranking
	// engine to bound candidate sets. Not exposed to external callers.
	SortPopularity SortField = "popularity"
)

// SortSpec is the plan's ordering: a field plus direction. Ties are always
// broken by ascending listing id so both store backends order identically.
type SortSpec struct {
	Field SortField
	Desc  bool
}

// Plan is a compiled, validated query. Nil pointer fields and empty slices
// mean "predicate absent". All strings that participate in case-insensitive
// matching are stored lowercased.
type Plan struct {
	Query       string
	Types       []model.AdType // OR-combined
	CategoryIDs []string
	TagIDs      []string
	TagMode     TagMode
	Locations   []string // OR-combined substrings, lowercased

	MinRating       *float64
	MaxRating       *float64
	MinViews        *int
	MaxViews        *int
	MinApplications *int
	MaxApplications *int

	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	ExpiresAfter  *time.Time
	ExpiresBefore *time.Time

	IsActive   *bool // nil = any
	IsArchived *bool // nil = any

	// AnyOf, when set, requires at least one of its populated members to
	// match. The ranking engine's coarse filter uses it so a candidate
	// strong on one preference dimension is not excluded for missing
	// another.
	AnyOf *AnyOf

	ExcludeListingIDs map[string]struct{}

	// Joined predicates. HasPortfolio and Languages evaluate against the
	// profile keyed by listing.profileId; the author-rating bounds and
	// OwnerActive evaluate against the profile owned by listing.ownerId.
	HasPortfolio    *bool
	Languages       []string
	MinAuthorRating *float64
	MaxAuthorRating *float64
	OwnerActive     *bool

	Sort  SortSpec
	Page  int
	Limit int
}

// AnyOf is an OR-combined predicate group over the preference dimensions.
// Empty members are skipped; a group with no populated member matches
// everything.
type AnyOf struct {
	CategoryIDs []string
	Types       []model.AdType
	TagIDs      []string
	Locations   []string // lowercased substrings
}

func (a *AnyOf) matches(l *model.Listing) bool {
	populated := false
	if len(a.CategoryIDs) > 0 {
		populated = true
		if containsString(a.CategoryIDs, l.CategoryID) {
			return true
		}
	}
	if len(a.Types) > 0 {
		populated = true
		if containsType(a.Types, l.Type) {
			return true
		}
	}
	if len(a.TagIDs) > 0 {
		populated = true
		for _, tag := range a.TagIDs {
			if l.HasTag(tag) {
				return true
			}
		}
	}
	if len(a.Locations) > 0 {
		populated = true
		if matchesLocation(l.Location, a.Locations) {
			return true
		}
	}
	return !populated
}

// NeedsJoin reports whether the plan carries any cross-entity predicate and
// therefore requires joined-mode retrieval.
func (p *Plan) NeedsJoin() bool {
	return p.HasPortfolio != nil ||
		len(p.Languages) > 0 ||
		p.MinAuthorRating != nil ||
		p.MaxAuthorRating != nil ||
		p.OwnerActive != nil
}

// Offset returns the number of items to skip for the plan's page.
func (p *Plan) Offset() int { return (p.Page - 1) * p.Limit }

// ─── Listing-local evaluation ────────────────────────────────────────────────

// MatchesListing evaluates every listing-local predicate against l.
// Joined predicates are ignored here; see MatchesProfiles.
func (p *Plan) MatchesListing(l *model.Listing) bool {
	if p.IsActive != nil && l.IsActive != *p.IsActive {
		return false
	}
	if p.IsArchived != nil && l.IsArchived != *p.IsArchived {
		return false
	}
	if _, excluded := p.ExcludeListingIDs[l.ID]; excluded {
		return false
	}
	if len(p.Types) > 0 && !containsType(p.Types, l.Type) {
		return false
	}
	if len(p.CategoryIDs) > 0 && !containsString(p.CategoryIDs, l.CategoryID) {
		return false
	}
	if len(p.TagIDs) > 0 && !p.matchesTags(l) {
		return false
	}
	if len(p.Locations) > 0 && !matchesLocation(l.Location, p.Locations) {
		return false
	}
	if p.AnyOf != nil && !p.AnyOf.matches(l) {
		return false
	}
	if p.Query != "" && !matchesQuery(l, p.Query) {
		return false
	}
	if p.MinRating != nil && l.Rating.Average < *p.MinRating {
		return false
	}
	if p.MaxRating != nil && l.Rating.Average > *p.MaxRating {
		return false
	}
	if p.MinViews != nil && l.Views < *p.MinViews {
		return false
	}
	if p.MaxViews != nil && l.Views > *p.MaxViews {
		return false
	}
	if p.MinApplications != nil && l.ApplicationCount < *p.MinApplications {
		return false
	}
	if p.MaxApplications != nil && l.ApplicationCount > *p.MaxApplications {
		return false
	}
	if p.CreatedAfter != nil && l.CreatedAt.Before(*p.CreatedAfter) {
		return false
	}
	if p.CreatedBefore != nil && l.CreatedAt.After(*p.CreatedBefore) {
		return false
	}
	if p.ExpiresAfter != nil && l.ExpiresAt.Before(*p.ExpiresAfter) {
		return false
	}
	if p.ExpiresBefore != nil && l.ExpiresAt.After(*p.ExpiresBefore) {
		return false
	}
	return true
}

func (p *Plan) matchesTags(l *model.Listing) bool {
	switch p.TagMode {
	case TagModeAll:
		for _, want := range p.TagIDs {
			if !l.HasTag(want) {
				return false
			}
		}
		return true
	default: // TagModeAny
		for _, want := range p.TagIDs {
			if l.HasTag(want) {
				return true
			}
		}
		return false
	}
}

// matchesQuery checks the free-text query against every searchable text
// field plus the denormalized search blob, case-insensitively.
func matchesQuery(l *model.Listing, query string) bool {
	for _, field := range []string{
		l.Title, l.Description, l.ExchangePreferences, l.Location, l.SearchText,
	} {
		if field != "" && strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// ─── Joined evaluation ───────────────────────────────────────────────────────

// MatchesProfiles evaluates the cross-entity predicates. owner is the
// profile owned by listing.ownerId (author rating), prof the profile with
// id listing.profileId (portfolio, languages). A nil profile fails any
// predicate that needs it.
func (p *Plan) MatchesProfiles(owner, prof *model.Profile) bool {
	if p.HasPortfolio != nil {
		if prof == nil || prof.HasPortfolio() != *p.HasPortfolio {
			return false
		}
	}
	if len(p.Languages) > 0 {
		if prof == nil || !anyLanguage(prof.Languages, p.Languages) {
			return false
		}
	}
	if p.MinAuthorRating != nil {
		if owner == nil || owner.Rating < *p.MinAuthorRating {
			return false
		}
	}
	if p.MaxAuthorRating != nil {
		if owner == nil || owner.Rating > *p.MaxAuthorRating {
			return false
		}
	}
	if p.OwnerActive != nil {
		if owner == nil || owner.IsActive != *p.OwnerActive {
			return false
		}
	}
	return true
}

func anyLanguage(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

// ─── Ordering ────────────────────────────────────────────────────────────────

// PopularityScore is the pre-score used to bound the ranking engine's
// candidate set: 0.4·rating + 0.3·ln(views+1)/10 + 0.3·urgency.
func PopularityScore(l *model.Listing) float64 {
	score := 0.4*l.Rating.Average + 0.3*(math.Log(float64(l.Views)+1)/10)
	if l.IsUrgent {
		score += 0.3
	}
	return score
}

// SortListings orders ls in place according to the plan's sort spec, ties
// broken by ascending id.
func (p *Plan) SortListings(ls []model.Listing) {
	sort.SliceStable(ls, func(i, j int) bool {
		a, b := &ls[i], &ls[j]
		if less, decided := p.compare(a, b); decided {
			return less
		}
		return a.ID < b.ID
	})
}

// compare returns (a<b, decided) for the primary sort key; undecided means
// the key values are equal.
func (p *Plan) compare(a, b *model.Listing) (bool, bool) {
	asc := !p.Sort.Desc
	switch p.Sort.Field {
	case SortViews:
		if a.Views == b.Views {
			return false, false
		}
		return (a.Views < b.Views) == asc, true
	case SortRating:
		if a.Rating.Average == b.Rating.Average {
			return false, false
		}
		return (a.Rating.Average < b.Rating.Average) == asc, true
	case SortApplicationCount:
		if a.ApplicationCount == b.ApplicationCount {
			return false, false
		}
		return (a.ApplicationCount < b.ApplicationCount) == asc, true
	case SortTitle:
		if a.Title == b.Title {
			return false, false
		}
		return (a.Title < b.Title) == asc, true
	case SortExpiresAt:
		if a.ExpiresAt.Equal(b.ExpiresAt) {
			return false, false
		}
		return a.ExpiresAt.Before(b.ExpiresAt) == asc, true
	case SortPopularity:
		pa, pb := PopularityScore(a), PopularityScore(b)
		if pa == pb {
			return false, false
		}
		return (pa < pb) == asc, true
	default: // SortCreatedAt
		if a.CreatedAt.Equal(b.CreatedAt) {
			return false, false
		}
		return a.CreatedAt.Before(b.CreatedAt) == asc, true
	}
}

// matchesLocation reports whether any wanted substring occurs in the
// listing's location, case-insensitively. wanted entries are already
// lowercased by Compile.
func matchesLocation(location string, wanted []string) bool {
	loc := strings.ToLower(location)
	for _, w := range wanted {
		if w != "" && strings.Contains(loc, w) {
			return true
		}
	}
	return false
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsType(set []model.AdType, v model.AdType) bool {
	for _, t := range set {
		if t == v {
			return true
		}
	}
	return false
}
