package filter_test

import (
	"strings"
	"testing"
	"time"

	"github.com/wannasleep66/vibe-barter-sub001/internal/filter"
	"github.com/wannasleep66/vibe-barter-sub001/internal/model"
)

func tagged(id string, tags ...string) model.Listing {
	return model.Listing{ID: id, TagIDs: tags, IsActive: true}
}

// ── Tag combination modes ──────────────────────────────────────────────────

func TestMatchesListing_TagAllMode(t *testing.T) {
	listing := tagged("l1", "A", "B", "C")

	cases := []struct {
		name string
		tags []string
		want bool
	}{
		{"subset matches", []string{"A", "B"}, true},
		{"full set matches", []string{"A", "B", "C"}, true},
		{"missing tag fails", []string{"A", "D"}, false},
		{"single present tag matches", []string{"C"}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			plan := &filter.Plan{TagIDs: c.tags, TagMode: filter.TagModeAll}
			if got := plan.MatchesListing(&listing); got != c.want {
				t.Errorf("ALL %v = %t, want %t", c.tags, got, c.want)
			}
		})
	}
}

func TestMatchesListing_TagAnyMode(t *testing.T) {
	listing := tagged("l1", "A", "B", "C")

	cases := []struct {
		name string
		tags []string
		want bool
	}{
		{"one overlap matches", []string{"D", "B"}, true},
		{"no overlap fails", []string{"D", "E"}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			plan := &filter.Plan{TagIDs: c.tags, TagMode: filter.TagModeAny}
			if got := plan.MatchesListing(&listing); got != c.want {
				t.Errorf("ANY %v = %t, want %t", c.tags, got, c.want)
			}
		})
	}
}

// ── Free-text query ────────────────────────────────────────────────────────

func TestMatchesListing_QueryFields(t *testing.T) {
	listing := model.Listing{
		ID:                  "l1",
		Title:               "Vintage Bicycle",
		Description:         "Great condition road bike",
		ExchangePreferences: "looking for guitar amps",
		Location:            "Lisbon, Portugal",
		SearchText:          "vintage bicycle great condition road bike looking for guitar amps lisbon portugal cycling",
	}

	cases := []struct {
		query string
		want  bool
	}{
		{"bicycle", true},      // title
		{"ROAD BIKE", true},    // description, case-insensitive
		{"guitar", true},       // exchange preferences
		{"portugal", true},     // location
		{"cycling", true},      // tag name via search blob
		{"motorcycle", false},  // nowhere
	}
	for _, c := range cases {
		// Compile lowercases queries; mirror that here.
		plan := &filter.Plan{Query: strings.ToLower(c.query)}
		if got := plan.MatchesListing(&listing); got != c.want {
			t.Errorf("query %q = %t, want %t", c.query, got, c.want)
		}
	}
}

// ── Ranges and flags ───────────────────────────────────────────────────────

func TestMatchesListing_Ranges(t *testing.T) {
	created := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	listing := model.Listing{
		ID:        "l1",
		Rating:    model.Rating{Average: 4.2},
		Views:     150,
		CreatedAt: created,
	}

	minRating, maxViews := 4.0, 200
	plan := &filter.Plan{MinRating: &minRating, MaxViews: &maxViews}
	if !plan.MatchesListing(&listing) {
		t.Error("listing inside all ranges should match")
	}

	tooHigh := 4.5
	plan = &filter.Plan{MinRating: &tooHigh}
	if plan.MatchesListing(&listing) {
		t.Error("rating 4.2 should fail minRating 4.5")
	}

	after := created.Add(24 * time.Hour)
	plan = &filter.Plan{CreatedAfter: &after}
	if plan.MatchesListing(&listing) {
		t.Error("listing created before the bound should fail createdAfter")
	}
}

func TestMatchesListing_ActivityFlags(t *testing.T) {
	archived := model.Listing{ID: "l1", IsActive: true, IsArchived: true}
	active, notArchived := true, false
	plan := &filter.Plan{IsActive: &active, IsArchived: &notArchived}
	if plan.MatchesListing(&archived) {
		t.Error("archived listing must fail default discovery eligibility")
	}

	anyPlan := &filter.Plan{}
	if !anyPlan.MatchesListing(&archived) {
		t.Error("plan without activity constraints should match archived listings")
	}
}

func TestMatchesListing_Exclusions(t *testing.T) {
	listing := tagged("seen")
	plan := &filter.Plan{ExcludeListingIDs: map[string]struct{}{"seen": {}}}
	if plan.MatchesListing(&listing) {
		t.Error("excluded listing id must not match")
	}
}

// ── Joined predicates ──────────────────────────────────────────────────────

func TestMatchesProfiles(t *testing.T) {
	hasPortfolio := true
	minAuthor := 4.0

	owner := &model.Profile{ID: "p-owner", UserID: "u1", Rating: 4.5, IsActive: true}
	prof := &model.Profile{ID: "p-listing", PortfolioSize: 3, Languages: []string{"en", "fr"}}

	plan := &filter.Plan{
		HasPortfolio:    &hasPortfolio,
		Languages:       []string{"FR"},
		MinAuthorRating: &minAuthor,
	}
	if !plan.MatchesProfiles(owner, prof) {
		t.Error("profiles satisfying every joined predicate should match")
	}

	lowOwner := &model.Profile{Rating: 3.0}
	if plan.MatchesProfiles(lowOwner, prof) {
		t.Error("author rating below minimum must fail")
	}

	if plan.MatchesProfiles(owner, nil) {
		t.Error("missing listing profile must fail portfolio/language predicates")
	}

	noPortfolio := false
	plan = &filter.Plan{HasPortfolio: &noPortfolio}
	if plan.MatchesProfiles(owner, prof) {
		t.Error("hasPortfolio=false must reject a profile with portfolio items")
	}
}

// ── Ordering ───────────────────────────────────────────────────────────────

func TestSortListings_DeterministicTieBreak(t *testing.T) {
	now := time.Now()
	ls := []model.Listing{
		{ID: "b", CreatedAt: now},
		{ID: "a", CreatedAt: now},
		{ID: "c", CreatedAt: now.Add(time.Hour)},
	}

	plan := &filter.Plan{Sort: filter.SortSpec{Field: filter.SortCreatedAt, Desc: true}}
	plan.SortListings(ls)

	got := []string{ls[0].ID, ls[1].ID, ls[2].ID}
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v (newest first, ties by id)", got, want)
		}
	}
}

func TestSortListings_Popularity(t *testing.T) {
	ls := []model.Listing{
		{ID: "quiet", Rating: model.Rating{Average: 1}, Views: 0},
		{ID: "urgent", Rating: model.Rating{Average: 1}, Views: 0, IsUrgent: true},
		{ID: "loved", Rating: model.Rating{Average: 5}, Views: 10000},
	}

	plan := &filter.Plan{Sort: filter.SortSpec{Field: filter.SortPopularity, Desc: true}}
	plan.SortListings(ls)

	if ls[0].ID != "loved" || ls[2].ID != "quiet" {
		t.Errorf("popularity order = [%s %s %s], want loved first, quiet last",
			ls[0].ID, ls[1].ID, ls[2].ID)
	}
}

func TestPopularityScore_UrgencyBoost(t *testing.T) {
	base := model.Listing{Rating: model.Rating{Average: 3}, Views: 100}
	urgent := base
	urgent.IsUrgent = true

	diff := filter.PopularityScore(&urgent) - filter.PopularityScore(&base)
	if diff < 0.299 || diff > 0.301 {
		t.Errorf("urgency boost = %f, want 0.3", diff)
	}
}
