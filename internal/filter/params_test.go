package filter_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/wannasleep66/vibe-barter-sub001/internal/filter"
	"github.com/wannasleep66/vibe-barter-sub001/internal/model"
)

// fakeExpander returns a fixed closure per category id.
type fakeExpander struct {
	closures map[string][]string
	err      error
}

func (f *fakeExpander) Descendants(_ context.Context, id string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if c, ok := f.closures[id]; ok {
		return c, nil
	}
	return []string{id}, nil
}

// ── Validation failures ────────────────────────────────────────────────────

func TestCompile_RejectsMalformedParams(t *testing.T) {
	cases := []struct {
		name string
		raw  filter.RawParams
	}{
		{"bad minRating", filter.RawParams{MinRating: "high"}},
		{"bad maxRating", filter.RawParams{MaxRating: "4,5"}},
		{"bad minViews", filter.RawParams{MinViews: "ten"}},
		{"bad minApplications", filter.RawParams{MinApplications: "3.5"}},
		{"bad createdAfter", filter.RawParams{CreatedAfter: "yesterday"}},
		{"bad expiresBefore", filter.RawParams{ExpiresBefore: "2024-13-45"}},
		{"bad type", filter.RawParams{Type: "barter"}},
		{"bad tagMode", filter.RawParams{TagMode: "some"}},
		{"bad isActive", filter.RawParams{IsActive: "yes"}},
		{"bad hasPortfolio", filter.RawParams{HasPortfolio: "maybe"}},
		{"bad includeSubcategories", filter.RawParams{IncludeSubcategories: "any"}},
		{"bad page", filter.RawParams{Page: "0"}},
		{"bad limit", filter.RawParams{Limit: "-5"}},
		{"bad sort field", filter.RawParams{SortBy: "relevance"}},
		{"bad sort order", filter.RawParams{SortOrder: "descending"}},
		{"bad minAuthorRating", filter.RawParams{MinAuthorRating: "n/a"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := filter.Compile(context.Background(), c.raw, nil)
			if err == nil {
				t.Fatalf("Compile(%+v) expected validation error, got nil", c.raw)
			}
			var vErr *filter.ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("Compile(%+v) error = %v, want *ValidationError", c.raw, err)
			}
		})
	}
}

// ── Defaults ───────────────────────────────────────────────────────────────

func TestCompile_Defaults(t *testing.T) {
	plan, err := filter.Compile(context.Background(), filter.RawParams{}, nil)
	if err != nil {
		t.Fatalf("Compile(empty) unexpected error: %v", err)
	}

	if plan.IsActive == nil || !*plan.IsActive {
		t.Error("default plan should require isActive = true")
	}
	if plan.IsArchived == nil || *plan.IsArchived {
		t.Error("default plan should require isArchived = false")
	}
	if plan.HasPortfolio != nil {
		t.Error("default plan should leave hasPortfolio unconstrained")
	}
	if plan.Page != 1 || plan.Limit != 20 {
		t.Errorf("default paging = (%d, %d), want (1, 20)", plan.Page, plan.Limit)
	}
	if plan.Sort.Field != filter.SortCreatedAt || !plan.Sort.Desc {
		t.Errorf("default sort = %+v, want createdAt desc", plan.Sort)
	}
	if plan.TagMode != filter.TagModeAny {
		t.Errorf("default tag mode = %q, want %q", plan.TagMode, filter.TagModeAny)
	}
	if plan.NeedsJoin() {
		t.Error("default plan must not need a join")
	}
}

func TestCompile_AnyLiftsActivityConstraints(t *testing.T) {
	plan, err := filter.Compile(context.Background(),
		filter.RawParams{IsActive: "any", IsArchived: "any"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.IsActive != nil || plan.IsArchived != nil {
		t.Error("\"any\" should clear both activity constraints")
	}
}

func TestCompile_LimitCap(t *testing.T) {
	plan, err := filter.Compile(context.Background(), filter.RawParams{Limit: "500"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Limit != 100 {
		t.Errorf("limit = %d, want capped at 100", plan.Limit)
	}
}

// ── Typed predicates ───────────────────────────────────────────────────────

func TestCompile_TypedFields(t *testing.T) {
	raw := filter.RawParams{
		Query:           " Guitar LESSONS ",
		Type:            "service",
		Location:        "Berlin",
		MinRating:       "3.5",
		MaxViews:        "1000",
		CreatedAfter:    "2024-06-01",
		HasPortfolio:    "true",
		Languages:       []string{"en", " de "},
		MinAuthorRating: "4",
		SortBy:          "views",
		SortOrder:       "asc",
		Page:            "3",
		Limit:           "10",
	}

	plan, err := filter.Compile(context.Background(), raw, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if plan.Query != "guitar lessons" {
		t.Errorf("query = %q, want lowercased trimmed", plan.Query)
	}
	if len(plan.Types) != 1 || plan.Types[0] != model.AdTypeService {
		t.Errorf("types = %v, want [service]", plan.Types)
	}
	if len(plan.Locations) != 1 || plan.Locations[0] != "berlin" {
		t.Errorf("locations = %v, want [berlin]", plan.Locations)
	}
	if plan.MinRating == nil || *plan.MinRating != 3.5 {
		t.Errorf("minRating = %v, want 3.5", plan.MinRating)
	}
	if plan.MaxViews == nil || *plan.MaxViews != 1000 {
		t.Errorf("maxViews = %v, want 1000", plan.MaxViews)
	}
	if plan.CreatedAfter == nil || plan.CreatedAfter.Year() != 2024 {
		t.Errorf("createdAfter = %v, want parsed 2024 date", plan.CreatedAfter)
	}
	if plan.HasPortfolio == nil || !*plan.HasPortfolio {
		t.Error("hasPortfolio should be true")
	}
	if len(plan.Languages) != 2 || plan.Languages[1] != "de" {
		t.Errorf("languages = %v, want trimmed [en de]", plan.Languages)
	}
	if !plan.NeedsJoin() {
		t.Error("plan with portfolio/language/author predicates must need a join")
	}
	if plan.Sort.Field != filter.SortViews || plan.Sort.Desc {
		t.Errorf("sort = %+v, want views asc", plan.Sort)
	}
	if plan.Page != 3 || plan.Limit != 10 || plan.Offset() != 20 {
		t.Errorf("paging = (%d, %d, offset %d), want (3, 10, 20)", plan.Page, plan.Limit, plan.Offset())
	}
}

// ── Subcategory expansion ──────────────────────────────────────────────────

func TestCompile_SubcategoryExpansion(t *testing.T) {
	expander := &fakeExpander{closures: map[string][]string{
		"crafts": {"crafts", "woodwork", "pottery"},
	}}

	plan, err := filter.Compile(context.Background(), filter.RawParams{
		CategoryIDs:          []string{"crafts"},
		IncludeSubcategories: "true",
	}, expander)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.CategoryIDs) != 3 {
		t.Fatalf("categories = %v, want closure of 3", plan.CategoryIDs)
	}
	// Expansion alone stays listing-local.
	if plan.NeedsJoin() {
		t.Error("subcategory expansion must not force joined mode")
	}
}

func TestCompile_SubcategoryExpansionDeduplicates(t *testing.T) {
	expander := &fakeExpander{closures: map[string][]string{
		"a": {"a", "shared"},
		"b": {"b", "shared"},
	}}

	plan, err := filter.Compile(context.Background(), filter.RawParams{
		CategoryIDs:          []string{"a", "b"},
		IncludeSubcategories: "true",
	}, expander)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.CategoryIDs) != 3 {
		t.Errorf("categories = %v, want deduplicated [a shared b]", plan.CategoryIDs)
	}
}

func TestCompile_WithoutExpansionKeepsCategories(t *testing.T) {
	plan, err := filter.Compile(context.Background(), filter.RawParams{
		CategoryIDs: []string{"crafts"},
	}, &fakeExpander{closures: map[string][]string{"crafts": {"crafts", "woodwork"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.CategoryIDs) != 1 {
		t.Errorf("categories = %v, want [crafts] untouched", plan.CategoryIDs)
	}
}

func TestCompile_ExpanderErrorPropagates(t *testing.T) {
	_, err := filter.Compile(context.Background(), filter.RawParams{
		CategoryIDs:          []string{"crafts"},
		IncludeSubcategories: "true",
	}, &fakeExpander{err: fmt.Errorf("store down")})
	if err == nil {
		t.Fatal("expected expander error to propagate")
	}
	var vErr *filter.ValidationError
	if errors.As(err, &vErr) {
		t.Error("expander failure must not surface as a validation error")
	}
}
