package filter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wannasleep66/vibe-barter-sub001/internal/model"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// ValidationError wraps a user-facing message about malformed search
// parameters. It is returned before any store access happens.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// CategoryExpander resolves a category id to the set of its descendant ids
// (input id included). Implemented by category.Resolver.
type CategoryExpander interface {
	Descendants(ctx context.Context, categoryID string) ([]string, error)
}

// RawParams is the loosely-typed parameter set as handed over by the HTTP
// layer. Numeric, date and tri-state fields arrive as raw strings and are
// validated by Compile; empty string means "absent".
type RawParams struct {
	Query                string
	Type                 string
	CategoryIDs          []string
	IncludeSubcategories string // "", "true", "false"
	TagIDs               []string
	TagMode              string // "", "all", "any"
	Location             string

	MinRating       string
	MaxRating       string
	MinViews        string
	MaxViews        string
	MinApplications string
	MaxApplications string

	CreatedAfter  string
	CreatedBefore string
	ExpiresAfter  string
	ExpiresBefore string

	IsActive   string // "", "true", "false", "any"
	IsArchived string // "", "true", "false", "any"

	HasPortfolio    string // "", "true", "false"
	Languages       []string
	MinAuthorRating string
	MaxAuthorRating string

	SortBy    string // "", "createdAt", "expiresAt", "views", "rating", "applicationCount", "title"
	SortOrder string // "", "asc", "desc"
	Page      string
	Limit     string
}

// Compile validates raw and produces an executable Plan, expanding category
// ids to their descendant closure when subcategory inclusion is requested.
// All validation failures surface as *ValidationError before any retrieval
// runs; expander errors pass through unchanged.
func Compile(ctx context.Context, raw RawParams, expander CategoryExpander) (*Plan, error) {
	plan := &Plan{
		Query:  strings.ToLower(strings.TrimSpace(raw.Query)),
		TagIDs: raw.TagIDs,
	}
	if loc := strings.ToLower(strings.TrimSpace(raw.Location)); loc != "" {
		plan.Locations = []string{loc}
	}

	if raw.Type != "" {
		t, err := model.ParseAdType(raw.Type)
		if err != nil {
			return nil, validationf("invalid type: %v", err)
		}
		plan.Types = []model.AdType{t}
	}

	switch raw.TagMode {
	case "", string(TagModeAny):
		plan.TagMode = TagModeAny
	case string(TagModeAll):
		plan.TagMode = TagModeAll
	default:
		return nil, validationf("tagMode must be %q or %q, got %q", TagModeAll, TagModeAny, raw.TagMode)
	}

	var err error
	if plan.MinRating, err = parseFloat("minRating", raw.MinRating); err != nil {
		return nil, err
	}
	if plan.MaxRating, err = parseFloat("maxRating", raw.MaxRating); err != nil {
		return nil, err
	}
	if plan.MinAuthorRating, err = parseFloat("minAuthorRating", raw.MinAuthorRating); err != nil {
		return nil, err
	}
	if plan.MaxAuthorRating, err = parseFloat("maxAuthorRating", raw.MaxAuthorRating); err != nil {
		return nil, err
	}
	if plan.MinViews, err = parseInt("minViews", raw.MinViews); err != nil {
		return nil, err
	}
	if plan.MaxViews, err = parseInt("maxViews", raw.MaxViews); err != nil {
		return nil, err
	}
	if plan.MinApplications, err = parseInt("minApplications", raw.MinApplications); err != nil {
		return nil, err
	}
	if plan.MaxApplications, err = parseInt("maxApplications", raw.MaxApplications); err != nil {
		return nil, err
	}
	if plan.CreatedAfter, err = parseDate("createdAfter", raw.CreatedAfter); err != nil {
		return nil, err
	}
	if plan.CreatedBefore, err = parseDate("createdBefore", raw.CreatedBefore); err != nil {
		return nil, err
	}
	if plan.ExpiresAfter, err = parseDate("expiresAfter", raw.ExpiresAfter); err != nil {
		return nil, err
	}
	if plan.ExpiresBefore, err = parseDate("expiresBefore", raw.ExpiresBefore); err != nil {
		return nil, err
	}

	// Default discovery eligibility: active, non-archived. "any" lifts the
	// constraint explicitly.
	if plan.IsActive, err = parseTriState("isActive", raw.IsActive, boolPtr(true)); err != nil {
		return nil, err
	}
	if plan.IsArchived, err = parseTriState("isArchived", raw.IsArchived, boolPtr(false)); err != nil {
		return nil, err
	}
	if plan.HasPortfolio, err = parseTriState("hasPortfolio", raw.HasPortfolio, nil); err != nil {
		return nil, err
	}
	for _, lang := range raw.Languages {
		if lang = strings.TrimSpace(lang); lang != "" {
			plan.Languages = append(plan.Languages, lang)
		}
	}

	if err := compileSort(raw, plan); err != nil {
		return nil, err
	}
	if err := compilePaging(raw, plan); err != nil {
		return nil, err
	}
	if err := compileCategories(ctx, raw, plan, expander); err != nil {
		return nil, err
	}
	return plan, nil
}

func compileSort(raw RawParams, plan *Plan) error {
	switch SortField(raw.SortBy) {
	case "", SortCreatedAt:
		plan.Sort.Field = SortCreatedAt
	case SortExpiresAt, SortViews, SortRating, SortApplicationCount, SortTitle:
		plan.Sort.Field = SortField(raw.SortBy)
	default:
		return validationf("unknown sort field %q", raw.SortBy)
	}

	switch raw.SortOrder {
	case "", "desc":
		plan.Sort.Desc = true
	case "asc":
		plan.Sort.Desc = false
	default:
		return validationf("sortOrder must be \"asc\" or \"desc\", got %q", raw.SortOrder)
	}
	return nil
}

func compilePaging(raw RawParams, plan *Plan) error {
	plan.Page = 1
	if raw.Page != "" {
		v, err := strconv.Atoi(raw.Page)
		if err != nil || v < 1 {
			return validationf("page must be a positive integer, got %q", raw.Page)
		}
		plan.Page = v
	}

	plan.Limit = defaultLimit
	if raw.Limit != "" {
		v, err := strconv.Atoi(raw.Limit)
		if err != nil || v < 1 {
			return validationf("limit must be a positive integer, got %q", raw.Limit)
		}
		if v > maxLimit {
			v = maxLimit
		}
		plan.Limit = v
	}
	return nil
}

// compileCategories copies the requested category ids onto the plan,
// replacing them with the descendant closure when subcategory inclusion is
// on. Subcategory expansion alone stays listing-local: it only widens the
// category-id set.
func compileCategories(ctx context.Context, raw RawParams, plan *Plan, expander CategoryExpander) error {
	include := false
	switch raw.IncludeSubcategories {
	case "", "false":
	case "true":
		include = true
	default:
		return validationf("includeSubcategories must be \"true\" or \"false\", got %q", raw.IncludeSubcategories)
	}

	if !include || expander == nil {
		plan.CategoryIDs = raw.CategoryIDs
		return nil
	}

	seen := make(map[string]struct{})
	for _, id := range raw.CategoryIDs {
		descendants, err := expander.Descendants(ctx, id)
		if err != nil {
			return fmt.Errorf("expand category %s: %w", id, err)
		}
		for _, d := range descendants {
			if _, ok := seen[d]; !ok {
				seen[d] = struct{}{}
				plan.CategoryIDs = append(plan.CategoryIDs, d)
			}
		}
	}
	return nil
}

// ─── Field parsers ───────────────────────────────────────────────────────────

func parseFloat(name, raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, validationf("%s must be a number, got %q", name, raw)
	}
	return &v, nil
}

func parseInt(name, raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, validationf("%s must be an integer, got %q", name, raw)
	}
	return &v, nil
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	return nil, validationf("%s must be an RFC 3339 timestamp or YYYY-MM-DD date, got %q", name, raw)
}

func parseTriState(name, raw string, def *bool) (*bool, error) {
	switch raw {
	case "":
		return def, nil
	case "true":
		return boolPtr(true), nil
	case "false":
		return boolPtr(false), nil
	case "any":
		return nil, nil
	}
	return nil, validationf("%s must be \"true\", \"false\" or \"any\", got %q", name, raw)
}

func boolPtr(v bool) *bool { return &v }
