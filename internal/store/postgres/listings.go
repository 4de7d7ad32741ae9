// Package postgres implements the store contracts over pgx.
//
// Expected schema (owned by the listing-management migrations):
//
//	listings(id, title, description, exchange_preferences, type,
//	         category_id, tag_ids text[], location, rating_avg,
//	         rating_count, views, application_count, is_active,
//	         is_archived, is_urgent, created_at, expires_at, owner_id,
//	         profile_id, search_text, search_dirty)
//	profiles(id, user_id, rating, languages text[], portfolio_size, is_active)
//	viewer_preferences(viewer_id, preferred_categories text[],
//	         preferred_types text[], preferred_tags text[],
//	         preferred_locations text[], min_rating, min_author_rating,
//	         exclude_inactive_users, exclude_low_rating_users, weights jsonb)
//	interactions(viewer_id, listing_id, type, category_id, ad_type,
//	         tag_ids text[], created_at)
//	categories(id, parent_id, name)
//	tags(id, name)
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wannasleep66/vibe-barter-sub001/internal/filter"
	"github.com/wannasleep66/vibe-barter-sub001/internal/model"
	"github.com/wannasleep66/vibe-barter-sub001/internal/store"
)

const listingColumns = `l.id, l.title, l.description, l.exchange_preferences, l.type,
	l.category_id, l.tag_ids, l.location, l.rating_avg, l.rating_count,
	l.views, l.application_count, l.is_active, l.is_archived, l.is_urgent,
	l.created_at, l.expires_at, l.owner_id, l.profile_id,
	COALESCE(l.search_text, ''), l.search_dirty`

// popularityExpr mirrors filter.PopularityScore.
const popularityExpr = `(0.4 * l.rating_avg + 0.3 * (ln(l.views + 1) / 10) +
	0.3 * (CASE WHEN l.is_urgent THEN 1 ELSE 0 END))`

// ListingStore executes compiled plans against the listings table.
type ListingStore struct {
	pool *pgxpool.Pool
}

// NewListingStore returns a ListingStore backed by pool.
func NewListingStore(pool *pgxpool.Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

// FindByPlan renders the plan to SQL and executes it. Listing-local plans
// run directly against listings; plans with cross-entity predicates join
// profiles twice — by owner_id for the author-rating bounds and by
// profile_id for the portfolio/language predicates. The total is computed
// with an equivalent counting query under the same predicates.
func (s *ListingStore) FindByPlan(ctx context.Context, plan *filter.Plan) ([]model.Listing, int, error) {
	q := newPlanQuery(plan)

	items, err := s.queryListings(ctx, q.selectSQL(), q.args)
	if err != nil {
		return nil, 0, fmt.Errorf("listing query: %w", err)
	}

	var total int
	if err := s.pool.QueryRow(ctx, q.countSQL(), q.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("listing count: %w", err)
	}
	return items, total, nil
}

// ByID returns a single listing or store.ErrNotFound.
func (s *ListingStore) ByID(ctx context.Context, id string) (*model.Listing, error) {
	rows, err := s.queryListings(ctx,
		`SELECT `+listingColumns+` FROM listings l WHERE l.id = $1`, []any{id})
	if err != nil {
		return nil, fmt.Errorf("listing by id: %w", err)
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return &rows[0], nil
}

// ResyncSearchBlobs rebuilds the denormalized search blob for every dirty
// listing in one statement and reports how many rows were repaired.
func (s *ListingStore) ResyncSearchBlobs(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE listings l
		 SET search_text = lower(concat_ws(' ',
		       l.title, l.description, l.exchange_preferences, l.location,
		       (SELECT string_agg(t.name, ' ') FROM tags t WHERE t.id = ANY(l.tag_ids)))),
		     search_dirty = false
		 WHERE l.search_dirty = true`)
	if err != nil {
		return 0, fmt.Errorf("resync search blobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *ListingStore) queryListings(ctx context.Context, sql string, args []any) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Listing, 0)
	for rows.Next() {
		var l model.Listing
		if err := rows.Scan(
			&l.ID, &l.Title, &l.Description, &l.ExchangePreferences, &l.Type,
			&l.CategoryID, &l.TagIDs, &l.Location, &l.Rating.Average, &l.Rating.Count,
			&l.Views, &l.ApplicationCount, &l.IsActive, &l.IsArchived, &l.IsUrgent,
			&l.CreatedAt, &l.ExpiresAt, &l.OwnerID, &l.ProfileID,
			&l.SearchText, &l.SearchDirty,
		); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

// ─── Plan rendering ──────────────────────────────────────────────────────────

// planQuery accumulates WHERE fragments with positional args while both the
// select and count statements are assembled from the same predicate set.
type planQuery struct {
	plan  *filter.Plan
	where []string
	args  []any
}

func newPlanQuery(plan *filter.Plan) *planQuery {
	q := &planQuery{plan: plan}

	if plan.IsActive != nil {
		q.add("l.is_active = %s", *plan.IsActive)
	}
	if plan.IsArchived != nil {
		q.add("l.is_archived = %s", *plan.IsArchived)
	}
	if len(plan.ExcludeListingIDs) > 0 {
		ids := make([]string, 0, len(plan.ExcludeListingIDs))
		for id := range plan.ExcludeListingIDs {
			ids = append(ids, id)
		}
		q.add("NOT (l.id = ANY(%s))", ids)
	}
	if len(plan.Types) > 0 {
		types := make([]string, len(plan.Types))
		for i, t := range plan.Types {
			types[i] = string(t)
		}
		q.add("l.type = ANY(%s)", types)
	}
	if len(plan.CategoryIDs) > 0 {
		q.add("l.category_id = ANY(%s)", plan.CategoryIDs)
	}
	if len(plan.TagIDs) > 0 {
		if plan.TagMode == filter.TagModeAll {
			q.add("l.tag_ids @> %s", plan.TagIDs)
		} else {
			q.add("l.tag_ids && %s", plan.TagIDs)
		}
	}
	if len(plan.Locations) > 0 {
		ors := make([]string, len(plan.Locations))
		for i, loc := range plan.Locations {
			ors[i] = fmt.Sprintf("l.location ILIKE %s", q.arg("%"+loc+"%"))
		}
		q.where = append(q.where, "("+strings.Join(ors, " OR ")+")")
	}
	if plan.AnyOf != nil {
		q.addAnyOf(plan.AnyOf)
	}
	if plan.Query != "" {
		pattern := q.arg("%" + plan.Query + "%")
		ors := make([]string, 0, 5)
		for _, col := range []string{"l.title", "l.description", "l.exchange_preferences", "l.location", "l.search_text"} {
			ors = append(ors, fmt.Sprintf("%s ILIKE %s", col, pattern))
		}
		q.where = append(q.where, "("+strings.Join(ors, " OR ")+")")
	}

	q.addRangeF("l.rating_avg", plan.MinRating, plan.MaxRating)
	q.addRangeI("l.views", plan.MinViews, plan.MaxViews)
	q.addRangeI("l.application_count", plan.MinApplications, plan.MaxApplications)
	if plan.CreatedAfter != nil {
		q.add("l.created_at >= %s", *plan.CreatedAfter)
	}
	if plan.CreatedBefore != nil {
		q.add("l.created_at <= %s", *plan.CreatedBefore)
	}
	if plan.ExpiresAfter != nil {
		q.add("l.expires_at >= %s", *plan.ExpiresAfter)
	}
	if plan.ExpiresBefore != nil {
		q.add("l.expires_at <= %s", *plan.ExpiresBefore)
	}

	// Joined predicates. op = profile owned by the listing's author,
	// pp = the profile the listing is published under.
	if plan.HasPortfolio != nil {
		q.add("(pp.portfolio_size > 0) = %s", *plan.HasPortfolio)
	}
	if len(plan.Languages) > 0 {
		q.add("pp.languages && %s", plan.Languages)
	}
	if plan.MinAuthorRating != nil {
		q.add("op.rating >= %s", *plan.MinAuthorRating)
	}
	if plan.MaxAuthorRating != nil {
		q.add("op.rating <= %s", *plan.MaxAuthorRating)
	}
	if plan.OwnerActive != nil {
		q.add("op.is_active = %s", *plan.OwnerActive)
	}

	return q
}

// addAnyOf renders the OR-combined preference group; skipped entirely when
// no member is populated.
func (q *planQuery) addAnyOf(a *filter.AnyOf) {
	var ors []string
	if len(a.CategoryIDs) > 0 {
		ors = append(ors, fmt.Sprintf("l.category_id = ANY(%s)", q.arg(a.CategoryIDs)))
	}
	if len(a.Types) > 0 {
		types := make([]string, len(a.Types))
		for i, t := range a.Types {
			types[i] = string(t)
		}
		ors = append(ors, fmt.Sprintf("l.type = ANY(%s)", q.arg(types)))
	}
	if len(a.TagIDs) > 0 {
		ors = append(ors, fmt.Sprintf("l.tag_ids && %s", q.arg(a.TagIDs)))
	}
	for _, loc := range a.Locations {
		ors = append(ors, fmt.Sprintf("l.location ILIKE %s", q.arg("%"+loc+"%")))
	}
	if len(ors) > 0 {
		q.where = append(q.where, "("+strings.Join(ors, " OR ")+")")
	}
}

// arg appends v and returns its placeholder.
func (q *planQuery) arg(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

// add appends a WHERE fragment whose single %s is replaced by v's placeholder.
func (q *planQuery) add(fragment string, v any) {
	q.where = append(q.where, fmt.Sprintf(fragment, q.arg(v)))
}

func (q *planQuery) addRangeF(col string, min, max *float64) {
	if min != nil {
		q.add(col+" >= %s", *min)
	}
	if max != nil {
		q.add(col+" <= %s", *max)
	}
}

func (q *planQuery) addRangeI(col string, min, max *int) {
	if min != nil {
		q.add(col+" >= %s", *min)
	}
	if max != nil {
		q.add(col+" <= %s", *max)
	}
}

func (q *planQuery) fromClause() string {
	from := "FROM listings l"
	if q.plan.NeedsJoin() {
		from += `
			LEFT JOIN profiles op ON op.user_id = l.owner_id
			LEFT JOIN profiles pp ON pp.id = l.profile_id`
	}
	return from
}

func (q *planQuery) whereClause() string {
	if len(q.where) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(q.where, " AND ")
}

func (q *planQuery) orderClause() string {
	var expr string
	switch q.plan.Sort.Field {
	case filter.SortViews:
		expr = "l.views"
	case filter.SortRating:
		expr = "l.rating_avg"
	case filter.SortApplicationCount:
		expr = "l.application_count"
	case filter.SortTitle:
		expr = "l.title"
	case filter.SortExpiresAt:
		expr = "l.expires_at"
	case filter.SortPopularity:
		expr = popularityExpr
	default:
		expr = "l.created_at"
	}
	dir := "ASC"
	if q.plan.Sort.Desc {
		dir = "DESC"
	}
	// l.id tie-break keeps ordering identical to the in-memory evaluator.
	return fmt.Sprintf("ORDER BY %s %s, l.id ASC", expr, dir)
}

func (q *planQuery) selectSQL() string {
	return fmt.Sprintf("SELECT %s %s %s %s LIMIT %d OFFSET %d",
		listingColumns, q.fromClause(), q.whereClause(), q.orderClause(),
		q.plan.Limit, q.plan.Offset())
}

func (q *planQuery) countSQL() string {
	return fmt.Sprintf("SELECT count(*) %s %s", q.fromClause(), q.whereClause())
}
