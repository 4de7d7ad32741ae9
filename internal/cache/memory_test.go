package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/wannasleep66/vibe-barter-sub001/internal/cache"
	"github.com/wannasleep66/vibe-barter-sub001/internal/model"
	"github.com/wannasleep66/vibe-barter-sub001/internal/rank"
)

func page(ids ...string) *rank.Result {
	items := make([]model.RankedResult, len(ids))
	for i, id := range ids {
		items[i] = model.RankedResult{Listing: model.Listing{ID: id}, RelevanceScore: 0.5}
	}
	return &rank.Result{
		Items:        items,
		Pagination:   model.NewPagination(1, len(ids), len(ids)),
		Personalized: true,
	}
}

// fakeClock lets tests move time forward explicitly.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockCache() (*cache.MemoryCache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return cache.NewMemoryCache(clock.now), clock
}

// ── Get / Set ──────────────────────────────────────────────────────────────

func TestMemoryCache_MissThenHit(t *testing.T) {
	c, _ := newClockCache()
	ctx := context.Background()
	key := cache.Key{ViewerID: "v1", Page: 1, Limit: 10, MinScore: 0.1}

	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Fatalf("Get on empty cache = (ok=%t, err=%v), want miss", ok, err)
	}

	stored := page("a", "b")
	if err := c.Set(ctx, key, stored, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Get after Set = (ok=%t, err=%v), want hit", ok, err)
	}
	if len(got.Items) != 2 || got.Items[0].Listing.ID != "a" {
		t.Errorf("cached page = %+v, want the stored page", got)
	}
}

func TestMemoryCache_KeyTupleIsExact(t *testing.T) {
	c, _ := newClockCache()
	ctx := context.Background()

	base := cache.Key{ViewerID: "v1", Page: 1, Limit: 10, MinScore: 0.1}
	if err := c.Set(ctx, base, page("a"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	variants := []cache.Key{
		{ViewerID: "v2", Page: 1, Limit: 10, MinScore: 0.1},
		{ViewerID: "v1", Page: 2, Limit: 10, MinScore: 0.1},
		{ViewerID: "v1", Page: 1, Limit: 20, MinScore: 0.1},
		{ViewerID: "v1", Page: 1, Limit: 10, MinScore: 0.5},
		{ViewerID: "v1", Page: 1, Limit: 10, MinScore: 0.1, ExcludeInteracted: true},
	}
	for _, k := range variants {
		if _, ok, _ := c.Get(ctx, k); ok {
			t.Errorf("key %+v unexpectedly hit the entry for %+v", k, base)
		}
	}
}

// ── TTL expiry ─────────────────────────────────────────────────────────────

func TestMemoryCache_ExpiresLazily(t *testing.T) {
	c, clock := newClockCache()
	ctx := context.Background()
	key := cache.Key{ViewerID: "v1", Page: 1, Limit: 10, MinScore: 0.1}

	if err := c.Set(ctx, key, page("a"), 10*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	clock.advance(9 * time.Minute)
	if _, ok, _ := c.Get(ctx, key); !ok {
		t.Fatal("entry expired before its TTL")
	}

	clock.advance(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, key); ok {
		t.Fatal("entry survived past its TTL")
	}
}

func TestMemoryCache_DefaultTTL(t *testing.T) {
	c, clock := newClockCache()
	ctx := context.Background()
	key := cache.Key{ViewerID: "v1", Page: 1, Limit: 10, MinScore: 0.1}

	if err := c.Set(ctx, key, page("a"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	clock.advance(cache.DefaultTTL - time.Second)
	if _, ok, _ := c.Get(ctx, key); !ok {
		t.Fatal("entry expired before the default TTL")
	}
	clock.advance(2 * time.Second)
	if _, ok, _ := c.Get(ctx, key); ok {
		t.Fatal("entry survived past the default TTL")
	}
}

// ── Invalidation ───────────────────────────────────────────────────────────

func TestMemoryCache_InvalidateViewerScopesToPrefix(t *testing.T) {
	c, _ := newClockCache()
	ctx := context.Background()

	v1a := cache.Key{ViewerID: "v1", Page: 1, Limit: 10, MinScore: 0.1}
	v1b := cache.Key{ViewerID: "v1", Page: 2, Limit: 10, MinScore: 0.1}
	v2 := cache.Key{ViewerID: "v2", Page: 1, Limit: 10, MinScore: 0.1}

	for _, k := range []cache.Key{v1a, v1b, v2} {
		if err := c.Set(ctx, k, page("x"), time.Minute); err != nil {
			t.Fatalf("Set(%+v): %v", k, err)
		}
	}

	if err := c.InvalidateViewer(ctx, "v1"); err != nil {
		t.Fatalf("InvalidateViewer: %v", err)
	}

	if _, ok, _ := c.Get(ctx, v1a); ok {
		t.Error("v1 page 1 should be gone after invalidation")
	}
	if _, ok, _ := c.Get(ctx, v1b); ok {
		t.Error("v1 page 2 should be gone after invalidation")
	}
	if _, ok, _ := c.Get(ctx, v2); !ok {
		t.Error("v2's entry must survive v1's invalidation")
	}
}
