// Package cache memoizes ranking engine output per request tuple.
//
// The cache is the only shared mutable state in the engine; both backends
// are safe under concurrent use, and last write for a given key wins.
// Staleness within the TTL is intentional — invalidation happens wholesale
// per viewer when that viewer's preferences change.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/wannasleep66/vibe-barter-sub001/internal/rank"
)

// DefaultTTL is applied when no TTL is configured.
const DefaultTTL = 600 * time.Second

// Key identifies one cached recommendation page. Any field difference is a
// different key; there is no partial invalidation by parameter subset.
type Key struct {
	ViewerID          string
	Page              int
	Limit             int
	MinScore          float64
	ExcludeInteracted bool
}

// String renders the key under the viewer's prefix so InvalidateViewer can
// match every entry belonging to one viewer.
func (k Key) String() string {
	return fmt.Sprintf("%s%g:%d:%d:%t", viewerPrefix(k.ViewerID), k.MinScore, k.Page, k.Limit, k.ExcludeInteracted)
}

func viewerPrefix(viewerID string) string {
	return "rec:" + viewerID + ":"
}

// ResultCache stores ranked pages for the TTL window.
//
// Get returns (nil, false, nil) on miss. Implementations never treat a
// backend fault as fatal for the caller's request — the service degrades to
// an uncached computation.
type ResultCache interface {
	Get(ctx context.Context, key Key) (*rank.Result, bool, error)
	Set(ctx context.Context, key Key, value *rank.Result, ttl time.Duration) error

	// InvalidateViewer drops every entry whose key belongs to viewerID.
	// Must be called synchronously by the preference-update path before it
	// reports success.
	InvalidateViewer(ctx context.Context, viewerID string) error
}
