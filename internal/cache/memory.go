package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/wannasleep66/vibe-barter-sub001/internal/rank"
)

type memoryEntry struct {
	value     *rank.Result
	expiresAt time.Time
}

// MemoryCache is an in-process ResultCache with lazy TTL expiry, used by
// tests (with an injected clock) and by the memory store driver. Safe for
// concurrent use.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache returns an empty MemoryCache. now is injectable for
// deterministic expiry tests and defaults to time.Now.
func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

// Get returns the cached page for key, dropping the entry when its TTL has
// lapsed. Expiry is checked on read; there is no background sweep.
func (c *MemoryCache) Get(_ context.Context, key Key) (*rank.Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key.String()
	entry, ok := c.entries[k]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, k)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores the page for the TTL window, DefaultTTL if unset.
func (c *MemoryCache) Set(_ context.Context, key Key, value *rank.Result, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.String()] = memoryEntry{value: value, expiresAt: c.now().Add(ttl)}
	return nil
}

// InvalidateViewer drops every entry under the viewer's key prefix.
func (c *MemoryCache) InvalidateViewer(_ context.Context, viewerID string) error {
	prefix := viewerPrefix(viewerID)
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}
