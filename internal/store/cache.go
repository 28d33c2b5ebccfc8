package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/watizat/helpmap/internal/category"
	"github.com/watizat/helpmap/internal/model"
)

// CachedStore decorates a Store with an LRU cache of help-location lists
// keyed by category filter. Writes to help locations flush the cache.
type CachedStore struct {
	Store

	mu         sync.Mutex
	entries    map[string]*locationEntry
	order      []string // front=oldest, back=newest
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	hits       atomic.Int64
	misses     atomic.Int64
}

type locationEntry struct {
	locs      []model.HelpLocation
	createdAt time.Time
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewCachedStore wraps inner. maxEntries below 1 is raised to one slot per
// category plus the unfiltered list.
func NewCachedStore(inner Store, maxEntries int, ttl time.Duration) *CachedStore {
	if maxEntries < 1 {
		maxEntries = len(category.All()) + 1
	}
	return &CachedStore{
		Store:      inner,
		entries:    make(map[string]*locationEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

func filterKey(filter *category.Tag) string {
	if filter == nil {
		return "*"
	}
	return string(*filter)
}

// ListHelpLocations serves from cache when a fresh entry exists. Callers
// receive their own copy of the slice.
func (c *CachedStore) ListHelpLocations(ctx context.Context, filter *category.Tag) ([]model.HelpLocation, error) {
	key := filterKey(filter)
	if locs, ok := c.get(key); ok {
		return locs, nil
	}

	locs, err := c.Store.ListHelpLocations(ctx, filter)
	if err != nil {
		return nil, err
	}
	c.put(key, locs)
	return clone(locs), nil
}

// UpsertHelpLocations writes through and invalidates every cached list.
func (c *CachedStore) UpsertHelpLocations(ctx context.Context, locs []model.HelpLocation) (int64, error) {
	n, err := c.Store.UpsertHelpLocations(ctx, locs)
	c.Invalidate()
	return n, err
}

// Invalidate drops all entries.
func (c *CachedStore) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*locationEntry)
	c.order = nil
}

// Stats returns cache performance statistics.
func (c *CachedStore) Stats() CacheStats {
	c.mu.Lock()
	entries := len(c.entries)
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return CacheStats{
		Entries:    entries,
		MaxEntries: c.maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}

func (c *CachedStore) get(key string) ([]model.HelpLocation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.createdAt) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.misses.Add(1)
		return nil, false
	}

	c.removeFromOrder(key)
	c.order = append(c.order, key)
	c.hits.Add(1)
	return clone(entry.locs), true
}

func (c *CachedStore) put(key string, locs []model.HelpLocation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.removeFromOrder(key)
	} else {
		for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
	}
	c.entries[key] = &locationEntry{locs: clone(locs), createdAt: c.now()}
	c.order = append(c.order, key)
}

func (c *CachedStore) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func clone(locs []model.HelpLocation) []model.HelpLocation {
	if locs == nil {
		return nil
	}
	out := make([]model.HelpLocation, len(locs))
	copy(out, locs)
	return out
}
