package orchestrator

import (
	"sync"
	"time"

	"github.com/data-steve/rowcol-sub001/internal/telemetry"
)

// CacheConfig holds the TTLs for each caching strategy.
type CacheConfig struct {
	DataFetchTTL time.Duration
	OnDemandTTL  time.Duration
	ScheduledTTL time.Duration
}

type cacheEntry struct {
	value     any
	err       error
	expiresAt time.Time
	staleAt   time.Time
}

// cache is a shared result cache guarded by one map-wide RWMutex. Grounded
// on the pack's stale-while-revalidate cache: entries serve fresh until
// expiresAt, stale (while a background refresh races ahead) until staleAt,
// then read as a miss; an expired entry stays in the map until it is
// overwritten or cleared.
type cache struct {
	mu    sync.RWMutex
	items map[string]*cacheEntry
}

func newCache() *cache {
	return &cache{items: make(map[string]*cacheEntry)}
}

// get returns a cached value and whether it is still fresh, stale, or
// altogether absent.
func (c *cache) get(key string, now time.Time) (value any, err error, fresh, stale bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok {
		telemetry.CacheHitsTotal.WithLabelValues("miss").Inc()
		return nil, nil, false, false
	}
	if now.Before(e.expiresAt) {
		telemetry.CacheHitsTotal.WithLabelValues("hit").Inc()
		return e.value, e.err, true, false
	}
	if now.Before(e.staleAt) {
		telemetry.CacheHitsTotal.WithLabelValues("stale_hit").Inc()
		return e.value, e.err, false, true
	}
	telemetry.CacheHitsTotal.WithLabelValues("miss").Inc()
	return nil, nil, false, false
}

func (c *cache) set(key string, value any, err error, ttl, stale time.Duration) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &cacheEntry{
		value:     value,
		err:       err,
		expiresAt: now.Add(ttl),
		staleAt:   now.Add(ttl + stale),
	}
}

func (c *cache) clear(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prefix == "" {
		c.items = make(map[string]*cacheEntry)
		return
	}
	for k := range c.items {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.items, k)
		}
	}
}

// stats reports the current entry count, used by the cache-control surface.
func (c *cache) stats() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
