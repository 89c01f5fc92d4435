package aggregate

import (
	"sync"
	"time"

	"github.com/AustinWheel/diving-duck-sub000/internal/metrics"
	"github.com/AustinWheel/diving-duck-sub000/internal/models"
)

// rangeCache memoizes fetched event ranges for a fixed TTL. It is
// process-local and time-bounded only: expired entries are swept
// opportunistically on writes, not by a background timer, so staleness
// is bounded by the TTL and nothing else.
type rangeCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]rangeEntry
}

type rangeEntry struct {
	events    []*models.Event
	expiresAt time.Time
}

func newRangeCache(ttl time.Duration) *rangeCache {
	return &rangeCache{
		ttl:     ttl,
		entries: make(map[string]rangeEntry),
	}
}

// get returns the cached range for key if it has not expired.
func (c *rangeCache) get(key string, now time.Time) ([]*models.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || now.After(entry.expiresAt) {
		metrics.AggregateCacheMisses.Inc()
		return nil, false
	}
	metrics.AggregateCacheHits.Inc()
	return entry.events, true
}

// put stores a range and sweeps any expired entries while holding the
// lock. Sweeping on the write path keeps the map from growing without
// bound between queries.
func (c *rangeCache) put(key string, events []*models.Event, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = rangeEntry{events: events, expiresAt: now.Add(c.ttl)}
}

// len reports the live entry count. Used by tests.
func (c *rangeCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
