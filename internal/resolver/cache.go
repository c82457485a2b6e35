package resolver

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ignite/adserve/internal/domain"
	"github.com/ignite/adserve/internal/metrics"
)

const cacheKeyDelimiter = "|"

// CachedResult is one memoized suppression outcome.
type CachedResult struct {
	SuppressedAdvertisers []string  `json:"suppressed_advertisers"`
	ListsChecked          int       `json:"lists_checked"`
	Details               []string  `json:"details,omitempty"`
	CachedAt              time.Time `json:"cached_at"`
}

// CheckCache memoizes suppression results per identifier combination. It is
// shared mutable state across every in-flight request; an RWMutex guards the
// map, hit/miss counters are atomics.
//
// Eviction is lazy and partial: once the entry count exceeds maxEntries, the
// next Put sweeps all expired entries in one pass. No LRU bookkeeping.
type CheckCache struct {
	mu         sync.RWMutex
	entries    map[string]CachedResult
	ttl        time.Duration
	maxEntries int

	// cacheEmpty keeps "not suppressed" results too. Off by default so
	// cache space goes to advertiser-relevant hits instead of the common
	// no-match case.
	cacheEmpty bool

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCheckCache creates a suppression check cache. Zero ttl or maxEntries
// fall back to the standard 5 minutes / 10,000 entries.
func NewCheckCache(ttl time.Duration, maxEntries int, cacheEmpty bool) *CheckCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &CheckCache{
		entries:    make(map[string]CachedResult),
		ttl:        ttl,
		maxEntries: maxEntries,
		cacheEmpty: cacheEmpty,
	}
}

// CacheKey canonicalizes a request's identifier set: non-empty type:value
// pairs sorted by type name and joined with a fixed delimiter, so unordered
// input always produces the same key. Empty when no identifiers are present.
func CacheKey(ids map[domain.IdentifierType]string) string {
	pairs := make([]string, 0, len(ids))
	for t, v := range ids {
		if v == "" {
			continue
		}
		pairs = append(pairs, string(t)+":"+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, cacheKeyDelimiter)
}

// Get returns the memoized result for key. Entries past their TTL are
// misses; they linger until the next over-ceiling sweep.
func (c *CheckCache) Get(key string) (CachedResult, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Since(entry.CachedAt) > c.ttl {
		c.misses.Add(1)
		metrics.CacheMissesTotal.Inc()
		return CachedResult{}, false
	}
	c.hits.Add(1)
	metrics.CacheHitsTotal.Inc()
	return entry, true
}

// Put stores a result under key. Results with no suppressed advertisers are
// skipped unless the cache was configured to keep them.
func (c *CheckCache) Put(key string, result CachedResult) {
	if key == "" {
		return
	}
	if len(result.SuppressedAdvertisers) == 0 && !c.cacheEmpty {
		return
	}
	if result.CachedAt.IsZero() {
		result.CachedAt = time.Now()
	}

	c.mu.Lock()
	if len(c.entries) >= c.maxEntries {
		c.sweepLocked()
	}
	c.entries[key] = result
	size := len(c.entries)
	c.mu.Unlock()

	metrics.CacheEntries.Set(float64(size))
}

// sweepLocked drops every expired entry in one pass. Caller holds the lock.
func (c *CheckCache) sweepLocked() {
	cutoff := time.Now().Add(-c.ttl)
	for k, e := range c.entries {
		if e.CachedAt.Before(cutoff) {
			delete(c.entries, k)
		}
	}
}

// Len returns the current entry count.
func (c *CheckCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Counters returns the hit/miss totals since process start.
func (c *CheckCache) Counters() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
