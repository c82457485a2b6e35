// Package resolver turns a request's identifier set into a merged
// suppression decision: cache first, then one indexed store lookup per
// identifier type, unioned into a single suppressed-advertiser set.
package resolver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ignite/adserve/internal/domain"
	"github.com/ignite/adserve/internal/metrics"
	"github.com/ignite/adserve/internal/pkg/logger"
	"github.com/ignite/adserve/internal/service/suppression"
)

// Lookup is the slice of the index store the resolver needs.
type Lookup interface {
	FindAdvertisersForIdentifier(ctx context.Context, identifier string, t domain.IdentifierType) (*domain.IdentifierLookup, error)
}

// Resolver orchestrates per-identifier-type suppression lookups. Safe for
// concurrent use; the cache and the stats block are the only shared state.
type Resolver struct {
	store Lookup
	cache *CheckCache

	mu       sync.Mutex
	requests int64
	avgMs    float64
}

// New creates a resolver over the given store and cache.
func New(store Lookup, cache *CheckCache) *Resolver {
	return &Resolver{store: store, cache: cache}
}

// Resolve merges suppression lookups for every recognized, non-empty
// identifier in the request into one result.
//
// A lookup failure for a single identifier type is downgraded to a
// diagnostic line so the remaining types still get checked. Only total
// failure (every attempted lookup errored) returns ErrStoreUnavailable,
// which the orchestrator turns into fallback mode.
func (r *Resolver) Resolve(ctx context.Context, ids map[domain.IdentifierType]string) (domain.SuppressionResult, error) {
	start := time.Now()
	metrics.SuppressionChecksTotal.Inc()

	result := domain.SuppressionResult{SuppressedAdvertisers: []string{}}
	key := CacheKey(ids)
	if key == "" {
		result.Details = append(result.Details, "no identifiers present; nothing to check")
		r.observe(start, &result)
		return result, nil
	}

	if cached, ok := r.cache.Get(key); ok {
		result.SuppressedAdvertisers = append(result.SuppressedAdvertisers, cached.SuppressedAdvertisers...)
		result.ListsChecked = cached.ListsChecked
		result.Details = append(result.Details, cached.Details...)
		result.Details = append(result.Details, "served from cache")
		r.observe(start, &result)
		return result, nil
	}

	seen := make(map[string]bool)
	attempted, failed := 0, 0
	var lastErr error
	for _, t := range domain.KnownIdentifierTypes() {
		value, ok := ids[t]
		if !ok || value == "" {
			continue
		}
		attempted++

		lookup, err := r.store.FindAdvertisersForIdentifier(ctx, value, t)
		if err != nil {
			failed++
			lastErr = err
			result.Details = append(result.Details, fmt.Sprintf("%s lookup failed: %v", t, err))
			logger.Warn("identifier lookup failed", "identifier_type", string(t), "error", err)
			continue
		}

		result.ListsChecked += lookup.MatchCount
		result.Details = append(result.Details, fmt.Sprintf("%s: %d matching rows", t, lookup.MatchCount))
		result.Details = append(result.Details, lookup.Details...)
		for _, adv := range lookup.Advertisers {
			if !seen[adv] {
				seen[adv] = true
				result.SuppressedAdvertisers = append(result.SuppressedAdvertisers, adv)
			}
		}
	}

	if attempted > 0 && failed == attempted {
		r.observe(start, &result)
		return result, fmt.Errorf("%w: all %d identifier lookups failed: %v", suppression.ErrStoreUnavailable, attempted, lastErr)
	}

	if len(result.SuppressedAdvertisers) > 0 {
		metrics.SuppressionHitsTotal.Inc()
	}
	r.cache.Put(key, CachedResult{
		SuppressedAdvertisers: result.SuppressedAdvertisers,
		ListsChecked:          result.ListsChecked,
		Details:               result.Details,
		CachedAt:              time.Now(),
	})

	r.observe(start, &result)
	return result, nil
}

// observe stamps the processing time on the result and folds it into the
// running average: avg = (avg*(n-1) + new) / n. No history retained.
func (r *Resolver) observe(start time.Time, result *domain.SuppressionResult) {
	elapsed := time.Since(start)
	result.ProcessingTimeMs = float64(elapsed.Microseconds()) / 1000.0
	metrics.ResolveDuration.Observe(elapsed.Seconds())

	r.mu.Lock()
	r.requests++
	r.avgMs = (r.avgMs*float64(r.requests-1) + result.ProcessingTimeMs) / float64(r.requests)
	r.mu.Unlock()
}

// Stats is the observability snapshot exposed by the stats endpoint.
type Stats struct {
	Requests     int64   `json:"requests"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	CacheHits    uint64  `json:"cache_hits"`
	CacheMisses  uint64  `json:"cache_misses"`
	CacheEntries int     `json:"cache_entries"`
}

// Stats returns current counters. Plain values, not a telemetry stream.
func (r *Resolver) Stats() Stats {
	r.mu.Lock()
	requests, avg := r.requests, r.avgMs
	r.mu.Unlock()

	hits, misses := r.cache.Counters()
	return Stats{
		Requests:     requests,
		AvgLatencyMs: avg,
		CacheHits:    hits,
		CacheMisses:  misses,
		CacheEntries: r.cache.Len(),
	}
}
