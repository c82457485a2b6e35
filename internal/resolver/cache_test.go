package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/adserve/internal/domain"
)

func TestCacheKey_CanonicalRegardlessOfOrder(t *testing.T) {
	a := CacheKey(map[domain.IdentifierType]string{
		domain.IdentifierDeviceID:  "d",
		domain.IdentifierEmailHash: "e",
	})
	b := CacheKey(map[domain.IdentifierType]string{
		domain.IdentifierEmailHash: "e",
		domain.IdentifierDeviceID:  "d",
	})
	assert.Equal(t, a, b)
	assert.Equal(t, "device_id:d|email_hash:e", a)
}

func TestCacheKey_SkipsEmptyValues(t *testing.T) {
	key := CacheKey(map[domain.IdentifierType]string{
		domain.IdentifierDeviceID:  "",
		domain.IdentifierEmailHash: "e",
	})
	assert.Equal(t, "email_hash:e", key)

	assert.Equal(t, "", CacheKey(nil))
	assert.Equal(t, "", CacheKey(map[domain.IdentifierType]string{domain.IdentifierDeviceID: ""}))
}

func TestCheckCache_HitAndExpiry(t *testing.T) {
	c := NewCheckCache(50*time.Millisecond, 10, false)

	c.Put("k", CachedResult{SuppressedAdvertisers: []string{"adv_a"}})
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, []string{"adv_a"}, got.SuppressedAdvertisers)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok, "expired entry must be a miss")

	hits, misses := c.Counters()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestCheckCache_EmptyResultsNotCached(t *testing.T) {
	c := NewCheckCache(time.Minute, 10, false)

	c.Put("empty", CachedResult{SuppressedAdvertisers: nil})
	_, ok := c.Get("empty")
	assert.False(t, ok, "no-match results are recomputed every time")
	assert.Equal(t, 0, c.Len())
}

func TestCheckCache_EmptyResultsCachedWhenEnabled(t *testing.T) {
	c := NewCheckCache(time.Minute, 10, true)

	c.Put("empty", CachedResult{SuppressedAdvertisers: []string{}})
	_, ok := c.Get("empty")
	assert.True(t, ok)
}

func TestCheckCache_SweepsExpiredAtCeiling(t *testing.T) {
	c := NewCheckCache(30*time.Millisecond, 3, false)

	c.Put("a", CachedResult{SuppressedAdvertisers: []string{"x"}})
	c.Put("b", CachedResult{SuppressedAdvertisers: []string{"x"}})
	c.Put("c", CachedResult{SuppressedAdvertisers: []string{"x"}})
	assert.Equal(t, 3, c.Len())

	time.Sleep(40 * time.Millisecond)

	// Next Put is over the ceiling and sweeps the three expired entries.
	c.Put("d", CachedResult{SuppressedAdvertisers: []string{"y"}})
	assert.Equal(t, 1, c.Len())

	_, ok := c.Get("d")
	assert.True(t, ok)
}
