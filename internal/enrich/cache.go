package enrich

import (
	"context"
	"sync"
	"time"
)

// cacheEntry pairs a cached value with its expiry.
type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// ttlCache is a process-local cache with per-entry expiry. Callers construct
// and own their cache; nothing here is shared globally.
type ttlCache[V any] struct {
	mu      sync.Mutex
	entries map[string]cacheEntry[V]
	ttl     time.Duration
	now     func() time.Time
}

func newTTLCache[V any](ttl time.Duration) *ttlCache[V] {
	return &ttlCache[V]{
		entries: make(map[string]cacheEntry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *ttlCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return entry.value, true
}

func (c *ttlCache[V]) set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// CachedAnalyticsClient memoizes successful lookups, found or not, so a
// catalog that repeats an ASIN costs one provider call. Provider errors are
// never cached.
type CachedAnalyticsClient struct {
	inner AnalyticsClient
	cache *ttlCache[*MarketData]
}

// NewCachedAnalyticsClient wraps an analytics client with a TTL cache.
func NewCachedAnalyticsClient(inner AnalyticsClient, ttl time.Duration) *CachedAnalyticsClient {
	return &CachedAnalyticsClient{inner: inner, cache: newTTLCache[*MarketData](ttl)}
}

func (c *CachedAnalyticsClient) Lookup(ctx context.Context, asin string) (*MarketData, error) {
	if data, ok := c.cache.get(asin); ok {
		return data, nil
	}
	data, err := c.inner.Lookup(ctx, asin)
	if err != nil {
		return nil, err
	}
	c.cache.set(asin, data)
	return data, nil
}

type identityResult struct {
	asin  string
	found bool
}

// CachedIdentityClient memoizes barcode resolutions.
type CachedIdentityClient struct {
	inner IdentityClient
	cache *ttlCache[identityResult]
}

// NewCachedIdentityClient wraps an identity client with a TTL cache.
func NewCachedIdentityClient(inner IdentityClient, ttl time.Duration) *CachedIdentityClient {
	return &CachedIdentityClient{inner: inner, cache: newTTLCache[identityResult](ttl)}
}

func (c *CachedIdentityClient) ResolveUPC(ctx context.Context, upc string) (string, bool, error) {
	if result, ok := c.cache.get(upc); ok {
		return result.asin, result.found, nil
	}
	asin, found, err := c.inner.ResolveUPC(ctx, upc)
	if err != nil {
		return "", false, err
	}
	c.cache.set(upc, identityResult{asin: asin, found: found})
	return asin, found, nil
}
