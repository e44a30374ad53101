package outbound

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Cache TTLs used by the pipeline.
const (
	DescribeCacheTTL = 5 * time.Minute
	MetadataCacheTTL = 10 * time.Minute
)

// APICache is a TTL bounded cache for remote API responses, keyed by strings
// composed of tenant id and target object name. Eviction is lazy (checked on
// access only, no background sweep) and failed fetches are never stored, so a
// transient error cannot poison the cache.
//
// Concurrent lookups of the same missing or expired key share a single
// upstream fetch.
type APICache struct {
	store *gocache.Cache
	group singleflight.Group
}

// NewAPICache returns an empty cache.
func NewAPICache() *APICache {
	// cleanup interval 0 disables the janitor; entries expire on access.
	return &APICache{store: gocache.New(gocache.NoExpiration, 0)}
}

// GetOrFetch returns the cached value for key if it is within its TTL,
// otherwise invokes fetch, stores a successful result under the given TTL,
// and returns it.
func (c *APICache) GetOrFetch(key string, ttl time.Duration, fetch func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.store.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A concurrent caller may have populated the key while this call
		// waited on the flight group.
		if v, ok := c.store.Get(key); ok {
			return v, nil
		}
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		c.store.Set(key, v, ttl)
		return v, nil
	})
	return v, err
}

// CachedFetch is a typed wrapper around APICache.GetOrFetch.
func CachedFetch[T any](c *APICache, key string, ttl time.Duration, fetch func() (T, error)) (T, error) {
	v, err := c.GetOrFetch(key, ttl, func() (interface{}, error) {
		return fetch()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected cached value of type %T for key %q", v, key)
	}
	return typed, nil
}

// DescribeCacheKey composes the cache key for an object schema describe.
func DescribeCacheKey(appID string, sObject string) string {
	return fmt.Sprintf("%s__%s", appID, sObject)
}

// MetadataCacheKey composes the cache key for a metadata listing.
func MetadataCacheKey(appID string) string {
	return fmt.Sprintf("meta_service_%s", appID)
}
