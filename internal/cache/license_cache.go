// internal/cache/license_cache.go
package cache

import (
	"context"
	"encoding/json"
	"time"

	"licentra-service/internal/domain/license"

	"github.com/redis/go-redis/v9"
)

// LicenseCache is a read-through cache for the license catalog. The catalog
// is read-mostly, so a short TTL plus invalidation on admin writes keeps it
// consistent enough for pricing.
type LicenseCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLicenseCache(client *redis.Client, ttl time.Duration) *LicenseCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LicenseCache{client: client, ttl: ttl}
}

func cacheKey(licenseKey string) string {
	return "license:key:" + licenseKey
}

// Get returns the cached license, if present.
func (c *LicenseCache) Get(ctx context.Context, key string) (*license.License, bool) {
	raw, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		return nil, false
	}

	var l license.License
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, false
	}

	return &l, true
}

// Set stores the license under its key. Errors are swallowed; the cache is
// best-effort.
func (c *LicenseCache) Set(ctx context.Context, l *license.License) {
	raw, err := json.Marshal(l)
	if err != nil {
		return
	}
	c.client.Set(ctx, cacheKey(l.Key), raw, c.ttl)
}

// Invalidate drops the cached entry for a key.
func (c *LicenseCache) Invalidate(ctx context.Context, key string) {
	c.client.Del(ctx, cacheKey(key))
}
