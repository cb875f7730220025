package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cdm-corpus/corpus/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ driven.ResolutionCache = (*ResolutionCache)(nil)

const cacheKeyPrefix = "cdm-corpus:resolution:"

// ResolutionCache implements driven.ResolutionCache using Redis,
// grounded on adapters/driven/redis/session_store.go's key/TTL Get-Set
// shape, narrowed to this store's three-method contract.
type ResolutionCache struct {
	client *redis.Client
}

// NewResolutionCache creates a new Redis-backed ResolutionCache.
func NewResolutionCache(client *redis.Client) *ResolutionCache {
	return &ResolutionCache{client: client}
}

// Get implements driven.ResolutionCache.
func (c *ResolutionCache) Get(ctx context.Context, key string) (driven.CachedResolution, bool, error) {
	data, err := c.client.Get(ctx, cacheKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return driven.CachedResolution{}, false, nil
	}
	if err != nil {
		return driven.CachedResolution{}, false, fmt.Errorf("get resolution %s: %w", key, err)
	}

	var resolution driven.CachedResolution
	if err := json.Unmarshal(data, &resolution); err != nil {
		return driven.CachedResolution{}, false, fmt.Errorf("unmarshal resolution %s: %w", key, err)
	}
	return resolution, true, nil
}

// Set implements driven.ResolutionCache.
func (c *ResolutionCache) Set(ctx context.Context, key string, value driven.CachedResolution, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal resolution %s: %w", key, err)
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("set resolution %s: %w", key, err)
	}
	return nil
}

// Invalidate implements driven.ResolutionCache.
func (c *ResolutionCache) Invalidate(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, cacheKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("invalidate resolution %s: %w", key, err)
	}
	return nil
}
