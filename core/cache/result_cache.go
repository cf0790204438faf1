package cache

import (
	"context"
	"strings"
	"time"

	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/os/gcache"
)

const resultCacheKeyPrefix = "genresult:"

// ResultCache stores rendered generation results keyed by the full request
// shape. Entries expire on their own TTL; expired entries are simply misses.
type ResultCache struct {
	store *gcache.Cache
}

// NewResultCache creates an in-process result cache
func NewResultCache() *ResultCache {
	return &ResultCache{store: gcache.New()}
}

// Key builds a deterministic cache key from the task name and the request
// fields. Callers must pass fields in a fixed order so the same request
// always maps to the same key.
func Key(task string, parts ...string) string {
	elems := make([]string, 0, len(parts)+1)
	elems = append(elems, task)
	elems = append(elems, parts...)
	return resultCacheKeyPrefix + strings.Join(elems, "|")
}

// Get returns the cached value for key, reporting whether it was present
// and not yet expired.
func (c *ResultCache) Get(ctx context.Context, key string) (string, bool) {
	value, err := c.store.Get(ctx, key)
	if err != nil {
		g.Log().Warningf(ctx, "Failed to read result cache: %v", err)
		return "", false
	}
	if value == nil || value.IsNil() {
		return "", false
	}
	return value.String(), true
}

// Set stores value under key for ttl. A non-positive ttl disables caching
// for this entry.
func (c *ResultCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := c.store.Set(ctx, key, value, ttl); err != nil {
		g.Log().Warningf(ctx, "Failed to write result cache: %v", err)
	}
}

// Invalidate removes a single entry
func (c *ResultCache) Invalidate(ctx context.Context, key string) {
	if _, err := c.store.Remove(ctx, key); err != nil {
		g.Log().Warningf(ctx, "Failed to invalidate result cache: %v", err)
	}
}

// Clear drops every entry
func (c *ResultCache) Clear(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		g.Log().Warningf(ctx, "Failed to clear result cache: %v", err)
	}
}
