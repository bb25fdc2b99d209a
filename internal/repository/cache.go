package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/pkg/cache"
	"github.com/graphwarehouse/engine/pkg/logger"
	"go.uber.org/zap"
)

func metatypeCacheKey(id uuid.UUID) string      { return "metatypes:" + id.String() }
func metatypeKeysCacheKey(id uuid.UUID) string  { return "metatypes:" + id.String() + ":keys" }
func metatypePairsCacheKey(id uuid.UUID) string { return "metatypes:" + id.String() + ":pairs" }
func relationshipCacheKey(id uuid.UUID) string  { return "metatype_relationships:" + id.String() }
func pairCacheKey(id uuid.UUID) string          { return "metatype_relationship_pairs:" + id.String() }

// metatypeFamily lists every cache entry derived from the given metatypes.
func metatypeFamily(ids ...uuid.UUID) []string {
	out := make([]string, 0, 3*len(ids))
	for _, id := range ids {
		out = append(out, metatypeCacheKey(id), metatypeKeysCacheKey(id), metatypePairsCacheKey(id))
	}
	return out
}

// Cached wraps the cache collaborator with the repositories' best-effort
// policy: read errors are misses and write or delete errors are logged.
type Cached struct {
	cache cache.Cache
	ttl   time.Duration
	wg    sync.WaitGroup
}

func NewCached(c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{cache: c, ttl: ttl}
}

func lookup[T any](ctx context.Context, c *Cached, key string) (T, bool) {
	v, ok, err := cache.GetJSON[T](ctx, c.cache, key)
	if err != nil {
		logger.L().Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return v, false
	}
	return v, ok
}

func (c *Cached) store(ctx context.Context, key string, v any) {
	if err := cache.SetJSON(ctx, c.cache, key, v, c.ttl); err != nil {
		logger.L().Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Purge deletes keys before returning. Failures are logged.
func (c *Cached) Purge(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.cache.Del(ctx, keys...); err != nil {
		logger.L().Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// PurgeAsync deletes keys in the background, detached from ctx cancellation.
// The write that triggered it has already committed; nothing waits on it.
func (c *Cached) PurgeAsync(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.Purge(ctx, keys...)
	}()
}

// Wait blocks until every pending PurgeAsync has finished.
func (c *Cached) Wait() { c.wg.Wait() }
