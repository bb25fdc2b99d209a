// Package cache is the key/value cache used by the repositories. Every
// implementation is TTL-bounded and treated as an optimization: callers log
// failures and fall through to the authoritative store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Cache is the collaborator contract shared by the redis and in-memory backends.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// FlushByPattern deletes every key matching a glob pattern ("metatypes:*").
	FlushByPattern(ctx context.Context, pattern string) error
}

// GetJSON reads key and decodes it into a T. ok is false on a miss.
func GetJSON[T any](ctx context.Context, c Cache, key string) (v T, ok bool, err error) {
	raw, err := c.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, err
	}
	return v, true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, raw, ttl)
}
