package cache

import (
	"context"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Remember fetches key into dst, calling fill and caching its result on a
// miss. A cache backend failure falls through to fill; the stats endpoint
// must keep answering when Redis is down.
func Remember[T any](ctx context.Context, c Cache, key string, ttl time.Duration, fill func(ctx context.Context) (T, error)) (T, error) {
	var cached T
	if hit, err := c.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	val, err := fill(ctx)
	if err != nil {
		return val, err
	}
	_ = c.SetJSON(ctx, key, val, ttl)
	return val, nil
}
