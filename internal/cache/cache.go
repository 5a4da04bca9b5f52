// Package cache provides the optional response cache consumed by the
// assistant orchestration loop. A trivial in-process map and a Redis backend
// are interchangeable behind the same interface.
package cache

import (
	"context"
	"time"
)

// Cache is a TTL key/value store. Get reports absence (including expiry)
// through the second return value rather than an error.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	GetOrSet(ctx context.Context, key string, ttl time.Duration, fetcher func(context.Context) (string, error)) (string, error)
	Del(ctx context.Context, key string) error
	Flush(ctx context.Context) error
	Close() error
}
