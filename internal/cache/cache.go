// Package cache is a small get/set/delete abstraction with TTL. It is an
// optimization layer only: callers must treat a miss and an error the same
// way, and never rely on the cache as a source of truth.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
