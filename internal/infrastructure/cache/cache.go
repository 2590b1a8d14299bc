// Package cache provides the redis-backed stores used by the service, each
// with an in-memory counterpart for single-instance deployments and tests.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired
var ErrCacheMiss = errors.New("cache: miss")

// Cache is a byte-oriented TTL cache
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the given keys and returns how many existed
	Delete(ctx context.Context, keys ...string) (int64, error)
	// DeletePrefix removes every key starting with prefix
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}
