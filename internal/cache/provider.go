package cache

import (
	"context"
	"errors"
	"time"
)

// Provider defines the session-cache operations needed by the console.
// A ttl of zero means the entry never expires.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Close() error
}

// ErrCacheMiss signals that a cache key was not found.
var ErrCacheMiss = errors.New("cache miss")
