package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service is the key/value surface the scanner shares across processes.
// Values are JSON encoded (plain strings verbatim) and decoded into dest on Get.
// A zero expiration means the backend default.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	// IncrWithTTL bumps a counter and sets ttl only when this call created it.
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

var (
	_ Service = (*RedisCache)(nil)
	_ Service = (*MemoryCache)(nil)
	_ Service = (*LayeredCache)(nil)
)
