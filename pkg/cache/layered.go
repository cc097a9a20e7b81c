package cache

import (
	"context"
	"time"
)

// LayeredCache keeps short-lived in-process copies (L1) in front of a shared
// remote Service (L2). Writes go through to the remote first.
type LayeredCache struct {
	local  *MemoryCache
	remote Service
	memTTL time.Duration
}

// NewLayeredCache wraps remote. The caller keeps ownership of remote.
func NewLayeredCache(remote Service, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{
		MemoryMaxSize: 1000,
		MemoryTTL:     time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &LayeredCache{
		local:  NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		remote: remote,
		memTTL: cfg.MemoryTTL,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.remote.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	_ = lc.local.Set(ctx, key, value, lc.l1TTL(expiration))
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.local.Get(ctx, key, dest); err == nil {
		return nil
	}
	if err := lc.remote.Get(ctx, key, dest); err != nil {
		return err
	}
	// dest now holds the decoded remote value
	_ = lc.local.Set(ctx, key, dest, lc.memTTL)
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.local.Delete(ctx, keys...)
	return lc.remote.Delete(ctx, keys...)
}

// Exists asks the remote layer only; an L1 copy may outlive a remote delete.
func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	return lc.remote.Exists(ctx, keys...)
}

// IncrWithTTL bypasses the memory layer; counters are only meaningful remotely.
func (lc *LayeredCache) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return lc.remote.IncrWithTTL(ctx, key, ttl)
}

// l1TTL keeps memory copies no longer than the remote entry.
func (lc *LayeredCache) l1TTL(remote time.Duration) time.Duration {
	if remote > 0 && remote < lc.memTTL {
		return remote
	}
	return lc.memTTL
}

// Close stops the memory layer only.
func (lc *LayeredCache) Close() error {
	return lc.local.Close()
}
