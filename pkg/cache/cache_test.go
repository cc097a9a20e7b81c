package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type point struct {
	Price float64 `json:"price"`
	Label string  `json:"label"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	if err := mc.Set(ctx, "k", []point{{1.5, "a"}}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got []point
	if err := mc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 || got[0].Price != 1.5 || got[0].Label != "a" {
		t.Fatalf("unexpected value %+v", got)
	}

	_ = mc.Set(ctx, "s", "plain", time.Minute)
	var s string
	if err := mc.Get(ctx, "s", &s); err != nil || s != "plain" {
		t.Fatalf("string value = %q err=%v", s, err)
	}

	if err := mc.Get(ctx, "missing", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	mc := NewMemoryCache(WithMemoryClock(clock.Now), WithMemoryCleanup(0))
	defer mc.Close()

	_ = mc.Set(ctx, "k", 1, time.Second)
	if ok, _ := mc.Exists(ctx, "k"); !ok {
		t.Fatalf("expected key to exist")
	}
	clock.Advance(2 * time.Second)
	var v int
	if err := mc.Get(ctx, "k", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired key to miss, got %v", err)
	}
	if mc.Len() != 0 {
		t.Fatalf("expired key should be dropped on read")
	}
}

func TestMemoryCacheCounterAndEviction(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryClock(clock.Now), WithMemoryCleanup(0))
	defer mc.Close()

	for want := int64(1); want <= 3; want++ {
		got, err := mc.IncrWithTTL(ctx, "n", time.Minute)
		if err != nil || got != want {
			t.Fatalf("increment = %d err=%v, want %d", got, err, want)
		}
	}

	clock.Advance(time.Second)
	_ = mc.Set(ctx, "a", 1, 0)
	clock.Advance(time.Second)
	_ = mc.Set(ctx, "b", 2, 0)

	if ok, _ := mc.Exists(ctx, "n"); ok {
		t.Fatalf("least recently used key should be evicted")
	}
	if mc.Len() != 2 {
		t.Fatalf("len = %d, want 2", mc.Len())
	}
}

func TestLayeredCacheReadsThrough(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	defer remote.Close()
	lc := NewLayeredCache(remote, WithLayeredMemoryTTL(time.Minute))
	defer lc.Close()

	_ = remote.Set(ctx, "k", point{Price: 2}, time.Hour)
	var p point
	if err := lc.Get(ctx, "k", &p); err != nil || p.Price != 2 {
		t.Fatalf("read-through = %+v err=%v", p, err)
	}

	_ = remote.Delete(ctx, "k")
	p = point{}
	if err := lc.Get(ctx, "k", &p); err != nil || p.Price != 2 {
		t.Fatalf("expected L1 copy after remote delete, got %+v err=%v", p, err)
	}

	if err := lc.Set(ctx, "w", point{Price: 3}, time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ok, _ := remote.Exists(ctx, "w"); !ok {
		t.Fatalf("write-through should reach the remote layer")
	}
}

func TestCounterTTLSetOnCreateOnly(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	mc := NewMemoryCache(WithMemoryClock(clock.Now), WithMemoryCleanup(0))
	defer mc.Close()

	_, _ = mc.IncrWithTTL(ctx, "c", 10*time.Second)
	clock.Advance(8 * time.Second)
	if n, _ := mc.IncrWithTTL(ctx, "c", 10*time.Second); n != 2 {
		t.Fatalf("second increment = %d", n)
	}
	clock.Advance(3 * time.Second)
	if n, _ := mc.IncrWithTTL(ctx, "c", 10*time.Second); n != 1 {
		t.Fatalf("counter should restart after the first ttl, got %d", n)
	}

	_ = mc.Set(ctx, "bad", "x", time.Minute)
	if _, err := mc.IncrWithTTL(ctx, "bad", 0); err == nil {
		t.Fatalf("expected error for non-numeric counter")
	}
}

func TestKey(t *testing.T) {
	if got := Key("signal", "ep_1"); got != "signal:ep_1" {
		t.Fatalf("key = %q", got)
	}
	if got := Key("signals:daily", "BTCUSDT", 20260101); got != "signals:daily:BTCUSDT:20260101" {
		t.Fatalf("key = %q", got)
	}
	if got := Key("bare"); got != "bare" {
		t.Fatalf("key = %q", got)
	}
}
