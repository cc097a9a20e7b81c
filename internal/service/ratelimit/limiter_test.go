package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterRefills(t *testing.T) {
	now := time.Unix(0, 0)
	l := New(2, 1, WithClock(func() time.Time { return now }))

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("full bucket should allow capacity requests")
	}
	if l.Allow("a") {
		t.Fatalf("empty bucket should refuse")
	}
	if !l.Allow("b") {
		t.Fatalf("keys must not share buckets")
	}

	now = now.Add(500 * time.Millisecond)
	if l.Allow("a") {
		t.Fatalf("half a token is not enough")
	}
	now = now.Add(500 * time.Millisecond)
	if !l.Allow("a") {
		t.Fatalf("one second should refill one token")
	}

	now = now.Add(time.Hour)
	if n := l.Sweep(time.Minute); n != 2 {
		t.Fatalf("swept %d keys, want 2", n)
	}
}
