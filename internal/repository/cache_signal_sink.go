package repository

import (
	"context"
	"fmt"
	"time"

	"ExtremeScan/internal/domain/models"
	domrepo "ExtremeScan/internal/domain/repository"
	"ExtremeScan/pkg/cache"
)

const (
	signalKeyPrefix  = "signal"
	counterKeyPrefix = "signals:daily"
	counterTTL       = 48 * time.Hour
)

// CacheSignalSink writes a snapshot of each signal that lives until the signal
// expires, and bumps a per-symbol daily counter. Backed by Redis, other
// processes read signals without going through the API.
type CacheSignalSink struct {
	svc cache.Service
	now func() time.Time
}

func NewCacheSignalSink(svc cache.Service, now func() time.Time) *CacheSignalSink {
	if now == nil {
		now = time.Now
	}
	return &CacheSignalSink{svc: svc, now: now}
}

func (s *CacheSignalSink) Name() string { return "redis" }

func (s *CacheSignalSink) Deliver(ctx context.Context, sig *models.ExtremePoint) error {
	now := s.now()
	ttl := time.Duration(sig.ExpiresAt-now.UnixMilli()) * time.Millisecond
	if ttl > 0 {
		if err := s.svc.Set(ctx, SignalKey(sig.ID), sig, ttl); err != nil {
			return fmt.Errorf("cache signal %s: %w", sig.ID, err)
		}
	}

	if _, err := s.svc.IncrWithTTL(ctx, DailyCounterKey(sig.Symbol, now), counterTTL); err != nil {
		return fmt.Errorf("count signal %s: %w", sig.ID, err)
	}
	return nil
}

// SignalKey is the cache key of one signal snapshot.
func SignalKey(id string) string { return cache.Key(signalKeyPrefix, id) }

// DailyCounterKey is the per-symbol signal counter for the UTC day of at.
func DailyCounterKey(symbol string, at time.Time) string {
	return cache.Key(counterKeyPrefix, symbol, at.UTC().Format("20060102"))
}

var _ domrepo.SignalSink = (*CacheSignalSink)(nil)
