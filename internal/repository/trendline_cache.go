package repository

import (
	"context"
	"errors"
	"time"

	"ExtremeScan/internal/domain/models"
	domrepo "ExtremeScan/internal/domain/repository"
	"ExtremeScan/pkg/cache"
	applogger "ExtremeScan/pkg/logger"
)

const (
	trendlineKeyPrefix  = "trendlines"
	defaultTrendlineTTL = 24 * time.Hour
	trendlineOpTimeout  = 2 * time.Second
)

// CachedTrendlines keeps each symbol's trendline table in a cache.Service.
// Backed by a MemoryCache it is process-local; behind a LayeredCache the
// tables are also readable from Redis by other processes.
type CachedTrendlines struct {
	svc cache.Service
	ttl time.Duration
	l   *applogger.Logger
}

func NewCachedTrendlines(svc cache.Service, ttl time.Duration, l *applogger.Logger) *CachedTrendlines {
	if ttl <= 0 {
		ttl = defaultTrendlineTTL
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &CachedTrendlines{svc: svc, ttl: ttl, l: l}
}

func (c *CachedTrendlines) Put(symbol string, lines []models.Trendline) {
	ctx, cancel := context.WithTimeout(context.Background(), trendlineOpTimeout)
	defer cancel()
	if lines == nil {
		lines = []models.Trendline{}
	}
	if err := c.svc.Set(ctx, cache.Key(trendlineKeyPrefix, symbol), lines, c.ttl); err != nil {
		c.l.Warn("trendline cache put failed", applogger.String("symbol", symbol), applogger.Error(err))
	}
}

// Get returns an empty table for unknown symbols.
func (c *CachedTrendlines) Get(symbol string) []models.Trendline {
	ctx, cancel := context.WithTimeout(context.Background(), trendlineOpTimeout)
	defer cancel()
	var lines []models.Trendline
	if err := c.svc.Get(ctx, cache.Key(trendlineKeyPrefix, symbol), &lines); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.l.Warn("trendline cache get failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
		return []models.Trendline{}
	}
	return lines
}

var _ domrepo.TrendlineCache = (*CachedTrendlines)(nil)
