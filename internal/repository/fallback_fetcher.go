package repository

import (
	"context"

	"ExtremeScan/internal/domain/models"
	domrepo "ExtremeScan/internal/domain/repository"
	applogger "ExtremeScan/pkg/logger"
)

// FallbackFetcher asks primary first and falls back on an error or an empty answer.
// Context cancellation is returned as is.
type FallbackFetcher struct {
	primary  domrepo.MarketDataFetcher
	fallback domrepo.MarketDataFetcher
	metrics  domrepo.Metrics
	l        *applogger.Logger
}

func NewFallbackFetcher(primary, fallback domrepo.MarketDataFetcher, metrics domrepo.Metrics, l *applogger.Logger) *FallbackFetcher {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &FallbackFetcher{primary: primary, fallback: fallback, metrics: metrics, l: l}
}

func (f *FallbackFetcher) Fetch(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	snap, err := f.primary.Fetch(ctx, symbol)
	if err == nil && snap != nil {
		return snap, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		f.metrics.RecordError("fetch_primary")
		f.l.Debug("API fetch failed, using fallback data", applogger.String("symbol", symbol), applogger.Error(err))
	} else {
		f.l.Debug("no primary data, using fallback data", applogger.String("symbol", symbol))
	}
	return f.fallback.Fetch(ctx, symbol)
}

var _ domrepo.MarketDataFetcher = (*FallbackFetcher)(nil)
