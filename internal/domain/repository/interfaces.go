package repository

import (
	"context"
	"errors"

	"ExtremeScan/internal/domain/models"
)

var (
	ErrSignalNotFound    = errors.New("signal not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// MarketDataFetcher supplies candles for one symbol.
// A nil snapshot with a nil error means the symbol should be skipped.
type MarketDataFetcher interface {
	Fetch(ctx context.Context, symbol string) (*models.MarketSnapshot, error)
}

// FetcherFunc adapts a function to MarketDataFetcher.
type FetcherFunc func(ctx context.Context, symbol string) (*models.MarketSnapshot, error)

func (f FetcherFunc) Fetch(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	return f(ctx, symbol)
}

// SignalListener receives every newly stored signal.
type SignalListener func(signal *models.ExtremePoint)

// SignalStore owns created signals and their status transitions.
type SignalStore interface {
	Save(signal *models.ExtremePoint) error
	Get(id string) (*models.ExtremePoint, bool)
	UpdateStatus(id string, status models.SignalStatus) error
	ActiveSignals(nowMs int64) []*models.ExtremePoint
	All() []*models.ExtremePoint
	CleanupExpired(nowMs int64) int
	Subscribe(fn SignalListener) (unsubscribe func())
}

// SignalSink delivers a signal to an outbound channel (broker, cache, socket).
type SignalSink interface {
	Name() string
	Deliver(ctx context.Context, signal *models.ExtremePoint) error
}

// TrendlineCache keeps the retained trendlines per symbol.
type TrendlineCache interface {
	Put(symbol string, lines []models.Trendline)
	Get(symbol string) []models.Trendline
}

type Metrics interface {
	RecordCheck(symbol string, outcome models.Outcome)
	RecordSignal(symbol string, signalType models.SignalType)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	SetActiveSignals(n int)
	SetQueueDepth(queue string, n int)
}

// NopMetrics discards everything; handy for tests and optional wiring.
type NopMetrics struct{}

func (NopMetrics) RecordCheck(string, models.Outcome)     {}
func (NopMetrics) RecordSignal(string, models.SignalType) {}
func (NopMetrics) RecordError(string)                     {}
func (NopMetrics) RecordLatency(string, float64)          {}
func (NopMetrics) SetActiveSignals(int)                   {}
func (NopMetrics) SetQueueDepth(string, int)              {}

var _ Metrics = NopMetrics{}
