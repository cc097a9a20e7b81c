package usecase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"ExtremeScan/internal/domain/models"
	domrepo "ExtremeScan/internal/domain/repository"
	domsvc "ExtremeScan/internal/domain/service"
	"ExtremeScan/pkg/logger"
)

const (
	minCandles          = 50
	minContributions    = 2
	sideThreshold       = 0.3
	confidenceThreshold = 60.0
)

// StrategyCombiner runs the strategy set over one snapshot and turns a
// sufficiently confident consensus into a stored signal.
type StrategyCombiner struct {
	strategies []domsvc.Strategy
	trendlines domrepo.TrendlineCache
	store      domrepo.SignalStore
	factory    *SignalFactory
	metrics    domrepo.Metrics
	log        *logger.Logger

	mu            sync.RWMutex
	minConfidence float64
}

func NewStrategyCombiner(
	strategies []domsvc.Strategy,
	trendlines domrepo.TrendlineCache,
	store domrepo.SignalStore,
	factory *SignalFactory,
	metrics domrepo.Metrics,
	log *logger.Logger,
) *StrategyCombiner {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if factory == nil {
		factory = NewSignalFactory()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &StrategyCombiner{
		strategies:    strategies,
		trendlines:    trendlines,
		store:         store,
		factory:       factory,
		metrics:       metrics,
		log:           log,
		minConfidence: confidenceThreshold,
	}
}

// SetMinConfidence raises the acceptance threshold; values below 60 keep 60.
func (c *StrategyCombiner) SetMinConfidence(v float64) {
	c.mu.Lock()
	c.minConfidence = math.Max(confidenceThreshold, v)
	c.mu.Unlock()
}

func (c *StrategyCombiner) threshold() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.minConfidence
}

// Trendlines returns the table stored by the last analysis of symbol.
func (c *StrategyCombiner) Trendlines(symbol string) []models.Trendline {
	if c.trendlines == nil {
		return nil
	}
	return c.trendlines.Get(symbol)
}

// Detect analyses one snapshot. The error is non-nil only when the context is
// cancelled mid-analysis or an accepted signal cannot be stored.
func (c *StrategyCombiner) Detect(ctx context.Context, symbol string, snap *models.MarketSnapshot) (models.Detection, error) {
	start := time.Now()
	defer func() { c.metrics.RecordLatency("detect_seconds", time.Since(start).Seconds()) }()

	det := models.Detection{Symbol: symbol}

	if snap == nil || len(snap.Candles) < minCandles {
		n := 0
		if snap != nil {
			n = len(snap.Candles)
		}
		c.log.Warn("Insufficient data for extreme point detection",
			logger.String("symbol", symbol), logger.Int("candles", n))
		return c.finish(det, models.OutcomeInsufficientData), nil
	}

	if snap.Volume24hUSD < models.DefaultMinVolumeUSD {
		c.log.Debug("Volume below threshold",
			logger.String("symbol", symbol),
			logger.Float64("volume24hUSD", snap.Volume24hUSD),
			logger.Float64("required", models.DefaultMinVolumeUSD))
		return c.finish(det, models.OutcomeBelowVolume), nil
	}

	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return det, err
		}
		if contrib := c.evaluate(s, symbol, snap); contrib != nil {
			det.Contributions = append(det.Contributions, *contrib)
		}
	}

	if len(det.Contributions) < minContributions {
		return c.finish(det, models.OutcomeInsufficientStrategies), nil
	}

	det.Bias, det.Confidence = Combine(det.Contributions)
	if det.Bias == models.Neutral {
		return c.finish(det, models.OutcomeNeutral), nil
	}
	if det.Confidence < c.threshold() {
		return c.finish(det, models.OutcomeBelowConfidence), nil
	}

	price := snap.CurrentPrice
	if price <= 0 {
		price = snap.LastClose()
	}
	signal := c.factory.Build(symbol, price, snap.Volume24hUSD, det.Bias, det.Confidence, det.Contributions)
	if err := c.store.Save(signal); err != nil {
		c.metrics.RecordError("signal_save")
		return det, fmt.Errorf("save signal %s: %w", signal.ID, err)
	}
	det.Signal = signal
	c.metrics.RecordSignal(symbol, signal.SignalType)
	return c.finish(det, models.OutcomeAccepted), nil
}

func (c *StrategyCombiner) finish(det models.Detection, outcome models.Outcome) models.Detection {
	det.Outcome = outcome
	c.metrics.RecordCheck(det.Symbol, outcome)
	return det
}

// evaluate runs one strategy, treating a panic as an absent vote.
func (c *StrategyCombiner) evaluate(s domsvc.Strategy, symbol string, snap *models.MarketSnapshot) (out *models.StrategyContribution) {
	defer func() {
		if r := recover(); r != nil {
			c.metrics.RecordError("strategy_panic")
			c.log.Error("Strategy analysis failed",
				logger.String("strategy", s.Name()),
				logger.String("symbol", symbol),
				logger.Any("panic", r))
			out = nil
		}
	}()
	return s.Evaluate(symbol, snap)
}

// Combine weighs contributions into a side and a 0..100 confidence.
// Scores are normalised by the weight of the contributions present; a side
// wins only when strictly larger than the other and above 0.3.
func Combine(contributions []models.StrategyContribution) (models.Bias, float64) {
	var bull, bear, total float64
	for _, c := range contributions {
		total += c.Weight
		switch c.Bias {
		case models.Bullish:
			bull += c.Weight * c.Confidence
		case models.Bearish:
			bear += c.Weight * c.Confidence
		}
	}
	if total == 0 {
		return models.Neutral, 0
	}
	bull /= total * 100
	bear /= total * 100

	switch {
	case bull > bear && bull > sideThreshold:
		return models.Bullish, bull * 100
	case bear > bull && bear > sideThreshold:
		return models.Bearish, bear * 100
	}
	return models.Neutral, 0
}
