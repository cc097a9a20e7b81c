package usecase

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"ExtremeScan/internal/domain/models"
	"ExtremeScan/internal/services/features"
)

const (
	targetATRMultiple = 1.5
	stopATRMultiple   = 0.75
)

// SignalFactory turns an accepted combination into an ExtremePoint.
type SignalFactory struct {
	now   func() time.Time
	newID func(symbol string, at time.Time) string
}

// FactoryOption configures a SignalFactory.
type FactoryOption func(*SignalFactory)

// WithFactoryClock overrides the creation clock.
func WithFactoryClock(now func() time.Time) FactoryOption {
	return func(f *SignalFactory) { f.now = now }
}

// WithIDGenerator overrides signal ID generation.
func WithIDGenerator(gen func(symbol string, at time.Time) string) FactoryOption {
	return func(f *SignalFactory) { f.newID = gen }
}

func NewSignalFactory(opts ...FactoryOption) *SignalFactory {
	f := &SignalFactory{now: time.Now, newID: SignalID}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SignalID formats ep_<symbol>_<unixms>_<8 hex>.
func SignalID(symbol string, at time.Time) string {
	return fmt.Sprintf("ep_%s_%d_%s", symbol, at.UnixMilli(), uuid.NewString()[:8])
}

// Build materialises a signal at price. bias must be BULLISH or BEARISH.
func (f *SignalFactory) Build(symbol string, price, volume24hUSD float64, bias models.Bias, confidence float64, contributions []models.StrategyContribution) *models.ExtremePoint {
	now := f.now()
	atr := features.ATRProxy(price)
	bullish := bias == models.Bullish

	sp := &models.ExtremePoint{
		ID:             f.newID(symbol, now),
		Symbol:         symbol,
		Timestamp:      now.UnixMilli(),
		Price:          price,
		Classification: models.PotentialHigh,
		SignalType:     models.Sell,
		Confidence:     math.Round(confidence),
		Volume24hUSD:   volume24hUSD,
		TargetPrice:    price - atr*targetATRMultiple,
		StopLoss:       price + atr*stopATRMultiple,
		Status:         models.StatusActive,
		ExpiresAt:      now.UnixMilli() + models.SignalTTL.Milliseconds(),
	}
	if bullish {
		sp.Classification = models.PotentialLow
		sp.SignalType = models.Buy
		sp.TargetPrice = price + atr*targetATRMultiple
		sp.StopLoss = price - atr*stopATRMultiple
	}
	if risk := math.Abs(price - sp.StopLoss); risk > 0 {
		sp.RiskReward = math.Abs(sp.TargetPrice-price) / risk
	}

	sp.Strategies = append([]models.StrategyContribution(nil), contributions...)
	sp.Reasoning = make([]string, 0, len(contributions))
	for _, c := range contributions {
		sp.Reasoning = append(sp.Reasoning, c.Details)
	}
	return sp
}
