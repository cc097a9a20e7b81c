package service

import "ExtremeScan/internal/domain/models"

// Strategy is one technical-analysis vote in the combiner.
// Evaluate returns nil when the strategy has nothing to say.
type Strategy interface {
	Name() string
	Weight() float64
	Evaluate(symbol string, snap *models.MarketSnapshot) *models.StrategyContribution
}
