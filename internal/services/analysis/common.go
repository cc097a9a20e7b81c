// Package analysis holds the technical-analysis strategies voted on by the
// signal combiner. Every strategy is pure over its input candles except the
// trendline analyzer, which also records its table per symbol.
package analysis

import (
	"ExtremeScan/internal/domain/models"
	domsvc "ExtremeScan/internal/domain/service"
)

const (
	// MinCandles is the shortest series the pattern strategies look at.
	MinCandles = 50

	trendPivotWindow    = 5
	harmonicPivotWindow = 3
)

// Strategy names as they appear in contributions.
const (
	NameTrendline         = "Trendline"
	NameElliottWave       = "Elliott Wave"
	NameHarmonic          = "Harmonic Pattern"
	NameSupportResistance = "Support/Resistance"
	NameVolumeProfile     = "Volume Profile"
)

// Strategy weights.
const (
	WeightTrendline         = 0.25
	WeightElliottWave       = 0.20
	WeightHarmonic          = 0.20
	WeightSupportResistance = 0.20
	WeightVolumeProfile     = 0.15
)

// DefaultStrategies returns the five strategies in combiner order.
func DefaultStrategies(trendlines *TrendlineAnalyzer) []domsvc.Strategy {
	return []domsvc.Strategy{
		trendlines,
		NewElliottWaveAnalyzer(),
		NewHarmonicPatternDetector(),
		NewSupportResistanceClusterer(),
		NewVolumeProfileAnalyzer(),
	}
}

// referencePrice is the quoted price, falling back to the last close.
func referencePrice(snap *models.MarketSnapshot) float64 {
	if snap == nil {
		return 0
	}
	if snap.CurrentPrice > 0 {
		return snap.CurrentPrice
	}
	return snap.LastClose()
}

func biasForLevel(t models.LevelType) models.Bias {
	if t == models.Support {
		return models.Bullish
	}
	return models.Bearish
}
