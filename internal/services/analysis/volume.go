package analysis

import (
	"fmt"
	"math"

	"ExtremeScan/internal/domain/models"
	domsvc "ExtremeScan/internal/domain/service"
	"ExtremeScan/internal/services/features"
)

const (
	minVolumeRatio    = 1.5
	strongVolumeRatio = 2.0
	moveThreshold     = 0.01
	priceChangeBack   = 4
)

// VolumeProfileAnalyzer flags a last bar trading well above the series average.
type VolumeProfileAnalyzer struct{}

func NewVolumeProfileAnalyzer() *VolumeProfileAnalyzer { return &VolumeProfileAnalyzer{} }

func (v *VolumeProfileAnalyzer) Name() string    { return NameVolumeProfile }
func (v *VolumeProfileAnalyzer) Weight() float64 { return WeightVolumeProfile }

// Profile returns nil for fewer than five candles or a zero average.
func (v *VolumeProfileAnalyzer) Profile(candles []models.Candle, volume24hUSD float64) *models.VolumeProfile {
	if len(candles) < priceChangeBack+1 {
		return nil
	}
	avg := features.MeanVolume(candles)
	if avg == 0 {
		return nil
	}
	cur := candles[len(candles)-1].Volume
	change, _ := features.PriceChange(candles, priceChangeBack)
	return &models.VolumeProfile{
		AverageVolume: avg,
		CurrentVolume: cur,
		Ratio:         cur / avg,
		PriceChange:   change,
		Volume24hUSD:  volume24hUSD,
	}
}

// Evaluate returns a NEUTRAL vote for a volume spike without a clear move;
// it still counts towards the two-strategy minimum.
func (v *VolumeProfileAnalyzer) Evaluate(_ string, snap *models.MarketSnapshot) *models.StrategyContribution {
	if snap == nil {
		return nil
	}
	p := v.Profile(snap.Candles, snap.Volume24hUSD)
	if p == nil || p.Ratio < minVolumeRatio {
		return nil
	}

	bias := models.Neutral
	switch {
	case p.PriceChange > moveThreshold && p.Ratio > strongVolumeRatio:
		bias = models.Bullish
	case p.PriceChange < -moveThreshold && p.Ratio > strongVolumeRatio:
		bias = models.Bearish
	}

	return &models.StrategyContribution{
		Name:       NameVolumeProfile,
		Weight:     WeightVolumeProfile,
		Bias:       bias,
		Confidence: math.Min((p.Ratio-1)*30+40, 90),
		Details:    fmt.Sprintf("Volume %.1fx average ($%.1fM 24h volume)", p.Ratio, p.Volume24hUSD/1_000_000),
	}
}

var _ domsvc.Strategy = (*VolumeProfileAnalyzer)(nil)
