package analysis

import (
	"math"
	"testing"

	"ExtremeScan/internal/domain/models"
)

func volumeSeries(lastVolume, lastClose float64) []models.Candle {
	c := bars(make([]float64, 50), 0)
	for i := range c {
		c[i].Close = 100
		c[i].Volume = 1
	}
	c[49].Close = lastClose
	c[49].Volume = lastVolume
	return c
}

func TestVolumeProfileBullishSpike(t *testing.T) {
	snap := &models.MarketSnapshot{Candles: volumeSeries(3, 105), Volume24hUSD: 100_000_000}
	c := NewVolumeProfileAnalyzer().Evaluate("BTCUSDT", snap)
	if c == nil {
		t.Fatalf("expected a contribution")
	}
	if c.Bias != models.Bullish || c.Confidence != 90 || c.Weight != WeightVolumeProfile {
		t.Fatalf("unexpected contribution %+v", c)
	}
	if c.Details != "Volume 2.9x average ($100.0M 24h volume)" {
		t.Errorf("details = %q", c.Details)
	}
}

func TestVolumeProfileBearishSpike(t *testing.T) {
	snap := &models.MarketSnapshot{Candles: volumeSeries(3, 95), Volume24hUSD: 5_000_000}
	c := NewVolumeProfileAnalyzer().Evaluate("BTCUSDT", snap)
	if c == nil || c.Bias != models.Bearish {
		t.Fatalf("expected a bearish vote, got %+v", c)
	}
}

func TestVolumeProfileNeutralStillVotes(t *testing.T) {
	snap := &models.MarketSnapshot{Candles: volumeSeries(1.7, 105), Volume24hUSD: 5_000_000}
	c := NewVolumeProfileAnalyzer().Evaluate("BTCUSDT", snap)
	if c == nil {
		t.Fatalf("expected a neutral contribution")
	}
	if c.Bias != models.Neutral {
		t.Fatalf("bias = %s, want NEUTRAL", c.Bias)
	}
	ratio := 1.7 / (50.7 / 50)
	if math.Abs(c.Confidence-((ratio-1)*30+40)) > 1e-9 {
		t.Errorf("confidence = %v", c.Confidence)
	}
}

func TestVolumeProfileQuietBar(t *testing.T) {
	snap := &models.MarketSnapshot{Candles: volumeSeries(1.2, 105), Volume24hUSD: 5_000_000}
	if c := NewVolumeProfileAnalyzer().Evaluate("BTCUSDT", snap); c != nil {
		t.Fatalf("expected nil below 1.5x, got %+v", c)
	}
}

func TestVolumeProfileShortOrEmpty(t *testing.T) {
	v := NewVolumeProfileAnalyzer()
	if p := v.Profile(volumeSeries(3, 105)[:4], 0); p != nil {
		t.Fatalf("expected nil profile for 4 candles")
	}
	zero := volumeSeries(0, 100)
	for i := range zero {
		zero[i].Volume = 0
	}
	if p := v.Profile(zero, 0); p != nil {
		t.Fatalf("expected nil profile for zero mean volume")
	}
}
