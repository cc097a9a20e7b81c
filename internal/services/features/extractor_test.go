package features

import (
	"math"
	"testing"

	"ExtremeScan/internal/domain/models"
)

func closes(vals ...float64) []models.Candle {
	out := make([]models.Candle, len(vals))
	for i, v := range vals {
		out[i] = models.Candle{Timestamp: int64(i) * 3600_000, Close: v, Volume: v}
	}
	return out
}

func TestMeanVolume(t *testing.T) {
	if got := MeanVolume(nil); got != 0 {
		t.Fatalf("empty mean = %v", got)
	}
	if got := MeanVolume(closes(1, 2, 3, 4)); got != 2.5 {
		t.Fatalf("mean = %v, want 2.5", got)
	}
}

func TestPriceChange(t *testing.T) {
	c := closes(100, 101, 102, 103, 110)
	got, ok := PriceChange(c, 4)
	if !ok || math.Abs(got-0.10) > 1e-12 {
		t.Fatalf("change = %v ok=%v, want 0.10", got, ok)
	}
	if _, ok := PriceChange(c[:4], 4); ok {
		t.Fatalf("expected short series to be rejected")
	}
	if _, ok := PriceChange(closes(0, 1, 1, 1, 1), 4); ok {
		t.Fatalf("expected zero reference to be rejected")
	}
}

func TestATRProxyAndDistance(t *testing.T) {
	if got := ATRProxy(100); got != 2 {
		t.Fatalf("atr = %v, want 2", got)
	}
	if got := RelativeDistance(99, 100); math.Abs(got-0.01) > 1e-12 {
		t.Fatalf("distance = %v", got)
	}
	if !math.IsInf(RelativeDistance(1, 0), 1) {
		t.Fatalf("expected +Inf for zero base")
	}
}
