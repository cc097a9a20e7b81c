package features

import (
	"math"

	"ExtremeScan/internal/domain/models"
)

// ATRFraction is the share of price used as the average-true-range proxy.
const ATRFraction = 0.02

// MeanVolume returns the arithmetic mean of candle volumes, or 0 for an empty series.
func MeanVolume(candles []models.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range candles {
		sum += c.Volume
	}
	return sum / float64(len(candles))
}

// PriceChange returns the relative close-to-close change between the last bar
// and the bar `back` positions earlier (back=4 compares close[n-1] with close[n-5]).
// ok is false when the series is too short or the reference close is zero.
func PriceChange(candles []models.Candle, back int) (float64, bool) {
	n := len(candles)
	if back <= 0 || n < back+1 {
		return 0, false
	}
	ref := candles[n-1-back].Close
	if ref == 0 {
		return 0, false
	}
	return (candles[n-1].Close - ref) / ref, true
}

// ATRProxy approximates the average true range as a fixed share of price.
func ATRProxy(price float64) float64 {
	return price * ATRFraction
}

// RelativeDistance returns |a-b|/b, or +Inf when b is zero.
func RelativeDistance(a, b float64) float64 {
	if b == 0 {
		return math.Inf(1)
	}
	return math.Abs(a-b) / b
}
