package analysis

import "ExtremeScan/internal/domain/models"

// PivotMode controls whether a bar may be both a swing high and a swing low.
type PivotMode int

const (
	// PivotBoth emits HIGH then LOW when a bar qualifies as both.
	PivotBoth PivotMode = iota
	// PivotHighFirst emits at most one pivot per bar; HIGH wins.
	PivotHighFirst
)

// FindPivots returns swing points in series order. A bar is a HIGH when its
// high is >= every high within w bars on both sides (LOW symmetric on lows).
// The first and last w bars are never pivots.
func FindPivots(candles []models.Candle, w int, mode PivotMode) []models.Pivot {
	if w <= 0 || len(candles) < 2*w+1 {
		return nil
	}
	var out []models.Pivot
	for i := w; i < len(candles)-w; i++ {
		isHigh, isLow := true, true
		for j := i - w; j <= i+w; j++ {
			if j == i {
				continue
			}
			if candles[j].High > candles[i].High {
				isHigh = false
			}
			if candles[j].Low < candles[i].Low {
				isLow = false
			}
		}
		if isHigh {
			out = append(out, models.Pivot{Price: candles[i].High, Timestamp: candles[i].Timestamp, Type: models.PivotHigh})
			if mode == PivotHighFirst {
				continue
			}
		}
		if isLow {
			out = append(out, models.Pivot{Price: candles[i].Low, Timestamp: candles[i].Timestamp, Type: models.PivotLow})
		}
	}
	return out
}
