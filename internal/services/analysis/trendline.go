package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"ExtremeScan/internal/domain/models"
	"ExtremeScan/internal/domain/repository"
	domsvc "ExtremeScan/internal/domain/service"
	"ExtremeScan/internal/services/features"
)

const (
	touchTolerance     = 0.005
	maxTrendlines      = 5
	trendlineProximity = 0.02
)

// TrendlineAnalyzer draws lines through pairs of same-type pivots and votes
// when price sits near the closest one.
type TrendlineAnalyzer struct {
	cache repository.TrendlineCache
	now   func() time.Time
}

// TrendlineOption configures a TrendlineAnalyzer.
type TrendlineOption func(*TrendlineAnalyzer)

// WithTrendlineClock overrides the clock used for line IDs.
func WithTrendlineClock(now func() time.Time) TrendlineOption {
	return func(a *TrendlineAnalyzer) { a.now = now }
}

// NewTrendlineAnalyzer returns an analyzer that stores each symbol's table in cache.
// A nil cache disables storage.
func NewTrendlineAnalyzer(cache repository.TrendlineCache, opts ...TrendlineOption) *TrendlineAnalyzer {
	a := &TrendlineAnalyzer{cache: cache, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *TrendlineAnalyzer) Name() string    { return NameTrendline }
func (a *TrendlineAnalyzer) Weight() float64 { return WeightTrendline }

// Detect returns the strongest trendlines of the series, at most five.
func (a *TrendlineAnalyzer) Detect(candles []models.Candle) []models.Trendline {
	pivots := FindPivots(candles, trendPivotWindow, PivotBoth)
	var lows, highs []models.Pivot
	for _, p := range pivots {
		if p.Type == models.PivotLow {
			lows = append(lows, p)
		} else {
			highs = append(highs, p)
		}
	}

	var lines []models.Trendline
	lines = a.collect(lines, lows, candles, models.Support)
	lines = a.collect(lines, highs, candles, models.Resistance)

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Strength > lines[j].Strength })
	if len(lines) > maxTrendlines {
		lines = lines[:maxTrendlines]
	}
	return lines
}

func (a *TrendlineAnalyzer) collect(out []models.Trendline, pivots []models.Pivot, candles []models.Candle, kind models.LevelType) []models.Trendline {
	for i := 0; i < len(pivots)-1; i++ {
		for j := i + 1; j < len(pivots); j++ {
			if tl, ok := a.build(pivots[i], pivots[j], candles, kind); ok {
				out = append(out, tl)
			}
		}
	}
	return out
}

func (a *TrendlineAnalyzer) build(p1, p2 models.Pivot, candles []models.Candle, kind models.LevelType) (models.Trendline, bool) {
	dt := p2.Timestamp - p1.Timestamp
	if dt == 0 || len(candles) == 0 {
		return models.Trendline{}, false
	}
	slope := (p2.Price - p1.Price) / float64(dt)
	at := func(ts int64) float64 { return p1.Price + slope*float64(ts-p1.Timestamp) }

	touches := 0
	for _, c := range candles {
		expected := at(c.Timestamp)
		actual := c.High
		if kind == models.Support {
			actual = c.Low
		}
		if math.Abs(actual-expected) <= math.Abs(expected)*touchTolerance {
			touches++
		}
	}
	if touches < 2 {
		return models.Trendline{}, false
	}

	return models.Trendline{
		ID:                  a.newID(),
		Type:                kind,
		Start:               models.Anchor{Price: p1.Price, Timestamp: p1.Timestamp},
		End:                 models.Anchor{Price: p2.Price, Timestamp: p2.Timestamp},
		Slope:               slope,
		Strength:            math.Min(float64(touches)/5, 1),
		TouchCount:          touches,
		ProjectedPrice:      at(candles[len(candles)-1].Timestamp),
		BreakoutProbability: math.Min(0.3+float64(touches-2)*0.1, 0.8),
	}, true
}

func (a *TrendlineAnalyzer) newID() string {
	return fmt.Sprintf("tl_%d_%s", a.now().UnixMilli(), uuid.NewString()[:8])
}

// Evaluate detects the table for symbol, stores it and votes on the nearest line within 2%.
func (a *TrendlineAnalyzer) Evaluate(symbol string, snap *models.MarketSnapshot) *models.StrategyContribution {
	if snap == nil {
		return nil
	}
	lines := a.Detect(snap.Candles)
	if a.cache != nil {
		a.cache.Put(symbol, lines)
	}

	price := referencePrice(snap)
	if price <= 0 || len(lines) == 0 {
		return nil
	}

	var nearest *models.Trendline
	best := math.Inf(1)
	for i := range lines {
		d := features.RelativeDistance(lines[i].ProjectedPrice, price)
		if d < best && d < trendlineProximity {
			best = d
			nearest = &lines[i]
		}
	}
	if nearest == nil {
		return nil
	}

	return &models.StrategyContribution{
		Name:       NameTrendline,
		Weight:     WeightTrendline,
		Bias:       biasForLevel(nearest.Type),
		Confidence: math.Min(nearest.Strength*float64(nearest.TouchCount)*10, 100),
		Details: fmt.Sprintf("Price near %s trendline (%d touches, %.0f%% breakout probability)",
			strings.ToLower(string(nearest.Type)), nearest.TouchCount, nearest.BreakoutProbability*100),
	}
}

var _ domsvc.Strategy = (*TrendlineAnalyzer)(nil)
