package analysis

import (
	"fmt"
	"math"
	"sort"

	"ExtremeScan/internal/domain/models"
	domsvc "ExtremeScan/internal/domain/service"
)

const (
	ratioTolerance   = 0.1
	ratioHit         = 0.25
	minPatternScore  = 0.5
	przFraction      = 0.02
	maxHarmonicCount = 3
)

type harmonicTemplate struct {
	kind           models.HarmonicType
	xb, ac, bd, xd []float64
}

// Evaluated in this order; ties keep it.
var harmonicTemplates = []harmonicTemplate{
	{models.Gartley, []float64{0.618}, []float64{0.382, 0.886}, []float64{1.272, 1.618}, []float64{0.786}},
	{models.Butterfly, []float64{0.786}, []float64{0.382, 0.886}, []float64{1.618, 2.618}, []float64{1.272, 1.618}},
	{models.Bat, []float64{0.382, 0.5}, []float64{0.382, 0.886}, []float64{1.618, 2.618}, []float64{0.886}},
	{models.Crab, []float64{0.382, 0.618}, []float64{0.382, 0.886}, []float64{2.618, 3.618}, []float64{1.618}},
	{models.Shark, []float64{0.446, 0.618}, []float64{1.13, 1.618}, []float64{1.618, 2.24}, []float64{0.886, 1.13}},
	{models.Cypher, []float64{0.382, 0.618}, []float64{1.272, 1.414}, []float64{1.272, 2.0}, []float64{0.786}},
}

var targetFactors = []float64{0.382, 0.618, 1.0}

// HarmonicPatternDetector scores X-A-B-C-D pivot windows against Fibonacci templates.
type HarmonicPatternDetector struct{}

func NewHarmonicPatternDetector() *HarmonicPatternDetector { return &HarmonicPatternDetector{} }

func (h *HarmonicPatternDetector) Name() string    { return NameHarmonic }
func (h *HarmonicPatternDetector) Weight() float64 { return WeightHarmonic }

// Detect returns up to three accepted patterns, most reliable first.
func (h *HarmonicPatternDetector) Detect(candles []models.Candle) []models.HarmonicPattern {
	if len(candles) < MinCandles {
		return nil
	}
	pivots := FindPivots(candles, harmonicPivotWindow, PivotHighFirst)
	if len(pivots) < 5 {
		return nil
	}

	var patterns []models.HarmonicPattern
	for i := 0; i+5 <= len(pivots); i++ {
		window := pivots[i : i+5]
		for _, tpl := range harmonicTemplates {
			if p, ok := matchTemplate(window, tpl); ok {
				patterns = append(patterns, p)
			}
		}
	}

	sort.SliceStable(patterns, func(i, j int) bool { return patterns[i].Reliability > patterns[j].Reliability })
	if len(patterns) > maxHarmonicCount {
		patterns = patterns[:maxHarmonicCount]
	}
	return patterns
}

func matchTemplate(pts []models.Pivot, tpl harmonicTemplate) (models.HarmonicPattern, bool) {
	x, a, b, c, d := pts[0], pts[1], pts[2], pts[3], pts[4]
	xa := math.Abs(a.Price - x.Price)
	ab := math.Abs(b.Price - a.Price)
	bc := math.Abs(c.Price - b.Price)
	cd := math.Abs(d.Price - c.Price)
	xd := math.Abs(d.Price - x.Price)
	// A flat AB or BC leg yields ±Inf or NaN ratios, which never land near a target.
	if xa == 0 {
		return models.HarmonicPattern{}, false
	}

	score := 0.0
	for _, check := range []struct {
		value   float64
		targets []float64
	}{
		{ab / xa, tpl.xb},
		{bc / ab, tpl.ac},
		{cd / bc, tpl.bd},
		{xd / xa, tpl.xd},
	} {
		if nearAny(check.value, check.targets, ratioTolerance) {
			score += ratioHit
		}
	}
	if score < minPatternScore {
		return models.HarmonicPattern{}, false
	}

	dir, sign := models.Bearish, -1.0
	if d.Type == models.PivotLow {
		dir, sign = models.Bullish, 1.0
	}
	band := xa * przFraction
	targets := make([]float64, len(targetFactors))
	for i, f := range targetFactors {
		targets[i] = d.Price + sign*cd*f
	}

	return models.HarmonicPattern{
		Type:        tpl.kind,
		Direction:   dir,
		X:           x,
		A:           a,
		B:           b,
		C:           c,
		D:           d,
		PRZ:         models.PriceZone{Lower: d.Price - band, Upper: d.Price + band},
		Reliability: score,
		Targets:     targets,
		StopLoss:    d.Price - sign*2*band,
	}, true
}

func nearAny(v float64, targets []float64, tol float64) bool {
	for _, t := range targets {
		if math.Abs(v-t) <= tol {
			return true
		}
	}
	return false
}

func (h *HarmonicPatternDetector) Evaluate(_ string, snap *models.MarketSnapshot) *models.StrategyContribution {
	if snap == nil {
		return nil
	}
	patterns := h.Detect(snap.Candles)
	if len(patterns) == 0 {
		return nil
	}
	best := patterns[0]
	last := snap.LastClose()

	var bias models.Bias
	var details string
	switch {
	case best.PRZ.Contains(last):
		bias = models.Bearish
		if last < best.PRZ.Mid() {
			bias = models.Bullish
		}
		details = fmt.Sprintf("%s pattern detected in PRZ (%.0f%% reliability)", best.Type, best.Reliability*100)
	case last < best.PRZ.Lower:
		bias = models.Bullish
		details = fmt.Sprintf("%s pattern: Price approaching PRZ from below", best.Type)
	default:
		bias = models.Bearish
		details = fmt.Sprintf("%s pattern: Price approaching PRZ from above", best.Type)
	}

	return &models.StrategyContribution{
		Name:       NameHarmonic,
		Weight:     WeightHarmonic,
		Bias:       bias,
		Confidence: best.Reliability * 100,
		Details:    details,
	}
}

var _ domsvc.Strategy = (*HarmonicPatternDetector)(nil)
