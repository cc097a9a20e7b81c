package analysis

import (
	"math"
	"testing"

	"ExtremeScan/internal/domain/models"
)

// gartleyPath traces X=100, A=200, B=138.2, C=192.9548, D=123.3 and drifts
// up into the PRZ afterwards. XB=0.618, AC=0.886, BD≈1.272, XD=0.233.
func gartleyPath() []models.Candle {
	return bars(path(
		knot{0, 150},
		knot{10, 100},
		knot{20, 200},
		knot{30, 138.2},
		knot{40, 192.9548},
		knot{50, 123.3},
		knot{59, 124.2},
	), 0)
}

func TestHarmonicDetectGartley(t *testing.T) {
	patterns := NewHarmonicPatternDetector().Detect(gartleyPath())
	if len(patterns) != 3 {
		t.Fatalf("expected 3 patterns, got %d", len(patterns))
	}
	wantTypes := []models.HarmonicType{models.Gartley, models.Crab, models.Cypher}
	wantScores := []float64{0.75, 0.5, 0.5}
	for i, p := range patterns {
		if p.Type != wantTypes[i] || p.Reliability != wantScores[i] {
			t.Errorf("pattern %d = %s/%v, want %s/%v", i, p.Type, p.Reliability, wantTypes[i], wantScores[i])
		}
	}

	best := patterns[0]
	if best.Direction != models.Bullish {
		t.Errorf("direction = %s, want BULLISH", best.Direction)
	}
	if math.Abs(best.PRZ.Lower-121.3) > 1e-9 || math.Abs(best.PRZ.Upper-125.3) > 1e-9 {
		t.Errorf("prz = %+v", best.PRZ)
	}
	if math.Abs(best.StopLoss-119.3) > 1e-9 {
		t.Errorf("stop = %v, want 119.3", best.StopLoss)
	}
	cd := 192.9548 - 123.3
	for i, f := range []float64{0.382, 0.618, 1.0} {
		if math.Abs(best.Targets[i]-(123.3+cd*f)) > 1e-9 {
			t.Errorf("target %d = %v", i, best.Targets[i])
		}
	}
}

func TestHarmonicEvaluateInsidePRZ(t *testing.T) {
	snap := &models.MarketSnapshot{Candles: gartleyPath()}
	c := NewHarmonicPatternDetector().Evaluate("BTCUSDT", snap)
	if c == nil {
		t.Fatalf("expected a contribution")
	}
	// last close 124.2 is inside [121.3, 125.3] and above the 123.3 midpoint.
	if c.Bias != models.Bearish {
		t.Errorf("bias = %s, want BEARISH", c.Bias)
	}
	if c.Confidence != 75 || c.Weight != WeightHarmonic {
		t.Errorf("unexpected contribution %+v", c)
	}
	if c.Details != "GARTLEY pattern detected in PRZ (75% reliability)" {
		t.Errorf("details = %q", c.Details)
	}
}

func pivotWindow(prices ...float64) []models.Pivot {
	pts := make([]models.Pivot, len(prices))
	for i, p := range prices {
		pts[i] = models.Pivot{Timestamp: int64(i) * 3_600_000, Price: p, Type: models.PivotHigh}
		if i%2 == 0 {
			pts[i].Type = models.PivotLow
		}
	}
	return pts
}

func TestHarmonicFlatLegScoresRemainingRatios(t *testing.T) {
	// AB == 0: XB is 0 and AC is +Inf, BD=1.272 and XD=0.864 still hit.
	p, ok := matchTemplate(pivotWindow(100, 200, 200, 250, 186.4), harmonicTemplates[0])
	if !ok || p.Reliability != 0.5 {
		t.Fatalf("gartley = %v/%v, want accepted at 0.5", ok, p.Reliability)
	}

	// BC == 0 as well leaves only XB and XD scorable.
	if _, ok := matchTemplate(pivotWindow(100, 200, 138.2, 138.2, 120), harmonicTemplates[0]); ok {
		t.Fatalf("a single hit must stay below the acceptance score")
	}
	if _, ok := matchTemplate(pivotWindow(100, 100, 150, 120, 130), harmonicTemplates[0]); ok {
		t.Fatalf("XA == 0 must never match")
	}
}

func TestHarmonicAllRatiosInBand(t *testing.T) {
	// XB=0.618, AC=0.886, BD=1.618, XD≈0.720
	p, ok := matchTemplate(pivotWindow(100, 200, 138.2, 83.4452, 172.0384664), harmonicTemplates[0])
	if !ok || p.Type != models.Gartley || p.Reliability != 1 {
		t.Fatalf("got %s/%v ok=%v, want GARTLEY/1", p.Type, p.Reliability, ok)
	}
}

func TestHarmonicReliabilityIsQuarterSteps(t *testing.T) {
	windows := [][]models.Pivot{
		pivotWindow(100, 200, 138.2, 83.4452, 172.0384664),
		pivotWindow(100, 200, 200, 250, 186.4),
		pivotWindow(100, 200, 138.2, 192.9548, 123.3),
	}
	for _, w := range windows {
		for _, tpl := range harmonicTemplates {
			p, ok := matchTemplate(w, tpl)
			if !ok {
				continue
			}
			if math.Mod(p.Reliability, ratioHit) != 0 || p.Reliability < minPatternScore || p.Reliability > 1 {
				t.Errorf("%s reliability %v is not a quarter step in [0.5, 1]", tpl.kind, p.Reliability)
			}
		}
	}
	for _, p := range NewHarmonicPatternDetector().Detect(gartleyPath()) {
		if math.Mod(p.Reliability, ratioHit) != 0 {
			t.Errorf("%s reliability %v is not a quarter step", p.Type, p.Reliability)
		}
	}
}

func TestHarmonicTooFewCandles(t *testing.T) {
	if got := NewHarmonicPatternDetector().Detect(gartleyPath()[:40]); got != nil {
		t.Fatalf("expected nil, got %d patterns", len(got))
	}
}
