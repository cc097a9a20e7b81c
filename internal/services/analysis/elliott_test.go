package analysis

import (
	"math"
	"testing"

	"ExtremeScan/internal/domain/models"
)

func TestElliottAnalyzeZigzag(t *testing.T) {
	a := NewElliottWaveAnalyzer().Analyze(bars(zigzag(100), 0.5))
	if a == nil {
		t.Fatalf("expected an analysis")
	}
	if len(a.Waves) != 8 {
		t.Fatalf("expected 8 wave points, got %d", len(a.Waves))
	}
	wantLabels := []string{"1", "2", "3", "4", "5", "A", "B", "C"}
	for i, w := range a.Waves {
		if w.Label != wantLabels[i] {
			t.Errorf("wave %d label = %s, want %s", i, w.Label, wantLabels[i])
		}
		wantCat := models.Impulse
		if i >= 5 {
			wantCat = models.Corrective
		}
		if w.Category != wantCat {
			t.Errorf("wave %d category = %s, want %s", i, w.Category, wantCat)
		}
	}
	if a.CurrentWave.Label != "C" || a.NextDirection != models.Up {
		t.Fatalf("current = %s next = %s", a.CurrentWave.Label, a.NextDirection)
	}
	if a.CompletionProbability != maxCompletion {
		t.Errorf("probability = %v, want %v", a.CompletionProbability, maxCompletion)
	}
	if math.Abs(a.TargetPrice-(110.5+0.618*11)) > 1e-9 {
		t.Errorf("target = %v", a.TargetPrice)
	}
	if a.InvalidationLevel != 99.5 {
		t.Errorf("invalidation = %v, want 99.5", a.InvalidationLevel)
	}
}

func TestElliottEvaluate(t *testing.T) {
	c := NewElliottWaveAnalyzer().Evaluate("BTCUSDT", &models.MarketSnapshot{Candles: bars(zigzag(100), 0.5)})
	if c == nil {
		t.Fatalf("expected a contribution")
	}
	if c.Bias != models.Bullish || math.Abs(c.Confidence-95) > 1e-9 || c.Weight != WeightElliottWave {
		t.Fatalf("unexpected contribution %+v", c)
	}
	want := "Elliott Wave C completing, expecting upward move (95% completion)"
	if c.Details != want {
		t.Fatalf("details = %q, want %q", c.Details, want)
	}
}

func TestElliottNeedsFiftyCandles(t *testing.T) {
	if a := NewElliottWaveAnalyzer().Analyze(bars(zigzag(49), 0.5)); a != nil {
		t.Fatalf("expected nil for 49 candles")
	}
}

func TestLabelWavesSkipsRepeatedTypes(t *testing.T) {
	pivots := []models.Pivot{
		{Price: 1, Type: models.PivotLow},
		{Price: 2, Type: models.PivotLow},
		{Price: 3, Type: models.PivotHigh},
		{Price: 4, Type: models.PivotHigh},
		{Price: 5, Type: models.PivotLow},
	}
	waves := labelWaves(pivots)
	if len(waves) != 3 {
		t.Fatalf("expected 3 waves, got %d", len(waves))
	}
	if waves[0].Price != 1 || waves[1].Price != 3 || waves[2].Price != 5 {
		t.Fatalf("unexpected waves %+v", waves)
	}
}

func TestCompletionProbabilityFloor(t *testing.T) {
	waves := []models.WavePoint{{Price: 100}, {Price: 110}, {Price: 113}}
	// 3/10 = 0.3 is not within 0.05 of any ratio.
	if got := completionProbability(waves); got != 0.5 {
		t.Fatalf("probability = %v, want 0.5", got)
	}
}
