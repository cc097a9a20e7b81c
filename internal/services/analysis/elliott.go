package analysis

import (
	"fmt"
	"math"

	"ExtremeScan/internal/domain/models"
	domsvc "ExtremeScan/internal/domain/service"
)

const (
	elliottLookback      = 8
	fibTolerance         = 0.05
	fibHit               = 0.15
	minCompletion        = 0.5
	maxCompletion        = 0.95
	elliottTargetFactor  = 0.618
	minElliottWavePoints = 3
)

var (
	impulseLabels    = []string{"1", "2", "3", "4", "5"}
	correctiveLabels = []string{"A", "B", "C"}
	fibRatios        = []float64{0.236, 0.382, 0.5, 0.618, 0.786, 1.0, 1.272, 1.618}

	nextDirection = map[string]models.Direction{
		"1": models.Down, "2": models.Up, "3": models.Down, "4": models.Up, "5": models.Down,
		"A": models.Up, "B": models.Down, "C": models.Up,
	}
)

// ElliottWaveAnalyzer labels the latest alternating pivots as Elliott waves.
type ElliottWaveAnalyzer struct{}

func NewElliottWaveAnalyzer() *ElliottWaveAnalyzer { return &ElliottWaveAnalyzer{} }

func (e *ElliottWaveAnalyzer) Name() string    { return NameElliottWave }
func (e *ElliottWaveAnalyzer) Weight() float64 { return WeightElliottWave }

// Analyze returns nil when the series is too short or fewer than three
// alternating pivots can be labelled.
func (e *ElliottWaveAnalyzer) Analyze(candles []models.Candle) *models.ElliottAnalysis {
	if len(candles) < MinCandles {
		return nil
	}
	pivots := FindPivots(candles, trendPivotWindow, PivotBoth)
	if len(pivots) < 5 {
		return nil
	}
	waves := labelWaves(pivots)
	if len(waves) < minElliottWavePoints {
		return nil
	}

	current := waves[len(waves)-1]
	prev := waves[len(waves)-2]
	dir := nextDirection[current.Label]

	move := math.Abs(current.Price - prev.Price)
	target := current.Price + move*elliottTargetFactor
	if dir == models.Down {
		target = current.Price - move*elliottTargetFactor
	}

	return &models.ElliottAnalysis{
		Waves:                 waves,
		CurrentWave:           current,
		NextDirection:         dir,
		CompletionProbability: completionProbability(waves),
		TargetPrice:           target,
		InvalidationLevel:     prev.Price,
	}
}

func labelWaves(pivots []models.Pivot) []models.WavePoint {
	if len(pivots) > elliottLookback {
		pivots = pivots[len(pivots)-elliottLookback:]
	}
	var (
		waves    []models.WavePoint
		lastType models.PivotType
		idx      int
		impulse  = true
	)
	for _, p := range pivots {
		if p.Type == lastType {
			continue
		}
		labels, cat := impulseLabels, models.Impulse
		if !impulse {
			labels, cat = correctiveLabels, models.Corrective
		}
		waves = append(waves, models.WavePoint{
			Price:     p.Price,
			Timestamp: p.Timestamp,
			Label:     labels[idx%len(labels)],
			Category:  cat,
		})
		idx++
		lastType = p.Type
		if impulse && idx >= len(impulseLabels) {
			impulse = false
			idx = 0
		}
	}
	return waves
}

func completionProbability(waves []models.WavePoint) float64 {
	score := 0.0
	for i := 2; i < len(waves); i++ {
		first := math.Abs(waves[i-1].Price - waves[i-2].Price)
		if first == 0 {
			continue
		}
		ratio := math.Abs(waves[i].Price-waves[i-1].Price) / first
		for _, fib := range fibRatios {
			if math.Abs(ratio-fib) < fibTolerance {
				score += fibHit
				break
			}
		}
	}
	return math.Min(minCompletion+score, maxCompletion)
}

func (e *ElliottWaveAnalyzer) Evaluate(_ string, snap *models.MarketSnapshot) *models.StrategyContribution {
	if snap == nil {
		return nil
	}
	a := e.Analyze(snap.Candles)
	if a == nil || a.CompletionProbability < minCompletion {
		return nil
	}

	bias, move := models.Bullish, "upward"
	if a.NextDirection == models.Down {
		bias, move = models.Bearish, "downward"
	}
	return &models.StrategyContribution{
		Name:       NameElliottWave,
		Weight:     WeightElliottWave,
		Bias:       bias,
		Confidence: a.CompletionProbability * 100,
		Details: fmt.Sprintf("Elliott Wave %s completing, expecting %s move (%.0f%% completion)",
			a.CurrentWave.Label, move, a.CompletionProbability*100),
	}
}

var _ domsvc.Strategy = (*ElliottWaveAnalyzer)(nil)
