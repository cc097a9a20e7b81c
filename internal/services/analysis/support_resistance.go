package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"ExtremeScan/internal/domain/models"
	domsvc "ExtremeScan/internal/domain/service"
	"ExtremeScan/internal/services/features"
)

const (
	clusterTolerance = 0.01
	levelProximity   = 0.03
	minClusterSize   = 2
)

// SupportResistanceClusterer groups pivots into horizontal levels.
type SupportResistanceClusterer struct{}

func NewSupportResistanceClusterer() *SupportResistanceClusterer {
	return &SupportResistanceClusterer{}
}

func (s *SupportResistanceClusterer) Name() string    { return NameSupportResistance }
func (s *SupportResistanceClusterer) Weight() float64 { return WeightSupportResistance }

type cluster struct {
	seed   float64
	kind   models.LevelType
	prices []float64
}

// Levels returns clusters of two or more pivots, strongest first.
// A pivot joins the first cluster whose seed price is within 1%.
func (s *SupportResistanceClusterer) Levels(candles []models.Candle) []models.SRLevel {
	var clusters []*cluster
	for _, p := range FindPivots(candles, trendPivotWindow, PivotBoth) {
		joined := false
		for _, c := range clusters {
			if c.seed != 0 && math.Abs(p.Price-c.seed)/c.seed < clusterTolerance {
				c.prices = append(c.prices, p.Price)
				joined = true
				break
			}
		}
		if joined {
			continue
		}
		kind := models.Support
		if p.Type == models.PivotHigh {
			kind = models.Resistance
		}
		clusters = append(clusters, &cluster{seed: p.Price, kind: kind, prices: []float64{p.Price}})
	}

	var levels []models.SRLevel
	for _, c := range clusters {
		if len(c.prices) < minClusterSize {
			continue
		}
		sum := 0.0
		for _, v := range c.prices {
			sum += v
		}
		levels = append(levels, models.SRLevel{
			Price:    sum / float64(len(c.prices)),
			Type:     c.kind,
			Strength: math.Min(float64(len(c.prices))/5, 1),
			Members:  len(c.prices),
		})
	}
	sort.SliceStable(levels, func(i, j int) bool { return levels[i].Strength > levels[j].Strength })
	return levels
}

func (s *SupportResistanceClusterer) Evaluate(_ string, snap *models.MarketSnapshot) *models.StrategyContribution {
	if snap == nil {
		return nil
	}
	price := referencePrice(snap)
	if price <= 0 {
		return nil
	}

	var nearest *models.SRLevel
	best := math.Inf(1)
	levels := s.Levels(snap.Candles)
	for i := range levels {
		d := features.RelativeDistance(levels[i].Price, price)
		if d < best && d < levelProximity {
			best = d
			nearest = &levels[i]
		}
	}
	if nearest == nil {
		return nil
	}

	return &models.StrategyContribution{
		Name:       NameSupportResistance,
		Weight:     WeightSupportResistance,
		Bias:       biasForLevel(nearest.Type),
		Confidence: math.Min(nearest.Strength*100, 100),
		Details: fmt.Sprintf("Price near key %s at $%.2f (%.1f%% away)",
			strings.ToLower(string(nearest.Type)), nearest.Price, best*100),
	}
}

var _ domsvc.Strategy = (*SupportResistanceClusterer)(nil)
