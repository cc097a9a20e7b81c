package models

// PivotType marks a swing high or swing low.
type PivotType string

const (
	PivotHigh PivotType = "HIGH"
	PivotLow  PivotType = "LOW"
)

// Pivot is a local swing point in a candle series.
type Pivot struct {
	Price     float64   `json:"price"`
	Timestamp int64     `json:"timestamp"`
	Type      PivotType `json:"type"`
}

// LevelType classifies trendlines and horizontal levels.
type LevelType string

const (
	Support    LevelType = "SUPPORT"
	Resistance LevelType = "RESISTANCE"
)

// Anchor is one end of a trendline.
type Anchor struct {
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

// Trendline is a line through two same-type pivots projected over the series.
type Trendline struct {
	ID                  string    `json:"id"`
	Type                LevelType `json:"type"`
	Start               Anchor    `json:"startPoint"`
	End                 Anchor    `json:"endPoint"`
	Slope               float64   `json:"slope"`
	Strength            float64   `json:"strength"`
	TouchCount          int       `json:"touches"`
	ProjectedPrice      float64   `json:"currentPrice"`
	BreakoutProbability float64   `json:"breakoutProbability"`
}

// Direction is an expected price direction.
type Direction string

const (
	Up   Direction = "UP"
	Down Direction = "DOWN"
)

// WaveCategory separates impulse and corrective waves.
type WaveCategory string

const (
	Impulse    WaveCategory = "IMPULSE"
	Corrective WaveCategory = "CORRECTIVE"
)

// WavePoint is a pivot labelled with an Elliott wave.
type WavePoint struct {
	Price     float64      `json:"price"`
	Timestamp int64        `json:"timestamp"`
	Label     string       `json:"wave"`
	Category  WaveCategory `json:"type"`
}

// ElliottAnalysis is the result of labelling the latest pivots.
type ElliottAnalysis struct {
	Waves                 []WavePoint `json:"waves"`
	CurrentWave           WavePoint   `json:"currentWave"`
	NextDirection         Direction   `json:"nextExpectedDirection"`
	CompletionProbability float64     `json:"completionProbability"`
	TargetPrice           float64     `json:"targetPrice"`
	InvalidationLevel     float64     `json:"invalidationLevel"`
}

// HarmonicType names a harmonic template.
type HarmonicType string

const (
	Gartley   HarmonicType = "GARTLEY"
	Butterfly HarmonicType = "BUTTERFLY"
	Bat       HarmonicType = "BAT"
	Crab      HarmonicType = "CRAB"
	Shark     HarmonicType = "SHARK"
	Cypher    HarmonicType = "CYPHER"
)

// PriceZone is a closed price band.
type PriceZone struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether price lies inside the band.
func (z PriceZone) Contains(price float64) bool { return price >= z.Lower && price <= z.Upper }

// Mid returns the band midpoint.
func (z PriceZone) Mid() float64 { return (z.Lower + z.Upper) / 2 }

// HarmonicPattern is an accepted X-A-B-C-D match.
type HarmonicPattern struct {
	Type        HarmonicType `json:"type"`
	Direction   Bias         `json:"direction"`
	X           Pivot        `json:"x"`
	A           Pivot        `json:"a"`
	B           Pivot        `json:"b"`
	C           Pivot        `json:"c"`
	D           Pivot        `json:"d"`
	PRZ         PriceZone    `json:"prz"`
	Reliability float64      `json:"reliabilityScore"`
	Targets     []float64    `json:"targetLevels"`
	StopLoss    float64      `json:"stopLoss"`
}

// SRLevel is a horizontal level built from clustered pivots.
type SRLevel struct {
	Price    float64   `json:"price"`
	Type     LevelType `json:"type"`
	Strength float64   `json:"strength"`
	Members  int       `json:"members"`
}

// VolumeProfile summarises the latest bar's volume against the series.
type VolumeProfile struct {
	AverageVolume float64 `json:"averageVolume"`
	CurrentVolume float64 `json:"currentVolume"`
	Ratio         float64 `json:"volumeRatio"`
	PriceChange   float64 `json:"priceChange"`
	Volume24hUSD  float64 `json:"volumeUSD"`
}

// Bias is a strategy's directional read.
type Bias string

const (
	Bullish Bias = "BULLISH"
	Bearish Bias = "BEARISH"
	Neutral Bias = "NEUTRAL"
)

// StrategyContribution is one strategy's vote for a single analysis.
type StrategyContribution struct {
	Name       string  `json:"name"`
	Weight     float64 `json:"weight"`
	Bias       Bias    `json:"signal"`
	Confidence float64 `json:"confidence"`
	Details    string  `json:"details"`
}
