package models

// Outcome tags the result of one detection run.
type Outcome string

const (
	OutcomeInsufficientData       Outcome = "INSUFFICIENT_DATA"
	OutcomeBelowVolume            Outcome = "BELOW_VOLUME"
	OutcomeInsufficientStrategies Outcome = "INSUFFICIENT_STRATEGIES"
	OutcomeNeutral                Outcome = "NEUTRAL"
	OutcomeBelowConfidence        Outcome = "BELOW_CONFIDENCE"
	OutcomeAccepted               Outcome = "ACCEPTED"
)

// Detection is the tagged result of the strategy combiner.
// Signal is set only when Outcome is OutcomeAccepted.
type Detection struct {
	Symbol        string                 `json:"symbol"`
	Outcome       Outcome                `json:"outcome"`
	Contributions []StrategyContribution `json:"contributions,omitempty"`
	Bias          Bias                   `json:"bias,omitempty"`
	Confidence    float64                `json:"confidence"`
	Signal        *ExtremePoint          `json:"signal,omitempty"`
}

// Accepted reports whether a signal was materialised.
func (d Detection) Accepted() bool { return d.Outcome == OutcomeAccepted && d.Signal != nil }
