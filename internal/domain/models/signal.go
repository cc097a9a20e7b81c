package models

import "time"

// SignalTTL is how long a signal stays actionable after creation.
const SignalTTL = 4 * time.Hour

// Classification says which extreme the signal anticipates.
type Classification string

const (
	PotentialHigh Classification = "POTENTIAL_HIGH"
	PotentialLow  Classification = "POTENTIAL_LOW"
)

// SignalType is the suggested trade side.
type SignalType string

const (
	Buy  SignalType = "BUY"
	Sell SignalType = "SELL"
)

// SignalStatus is the lifecycle state of a signal.
type SignalStatus string

const (
	StatusActive      SignalStatus = "ACTIVE"
	StatusTriggered   SignalStatus = "TRIGGERED"
	StatusExpired     SignalStatus = "EXPIRED"
	StatusInvalidated SignalStatus = "INVALIDATED"
)

// Valid reports whether s is a known status.
func (s SignalStatus) Valid() bool {
	switch s {
	case StatusActive, StatusTriggered, StatusExpired, StatusInvalidated:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s.
func (s SignalStatus) Terminal() bool {
	return s == StatusTriggered || s == StatusExpired || s == StatusInvalidated
}

// CanTransition reports whether from -> to respects the lifecycle.
// Only ACTIVE may move, and only into a terminal state.
func CanTransition(from, to SignalStatus) bool {
	return from == StatusActive && to.Terminal()
}

// ExtremePoint is a materialised reversal/breakout signal.
type ExtremePoint struct {
	ID             string                 `json:"id"`
	Symbol         string                 `json:"symbol"`
	Timestamp      int64                  `json:"timestamp"`
	Price          float64                `json:"price"`
	Classification Classification         `json:"type"`
	SignalType     SignalType             `json:"signalType"`
	Confidence     float64                `json:"confidence"`
	Volume24hUSD   float64                `json:"volume24h"`
	Strategies     []StrategyContribution `json:"strategies"`
	TargetPrice    float64                `json:"targetPrice"`
	StopLoss       float64                `json:"stopLoss"`
	RiskReward     float64                `json:"riskReward"`
	Reasoning      []string               `json:"reasoning"`
	Status         SignalStatus           `json:"status"`
	ExpiresAt      int64                  `json:"expiresAt"`
}

// Clone returns a deep copy so callers never share slices with the store.
func (s *ExtremePoint) Clone() *ExtremePoint {
	if s == nil {
		return nil
	}
	c := *s
	c.Strategies = append([]StrategyContribution(nil), s.Strategies...)
	c.Reasoning = append([]string(nil), s.Reasoning...)
	return &c
}

// ActiveAt reports whether the signal is ACTIVE and unexpired at now (unix ms).
func (s *ExtremePoint) ActiveAt(now int64) bool {
	return s.Status == StatusActive && s.ExpiresAt > now
}

// SignalStatusUpdate is an external request to move a signal along its lifecycle.
type SignalStatusUpdate struct {
	ID     string       `json:"id"`
	Status SignalStatus `json:"status"`
}
