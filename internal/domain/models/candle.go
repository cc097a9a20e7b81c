package models

import "time"

// Candle is one OHLCV bar. Timestamp is unix milliseconds.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Time returns the candle open time.
func (c Candle) Time() time.Time { return time.UnixMilli(c.Timestamp) }

// MarketSnapshot is what a fetcher returns for one symbol.
type MarketSnapshot struct {
	Candles      []Candle `json:"data"`
	CurrentPrice float64  `json:"currentPrice"`
	Volume24hUSD float64  `json:"volume24hUSD"`
}

// LastClose returns the close of the newest candle, or 0 for an empty series.
func (s *MarketSnapshot) LastClose() float64 {
	if s == nil || len(s.Candles) == 0 {
		return 0
	}
	return s.Candles[len(s.Candles)-1].Close
}
