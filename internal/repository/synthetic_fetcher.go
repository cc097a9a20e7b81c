package repository

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"ExtremeScan/internal/domain/models"
	domrepo "ExtremeScan/internal/domain/repository"
)

const (
	syntheticBars       = 101
	syntheticVolatility = 0.02
)

// SyntheticFetcher generates an hourly random walk per request. It stands in
// for a market feed in demos and as the fallback when the real feed is down.
type SyntheticFetcher struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSyntheticFetcher seeds the walk; equal seeds and clocks give equal series.
func NewSyntheticFetcher(seed int64, now func() time.Time) *SyntheticFetcher {
	if now == nil {
		now = time.Now
	}
	return &SyntheticFetcher{rng: rand.New(rand.NewSource(seed)), now: now}
}

func basePrice(symbol string) float64 {
	switch {
	case strings.Contains(symbol, "BTC"):
		return 43000
	case strings.Contains(symbol, "ETH"):
		return 2300
	default:
		return 100
	}
}

func (f *SyntheticFetcher) Fetch(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	nowMs := f.now().UnixMilli()
	price := basePrice(symbol)
	candles := make([]models.Candle, 0, syntheticBars)
	for i := syntheticBars - 1; i >= 0; i-- {
		vol := price * syntheticVolatility
		open := price
		closePrice := price + (f.rng.Float64()-0.5)*vol
		candles = append(candles, models.Candle{
			Timestamp: nowMs - int64(i)*time.Hour.Milliseconds(),
			Open:      open,
			High:      math.Max(open, closePrice) + f.rng.Float64()*vol*0.5,
			Low:       math.Min(open, closePrice) - f.rng.Float64()*vol*0.5,
			Close:     closePrice,
			Volume:    1_000_000 + f.rng.Float64()*5_000_000,
		})
		price = closePrice
	}

	return &models.MarketSnapshot{
		Candles:      candles,
		CurrentPrice: candles[len(candles)-1].Close,
		Volume24hUSD: 50_000_000 + f.rng.Float64()*100_000_000,
	}, nil
}

var _ domrepo.MarketDataFetcher = (*SyntheticFetcher)(nil)
