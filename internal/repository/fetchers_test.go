package repository

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ExtremeScan/internal/domain/models"
	domrepo "ExtremeScan/internal/domain/repository"
)

func TestHTTPMarketFetcher(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		switch r.URL.Path {
		case "/api/market/BTCUSDT/ohlcv":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[{"timestamp":1,"open":1,"high":2,"low":0.5,"close":1.5,"volume":10}],"currentPrice":1.6,"volume24hUSD":3000000}`))
		case "/api/market/DOWN/ohlcv":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := NewHTTPMarketFetcher(nil, srv.URL+"/", domrepo.TF1h, 100, nil)
	snap, err := f.Fetch(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/api/market/BTCUSDT/ohlcv" || gotQuery != "interval=1h&limit=100" {
		t.Fatalf("unexpected request %s?%s", gotPath, gotQuery)
	}
	if snap == nil || len(snap.Candles) != 1 || snap.CurrentPrice != 1.6 || snap.Volume24hUSD != 3_000_000 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	snap, err = f.Fetch(context.Background(), "NOPE")
	if err != nil || snap != nil {
		t.Fatalf("404 should skip the symbol, got %+v err=%v", snap, err)
	}

	if _, err := f.Fetch(context.Background(), "DOWN"); err == nil {
		t.Fatalf("expected error for 502")
	}
}

func TestSyntheticFetcherShape(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	f := NewSyntheticFetcher(42, func() time.Time { return now })
	snap, err := f.Fetch(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(snap.Candles) != syntheticBars {
		t.Fatalf("candles = %d, want %d", len(snap.Candles), syntheticBars)
	}
	last := snap.Candles[len(snap.Candles)-1]
	if last.Timestamp != now.UnixMilli() {
		t.Errorf("last timestamp = %d, want %d", last.Timestamp, now.UnixMilli())
	}
	if snap.Candles[0].Timestamp != now.UnixMilli()-100*time.Hour.Milliseconds() {
		t.Errorf("first timestamp is not 100 hours back")
	}
	if snap.CurrentPrice != last.Close {
		t.Errorf("current price should be the last close")
	}
	if snap.Volume24hUSD < 50_000_000 || snap.Volume24hUSD > 150_000_000 {
		t.Errorf("volume24hUSD = %v out of range", snap.Volume24hUSD)
	}
	if first := snap.Candles[0].Open; first != 43000 {
		t.Errorf("BTC walk should start at 43000, got %v", first)
	}
	for i, c := range snap.Candles {
		if c.High < c.Open || c.High < c.Close || c.Low > c.Open || c.Low > c.Close {
			t.Fatalf("candle %d has inconsistent range %+v", i, c)
		}
		if c.Volume < 1_000_000 || c.Volume > 6_000_000 {
			t.Fatalf("candle %d volume %v out of range", i, c.Volume)
		}
	}

	if snap, _ := f.Fetch(context.Background(), "ETHUSDT"); snap.Candles[0].Open != 2300 {
		t.Errorf("ETH walk should start at 2300")
	}
	if snap, _ := f.Fetch(context.Background(), "SOLUSDT"); snap.Candles[0].Open != 100 {
		t.Errorf("other symbols should start at 100")
	}
}

func TestFallbackFetcher(t *testing.T) {
	fallback := &models.MarketSnapshot{CurrentPrice: 1}
	primaryErr := domrepo.FetcherFunc(func(context.Context, string) (*models.MarketSnapshot, error) {
		return nil, errors.New("down")
	})
	primaryNil := domrepo.FetcherFunc(func(context.Context, string) (*models.MarketSnapshot, error) {
		return nil, nil
	})
	primaryOK := domrepo.FetcherFunc(func(context.Context, string) (*models.MarketSnapshot, error) {
		return &models.MarketSnapshot{CurrentPrice: 2}, nil
	})
	fb := domrepo.FetcherFunc(func(context.Context, string) (*models.MarketSnapshot, error) {
		return fallback, nil
	})

	for name, primary := range map[string]domrepo.MarketDataFetcher{"error": primaryErr, "nil": primaryNil} {
		snap, err := NewFallbackFetcher(primary, fb, nil, nil).Fetch(context.Background(), "X")
		if err != nil || snap != fallback {
			t.Errorf("%s: expected fallback snapshot, got %+v err=%v", name, snap, err)
		}
	}

	snap, err := NewFallbackFetcher(primaryOK, fb, nil, nil).Fetch(context.Background(), "X")
	if err != nil || snap.CurrentPrice != 2 {
		t.Fatalf("expected primary snapshot, got %+v err=%v", snap, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewFallbackFetcher(primaryErr, fb, nil, nil).Fetch(ctx, "X"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReverseCandles(t *testing.T) {
	cs := []models.Candle{{Timestamp: 3}, {Timestamp: 2}, {Timestamp: 1}}
	reverseCandles(cs)
	if cs[0].Timestamp != 1 || cs[2].Timestamp != 3 {
		t.Fatalf("unexpected order %+v", cs)
	}
}
