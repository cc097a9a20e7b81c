package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ExtremeScan/internal/domain/models"
	domrepo "ExtremeScan/internal/domain/repository"
	xhttp "ExtremeScan/pkg/http"
	applogger "ExtremeScan/pkg/logger"
)

// HTTPMarketFetcher reads candles from a REST market-data service:
// GET {base}/api/market/{symbol}/ohlcv?interval=1h&limit=100.
type HTTPMarketFetcher struct {
	client   *xhttp.Client
	baseURL  string
	interval domrepo.Timeframe
	limit    int
	l        *applogger.Logger
}

func NewHTTPMarketFetcher(client *xhttp.Client, baseURL string, interval domrepo.Timeframe, limit int, l *applogger.Logger) *HTTPMarketFetcher {
	if client == nil {
		client = xhttp.NewClient(xhttp.WithTimeout(10 * time.Second))
	}
	if limit <= 0 {
		limit = 100
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &HTTPMarketFetcher{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		interval: domrepo.NormalizeTimeframe(string(interval)),
		limit:    limit,
		l:        l,
	}
}

// Fetch returns (nil, nil) when the service does not know the symbol.
func (f *HTTPMarketFetcher) Fetch(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	var snap models.MarketSnapshot
	err := f.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/api/market/%s/ohlcv", f.baseURL, url.PathEscape(symbol)),
		QueryParams: map[string][]string{
			"interval": {string(f.interval)},
			"limit":    {strconv.Itoa(f.limit)},
		},
	}, &snap)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			f.l.Debug("market data not found", applogger.String("symbol", symbol))
			return nil, nil
		}
		return nil, fmt.Errorf("fetch %s ohlcv: %w", symbol, err)
	}
	if len(snap.Candles) == 0 {
		return nil, nil
	}
	if snap.CurrentPrice <= 0 {
		snap.CurrentPrice = snap.LastClose()
	}
	return &snap, nil
}

var _ domrepo.MarketDataFetcher = (*HTTPMarketFetcher)(nil)
