package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ExtremeScan/internal/domain/models"
	domrepo "ExtremeScan/internal/domain/repository"
	pkgch "ExtremeScan/pkg/clickhouse"
	applogger "ExtremeScan/pkg/logger"
)

// CHCandleFetcher implements MarketDataFetcher on the ClickHouse candle table.
type CHCandleFetcher struct {
	db    *sql.DB
	table string
	tf    domrepo.Timeframe
	limit int
	l     *applogger.Logger
}

func NewCHCandleFetcher(ch *pkgch.Client, tf domrepo.Timeframe, limit int, l *applogger.Logger) *CHCandleFetcher {
	if limit <= 0 {
		limit = 100
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &CHCandleFetcher{
		db:    ch.DB(),
		table: ch.Table(pkgch.CandleTable),
		tf:    domrepo.NormalizeTimeframe(string(tf)),
		limit: limit,
		l:     l,
	}
}

// Fetch returns (nil, nil) when the table has no rows for symbol.
func (s *CHCandleFetcher) Fetch(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	start := time.Now()
	candles, err := s.latestCandles(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, nil
	}
	last := candles[len(candles)-1]
	vol, err := s.quoteVolume24h(ctx, symbol, last.Time())
	if err != nil {
		return nil, err
	}

	s.l.Debug("clickhouse latest_candles ok",
		applogger.String("table", s.table),
		applogger.String("symbol", symbol),
		applogger.String("tf", string(s.tf)),
		applogger.Int("rows", len(candles)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return &models.MarketSnapshot{Candles: candles, CurrentPrice: last.Close, Volume24hUSD: vol}, nil
}

func (s *CHCandleFetcher) latestCandles(ctx context.Context, symbol string) ([]models.Candle, error) {
	const qtpl = `
        SELECT bucket, open, high, low, close, volume
        FROM %s
        WHERE symbol = ? AND tf = ?
        ORDER BY bucket DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), symbol, string(s.tf), s.limit)
	if err != nil {
		s.logErr("query", symbol, err)
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, s.limit)
	for rows.Next() {
		var (
			c  models.Candle
			ts time.Time
		)
		if err := rows.Scan(&ts, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			s.logErr("scan", symbol, err)
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		c.Timestamp = ts.UnixMilli()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		s.logErr("rows", symbol, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	reverseCandles(out)
	return out, nil
}

// quoteVolume24h sums close*volume over the day ending at the newest bar.
func (s *CHCandleFetcher) quoteVolume24h(ctx context.Context, symbol string, until time.Time) (float64, error) {
	q := fmt.Sprintf(`SELECT sum(close * volume) FROM %s WHERE symbol = ? AND tf = ? AND bucket > ? AND bucket <= ?`, s.table)
	var vol sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, q, symbol, string(s.tf), until.Add(-24*time.Hour), until).Scan(&vol); err != nil {
		s.logErr("volume", symbol, err)
		return 0, fmt.Errorf("quote volume: %w", err)
	}
	return vol.Float64, nil
}

func (s *CHCandleFetcher) logErr(stage, symbol string, err error) {
	s.l.Error("clickhouse latest_candles "+stage+" error",
		applogger.String("table", s.table),
		applogger.String("symbol", symbol),
		applogger.String("tf", string(s.tf)),
		applogger.Int("limit", s.limit),
		applogger.Error(err),
	)
}

// reverseCandles flips a DESC result to ascending time order in place.
func reverseCandles(cs []models.Candle) {
	for i, j := 0, len(cs)-1; i < j; i, j = i+1, j-1 {
		cs[i], cs[j] = cs[j], cs[i]
	}
}

var _ domrepo.MarketDataFetcher = (*CHCandleFetcher)(nil)
