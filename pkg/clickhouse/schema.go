package clickhouse

import "fmt"

// CandleTable is the OHLCV table read by the candle fetcher.
const CandleTable = "candles"

// CandleSchema returns the DDL for the candle store in database.
func CandleSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    symbol LowCardinality(String),
    tf LowCardinality(String),
    bucket DateTime64(3, 'UTC'),
    open Float64,
    high Float64,
    low Float64,
    close Float64,
    volume Float64
) ENGINE = ReplacingMergeTree
ORDER BY (symbol, tf, bucket)
TTL toDateTime(bucket) + INTERVAL 90 DAY`, database, CandleTable),
	}
}
