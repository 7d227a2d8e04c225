package clickhouse

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
)

// candlesDDL dedups on (symbol, timeframe, timestamp): collectors refetch the
// open bucket every poll and the newest version wins at merge time. Readers
// use FINAL, so duplicates are never visible.
const candlesDDL = `
CREATE TABLE IF NOT EXISTS candles (
	symbol      LowCardinality(String),
	timeframe   LowCardinality(String),
	timestamp   DateTime64(3, 'UTC'),
	open        Float64,
	high        Float64,
	low         Float64,
	close       Float64,
	volume      Float64,
	inserted_at DateTime DEFAULT now()
) ENGINE = ReplacingMergeTree(inserted_at)
PARTITION BY toYYYYMM(timestamp)
ORDER BY (symbol, timeframe, timestamp)`

// flowAggregatesDDL holds the 15s taker tape rollups. Slices are written
// exactly once after their grace window closes, so a plain MergeTree is
// enough. The TTL bounds growth; readers only ever look hours back.
const flowAggregatesDDL = `
CREATE TABLE IF NOT EXISTS flow_aggregates_15s (
	symbol              LowCardinality(String),
	timestamp           DateTime64(3, 'UTC'),
	vwap                Float64,
	high                Float64,
	low                 Float64,
	taker_buy_notional  Float64,
	taker_sell_notional Float64
) ENGINE = MergeTree()
PARTITION BY toYYYYMMDD(timestamp)
ORDER BY (symbol, timestamp)
TTL toDateTime(timestamp) + INTERVAL 90 DAY`

const openInterestDDL = `
CREATE TABLE IF NOT EXISTS open_interest (
	symbol    LowCardinality(String),
	timestamp DateTime64(3, 'UTC'),
	value     Float64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(timestamp)
ORDER BY (symbol, timestamp)`

// EnsureSchema creates the market data tables if they do not exist.
// Idempotent, runs at startup.
func EnsureSchema(ctx context.Context, conn driver.Conn) error {
	for _, ddl := range []string{candlesDDL, flowAggregatesDDL, openInterestDDL} {
		if err := conn.Exec(ctx, ddl); err != nil {
			return errors.Wrap(err, "ensure clickhouse schema")
		}
	}
	return nil
}
