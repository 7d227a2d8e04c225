package clickhouse

import (
	"context"
	"database/sql"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/market_data"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/metrics"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
)

// Compile-time check
var _ market_data.Repository = (*MarketDataRepository)(nil)

// MarketDataRepository implements market_data.Repository using ClickHouse
type MarketDataRepository struct {
	conn driver.Conn
}

// NewMarketDataRepository creates a new market data repository
func NewMarketDataRepository(conn driver.Conn) *MarketDataRepository {
	return &MarketDataRepository{conn: conn}
}

// InsertCandles inserts candles in batch
func (r *MarketDataRepository) InsertCandles(ctx context.Context, candles []market_data.Candle) (err error) {
	if len(candles) == 0 {
		return nil
	}

	defer observe("insert_candles", time.Now(), &err)

	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO candles (
			symbol, timeframe, timestamp, open, high, low, close, volume
		)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare batch")
	}

	for _, candle := range candles {
		err := batch.Append(
			candle.Symbol, candle.Timeframe, candle.Timestamp,
			candle.Open, candle.High, candle.Low, candle.Close,
			candle.Volume,
		)
		if err != nil {
			return errors.Wrap(err, "failed to append candle")
		}
	}

	return batch.Send()
}

// GetCandlesBefore retrieves up to limit candles at or before the given time,
// returned oldest-first. FINAL collapses ReplacingMergeTree duplicates so a
// re-inserted bucket is read back exactly once.
func (r *MarketDataRepository) GetCandlesBefore(ctx context.Context, symbol, timeframe string, limit int, atOrBefore time.Time) ([]market_data.Candle, error) {
	var candles []market_data.Candle

	query := `
		SELECT symbol, timeframe, timestamp, open, high, low, close, volume
		FROM candles FINAL
		WHERE symbol = $1 AND timeframe = $2 AND timestamp <= $3
		ORDER BY timestamp DESC
		LIMIT $4`

	start := time.Now()
	err := r.conn.Select(ctx, &candles, query, symbol, timeframe, atOrBefore, limit)
	metrics.RecordDBQuery("clickhouse", "get_candles", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}

	return candles, nil
}

// InsertFlowAggregates inserts 15s flow rollups in batch
func (r *MarketDataRepository) InsertFlowAggregates(ctx context.Context, aggregates []market_data.FlowAggregate) (err error) {
	if len(aggregates) == 0 {
		return nil
	}

	defer observe("insert_flow_aggregates", time.Now(), &err)

	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO flow_aggregates_15s (
			symbol, timestamp, vwap, high, low, taker_buy_notional, taker_sell_notional
		)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare batch")
	}

	for _, agg := range aggregates {
		err := batch.Append(
			agg.Symbol, agg.Timestamp, agg.VWAP, agg.High, agg.Low,
			agg.TakerBuyNotional, agg.TakerSellNotional,
		)
		if err != nil {
			return errors.Wrap(err, "failed to append flow aggregate")
		}
	}

	return batch.Send()
}

// GetFlowAggregates retrieves flow rollups in [from, to), oldest-first
func (r *MarketDataRepository) GetFlowAggregates(ctx context.Context, symbol string, from, to time.Time) ([]market_data.FlowAggregate, error) {
	var aggregates []market_data.FlowAggregate

	query := `
		SELECT symbol, timestamp, vwap, high, low, taker_buy_notional, taker_sell_notional
		FROM flow_aggregates_15s
		WHERE symbol = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp ASC`

	start := time.Now()
	err := r.conn.Select(ctx, &aggregates, query, symbol, from, to)
	metrics.RecordDBQuery("clickhouse", "get_flow_aggregates", time.Since(start), err)
	return aggregates, err
}

// InsertOpenInterest inserts an open interest snapshot
func (r *MarketDataRepository) InsertOpenInterest(ctx context.Context, oi *market_data.OpenInterest) error {
	query := `
		INSERT INTO open_interest (
			symbol, timestamp, value
		) VALUES (
			$1, $2, $3
		)`

	start := time.Now()
	err := r.conn.Exec(ctx, query, oi.Symbol, oi.Timestamp, oi.Value)
	metrics.RecordDBQuery("clickhouse", "insert_open_interest", time.Since(start), err)
	return err
}

// GetOpenInterestBefore retrieves the latest open interest snapshot at or
// before the given time
func (r *MarketDataRepository) GetOpenInterestBefore(ctx context.Context, symbol string, at time.Time) (*market_data.OpenInterest, error) {
	var oi market_data.OpenInterest

	query := `
		SELECT symbol, timestamp, value
		FROM open_interest
		WHERE symbol = $1 AND timestamp <= $2
		ORDER BY timestamp DESC
		LIMIT 1`

	start := time.Now()
	err := r.conn.QueryRow(ctx, query, symbol, at).ScanStruct(&oi)
	metrics.RecordDBQuery("clickhouse", "get_open_interest", time.Since(start), err)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(errors.ErrNotFound, "no open interest snapshot")
	}
	if err != nil {
		return nil, err
	}

	return &oi, nil
}

// observe reports one repository operation to the db metrics. Used with
// defer so batch paths report their full prepare-append-send span.
func observe(operation string, start time.Time, err *error) {
	metrics.RecordDBQuery("clickhouse", operation, time.Since(start), *err)
}
