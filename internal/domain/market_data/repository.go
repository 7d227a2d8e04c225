package market_data

import (
	"context"
	"time"
)

// Repository defines the interface for market data access (ClickHouse)
type Repository interface {
	// Candle operations
	InsertCandles(ctx context.Context, candles []Candle) error
	GetCandlesBefore(ctx context.Context, symbol, timeframe string, limit int, atOrBefore time.Time) ([]Candle, error)

	// Flow aggregate operations (15s taker tape rollups)
	InsertFlowAggregates(ctx context.Context, aggregates []FlowAggregate) error
	GetFlowAggregates(ctx context.Context, symbol string, from, to time.Time) ([]FlowAggregate, error)

	// Open interest operations (REST polling only, the feed has no OI stream)
	InsertOpenInterest(ctx context.Context, oi *OpenInterest) error
	GetOpenInterestBefore(ctx context.Context, symbol string, at time.Time) (*OpenInterest, error)
}
