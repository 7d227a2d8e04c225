package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/clickhouse"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/config"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/market_data"
)

// ClickHouseTestHelper manages cleanup for ClickHouse integration tests.
type ClickHouseTestHelper struct {
	client *clickhouse.Client
}

// NewClickHouseTestHelper creates a ClickHouse client for tests.
func NewClickHouseTestHelper(t *testing.T, cfg config.ClickHouseConfig) *ClickHouseTestHelper {
	t.Helper()

	client, err := clickhouse.NewClient(cfg)
	if err != nil {
		t.Fatalf("failed to connect to clickhouse: %v", err)
	}

	helper := &ClickHouseTestHelper{client: client}
	t.Cleanup(func() { _ = client.Close() })
	return helper
}

// CreateTempTable creates a temporary table and registers cleanup.
func (h *ClickHouseTestHelper) CreateTempTable(t *testing.T, schema string) string {
	t.Helper()

	table := fmt.Sprintf("tmp_test_%d", time.Now().UnixNano())
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s) ENGINE = MergeTree() ORDER BY tuple()", table, schema)

	if err := h.client.Exec(context.Background(), query); err != nil {
		t.Fatalf("failed to create clickhouse table: %v", err)
	}

	t.Cleanup(func() {
		_ = h.client.Exec(context.Background(), fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
	})

	return table
}

// CleanupTable drops the provided table immediately.
func (h *ClickHouseTestHelper) CleanupTable(ctx context.Context, table string) error {
	return h.client.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
}

// RegisterTableCleanup schedules cleanup of specific table data after the
// test completes. Used with shared tables (candles, flow_aggregates_15s,
// open_interest) that must not be dropped.
func (h *ClickHouseTestHelper) RegisterTableCleanup(t *testing.T, table, condition string) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// Lightweight DELETE; ALTER TABLE DELETE is async and can outlive the test
		query := fmt.Sprintf("DELETE FROM %s WHERE %s", table, condition)
		_ = h.client.Exec(ctx, query)
	})
}

// Client exposes the raw ClickHouse client for queries.
func (h *ClickHouseTestHelper) Client() *clickhouse.Client {
	return h.client
}

// CreateBatch inserts test rows through the native batch interface.
// Usage: testsupport.CreateBatch(t, helper, testsupport.InsertCandles, candles)
func CreateBatch[T any](t *testing.T, helper *ClickHouseTestHelper, insertQuery string, items []T) {
	t.Helper()

	if len(items) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	batch, err := helper.client.Conn().PrepareBatch(ctx, insertQuery)
	if err != nil {
		t.Fatalf("failed to prepare batch: %v", err)
	}

	for _, item := range items {
		if err := batch.AppendStruct(&item); err != nil {
			t.Fatalf("failed to append item to batch: %v", err)
		}
	}

	if err := batch.Send(); err != nil {
		t.Fatalf("failed to send batch: %v", err)
	}
}

// Predefined insert queries for the shared tables
const (
	InsertCandles = `
		INSERT INTO candles (
			symbol, timeframe, timestamp, open, high, low, close, volume
		)
	`

	InsertFlowAggregates = `
		INSERT INTO flow_aggregates_15s (
			symbol, timestamp, vwap, high, low, taker_buy_notional, taker_sell_notional
		)
	`

	InsertOpenInterest = `
		INSERT INTO open_interest (
			symbol, timestamp, value
		)
	`
)

// ========================================
// Fixture Builders for ClickHouse Tests
// ========================================

// CandleFixture provides a builder for test candles
type CandleFixture struct {
	candle market_data.Candle
}

// NewCandleFixture creates a default candle: BTC on the 5m timeframe with a
// mildly bullish bar around 50k.
func NewCandleFixture() *CandleFixture {
	now := time.Now().UTC().Truncate(5 * time.Minute)
	return &CandleFixture{
		candle: market_data.Candle{
			Symbol:    "BTC",
			Timeframe: "5m",
			Timestamp: now,
			Open:      50000.0,
			High:      50400.0,
			Low:       49800.0,
			Close:     50250.0,
			Volume:    1_500_000.0,
		},
	}
}

// WithSymbol sets the symbol
func (f *CandleFixture) WithSymbol(symbol string) *CandleFixture {
	f.candle.Symbol = symbol
	return f
}

// WithTimeframe sets the timeframe
func (f *CandleFixture) WithTimeframe(timeframe string) *CandleFixture {
	f.candle.Timeframe = timeframe
	return f
}

// WithTimestamp sets the bucket start
func (f *CandleFixture) WithTimestamp(ts time.Time) *CandleFixture {
	f.candle.Timestamp = ts
	return f
}

// WithPrices sets the OHLC values
func (f *CandleFixture) WithPrices(open, high, low, closePrice float64) *CandleFixture {
	f.candle.Open = open
	f.candle.High = high
	f.candle.Low = low
	f.candle.Close = closePrice
	return f
}

// WithVolume sets the quote notional
func (f *CandleFixture) WithVolume(volume float64) *CandleFixture {
	f.candle.Volume = volume
	return f
}

// Build returns the candle
func (f *CandleFixture) Build() market_data.Candle {
	return f.candle
}

// BuildSeries returns count consecutive candles starting at the fixture's
// timestamp, each one step of its timeframe apart with a slight upward drift.
func (f *CandleFixture) BuildSeries(count int) []market_data.Candle {
	step, ok := market_data.TimeframeDuration(f.candle.Timeframe)
	if !ok {
		step = 5 * time.Minute
	}

	series := make([]market_data.Candle, 0, count)
	for i := 0; i < count; i++ {
		c := f.candle
		c.Timestamp = f.candle.Timestamp.Add(time.Duration(i) * step)
		drift := float64(i) * 10
		c.Open += drift
		c.High += drift
		c.Low += drift
		c.Close += drift
		series = append(series, c)
	}
	return series
}

// FlowAggregateFixture provides a builder for 15s flow slices
type FlowAggregateFixture struct {
	agg market_data.FlowAggregate
}

// NewFlowAggregateFixture creates a default balanced slice for BTC
func NewFlowAggregateFixture() *FlowAggregateFixture {
	now := time.Now().UTC().Truncate(15 * time.Second)
	return &FlowAggregateFixture{
		agg: market_data.FlowAggregate{
			Symbol:            "BTC",
			Timestamp:         now,
			VWAP:              50000.0,
			High:              50050.0,
			Low:               49950.0,
			TakerBuyNotional:  100_000.0,
			TakerSellNotional: 100_000.0,
		},
	}
}

// WithSymbol sets the symbol
func (f *FlowAggregateFixture) WithSymbol(symbol string) *FlowAggregateFixture {
	f.agg.Symbol = symbol
	return f
}

// WithTimestamp sets the slice start
func (f *FlowAggregateFixture) WithTimestamp(ts time.Time) *FlowAggregateFixture {
	f.agg.Timestamp = ts
	return f
}

// WithNotionals sets the aggressor split
func (f *FlowAggregateFixture) WithNotionals(buy, sell float64) *FlowAggregateFixture {
	f.agg.TakerBuyNotional = buy
	f.agg.TakerSellNotional = sell
	return f
}

// WithPriceRange sets vwap/high/low
func (f *FlowAggregateFixture) WithPriceRange(vwap, high, low float64) *FlowAggregateFixture {
	f.agg.VWAP = vwap
	f.agg.High = high
	f.agg.Low = low
	return f
}

// Build returns the aggregate
func (f *FlowAggregateFixture) Build() market_data.FlowAggregate {
	return f.agg
}

// BuildSeries returns count consecutive 15s slices starting at the fixture's
// timestamp.
func (f *FlowAggregateFixture) BuildSeries(count int) []market_data.FlowAggregate {
	series := make([]market_data.FlowAggregate, 0, count)
	for i := 0; i < count; i++ {
		a := f.agg
		a.Timestamp = f.agg.Timestamp.Add(time.Duration(i) * 15 * time.Second)
		series = append(series, a)
	}
	return series
}

// OpenInterestFixture provides a builder for OI snapshots
type OpenInterestFixture struct {
	oi market_data.OpenInterest
}

// NewOpenInterestFixture creates a default snapshot for BTC
func NewOpenInterestFixture() *OpenInterestFixture {
	return &OpenInterestFixture{
		oi: market_data.OpenInterest{
			Symbol:    "BTC",
			Timestamp: time.Now().UTC(),
			Value:     25000.0,
		},
	}
}

// WithSymbol sets the symbol
func (f *OpenInterestFixture) WithSymbol(symbol string) *OpenInterestFixture {
	f.oi.Symbol = symbol
	return f
}

// WithTimestamp sets the snapshot time
func (f *OpenInterestFixture) WithTimestamp(ts time.Time) *OpenInterestFixture {
	f.oi.Timestamp = ts
	return f
}

// WithValue sets the contracts outstanding
func (f *OpenInterestFixture) WithValue(value float64) *OpenInterestFixture {
	f.oi.Value = value
	return f
}

// Build returns the snapshot
func (f *OpenInterestFixture) Build() market_data.OpenInterest {
	return f.oi
}
