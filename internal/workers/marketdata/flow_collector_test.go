package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/hyperliquid"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/market_data"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/events"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) InsertCandles(ctx context.Context, candles []market_data.Candle) error {
	args := m.Called(ctx, candles)
	return args.Error(0)
}

func (m *MockRepository) GetCandlesBefore(ctx context.Context, symbol, timeframe string, limit int, atOrBefore time.Time) ([]market_data.Candle, error) {
	args := m.Called(ctx, symbol, timeframe, limit, atOrBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]market_data.Candle), args.Error(1)
}

func (m *MockRepository) InsertFlowAggregates(ctx context.Context, aggregates []market_data.FlowAggregate) error {
	args := m.Called(ctx, aggregates)
	return args.Error(0)
}

func (m *MockRepository) GetFlowAggregates(ctx context.Context, symbol string, from, to time.Time) ([]market_data.FlowAggregate, error) {
	args := m.Called(ctx, symbol, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]market_data.FlowAggregate), args.Error(1)
}

func (m *MockRepository) InsertOpenInterest(ctx context.Context, oi *market_data.OpenInterest) error {
	args := m.Called(ctx, oi)
	return args.Error(0)
}

func (m *MockRepository) GetOpenInterestBefore(ctx context.Context, symbol string, at time.Time) (*market_data.OpenInterest, error) {
	args := m.Called(ctx, symbol, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*market_data.OpenInterest), args.Error(1)
}

type MockStream struct {
	mock.Mock

	reconnect func()
}

func (m *MockStream) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStream) SubscribeTrades(coin string, callback func(hyperliquid.Trade)) error {
	args := m.Called(coin, callback)
	return args.Error(0)
}

func (m *MockStream) OnReconnect(fn func()) {
	m.Called(fn)
	m.reconnect = fn
}

func (m *MockStream) Disconnect() error {
	args := m.Called()
	return args.Error(0)
}

type MockGapPublisher struct {
	mock.Mock
}

func (m *MockGapPublisher) PublishDataGap(ctx context.Context, event *events.DataGapEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newTestFlowCollector(repo *MockRepository, symbols ...string) *FlowCollector {
	return NewFlowCollector(repo, new(MockStream), new(MockGapPublisher), symbols, 5*time.Second, true)
}

func trade(coin, side string, price, size float64, at time.Time) hyperliquid.Trade {
	return hyperliquid.Trade{Coin: coin, Side: side, Price: price, Size: size, Time: at}
}

func TestFlowCollector_AggregatesTape(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fc := newTestFlowCollector(new(MockRepository), "BTC")

	fc.record(trade("BTC", "B", 100, 2, base.Add(1*time.Second)))
	fc.record(trade("BTC", "A", 102, 1, base.Add(5*time.Second)))
	fc.record(trade("BTC", "B", 98, 1, base.Add(14*time.Second)))

	batch := fc.collectClosed(base.Add(20 * time.Second))
	require.Len(t, batch, 1)

	agg := batch[0]
	assert.Equal(t, "BTC", agg.Symbol)
	assert.True(t, agg.Timestamp.Equal(base))
	assert.InDelta(t, 100.0, agg.VWAP, 1e-9) // (100*2 + 102*1 + 98*1) / 4
	assert.InDelta(t, 102.0, agg.High, 1e-9)
	assert.InDelta(t, 98.0, agg.Low, 1e-9)
	assert.InDelta(t, 298.0, agg.TakerBuyNotional, 1e-9)
	assert.InDelta(t, 102.0, agg.TakerSellNotional, 1e-9)
}

func TestFlowCollector_GraceHoldsFreshSlice(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fc := newTestFlowCollector(new(MockRepository), "BTC")

	fc.record(trade("BTC", "B", 100, 1, base.Add(14*time.Second)))

	// the slice closed at base+15s but stays buffered through the grace
	// window so late prints still land in it
	assert.Empty(t, fc.collectClosed(base.Add(16*time.Second)))

	batch := fc.collectClosed(base.Add(20 * time.Second))
	require.Len(t, batch, 1)
	assert.True(t, batch[0].Timestamp.Equal(base))
}

func TestFlowCollector_SplitsSlicesAndSymbols(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fc := newTestFlowCollector(new(MockRepository), "BTC", "ETH")

	fc.record(trade("BTC", "B", 100, 1, base.Add(1*time.Second)))
	fc.record(trade("BTC", "A", 101, 1, base.Add(16*time.Second))) // next slice
	fc.record(trade("ETH", "B", 3000, 1, base.Add(2*time.Second)))

	batch := fc.collectClosed(base.Add(40 * time.Second))
	require.Len(t, batch, 3)

	starts := make(map[string][]time.Time)
	for _, agg := range batch {
		starts[agg.Symbol] = append(starts[agg.Symbol], agg.Timestamp)
	}
	assert.Len(t, starts["BTC"], 2)
	assert.Len(t, starts["ETH"], 1)
	assert.True(t, starts["ETH"][0].Equal(base))
}

func TestFlowCollector_RunRetainsBatchOnInsertFailure(t *testing.T) {
	repo := new(MockRepository)
	fc := newTestFlowCollector(repo, "BTC")

	// two slices well in the past so Run flushes them immediately
	old := time.Now().UTC().Truncate(15 * time.Second).Add(-2 * time.Minute)
	fc.record(trade("BTC", "B", 100, 1, old.Add(1*time.Second)))

	repo.On("InsertFlowAggregates", mock.Anything, mock.Anything).
		Return(errors.New("clickhouse unreachable")).Once()

	err := fc.Run(context.Background())
	require.Error(t, err)

	fc.record(trade("BTC", "A", 101, 1, old.Add(16*time.Second)))

	var retried []market_data.FlowAggregate
	repo.On("InsertFlowAggregates", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			retried = args.Get(1).([]market_data.FlowAggregate)
		}).
		Return(nil).Once()

	require.NoError(t, fc.Run(context.Background()))

	// the failed batch rides along with the newly closed slice
	require.Len(t, retried, 2)
	repo.AssertNumberOfCalls(t, "InsertFlowAggregates", 2)
}

func TestFlowCollector_RunWithEmptyTapeSkipsInsert(t *testing.T) {
	repo := new(MockRepository)
	fc := newTestFlowCollector(repo, "BTC")

	require.NoError(t, fc.Run(context.Background()))
	repo.AssertNotCalled(t, "InsertFlowAggregates", mock.Anything, mock.Anything)
}

func TestFlowCollector_StartSubscribesAndAnnouncesGaps(t *testing.T) {
	stream := new(MockStream)
	publisher := new(MockGapPublisher)
	fc := NewFlowCollector(new(MockRepository), stream, publisher,
		[]string{"BTC", "ETH"}, 5*time.Second, true)

	stream.On("Connect", mock.Anything).Return(nil)
	stream.On("OnReconnect", mock.Anything).Return()
	stream.On("SubscribeTrades", "BTC", mock.Anything).Return(nil)
	stream.On("SubscribeTrades", "ETH", mock.Anything).Return(nil)

	require.NoError(t, fc.Start(context.Background()))
	stream.AssertNumberOfCalls(t, "SubscribeTrades", 2)

	var gaps []*events.DataGapEvent
	publisher.On("PublishDataGap", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gaps = append(gaps, args.Get(1).(*events.DataGapEvent))
		}).
		Return(nil)

	// simulate the stream dropping and coming back
	require.NotNil(t, stream.reconnect)
	stream.reconnect()

	require.Len(t, gaps, 2)
	assert.Equal(t, "BTC", gaps[0].Symbol)
	assert.Equal(t, "trades_stream", gaps[0].Source)
	assert.Equal(t, "reconnect", gaps[0].Reason)
}

func TestFlowCollector_StartFailsWhenSubscribeFails(t *testing.T) {
	stream := new(MockStream)
	fc := NewFlowCollector(new(MockRepository), stream, new(MockGapPublisher),
		[]string{"BTC"}, 5*time.Second, true)

	stream.On("Connect", mock.Anything).Return(nil)
	stream.On("OnReconnect", mock.Anything).Return()
	stream.On("SubscribeTrades", "BTC", mock.Anything).Return(errors.New("subscription rejected"))

	err := fc.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BTC")
}
