package flow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/market_data"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/logger"
)

// MockRepository is a mock for market_data.Repository
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

func oiSnapshot(ts time.Time, value float64) *market_data.OpenInterest {
	return &market_data.OpenInterest{Symbol: "BTC", Timestamp: ts, Value: value}
}

func TestService_Indicators_SumsWindow(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, logger.Get())

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	windowStart := at.Add(-5 * time.Minute)

	aggregates := []market_data.FlowAggregate{
		{Symbol: "BTC", Timestamp: windowStart.Add(15 * time.Second), TakerBuyNotional: 1000, TakerSellNotional: 400},
		{Symbol: "BTC", Timestamp: windowStart.Add(30 * time.Second), TakerBuyNotional: 500, TakerSellNotional: 700},
	}

	mockRepo.On("GetFlowAggregates", mock.Anything, "BTC", windowStart, at).Return(aggregates, nil)
	mockRepo.On("GetOpenInterestBefore", mock.Anything, "BTC", windowStart).
		Return(oiSnapshot(windowStart.Add(-time.Minute), 10000), nil)
	mockRepo.On("GetOpenInterestBefore", mock.Anything, "BTC", at).
		Return(oiSnapshot(at.Add(-time.Minute), 10500), nil)

	indicators, err := service.Indicators(context.Background(), "BTC", "5m", at)

	require.NoError(t, err)
	require.NotNil(t, indicators.CVD)
	require.NotNil(t, indicators.Taker)
	require.NotNil(t, indicators.OIDelta)
	assert.Equal(t, 400.0, indicators.CVD.Current) // 1500 buy - 1100 sell
	assert.Equal(t, 1500.0, indicators.Taker.Buy)
	assert.Equal(t, 1100.0, indicators.Taker.Sell)
	assert.InDelta(t, 5.0, indicators.OIDelta.Current, 1e-9)
}

func TestService_Indicators_NoFlowRows(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, logger.Get())

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mockRepo.On("GetFlowAggregates", mock.Anything, "BTC", mock.Anything, at).
		Return([]market_data.FlowAggregate{}, nil)
	mockRepo.On("GetOpenInterestBefore", mock.Anything, "BTC", mock.Anything).
		Return(nil, errors.ErrNotFound)

	indicators, err := service.Indicators(context.Background(), "BTC", "5m", at)

	require.NoError(t, err)
	assert.Nil(t, indicators.CVD)
	assert.Nil(t, indicators.Taker)
	assert.Nil(t, indicators.OIDelta)
}

func TestService_Indicators_UnsupportedTimeframe(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, logger.Get())

	indicators, err := service.Indicators(context.Background(), "BTC", "2h", time.Now().UTC())

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTimeframe))
	assert.Nil(t, indicators)
}

func TestService_Indicators_OIDeltaNeedsTwoSnapshots(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, logger.Get())

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	windowStart := at.Add(-5 * time.Minute)

	aggregates := []market_data.FlowAggregate{
		{Symbol: "BTC", Timestamp: windowStart, TakerBuyNotional: 100, TakerSellNotional: 100},
	}

	// both lookups resolve to the same pre-window snapshot
	same := oiSnapshot(windowStart.Add(-time.Hour), 10000)
	mockRepo.On("GetFlowAggregates", mock.Anything, "BTC", windowStart, at).Return(aggregates, nil)
	mockRepo.On("GetOpenInterestBefore", mock.Anything, "BTC", windowStart).Return(same, nil)
	mockRepo.On("GetOpenInterestBefore", mock.Anything, "BTC", at).Return(same, nil)

	indicators, err := service.Indicators(context.Background(), "BTC", "5m", at)

	require.NoError(t, err)
	require.NotNil(t, indicators.CVD)
	assert.Nil(t, indicators.OIDelta)
}

func TestService_Indicators_OIDeltaZeroBaseline(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, logger.Get())

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	windowStart := at.Add(-5 * time.Minute)

	mockRepo.On("GetFlowAggregates", mock.Anything, "BTC", windowStart, at).
		Return([]market_data.FlowAggregate{{Symbol: "BTC", Timestamp: windowStart, TakerBuyNotional: 1, TakerSellNotional: 1}}, nil)
	mockRepo.On("GetOpenInterestBefore", mock.Anything, "BTC", windowStart).
		Return(oiSnapshot(windowStart.Add(-time.Minute), 0), nil)
	mockRepo.On("GetOpenInterestBefore", mock.Anything, "BTC", at).
		Return(oiSnapshot(at.Add(-time.Minute), 500), nil)

	indicators, err := service.Indicators(context.Background(), "BTC", "5m", at)

	require.NoError(t, err)
	assert.Nil(t, indicators.OIDelta)
}
