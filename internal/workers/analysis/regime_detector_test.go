package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/regime"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/events"
	regimesvc "github.com/yekaipow/Hyper-Alpha-Arena2/internal/services/regime"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
)

type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, req regimesvc.Request) *regime.Classification {
	args := m.Called(ctx, req)
	return args.Get(0).(*regime.Classification)
}

type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) Store(ctx context.Context, c *regime.Classification) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockSnapshotRepository) GetLatest(ctx context.Context, symbol, timeframe string) (*regime.Classification, error) {
	args := m.Called(ctx, symbol, timeframe)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*regime.Classification), args.Error(1)
}

func (m *MockSnapshotRepository) GetHistory(ctx context.Context, symbol, timeframe string, limit int) ([]regime.Classification, error) {
	args := m.Called(ctx, symbol, timeframe, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]regime.Classification), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishRegimeChange(ctx context.Context, event *events.RegimeChangeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyRegimeChange(ctx context.Context, previous regime.Type, c *regime.Classification) error {
	args := m.Called(ctx, previous, c)
	return args.Error(0)
}

// evaluation builds a classification that passed the full pipeline
func evaluation(rt regime.Type, reason string) *regime.Classification {
	return &regime.Classification{
		ID:         uuid.New(),
		Symbol:     "BTC",
		Timeframe:  "5m",
		Timestamp:  time.Now().UTC(),
		Regime:     rt,
		Direction:  regime.DirectionBullish,
		Confidence: 0.62,
		Reason:     reason,
		Debug:      regime.Debug{Timeframe: "5m", TimestampMs: time.Now().UnixMilli()},
	}
}

// degraded builds the diagnostic noise result failure paths produce
func degraded(reason string) *regime.Classification {
	return &regime.Classification{
		ID:        uuid.New(),
		Symbol:    "BTC",
		Timeframe: "5m",
		Timestamp: time.Now().UTC(),
		Regime:    regime.RegimeNoise,
		Direction: regime.DirectionNeutral,
		Reason:    reason,
	}
}

func newTestDetector(classifier *MockClassifier, snapshots *MockSnapshotRepository, publisher *MockEventPublisher, notifier Notifier) *RegimeDetector {
	return NewRegimeDetector(classifier, snapshots, publisher, notifier,
		[]string{"BTC"}, []string{"5m"}, time.Minute, true)
}

func TestRegimeDetector_FirstEvaluationStoresWithoutFlip(t *testing.T) {
	classifier := new(MockClassifier)
	snapshots := new(MockSnapshotRepository)
	publisher := new(MockEventPublisher)

	c := evaluation(regime.RegimeBreakout, "Bullish breakout with aligned signals")
	classifier.On("Classify", mock.Anything, regimesvc.Request{Symbol: "BTC", Timeframe: "5m"}).Return(c)
	snapshots.On("Store", mock.Anything, c).Return(nil)
	snapshots.On("GetLatest", mock.Anything, "BTC", "5m").Return(nil, errors.ErrNotFound)

	detector := newTestDetector(classifier, snapshots, publisher, nil)
	err := detector.Run(context.Background())

	require.NoError(t, err)
	snapshots.AssertCalled(t, "Store", mock.Anything, c)
	publisher.AssertNotCalled(t, "PublishRegimeChange", mock.Anything, mock.Anything)
}

func TestRegimeDetector_AnnouncesFlip(t *testing.T) {
	classifier := new(MockClassifier)
	snapshots := new(MockSnapshotRepository)
	publisher := new(MockEventPublisher)
	notifier := new(MockNotifier)

	c := evaluation(regime.RegimeBreakout, "Bullish breakout with aligned signals")
	classifier.On("Classify", mock.Anything, mock.Anything).Return(c)
	snapshots.On("Store", mock.Anything, c).Return(nil)
	snapshots.On("GetLatest", mock.Anything, "BTC", "5m").
		Return(evaluation(regime.RegimeContinuation, "Bullish trend continuation"), nil)

	var published *events.RegimeChangeEvent
	publisher.On("PublishRegimeChange", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			published = args.Get(1).(*events.RegimeChangeEvent)
		}).
		Return(nil)
	notifier.On("NotifyRegimeChange", mock.Anything, regime.RegimeContinuation, c).Return(nil)

	detector := newTestDetector(classifier, snapshots, publisher, notifier)
	err := detector.Run(context.Background())

	require.NoError(t, err)
	require.NotNil(t, published)
	assert.Equal(t, "BTC", published.Symbol)
	assert.Equal(t, "5m", published.Timeframe)
	assert.Equal(t, "continuation", published.OldRegime)
	assert.Equal(t, "breakout", published.NewRegime)
	assert.Equal(t, "bullish", published.Direction)
	assert.InDelta(t, 0.62, published.Confidence, 1e-9)
	notifier.AssertCalled(t, "NotifyRegimeChange", mock.Anything, regime.RegimeContinuation, c)
}

func TestRegimeDetector_NoFlipWhenRegimeHolds(t *testing.T) {
	classifier := new(MockClassifier)
	snapshots := new(MockSnapshotRepository)
	publisher := new(MockEventPublisher)

	c := evaluation(regime.RegimeContinuation, "Bullish trend continuation")
	classifier.On("Classify", mock.Anything, mock.Anything).Return(c)
	snapshots.On("Store", mock.Anything, c).Return(nil)
	snapshots.On("GetLatest", mock.Anything, "BTC", "5m").
		Return(evaluation(regime.RegimeContinuation, "Bullish trend continuation"), nil)

	detector := newTestDetector(classifier, snapshots, publisher, nil)
	err := detector.Run(context.Background())

	require.NoError(t, err)
	snapshots.AssertCalled(t, "Store", mock.Anything, c)
	publisher.AssertNotCalled(t, "PublishRegimeChange", mock.Anything, mock.Anything)
}

func TestRegimeDetector_DegradedResultNotStored(t *testing.T) {
	classifier := new(MockClassifier)
	snapshots := new(MockSnapshotRepository)
	publisher := new(MockEventPublisher)

	classifier.On("Classify", mock.Anything, mock.Anything).Return(degraded("Insufficient market flow data"))

	detector := newTestDetector(classifier, snapshots, publisher, nil)
	err := detector.Run(context.Background())

	require.NoError(t, err)
	snapshots.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
	snapshots.AssertNotCalled(t, "GetLatest", mock.Anything, mock.Anything, mock.Anything)
	publisher.AssertNotCalled(t, "PublishRegimeChange", mock.Anything, mock.Anything)
}

func TestRegimeDetector_NoiseFlipSkipsAlert(t *testing.T) {
	classifier := new(MockClassifier)
	snapshots := new(MockSnapshotRepository)
	publisher := new(MockEventPublisher)
	notifier := new(MockNotifier)

	// a genuine noise evaluation, not a degraded result
	c := evaluation(regime.RegimeNoise, "No clear pattern")
	c.Direction = regime.DirectionNeutral
	classifier.On("Classify", mock.Anything, mock.Anything).Return(c)
	snapshots.On("Store", mock.Anything, c).Return(nil)
	snapshots.On("GetLatest", mock.Anything, "BTC", "5m").
		Return(evaluation(regime.RegimeBreakout, "Bullish breakout with aligned signals"), nil)
	publisher.On("PublishRegimeChange", mock.Anything, mock.Anything).Return(nil)

	detector := newTestDetector(classifier, snapshots, publisher, notifier)
	err := detector.Run(context.Background())

	require.NoError(t, err)
	publisher.AssertCalled(t, "PublishRegimeChange", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "NotifyRegimeChange", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegimeDetector_RemembersLastRegime(t *testing.T) {
	classifier := new(MockClassifier)
	snapshots := new(MockSnapshotRepository)
	publisher := new(MockEventPublisher)

	first := evaluation(regime.RegimeBreakout, "Bullish breakout with aligned signals")
	second := evaluation(regime.RegimeContinuation, "Bullish trend continuation")
	classifier.On("Classify", mock.Anything, mock.Anything).Return(first).Once()
	classifier.On("Classify", mock.Anything, mock.Anything).Return(second).Once()
	snapshots.On("Store", mock.Anything, mock.Anything).Return(nil)
	snapshots.On("GetLatest", mock.Anything, "BTC", "5m").Return(nil, errors.ErrNotFound).Once()
	publisher.On("PublishRegimeChange", mock.Anything, mock.Anything).Return(nil)

	detector := newTestDetector(classifier, snapshots, publisher, nil)

	require.NoError(t, detector.Run(context.Background()))
	require.NoError(t, detector.Run(context.Background()))

	// the second run resolves the previous regime from memory, not storage
	snapshots.AssertNumberOfCalls(t, "GetLatest", 1)
	publisher.AssertNumberOfCalls(t, "PublishRegimeChange", 1)
}

func TestRegimeDetector_StoreFailureSkipsFlip(t *testing.T) {
	classifier := new(MockClassifier)
	snapshots := new(MockSnapshotRepository)
	publisher := new(MockEventPublisher)

	c := evaluation(regime.RegimeBreakout, "Bullish breakout with aligned signals")
	classifier.On("Classify", mock.Anything, mock.Anything).Return(c)
	snapshots.On("Store", mock.Anything, c).Return(errors.New("postgres down"))

	detector := newTestDetector(classifier, snapshots, publisher, nil)
	err := detector.Run(context.Background())

	// detect failures are counted and logged, never bubble out of the tick
	require.NoError(t, err)
	publisher.AssertNotCalled(t, "PublishRegimeChange", mock.Anything, mock.Anything)
}

func TestRegimeDetector_DeliveryFailuresDoNotBlock(t *testing.T) {
	classifier := new(MockClassifier)
	snapshots := new(MockSnapshotRepository)
	publisher := new(MockEventPublisher)
	notifier := new(MockNotifier)

	c := evaluation(regime.RegimeBreakout, "Bullish breakout with aligned signals")
	classifier.On("Classify", mock.Anything, mock.Anything).Return(c)
	snapshots.On("Store", mock.Anything, c).Return(nil)
	snapshots.On("GetLatest", mock.Anything, "BTC", "5m").
		Return(evaluation(regime.RegimeTrap, "Potential bull trap"), nil)
	publisher.On("PublishRegimeChange", mock.Anything, mock.Anything).Return(errors.New("kafka unreachable"))
	notifier.On("NotifyRegimeChange", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("telegram timeout"))

	detector := newTestDetector(classifier, snapshots, publisher, notifier)
	err := detector.Run(context.Background())

	require.NoError(t, err)
	notifier.AssertCalled(t, "NotifyRegimeChange", mock.Anything, regime.RegimeTrap, c)
}
