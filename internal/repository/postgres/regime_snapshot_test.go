package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/regime"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/testsupport"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
)

func snapshotFixture(symbol string, ts time.Time) *regime.Classification {
	return &regime.Classification{
		ID:         uuid.New(),
		Symbol:     symbol,
		Timeframe:  "5m",
		Timestamp:  ts,
		Regime:     regime.RegimeBreakout,
		Direction:  regime.DirectionBullish,
		Confidence: 0.734,
		Reason:     "Bullish breakout with aligned signals",
		Indicators: regime.Indicators{
			CVDRatio:   0.1812,
			OIDelta:    3.214,
			TakerRatio: 1.918,
			PriceATR:   0.841,
			RSI:        63.2,
		},
		Debug: regime.Debug{
			CVDRatio:      0.18123,
			TakerLogRatio: 0.65123,
			OIDeltaPct:    3.2141,
			TakerBuy:      1_900_000,
			TakerSell:     990_000,
			TotalNotional: 2_890_000,
			TimestampMs:   ts.UnixMilli(),
			Timeframe:     "5m",
		},
	}
}

func TestRegimeSnapshotRepository_StoreAndGetLatest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	require.NoError(t, EnsureSchema(context.Background(), testDB.DB()))

	repo := NewRegimeSnapshotRepository(testDB.Tx())
	ctx := context.Background()

	symbol := testsupport.UniqueSymbol("BTC")
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	snap := snapshotFixture(symbol, ts)
	require.NoError(t, repo.Store(ctx, snap))

	got, err := repo.GetLatest(ctx, symbol, "5m")
	require.NoError(t, err)

	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, regime.RegimeBreakout, got.Regime)
	assert.Equal(t, regime.DirectionBullish, got.Direction)
	assert.Equal(t, 0.734, got.Confidence)
	assert.Equal(t, snap.Reason, got.Reason)
	assert.Equal(t, snap.Indicators, got.Indicators)

	// the debug payload survives the jsonb roundtrip intact
	assert.Equal(t, snap.Debug, got.Debug)
	assert.True(t, got.Evaluated())
}

func TestRegimeSnapshotRepository_GetLatest_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	require.NoError(t, EnsureSchema(context.Background(), testDB.DB()))

	repo := NewRegimeSnapshotRepository(testDB.Tx())

	_, err := repo.GetLatest(context.Background(), testsupport.UniqueSymbol("NONE"), "5m")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRegimeSnapshotRepository_GetHistory(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	require.NoError(t, EnsureSchema(context.Background(), testDB.DB()))

	repo := NewRegimeSnapshotRepository(testDB.Tx())
	ctx := context.Background()

	symbol := testsupport.UniqueSymbol("ETH")
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		snap := snapshotFixture(symbol, base.Add(time.Duration(i)*5*time.Minute))
		require.NoError(t, repo.Store(ctx, snap))
	}

	// a different timeframe for the same symbol must not leak in
	other := snapshotFixture(symbol, base)
	other.Timeframe = "1h"
	require.NoError(t, repo.Store(ctx, other))

	history, err := repo.GetHistory(ctx, symbol, "5m", 3)
	require.NoError(t, err)
	require.Len(t, history, 3)

	// newest first
	assert.Equal(t, base.Add(20*time.Minute).Unix(), history[0].Timestamp.Unix())
	assert.Equal(t, base.Add(15*time.Minute).Unix(), history[1].Timestamp.Unix())
	assert.Equal(t, base.Add(10*time.Minute).Unix(), history[2].Timestamp.Unix())

	for _, h := range history {
		assert.Equal(t, "5m", h.Timeframe)
	}

	empty, err := repo.GetHistory(ctx, testsupport.UniqueSymbol("NONE"), "5m", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
