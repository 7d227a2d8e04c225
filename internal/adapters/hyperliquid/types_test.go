package hyperliquid

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
)

func TestRawCandle_ToDomain(t *testing.T) {
	payload := `{
		"t": 1717243200000,
		"T": 1717243499999,
		"s": "BTC",
		"i": "5m",
		"o": "67241.0",
		"c": "67355.5",
		"h": "67401.0",
		"l": "67199.5",
		"v": "129.4521",
		"n": 2841
	}`

	var rc rawCandle
	require.NoError(t, json.Unmarshal([]byte(payload), &rc))

	candle, err := rc.toDomain()
	require.NoError(t, err)

	assert.Equal(t, "BTC", candle.Symbol)
	assert.Equal(t, "5m", candle.Timeframe)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), candle.Timestamp)
	assert.InDelta(t, 67241.0, candle.Open, 1e-9)
	assert.InDelta(t, 67355.5, candle.Close, 1e-9)
	assert.InDelta(t, 67401.0, candle.High, 1e-9)
	assert.InDelta(t, 67199.5, candle.Low, 1e-9)
	assert.InDelta(t, 129.4521, candle.Volume, 1e-9)
}

func TestRawCandle_ToDomainRejectsBadDecimal(t *testing.T) {
	rc := rawCandle{
		OpenTime: 1717243200000,
		Coin:     "BTC",
		Interval: "5m",
		Open:     "not-a-number",
		Close:    "1",
		High:     "1",
		Low:      "1",
		Volume:   "1",
	}

	_, err := rc.toDomain()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrFeedBadResponse))
}

func TestWSTrade_ToTrade(t *testing.T) {
	payload := `{
		"coin": "ETH",
		"side": "A",
		"px": "3120.7",
		"sz": "2.5",
		"time": 1717243201500,
		"tid": 900531
	}`

	var wt wsTrade
	require.NoError(t, json.Unmarshal([]byte(payload), &wt))

	trade, err := wt.toTrade()
	require.NoError(t, err)

	assert.Equal(t, "ETH", trade.Coin)
	assert.False(t, trade.IsBuy())
	assert.InDelta(t, 3120.7, trade.Price, 1e-9)
	assert.InDelta(t, 2.5, trade.Size, 1e-9)
	assert.Equal(t, int64(1717243201500), trade.Time.UnixMilli())
	assert.InDelta(t, 7801.75, trade.Notional(), 1e-9)
}

func TestWSTrade_BuySide(t *testing.T) {
	trade := Trade{Coin: "BTC", Side: "B", Price: 100, Size: 3}

	assert.True(t, trade.IsBuy())
	assert.InDelta(t, 300.0, trade.Notional(), 1e-9)
}
