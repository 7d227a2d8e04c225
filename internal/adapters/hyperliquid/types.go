package hyperliquid

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/market_data"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
)

// The feed encodes every numeric field as a string. Values are parsed
// through decimal and converted to float64 only at the domain boundary.

// rawCandle mirrors one entry of a candleSnapshot response
type rawCandle struct {
	OpenTime  int64  `json:"t"`
	CloseTime int64  `json:"T"`
	Coin      string `json:"s"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	Close     string `json:"c"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Volume    string `json:"v"`
	Trades    int64  `json:"n"`
}

// toDomain converts a wire candle into the domain shape. The candle
// timestamp is the bucket start truncated to seconds.
func (rc *rawCandle) toDomain() (market_data.Candle, error) {
	var (
		candle market_data.Candle
		err    error
	)

	if candle.Open, err = parseDecimal(rc.Open); err != nil {
		return candle, errors.Wrap(err, "open")
	}
	if candle.High, err = parseDecimal(rc.High); err != nil {
		return candle, errors.Wrap(err, "high")
	}
	if candle.Low, err = parseDecimal(rc.Low); err != nil {
		return candle, errors.Wrap(err, "low")
	}
	if candle.Close, err = parseDecimal(rc.Close); err != nil {
		return candle, errors.Wrap(err, "close")
	}
	if candle.Volume, err = parseDecimal(rc.Volume); err != nil {
		return candle, errors.Wrap(err, "volume")
	}

	candle.Symbol = rc.Coin
	candle.Timeframe = rc.Interval
	candle.Timestamp = time.UnixMilli(rc.OpenTime).UTC().Truncate(time.Second)

	return candle, nil
}

// assetMeta is one universe entry of a meta response
type assetMeta struct {
	Name       string `json:"name"`
	SzDecimals int    `json:"szDecimals"`
}

// assetCtx is one entry of the asset contexts array; it lines up with the
// universe array by index
type assetCtx struct {
	OpenInterest string `json:"openInterest"`
	MarkPx       string `json:"markPx"`
	OraclePx     string `json:"oraclePx"`
	DayNtlVlm    string `json:"dayNtlVlm"`
	Funding      string `json:"funding"`
}

// Trade is one print from the trades websocket channel
type Trade struct {
	Coin  string
	Side  string // "B" taker buy, "A" taker sell
	Price float64
	Size  float64
	Time  time.Time
}

// IsBuy reports whether the taker was the buyer
func (t *Trade) IsBuy() bool {
	return t.Side == "B"
}

// Notional returns the quote value of the print
func (t *Trade) Notional() float64 {
	return t.Price * t.Size
}

// wsEnvelope is the outer frame of every websocket message
type wsEnvelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// wsTrade mirrors one trade entry on the trades channel
type wsTrade struct {
	Coin string `json:"coin"`
	Side string `json:"side"`
	Px   string `json:"px"`
	Sz   string `json:"sz"`
	Time int64  `json:"time"`
	TID  int64  `json:"tid"`
}

func (wt *wsTrade) toTrade() (Trade, error) {
	px, err := parseDecimal(wt.Px)
	if err != nil {
		return Trade{}, errors.Wrap(err, "px")
	}
	sz, err := parseDecimal(wt.Sz)
	if err != nil {
		return Trade{}, errors.Wrap(err, "sz")
	}

	return Trade{
		Coin:  wt.Coin,
		Side:  wt.Side,
		Price: px,
		Size:  sz,
		Time:  time.UnixMilli(wt.Time).UTC(),
	}, nil
}

func parseDecimal(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrFeedBadResponse, "bad decimal %q", s)
	}
	return d.InexactFloat64(), nil
}
