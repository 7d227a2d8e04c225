package market_data

import "time"

// Candle represents one OHLCV bucket for a symbol and timeframe
type Candle struct {
	Symbol    string    `ch:"symbol"`
	Timeframe string    `ch:"timeframe"` // 1m, 5m, 15m, 1h, 4h, 1d
	Timestamp time.Time `ch:"timestamp"` // bucket start, second precision
	Open      float64   `ch:"open"`
	High      float64   `ch:"high"`
	Low       float64   `ch:"low"`
	Close     float64   `ch:"close"`
	Volume    float64   `ch:"volume"` // quote notional
}

// FlowAggregate is a 15-second rollup of the taker trade tape.
// VWAP/high/low summarize price inside the slice; the notionals split
// aggressor volume by side.
type FlowAggregate struct {
	Symbol            string    `ch:"symbol"`
	Timestamp         time.Time `ch:"timestamp"` // slice start, millisecond precision
	VWAP              float64   `ch:"vwap"`
	High              float64   `ch:"high"`
	Low               float64   `ch:"low"`
	TakerBuyNotional  float64   `ch:"taker_buy_notional"`
	TakerSellNotional float64   `ch:"taker_sell_notional"`
}

// Notional returns the total taker notional of the slice
func (f *FlowAggregate) Notional() float64 {
	return f.TakerBuyNotional + f.TakerSellNotional
}

// OpenInterest represents an open interest snapshot for a perp market.
// Collected via REST polling; the feed has no OI stream.
type OpenInterest struct {
	Symbol    string    `ch:"symbol"`
	Timestamp time.Time `ch:"timestamp"`
	Value     float64   `ch:"value"` // contracts outstanding, base units
}

// FlowIndicators bundles the windowed flow readings the classifier consumes.
// A nil reading means the underlying data was missing for the window, which
// callers must treat as "unavailable" rather than zero.
type FlowIndicators struct {
	CVD     *CVDReading
	Taker   *TakerReading
	OIDelta *OIDeltaReading
}

// CVDReading is the cumulative volume delta over a window
type CVDReading struct {
	Current float64 // buy notional minus sell notional
}

// TakerReading is the aggressor volume split over a window
type TakerReading struct {
	Buy  float64
	Sell float64
}

// OIDeltaReading is the open interest change over a window
type OIDeltaReading struct {
	Current float64 // percent change across the window
}
