package regime

import "math"

// Features is the indicator vector a classification run is judged on.
// Flow metrics come from the 15s aggregates, price metrics from candles;
// either side may be zero when its source had no data.
type Features struct {
	// CVDRatio is cumulative volume delta over total notional, [-1, 1]
	CVDRatio float64 `json:"cvd_ratio"`
	// TakerLogRatio is ln(taker buy / taker sell) with zero-substitution
	TakerLogRatio float64 `json:"taker_log_ratio"`
	// OIDelta is the open interest change over the window, in percent
	OIDelta float64 `json:"oi_delta"`
	// PriceATR is the close-to-close move in ATR units, signed
	PriceATR float64 `json:"price_atr"`
	// RSI is RSI(14) on closes, 50 when there is no candle history
	RSI float64 `json:"rsi"`
	// PriceRangeATR is the high-low range in ATR units
	PriceRangeATR float64 `json:"price_range_atr"`
}

// BodyRatio is |price_atr| / price_range_atr: how much of the traveled
// range the close actually kept. Returns 1.0 when the range is empty so a
// flat tape never reads as a reversal.
func (f Features) BodyRatio() float64 {
	if f.PriceRangeATR > 0 {
		return math.Abs(f.PriceATR) / f.PriceRangeATR
	}
	return 1.0
}
