package regime

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/market_data"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/indicators"
)

// ATR14/RSI14 need a warmup bar beyond the period
const minCandlesForMetrics = 15

const neutralRSI = 50.0

// PriceMetrics are the volatility-normalized price readings for the latest candle
type PriceMetrics struct {
	PriceATR      float64 // (close - open) / ATR
	PriceRangeATR float64 // (high - low) / ATR
	RSI           float64
}

// CalculatePriceMetrics derives ATR-normalized price change and RSI from a
// chronological candle series. Fewer than 15 candles yields the neutral
// sentinel {0, 0, 50}; a zero ATR zeroes both ratios instead of dividing.
func CalculatePriceMetrics(candles []market_data.Candle) PriceMetrics {
	if err := indicators.ValidateMinLength(candles, minCandlesForMetrics, "ATR14/RSI14"); err != nil {
		return PriceMetrics{RSI: neutralRSI}
	}

	data, err := indicators.PrepareData(candles)
	if err != nil {
		return PriceMetrics{RSI: neutralRSI}
	}

	atrValues := talib.Atr(data.High, data.Low, data.Close, 14)
	rsiValues := talib.Rsi(data.Close, 14)

	atr, err := indicators.GetLastValue(atrValues)
	if err != nil {
		atr = 0
	}

	rsi, err := indicators.GetLastValue(rsiValues)
	if err != nil || math.IsNaN(rsi) {
		rsi = neutralRSI
	}

	metrics := PriceMetrics{RSI: rsi}

	if atr > 0 && !math.IsNaN(atr) {
		latest := candles[len(candles)-1]
		metrics.PriceATR = (latest.Close - latest.Open) / atr
		metrics.PriceRangeATR = (latest.High - latest.Low) / atr
	}

	return metrics
}
