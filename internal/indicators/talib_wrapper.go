package indicators

import (
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/market_data"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
)

// TalibData holds OHLCV data in format expected by ta-lib
type TalibData struct {
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
}

// PrepareData converts domain candles to ta-lib format.
// Candles must already be in chronological order (oldest first),
// which is how the repository and bucketer hand them out.
func PrepareData(candles []market_data.Candle) (*TalibData, error) {
	if len(candles) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "no candles provided")
	}
	data := &TalibData{
		Open:   make([]float64, len(candles)),
		High:   make([]float64, len(candles)),
		Low:    make([]float64, len(candles)),
		Close:  make([]float64, len(candles)),
		Volume: make([]float64, len(candles)),
	}
	for i, candle := range candles {
		data.Open[i] = candle.Open
		data.High[i] = candle.High
		data.Low[i] = candle.Low
		data.Close[i] = candle.Close
		data.Volume[i] = candle.Volume
	}
	return data, nil
}

// GetLastValue returns the most recent value from ta-lib output
// ta-lib returns full array, we typically only need the latest value
func GetLastValue(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, errors.Wrapf(errors.ErrInternal, "no values returned from indicator")
	}
	// Last value in array is the most recent
	return values[len(values)-1], nil
}

// ValidateMinLength checks if we have enough data for indicator calculation
func ValidateMinLength(candles []market_data.Candle, minLength int, indicatorName string) error {
	if len(candles) < minLength {
		return errors.Wrapf(errors.ErrInvalidInput,
			"%s requires at least %d candles, got %d",
			indicatorName, minLength, len(candles))
	}
	return nil
}
