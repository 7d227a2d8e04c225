package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/market_data"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
)

func TestPrepareData(t *testing.T) {
	candles := []market_data.Candle{
		{Open: 100, High: 105, Low: 99, Close: 104, Volume: 10},
		{Open: 104, High: 108, Low: 103, Close: 107, Volume: 12},
	}

	data, err := PrepareData(candles)
	require.NoError(t, err)

	assert.Equal(t, []float64{100, 104}, data.Open)
	assert.Equal(t, []float64{105, 108}, data.High)
	assert.Equal(t, []float64{99, 103}, data.Low)
	assert.Equal(t, []float64{104, 107}, data.Close)
	assert.Equal(t, []float64{10, 12}, data.Volume)
}

func TestPrepareDataEmpty(t *testing.T) {
	_, err := PrepareData(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestGetLastValue(t *testing.T) {
	v, err := GetLastValue([]float64{1.5, 2.5, 3.5})
	require.NoError(t, err)
	assert.InDelta(t, 3.5, v, 1e-9)

	_, err = GetLastValue(nil)
	assert.Error(t, err)
}

func TestValidateMinLength(t *testing.T) {
	candles := make([]market_data.Candle, 14)

	err := ValidateMinLength(candles, 15, "ATR14")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ATR14")

	assert.NoError(t, ValidateMinLength(candles, 14, "ATR14"))
}
