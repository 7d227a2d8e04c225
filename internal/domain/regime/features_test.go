package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeatures_BodyRatio(t *testing.T) {
	assert.InDelta(t, 0.25, Features{PriceATR: 0.5, PriceRangeATR: 2.0}.BodyRatio(), 1e-9)
	assert.InDelta(t, 0.25, Features{PriceATR: -0.5, PriceRangeATR: 2.0}.BodyRatio(), 1e-9)

	// empty or negative range counts as a full body
	assert.Equal(t, 1.0, Features{PriceATR: 0.5}.BodyRatio())
	assert.Equal(t, 1.0, Features{PriceATR: 0.5, PriceRangeATR: -1}.BodyRatio())
}
