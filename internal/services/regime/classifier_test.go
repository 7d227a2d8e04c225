package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/regime"
)

// Baseline thresholds derive: cvdStrong 0.15, cvdWeak 0.05, priceBreakout 0.5,
// priceMove 0.3, taker extreme beyond ln(33) / ln(0.03).

func TestClassifyFeatures_StopHunt(t *testing.T) {
	cfg := regime.DefaultConfig()

	rt, reason := ClassifyFeatures(regime.Features{
		PriceRangeATR: 2.0,
		PriceATR:      0.05,
	}, cfg)

	assert.Equal(t, regime.RegimeStopHunt, rt)
	assert.Equal(t, "Price spiked but closed near open", reason)
}

func TestClassifyFeatures_StopHuntShadowsTrap(t *testing.T) {
	cfg := regime.DefaultConfig()

	// satisfies the trap conditions too (strong cvd, closing OI, small body),
	// but the wide range makes stop hunt match first
	rt, _ := ClassifyFeatures(regime.Features{
		CVDRatio:      0.2,
		OIDelta:       -2.0,
		PriceATR:      0.1,
		RSI:           50,
		PriceRangeATR: 2.0,
	}, cfg)

	assert.Equal(t, regime.RegimeStopHunt, rt)
}

func TestClassifyFeatures_BreakoutBullishViaTakerExtreme(t *testing.T) {
	cfg := regime.DefaultConfig()

	rt, reason := ClassifyFeatures(regime.Features{
		CVDRatio:      0.2,
		TakerLogRatio: 4.0, // beyond ln(33)
		PriceATR:      0.8,
		RSI:           60,
		PriceRangeATR: 1.0,
	}, cfg)

	assert.Equal(t, regime.RegimeBreakout, rt)
	assert.Equal(t, "Bullish breakout with aligned signals", reason)
}

func TestClassifyFeatures_BreakoutBearishViaOIIncrease(t *testing.T) {
	cfg := regime.DefaultConfig()

	rt, reason := ClassifyFeatures(regime.Features{
		CVDRatio:      -0.2,
		TakerLogRatio: 0,
		OIDelta:       2.0,
		PriceATR:      -0.8,
		RSI:           40,
		PriceRangeATR: 1.0,
	}, cfg)

	assert.Equal(t, regime.RegimeBreakout, rt)
	assert.Equal(t, "Bearish breakout with aligned signals", reason)
}

func TestClassifyFeatures_ThinBodyDemotesBreakout(t *testing.T) {
	cfg := regime.DefaultConfig()

	// strong aligned flow and a big move, but body is 0.3 of the range:
	// too much wick for a breakout, still enough for continuation
	rt, reason := ClassifyFeatures(regime.Features{
		CVDRatio:      0.2,
		TakerLogRatio: 4.0,
		OIDelta:       2.0,
		PriceATR:      0.6,
		RSI:           60,
		PriceRangeATR: 2.0,
	}, cfg)

	assert.Equal(t, regime.RegimeContinuation, rt)
	assert.Equal(t, "Bullish trend continuation", reason)
}

func TestClassifyFeatures_Exhaustion(t *testing.T) {
	cfg := regime.DefaultConfig()

	rt, reason := ClassifyFeatures(regime.Features{
		CVDRatio:      0.2,
		OIDelta:       -2.0,
		PriceATR:      0.3,
		RSI:           75,
		PriceRangeATR: 0.5,
	}, cfg)

	assert.Equal(t, regime.RegimeExhaustion, rt)
	assert.Equal(t, "Trend exhaustion at RSI extreme", reason)
}

func TestClassifyFeatures_Trap(t *testing.T) {
	cfg := regime.DefaultConfig()

	// same flow picture as exhaustion but RSI mid-range and price back near
	// open, so it falls through to trap
	rt, reason := ClassifyFeatures(regime.Features{
		CVDRatio:      0.2,
		OIDelta:       -2.0,
		PriceATR:      0.1,
		RSI:           50,
		PriceRangeATR: 1.4,
	}, cfg)

	assert.Equal(t, regime.RegimeTrap, rt)
	assert.Equal(t, "Strong flow but positions closing with reversal (trap)", reason)
}

func TestClassifyFeatures_Absorption(t *testing.T) {
	cfg := regime.DefaultConfig()

	rt, reason := ClassifyFeatures(regime.Features{
		CVDRatio:      0.2,
		OIDelta:       0,
		PriceATR:      0.1,
		RSI:           50,
		PriceRangeATR: 1.0,
	}, cfg)

	assert.Equal(t, regime.RegimeAbsorption, rt)
	assert.Equal(t, "Strong flow absorbed without price movement", reason)
}

func TestClassifyFeatures_ContinuationOnWeakFlow(t *testing.T) {
	cfg := regime.DefaultConfig()

	rt, reason := ClassifyFeatures(regime.Features{
		CVDRatio:      -0.08, // below strong, above weak
		PriceATR:      -0.6,
		RSI:           45,
		PriceRangeATR: 1.0,
	}, cfg)

	assert.Equal(t, regime.RegimeContinuation, rt)
	assert.Equal(t, "Bearish trend continuation", reason)
}

func TestClassifyFeatures_MisalignedContinuationIsNoise(t *testing.T) {
	cfg := regime.DefaultConfig()

	rt, reason := ClassifyFeatures(regime.Features{
		CVDRatio:      0.08,
		PriceATR:      -0.6, // flow up, price down
		RSI:           45,
		PriceRangeATR: 1.0,
	}, cfg)

	assert.Equal(t, regime.RegimeNoise, rt)
	assert.Equal(t, "No clear market regime detected", reason)
}

func TestClassifyFeatures_QuietTapeIsNoise(t *testing.T) {
	cfg := regime.DefaultConfig()

	rt, reason := ClassifyFeatures(regime.Features{RSI: 50}, cfg)

	assert.Equal(t, regime.RegimeNoise, rt)
	assert.Equal(t, "No clear market regime detected", reason)
}

func TestClassifyFeatures_TakerExtremeDefaultsWhenConfigUnloggable(t *testing.T) {
	cfg := regime.DefaultConfig()
	cfg.BreakoutTakerHigh = 0
	cfg.BreakoutTakerLow = 0

	base := regime.Features{
		CVDRatio:      0.2,
		OIDelta:       0, // no OI confirmation, taker extreme must carry it
		PriceATR:      0.8,
		RSI:           60,
		PriceRangeATR: 1.0,
	}

	base.TakerLogRatio = 4.0 // beyond the 3.5 fallback bound
	rt, _ := ClassifyFeatures(base, cfg)
	assert.Equal(t, regime.RegimeBreakout, rt)

	base.TakerLogRatio = 3.0 // inside the fallback bound
	rt, _ = ClassifyFeatures(base, cfg)
	assert.Equal(t, regime.RegimeContinuation, rt)
}
