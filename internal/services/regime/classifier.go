package regime

import (
	"fmt"
	"math"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/regime"
)

// Empirically chosen cutoffs with no derivation from config; kept at package
// level so experiments can tune them without a schema change.
var (
	// minimum body/range fraction for a move to count as a true breakout
	// rather than a spike that reversed
	solidBodyRatio = 0.4

	// log-space taker bound used when the configured ratio is non-positive
	// and cannot be logged
	defaultTakerExtremeLog = 3.5
)

// ClassifyFeatures maps an indicator vector to a regime and its reason.
// First match wins: the chain encodes priority between overlapping patterns,
// so the order is load-bearing and must not be rearranged.
func ClassifyFeatures(f regime.Features, cfg *regime.Config) (regime.Type, string) {
	cvdStrong := cfg.BreakoutCVDZ * 0.1
	cvdWeak := cvdStrong / 3
	priceBreakout := cfg.BreakoutPriceATR + 0.2
	priceMove := cfg.AbsorptionPriceATR
	oiIncrease := cfg.BreakoutOIZ
	oiDecrease := cfg.TrapOIZ

	takerHighLog := defaultTakerExtremeLog
	if cfg.BreakoutTakerHigh > 0 {
		takerHighLog = math.Log(cfg.BreakoutTakerHigh)
	}
	takerLowLog := -defaultTakerExtremeLog
	if cfg.BreakoutTakerLow > 0 {
		takerLowLog = math.Log(cfg.BreakoutTakerLow)
	}

	isTakerExtreme := f.TakerLogRatio > takerHighLog || f.TakerLogRatio < takerLowLog
	cvdPriceAligned := (f.CVDRatio > 0 && f.PriceATR > 0) || (f.CVDRatio < 0 && f.PriceATR < 0)

	// 1. Stop hunt: large range but close near open (spike and reversal)
	if f.PriceRangeATR > cfg.StopHuntRangeATR && math.Abs(f.PriceATR) < cfg.StopHuntCloseATR {
		return regime.RegimeStopHunt, "Price spiked but closed near open"
	}

	isCVDStrong := math.Abs(f.CVDRatio) > cvdStrong
	isPriceBreakout := math.Abs(f.PriceATR) > priceBreakout
	isOIIncrease := f.OIDelta > oiIncrease
	isSolidMove := f.BodyRatio() > solidBodyRatio

	// 2. Breakout: strong aligned flow behind a solid-bodied move, confirmed
	// by a taker extreme or rising open interest
	if isCVDStrong && isPriceBreakout && cvdPriceAligned && isSolidMove && (isTakerExtreme || isOIIncrease) {
		return regime.RegimeBreakout, fmt.Sprintf("%s breakout with aligned signals", flowDirection(f.CVDRatio))
	}

	isOIDecrease := f.OIDelta < oiDecrease
	rsiExtreme := f.RSI > cfg.ExhaustionRSIHigh || f.RSI < cfg.ExhaustionRSILow

	// 3. Exhaustion: strong flow into closing positions at an RSI extreme
	if isCVDStrong && isOIDecrease && rsiExtreme {
		return regime.RegimeExhaustion, "Trend exhaustion at RSI extreme"
	}

	// 4. Trap: strong flow, positions closing, price ends near open
	if isCVDStrong && isOIDecrease && math.Abs(f.PriceATR) < cfg.StopHuntCloseATR {
		return regime.RegimeTrap, "Strong flow but positions closing with reversal (trap)"
	}

	// 5. Absorption: strong flow that fails to move price
	isPriceMove := math.Abs(f.PriceATR) > priceMove
	if isCVDStrong && !isPriceMove {
		return regime.RegimeAbsorption, "Strong flow absorbed without price movement"
	}

	// 6. Continuation: flow at least weakly behind a real move
	if math.Abs(f.CVDRatio) > cvdWeak && isPriceMove && cvdPriceAligned {
		return regime.RegimeContinuation, fmt.Sprintf("%s trend continuation", flowDirection(f.CVDRatio))
	}

	// 7. Noise
	return regime.RegimeNoise, "No clear market regime detected"
}

func flowDirection(cvdRatio float64) string {
	if cvdRatio > 0 {
		return "Bullish"
	}
	return "Bearish"
}
