package regime

import (
	"math"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/regime"
)

// Deadbands for the penalty direction vote. Wider than zero so a barely
// signed reading casts no vote.
const (
	cvdDeadband   = 0.02
	priceDeadband = 0.1
	takerDeadband = 0.15
)

// CalculateDirection derives the directional bias by majority vote across
// the cvd, taker and price signs. Two concordant votes settle it; anything
// less is neutral.
func CalculateDirection(cvdRatio, takerLogRatio, priceATR float64) regime.Direction {
	votes := 0

	if cvdRatio > 0 {
		votes++
	} else if cvdRatio < 0 {
		votes--
	}
	if takerLogRatio > 0 {
		votes++
	} else if takerLogRatio < 0 {
		votes--
	}
	if priceATR > 0 {
		votes++
	} else if priceATR < 0 {
		votes--
	}

	if votes >= 2 {
		return regime.DirectionBullish
	}
	if votes <= -2 {
		return regime.DirectionBearish
	}
	return regime.DirectionNeutral
}

// CalculateBaseConfidence scores raw signal strength into [0,1]. Each input
// is capped at its typical magnitude so one runaway reading cannot dominate:
// cvd at 0.3, taker log ratio at 1.0, oi delta at 5%, price_atr at 2.
func CalculateBaseConfidence(cvdRatio, takerLogRatio, oiDelta, priceATR float64) float64 {
	score := 0.3*math.Min(math.Abs(cvdRatio), 0.3)/0.3 +
		0.2*math.Min(math.Abs(takerLogRatio), 1.0)/1.0 +
		0.2*math.Min(math.Abs(oiDelta), 5.0)/5.0 +
		0.3*math.Min(math.Abs(priceATR), 2.0)/2.0

	return math.Max(0.0, math.Min(1.0, score))
}

// PatternPenalty scores how well the features match the classified regime's
// expected signature. Every unmet expectation subtracts a fixed amount;
// floored at 0.70.
func PatternPenalty(rt regime.Type, f regime.Features) float64 {
	score := 1.0

	cvdWeak := math.Abs(f.CVDRatio) < 0.03
	priceStrong := math.Abs(f.PriceATR) > 0.5
	rsiExtreme := f.RSI > 70 || f.RSI < 30
	rangeLarge := f.PriceRangeATR > 1.0
	bodyRatio := f.BodyRatio()
	aligned := (f.CVDRatio > 0 && f.PriceATR > 0) || (f.CVDRatio < 0 && f.PriceATR < 0)

	switch rt {
	case regime.RegimeBreakout:
		if !aligned {
			score -= 0.12
		}
		if cvdWeak {
			score -= 0.08
		}
	case regime.RegimeAbsorption:
		if priceStrong {
			score -= 0.10
		}
		if cvdWeak {
			score -= 0.08
		}
	case regime.RegimeContinuation:
		if !aligned {
			score -= 0.15
		}
	case regime.RegimeExhaustion:
		if !rsiExtreme {
			score -= 0.10
		}
	case regime.RegimeTrap:
		// a trap should show flow/price divergence
		if aligned {
			score -= 0.12
		}
	case regime.RegimeStopHunt:
		if !rangeLarge {
			score -= 0.10
		}
		// a stop hunt closes most of the way back, leaving a small body
		if bodyRatio > 0.5 {
			score -= 0.08
		}
	case regime.RegimeNoise:
		score -= 0.15
	}

	return math.Max(0.70, score)
}

// DirectionPenalty checks signed cvd/price/taker agreement against what the
// regime expects: trend regimes want alignment, absorption and trap want
// divergence. Fewer than two voting signals is no penalty.
func DirectionPenalty(rt regime.Type, cvdRatio, priceATR, takerLogRatio float64) float64 {
	dirs := make([]int, 0, 3)
	for _, d := range []int{
		signWithDeadband(cvdRatio, cvdDeadband),
		signWithDeadband(priceATR, priceDeadband),
		signWithDeadband(takerLogRatio, takerDeadband),
	} {
		if d != 0 {
			dirs = append(dirs, d)
		}
	}

	if len(dirs) < 2 {
		return 1.0
	}

	allAligned := true
	hasPositive, hasNegative := false, false
	for _, d := range dirs {
		if d != dirs[0] {
			allAligned = false
		}
		if d > 0 {
			hasPositive = true
		} else {
			hasNegative = true
		}
	}
	hasContradiction := hasPositive && hasNegative

	switch rt {
	case regime.RegimeBreakout, regime.RegimeContinuation:
		if hasContradiction {
			return 0.85
		}
	case regime.RegimeAbsorption, regime.RegimeTrap:
		if allAligned {
			return 0.88
		}
	case regime.RegimeNoise:
		return 0.90
	}

	return 1.0
}

func signWithDeadband(v, deadband float64) int {
	if v > deadband {
		return 1
	}
	if v < -deadband {
		return -1
	}
	return 0
}
