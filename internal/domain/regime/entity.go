package regime

import (
	"time"

	"github.com/google/uuid"
)

// Type defines detected market regime kinds
type Type string

const (
	RegimeStopHunt     Type = "stop_hunt"
	RegimeAbsorption   Type = "absorption"
	RegimeBreakout     Type = "breakout"
	RegimeContinuation Type = "continuation"
	RegimeExhaustion   Type = "exhaustion"
	RegimeTrap         Type = "trap"
	RegimeNoise        Type = "noise"
)

// Valid checks if regime type is valid
func (t Type) Valid() bool {
	switch t {
	case RegimeStopHunt, RegimeAbsorption, RegimeBreakout, RegimeContinuation,
		RegimeExhaustion, RegimeTrap, RegimeNoise:
		return true
	}
	return false
}

// String returns string representation
func (t Type) String() string {
	return string(t)
}

// Direction defines the directional read of a regime
type Direction string

const (
	DirectionBullish Direction = "bullish"
	DirectionBearish Direction = "bearish"
	DirectionNeutral Direction = "neutral"
)

// Valid checks if direction is valid
func (d Direction) Valid() bool {
	switch d {
	case DirectionBullish, DirectionBearish, DirectionNeutral:
		return true
	}
	return false
}

// String returns string representation
func (d Direction) String() string {
	return string(d)
}

// Config holds the classification thresholds. Exactly one row carries
// is_default; alternates can be selected per request for experiments.
type Config struct {
	ID                 uuid.UUID `db:"id"`
	Name               string    `db:"name"`
	IsDefault          bool      `db:"is_default"`
	BreakoutCVDZ       float64   `db:"breakout_cvd_z"`
	BreakoutPriceATR   float64   `db:"breakout_price_atr"`
	BreakoutOIZ        float64   `db:"breakout_oi_z"`
	BreakoutTakerHigh  float64   `db:"breakout_taker_high"`
	BreakoutTakerLow   float64   `db:"breakout_taker_low"`
	StopHuntRangeATR   float64   `db:"stop_hunt_range_atr"`
	StopHuntCloseATR   float64   `db:"stop_hunt_close_atr"`
	ExhaustionRSIHigh  float64   `db:"exhaustion_rsi_high"`
	ExhaustionRSILow   float64   `db:"exhaustion_rsi_low"`
	TrapOIZ            float64   `db:"trap_oi_z"`
	AbsorptionPriceATR float64   `db:"absorption_price_atr"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// DefaultConfig returns the baseline thresholds seeded on first deploy
func DefaultConfig() *Config {
	return &Config{
		ID:                 uuid.New(),
		Name:               "baseline",
		IsDefault:          true,
		BreakoutCVDZ:       1.5,
		BreakoutPriceATR:   0.3,
		BreakoutOIZ:        1.0,
		BreakoutTakerHigh:  33.0,
		BreakoutTakerLow:   0.03,
		StopHuntRangeATR:   1.5,
		StopHuntCloseATR:   0.2,
		ExhaustionRSIHigh:  70,
		ExhaustionRSILow:   30,
		TrapOIZ:            -1.0,
		AbsorptionPriceATR: 0.3,
	}
}

// Indicators carries the rounded indicator values behind a classification
type Indicators struct {
	CVDRatio   float64 `json:"cvd_ratio"`
	OIDelta    float64 `json:"oi_delta"`
	TakerRatio float64 `json:"taker_ratio"`
	PriceATR   float64 `json:"price_atr"`
	RSI        float64 `json:"rsi"`
}

// Debug carries the raw pre-rounding inputs for offline inspection
type Debug struct {
	CVDRatio      float64 `json:"cvd_ratio"`
	TakerLogRatio float64 `json:"taker_log_ratio"`
	OIDeltaPct    float64 `json:"oi_delta_pct"`
	TakerBuy      float64 `json:"taker_buy"`
	TakerSell     float64 `json:"taker_sell"`
	TotalNotional float64 `json:"total_notional"`
	TimestampMs   int64   `json:"timestamp_ms"`
	Timeframe     string  `json:"timeframe"`
}

// Classification is the outcome of one regime evaluation. It is always
// well-formed: failed evaluations come back as noise with confidence 0 and
// a diagnostic reason instead of an error.
type Classification struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Symbol     string     `json:"symbol" db:"symbol"`
	Timeframe  string     `json:"timeframe" db:"timeframe"`
	Timestamp  time.Time  `json:"timestamp" db:"timestamp"`
	Regime     Type       `json:"regime" db:"regime"`
	Direction  Direction  `json:"direction" db:"direction"`
	Confidence float64    `json:"confidence" db:"confidence"`
	Reason     string     `json:"reason" db:"reason"`
	Indicators Indicators `json:"indicators"`
	Debug      Debug      `json:"debug"`
}

// Evaluated reports whether this result came from a full evaluation.
// Failure paths never populate Debug, so an empty debug timeframe marks a
// diagnostic noise result rather than an observed market state.
func (c *Classification) Evaluated() bool {
	return c.Debug.Timeframe != ""
}
