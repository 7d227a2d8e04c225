package market_data

import "time"

// timeframeDurations maps supported timeframe labels to bucket lengths.
// Unknown labels must surface as an explicit failure to the caller, never
// as a silently guessed interval.
var timeframeDurations = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// timeframeOrder keeps iteration deterministic for workers and tests
var timeframeOrder = []string{"1m", "5m", "15m", "1h", "4h", "1d"}

// TimeframeDuration returns the bucket length for a timeframe label
func TimeframeDuration(timeframe string) (time.Duration, bool) {
	d, ok := timeframeDurations[timeframe]
	return d, ok
}

// IsValidTimeframe reports whether the label is supported
func IsValidTimeframe(timeframe string) bool {
	_, ok := timeframeDurations[timeframe]
	return ok
}

// Timeframes returns the supported labels ordered short to long
func Timeframes() []string {
	out := make([]string, len(timeframeOrder))
	copy(out, timeframeOrder)
	return out
}
