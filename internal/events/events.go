package events

import (
	"time"

	"github.com/google/uuid"
)

// Events are serialized as JSON and keyed by symbol, so consumers see each
// market's events in order.

// RegimeChangeEvent signals that the detected regime flipped for one
// symbol/timeframe pair
type RegimeChangeEvent struct {
	EventID    string    `json:"event_id"`
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	OldRegime  string    `json:"old_regime"`
	NewRegime  string    `json:"new_regime"`
	Direction  string    `json:"direction"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// DataGapEvent signals lost stream coverage; downstream consumers treat the
// affected window as unreliable
type DataGapEvent struct {
	EventID   string    `json:"event_id"`
	Symbol    string    `json:"symbol"`
	Source    string    `json:"source"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func newEventID() string {
	return uuid.NewString()
}
