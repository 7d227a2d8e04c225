package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/regime"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/events"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/metrics"
	regimesvc "github.com/yekaipow/Hyper-Alpha-Arena2/internal/services/regime"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/workers"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
)

// Classifier evaluates the market regime for one request
type Classifier interface {
	Classify(ctx context.Context, req regimesvc.Request) *regime.Classification
}

// EventPublisher publishes regime transitions to the event bus
type EventPublisher interface {
	PublishRegimeChange(ctx context.Context, event *events.RegimeChangeEvent) error
}

// Notifier pushes regime transitions to an alert channel
type Notifier interface {
	NotifyRegimeChange(ctx context.Context, previous regime.Type, c *regime.Classification) error
}

// RegimeDetector periodically classifies every watched symbol/timeframe pair,
// persists the result and announces transitions
type RegimeDetector struct {
	*workers.BaseWorker
	classifier Classifier
	snapshots  regime.SnapshotRepository
	publisher  EventPublisher
	notifier   Notifier // nil when alerts are disabled
	symbols    []string
	timeframes []string

	mu   sync.Mutex
	last map[string]regime.Type
}

// NewRegimeDetector creates a new regime detection worker
func NewRegimeDetector(
	classifier Classifier,
	snapshots regime.SnapshotRepository,
	publisher EventPublisher,
	notifier Notifier,
	symbols []string,
	timeframes []string,
	interval time.Duration,
	enabled bool,
) *RegimeDetector {
	return &RegimeDetector{
		BaseWorker: workers.NewBaseWorker("regime_detector", interval, enabled),
		classifier: classifier,
		snapshots:  snapshots,
		publisher:  publisher,
		notifier:   notifier,
		symbols:    symbols,
		timeframes: timeframes,
		last:       make(map[string]regime.Type),
	}
}

// Run executes one iteration of regime detection
func (rd *RegimeDetector) Run(ctx context.Context) error {
	rd.Log().Debug("Regime detector: starting iteration")

	if len(rd.symbols) == 0 {
		rd.Log().Warn("No symbols configured for regime detection")
		return nil
	}

	detected := 0
	errorCount := 0

	for _, symbol := range rd.symbols {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		for _, timeframe := range rd.timeframes {
			if err := rd.detect(ctx, symbol, timeframe); err != nil {
				rd.Log().Error("Failed to detect regime",
					"symbol", symbol,
					"timeframe", timeframe,
					"error", err,
				)
				errorCount++
				continue
			}
			detected++
		}
	}

	rd.Log().Info("Regime detection complete",
		"detected", detected,
		"errors", errorCount,
	)

	return nil
}

// detect classifies one pair, stores the snapshot and announces a flip
func (rd *RegimeDetector) detect(ctx context.Context, symbol, timeframe string) error {
	start := time.Now()
	c := rd.classifier.Classify(ctx, regimesvc.Request{
		Symbol:    symbol,
		Timeframe: timeframe,
	})
	metrics.RecordClassification(symbol, timeframe, c.Regime.String(), time.Since(start))

	if !c.Evaluated() {
		// failure paths come back as noise with a diagnostic reason; they are
		// not market states and must not be stored or flip the regime
		rd.Log().Warn("Classification degraded",
			"symbol", symbol,
			"timeframe", timeframe,
			"reason", c.Reason,
		)
		return nil
	}

	if err := rd.snapshots.Store(ctx, c); err != nil {
		return errors.Wrap(err, "store snapshot")
	}

	previous, known := rd.previousRegime(ctx, symbol, timeframe)
	rd.setPrevious(symbol, timeframe, c.Regime)

	if known && previous != c.Regime {
		rd.announceFlip(ctx, previous, c)
	}

	return nil
}

// previousRegime resolves the last seen regime for a pair, falling back to
// the stored history on the first pass after a restart
func (rd *RegimeDetector) previousRegime(ctx context.Context, symbol, timeframe string) (regime.Type, bool) {
	rd.mu.Lock()
	prev, ok := rd.last[pairKey(symbol, timeframe)]
	rd.mu.Unlock()
	if ok {
		return prev, true
	}

	latest, err := rd.snapshots.GetLatest(ctx, symbol, timeframe)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			rd.Log().Warn("Failed to load previous regime",
				"symbol", symbol,
				"timeframe", timeframe,
				"error", err,
			)
		}
		return "", false
	}

	return latest.Regime, true
}

func (rd *RegimeDetector) setPrevious(symbol, timeframe string, rt regime.Type) {
	rd.mu.Lock()
	rd.last[pairKey(symbol, timeframe)] = rt
	rd.mu.Unlock()
}

// announceFlip publishes the transition event and pushes an alert.
// Delivery failures are logged, never propagated: the snapshot is already
// stored and the next detection must not be blocked.
func (rd *RegimeDetector) announceFlip(ctx context.Context, previous regime.Type, c *regime.Classification) {
	metrics.RecordRegimeFlip(c.Symbol, c.Timeframe)

	rd.Log().Info("Regime flip",
		"symbol", c.Symbol,
		"timeframe", c.Timeframe,
		"old_regime", previous.String(),
		"new_regime", c.Regime.String(),
		"confidence", c.Confidence,
	)

	event := &events.RegimeChangeEvent{
		Symbol:     c.Symbol,
		Timeframe:  c.Timeframe,
		OldRegime:  previous.String(),
		NewRegime:  c.Regime.String(),
		Direction:  c.Direction.String(),
		Confidence: c.Confidence,
		Reason:     c.Reason,
		Timestamp:  c.Timestamp,
	}
	if err := rd.publisher.PublishRegimeChange(ctx, event); err != nil {
		rd.Log().Error("Failed to publish regime change event", "error", err)
	}

	// flips into noise just mean the previous regime faded out; alerting on
	// them would page on every quiet stretch
	if rd.notifier == nil || c.Regime == regime.RegimeNoise {
		return
	}

	err := rd.notifier.NotifyRegimeChange(ctx, previous, c)
	metrics.RecordNotification("telegram", err)
	if err != nil {
		rd.Log().Error("Failed to send regime alert", "error", err)
	}
}

func pairKey(symbol, timeframe string) string {
	return symbol + "|" + timeframe
}
