package workers

import (
	"context"
	"sync"
	"time"

	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/logger"
)

// Worker is one background loop. The scheduler calls Run once immediately
// and then on every tick of Interval until the context is cancelled.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
	Interval() time.Duration
	Enabled() bool
}

// Status is a point-in-time snapshot of a worker's run history.
type Status struct {
	LastRun     time.Time
	LastError   error
	Runs        int64
	Errors      int64
	AvgDuration time.Duration
	Enabled     bool
}

// BaseWorker carries the name, cadence and run bookkeeping shared by the
// collectors and the detector. Embed it and implement Run.
type BaseWorker struct {
	name     string
	interval time.Duration
	log      *logger.Logger

	mu            sync.RWMutex
	enabled       bool
	lastRun       time.Time
	lastError     error
	runs          int64
	errs          int64
	totalDuration time.Duration
}

func NewBaseWorker(name string, interval time.Duration, enabled bool) *BaseWorker {
	return &BaseWorker{
		name:     name,
		interval: interval,
		enabled:  enabled,
		log:      logger.Get().With("worker", name),
	}
}

func (w *BaseWorker) Name() string            { return w.name }
func (w *BaseWorker) Interval() time.Duration { return w.interval }

func (w *BaseWorker) Enabled() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.enabled
}

// SetEnabled flips the worker on or off. Takes effect on the next tick.
func (w *BaseWorker) SetEnabled(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enabled = enabled
	w.log.Infow("Worker enabled state changed", "enabled", enabled)
}

// Log returns the worker-scoped logger.
func (w *BaseWorker) Log() *logger.Logger {
	return w.log
}

// Health reports the worker's run history so far.
func (w *BaseWorker) Health() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var avg time.Duration
	if w.runs > 0 {
		avg = time.Duration(int64(w.totalDuration) / w.runs)
	}

	return Status{
		LastRun:     w.lastRun,
		LastError:   w.lastError,
		Runs:        w.runs,
		Errors:      w.errs,
		AvgDuration: avg,
		Enabled:     w.enabled,
	}
}

// RecordRun notes a completed iteration. Clears any previous error so the
// status reflects the most recent outcome.
func (w *BaseWorker) RecordRun(duration time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastRun = time.Now()
	w.runs++
	w.totalDuration += duration
	w.lastError = nil
}

// RecordError notes a failed iteration.
func (w *BaseWorker) RecordError(err error, duration time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastRun = time.Now()
	w.runs++
	w.errs++
	w.totalDuration += duration
	w.lastError = err
}
