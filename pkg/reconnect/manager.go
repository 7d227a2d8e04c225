package reconnect

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/logger"
)

// Manager drives reconnection for long-lived connections: exponential
// backoff with jitter, a circuit breaker after repeated failures, and a
// heartbeat so callers can spot a connection that is up but silent.
type Manager struct {
	minBackoff        time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
	jitter            float64
	maxRetries        int
	heartbeatTimeout  time.Duration
	circuitResetAfter time.Duration

	mu                  sync.RWMutex
	currentBackoff      time.Duration
	consecutiveFailures int
	totalReconnects     int
	circuitOpen         bool
	circuitOpenedAt     time.Time

	// Unix seconds of the last frame seen on the connection
	lastMessageTime atomic.Int64

	logger *logger.Logger
}

// Config configures the reconnect manager. Zero values fall back to the
// defaults noted per field.
type Config struct {
	MinBackoff        time.Duration // first wait between attempts (1s)
	MaxBackoff        time.Duration // backoff growth cap (5min)
	BackoffMultiplier float64       // growth factor per failure (2.0)
	Jitter            float64       // random fraction added to each wait, 0..1 (0.2)
	MaxRetries        int           // consecutive failures before the circuit opens (10)
	HeartbeatTimeout  time.Duration // silence on the connection counted as dead (60s)
	CircuitResetAfter time.Duration // wait before retrying once the circuit opens (5min)
}

// NewManager creates a reconnect manager with sensible defaults
func NewManager(config Config, log *logger.Logger) *Manager {
	if config.MinBackoff == 0 {
		config.MinBackoff = 1 * time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 5 * time.Minute
	}
	if config.BackoffMultiplier == 0 {
		config.BackoffMultiplier = 2.0
	}
	if config.Jitter == 0 {
		config.Jitter = 0.2
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 10
	}
	if config.HeartbeatTimeout == 0 {
		config.HeartbeatTimeout = 60 * time.Second
	}
	if config.CircuitResetAfter == 0 {
		config.CircuitResetAfter = 5 * time.Minute
	}

	return &Manager{
		minBackoff:        config.MinBackoff,
		maxBackoff:        config.MaxBackoff,
		backoffMultiplier: config.BackoffMultiplier,
		jitter:            config.Jitter,
		maxRetries:        config.MaxRetries,
		heartbeatTimeout:  config.HeartbeatTimeout,
		circuitResetAfter: config.CircuitResetAfter,
		currentBackoff:    config.MinBackoff,
		logger:            log,
	}
}

// RecordMessageReceived updates the heartbeat. Call it for every frame the
// connection delivers, keepalives included.
func (m *Manager) RecordMessageReceived() {
	m.lastMessageTime.Store(time.Now().Unix())
}

// Stale reports whether the connection has gone silent past the heartbeat
// timeout. A connection that has not delivered its first frame yet is not
// considered stale.
func (m *Manager) Stale() bool {
	last := m.lastMessageTime.Load()
	if last == 0 {
		return false
	}
	return time.Since(time.Unix(last, 0)) > m.heartbeatTimeout
}

// ShouldRetry reports whether another reconnect attempt is allowed
func (m *Manager) ShouldRetry() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.circuitOpen {
		// allow a probe attempt once the reset window has passed
		return time.Since(m.circuitOpenedAt) >= m.circuitResetAfter
	}

	if m.maxRetries > 0 && m.consecutiveFailures >= m.maxRetries {
		return false
	}

	return true
}

// Backoff returns the wait before the next attempt, with jitter applied so
// a fleet of clients does not redial in lockstep.
func (m *Manager) Backoff() time.Duration {
	m.mu.RLock()
	base := m.currentBackoff
	m.mu.RUnlock()

	if m.jitter <= 0 || m.jitter > 1 {
		return base
	}
	span := int64(float64(base) * m.jitter)
	if span <= 0 {
		return base
	}
	return base + time.Duration(time.Now().UnixNano()%span)
}

// RecordFailure grows the backoff and opens the circuit after too many
// consecutive failures.
func (m *Manager) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.consecutiveFailures++

	next := time.Duration(float64(m.currentBackoff) * m.backoffMultiplier)
	if next > m.maxBackoff {
		next = m.maxBackoff
	}
	m.currentBackoff = next

	m.logger.Warnw("Reconnection failed",
		"consecutive_failures", m.consecutiveFailures,
		"next_backoff", m.currentBackoff,
	)

	if m.maxRetries > 0 && m.consecutiveFailures >= m.maxRetries {
		m.circuitOpen = true
		m.circuitOpenedAt = time.Now()

		m.logger.Errorw("🔴 Circuit breaker OPENED - too many consecutive failures",
			"consecutive_failures", m.consecutiveFailures,
			"max_retries", m.maxRetries,
			"circuit_reset_after", m.circuitResetAfter,
		)
	}
}

// RecordSuccess resets the backoff and closes the circuit
func (m *Manager) RecordSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.consecutiveFailures > 0 {
		m.logger.Infow("Reconnection successful, resetting backoff",
			"previous_consecutive_failures", m.consecutiveFailures,
		)
	}

	m.currentBackoff = m.minBackoff
	m.consecutiveFailures = 0
	m.totalReconnects++

	if m.circuitOpen {
		m.logger.Infow("🟢 Circuit breaker CLOSED - connection restored",
			"total_reconnects", m.totalReconnects,
		)
		m.circuitOpen = false
		m.circuitOpenedAt = time.Time{}
	}

	m.lastMessageTime.Store(time.Now().Unix())
}

// ReconnectWithBackoff waits out the current backoff, then runs one
// reconnect attempt. Success resets the backoff; failure grows it. Returns
// an error without attempting when the retry budget is spent.
func (m *Manager) ReconnectWithBackoff(ctx context.Context, reconnectFn func(context.Context) error) error {
	if !m.ShouldRetry() {
		m.mu.RLock()
		circuitOpen := m.circuitOpen
		failures := m.consecutiveFailures
		m.mu.RUnlock()

		if circuitOpen {
			return errors.New("circuit breaker is open - too many consecutive failures")
		}
		return errors.Newf("max retries reached: %d consecutive failures", failures)
	}

	if backoff := m.Backoff(); backoff > 0 {
		m.logger.Infow("Waiting before reconnect attempt", "backoff", backoff)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := reconnectFn(ctx); err != nil {
		m.RecordFailure()
		return errors.Wrap(err, "reconnection failed")
	}

	m.RecordSuccess()
	return nil
}
