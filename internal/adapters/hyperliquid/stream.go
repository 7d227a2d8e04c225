package hyperliquid

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/metrics"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/logger"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/reconnect"
)

const (
	wsPingInterval = 30 * time.Second // server drops idle connections after 60s
	wsReadTimeout  = 15 * time.Second
	wsWriteTimeout = 5 * time.Second

	// staleCheckInterval is how often the watchdog looks for a connection
	// that is up but silent. Pings elicit pongs every 30s, so a healthy
	// connection always has frames inside the heartbeat window.
	staleCheckInterval = 20 * time.Second
)

// Stream consumes the public trades channel over websocket. Reconnection
// with backoff and resubscription are handled internally; consumers only
// see the callback going quiet and the OnReconnect hook firing.
type Stream struct {
	url       string
	conn      *websocket.Conn
	connected bool
	mu        sync.RWMutex
	wg        sync.WaitGroup
	log       *logger.Logger
	manager   *reconnect.Manager

	tradeCallbacks map[string]func(Trade)
	onReconnect    func()

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewStream creates a new trades stream client
func NewStream(url string) *Stream {
	log := logger.Get().With("component", "hyperliquid_stream")

	return &Stream{
		url: url,
		log: log,
		manager: reconnect.NewManager(reconnect.Config{
			MinBackoff:       time.Second,
			MaxBackoff:       time.Minute,
			MaxRetries:       0, // retry until circuit opens
			HeartbeatTimeout: 60 * time.Second,
		}, log),
		tradeCallbacks: make(map[string]func(Trade)),
		done:           make(chan struct{}),
	}
}

// OnReconnect registers a hook invoked after every successful reconnect.
// Data between disconnect and resubscribe is lost; the hook lets consumers
// account for the gap.
func (s *Stream) OnReconnect(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReconnect = fn
}

// Connect establishes the websocket connection
func (s *Stream) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	if err := s.dialLocked(ctx); err != nil {
		return err
	}

	s.wg.Add(1)
	go s.readMessages()

	s.wg.Add(1)
	go s.pingLoop()

	s.wg.Add(1)
	go s.watchdog()

	s.log.Infof("Connected to trades stream: %s", s.url)
	return nil
}

// SubscribeTrades subscribes to the trade tape for one coin
func (s *Stream) SubscribeTrades(coin string, callback func(Trade)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected || s.conn == nil {
		return errors.ErrWSNotConnected
	}

	if err := s.writeSubscribeLocked(coin); err != nil {
		return errors.Wrapf(errors.ErrWSSubscriptionFailed, "trades %s: %v", coin, err)
	}

	s.tradeCallbacks[coin] = callback
	s.log.Infof("Subscribed to trades for %s", coin)
	return nil
}

// IsConnected returns connection status
func (s *Stream) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Disconnect closes the stream gracefully
func (s *Stream) Disconnect() error {
	s.mu.Lock()

	if !s.connected {
		s.mu.Unlock()
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	select {
	case <-s.done:
	default:
		close(s.done)
	}

	if s.conn != nil {
		err := s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		if err != nil {
			s.log.Warnf("Error sending close message: %v", err)
		}
		s.conn.Close()
		s.conn = nil
	}

	s.connected = false
	s.mu.Unlock()

	// Wait for goroutines with a timeout, like the worker scheduler does
	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		s.log.Info("Trades stream disconnected gracefully")
	case <-time.After(10 * time.Second):
		s.log.Warn("Trades stream shutdown timed out after 10s")
		return errors.Wrap(errors.ErrTimeout, "stream shutdown timeout")
	}

	return nil
}

// dialLocked dials and marks the stream connected. Callers must hold mu.
func (s *Stream) dialLocked(ctx context.Context) error {
	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to connect to %s", s.url)
	}

	s.conn = conn
	s.connected = true
	return nil
}

// writeSubscribeLocked sends one subscription frame. Callers must hold mu.
func (s *Stream) writeSubscribeLocked(coin string) error {
	msg := map[string]interface{}{
		"method": "subscribe",
		"subscription": map[string]string{
			"type": "trades",
			"coin": coin,
		},
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(msg)
}

// redial re-establishes the connection and resubscribes every coin.
// Returns false when the retry budget is exhausted or shutdown started.
func (s *Stream) redial() bool {
	for {
		select {
		case <-s.ctx.Done():
			return false
		default:
		}

		err := s.manager.ReconnectWithBackoff(s.ctx, func(ctx context.Context) error {
			s.mu.Lock()
			defer s.mu.Unlock()

			if s.conn != nil {
				s.conn.Close()
				s.conn = nil
			}
			if err := s.dialLocked(ctx); err != nil {
				return err
			}
			for coin := range s.tradeCallbacks {
				if err := s.writeSubscribeLocked(coin); err != nil {
					return errors.Wrapf(err, "resubscribe %s", coin)
				}
			}
			return nil
		})

		if err == nil {
			metrics.StreamReconnects.WithLabelValues("success").Inc()
			s.mu.RLock()
			hook := s.onReconnect
			s.mu.RUnlock()
			if hook != nil {
				hook()
			}
			return true
		}
		metrics.StreamReconnects.WithLabelValues("failed").Inc()

		if s.ctx.Err() != nil {
			return false
		}
		if !s.manager.ShouldRetry() {
			s.log.Errorf("Giving up on stream reconnect: %v", err)
			return false
		}
	}
}

// readMessages reads and dispatches incoming frames.
// Runs in a separate goroutine and respects context cancellation.
func (s *Stream) readMessages() {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.done:
			return
		default:
			s.mu.RLock()
			conn := s.conn
			s.mu.RUnlock()
			if conn == nil {
				return
			}

			if err := conn.SetReadDeadline(time.Now().Add(wsReadTimeout)); err != nil {
				s.log.Errorf("Failed to set read deadline: %v", err)
				return
			}

			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.log.Info("Stream closed normally")
					return
				}
				// Read deadline lapses are expected; they let us poll ctx
				if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
					continue
				}

				s.log.Errorf("Stream read error: %v", err)
				if !s.redial() {
					return
				}
				continue
			}

			s.manager.RecordMessageReceived()
			s.processMessage(message)
		}
	}
}

// watchdog forces a redial when the connection stops delivering frames.
// Covers the case where the TCP session stays up but the subscription is
// silently dropped: closing the conn makes readMessages fail and redial.
func (s *Stream) watchdog() {
	defer s.wg.Done()

	ticker := time.NewTicker(staleCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if !s.manager.Stale() {
				continue
			}

			s.log.Warn("Stream went silent past the heartbeat window, forcing reconnect")
			s.mu.Lock()
			if s.conn != nil {
				s.conn.Close()
			}
			s.mu.Unlock()
		}
	}
}

// pingLoop keeps the connection alive. The server expects application-level
// ping frames, not websocket control pings.
func (s *Stream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.conn == nil {
				s.mu.Unlock()
				continue
			}
			if err := s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				s.mu.Unlock()
				continue
			}
			err := s.conn.WriteJSON(map[string]string{"method": "ping"})
			s.mu.Unlock()

			if err != nil {
				s.log.Warnf("Ping failed: %v", err)
			}
		}
	}
}

// processMessage routes one frame to the right handler
func (s *Stream) processMessage(message []byte) {
	var envelope wsEnvelope
	if err := json.Unmarshal(message, &envelope); err != nil {
		s.log.Errorf("Failed to unmarshal stream message: %v", err)
		return
	}

	switch envelope.Channel {
	case "trades":
		s.handleTrades(envelope.Data)
	case "pong", "subscriptionResponse":
		// keepalive and ack frames carry nothing we need
	default:
		s.log.Debugf("Unhandled stream channel: %s", envelope.Channel)
	}
}

func (s *Stream) handleTrades(data json.RawMessage) {
	var prints []wsTrade
	if err := json.Unmarshal(data, &prints); err != nil {
		s.log.Errorf("Failed to unmarshal trades: %v", err)
		return
	}

	for i := range prints {
		trade, err := prints[i].toTrade()
		if err != nil {
			s.log.Warnf("Skipping malformed trade for %s: %v", prints[i].Coin, err)
			continue
		}

		s.mu.RLock()
		callback, ok := s.tradeCallbacks[trade.Coin]
		s.mu.RUnlock()
		if ok {
			callback(trade)
		}
	}
}
