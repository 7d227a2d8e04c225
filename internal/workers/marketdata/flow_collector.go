package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/hyperliquid"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/market_data"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/events"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/metrics"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/workers"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
)

const (
	// sliceInterval is the rollup granularity of the flow tape
	sliceInterval = 15 * time.Second

	// flushGrace keeps a closed slice in memory a little longer so stragglers
	// from the stream still land in the right row
	flushGrace = 5 * time.Second
)

// TradeStream is the subset of the stream client the collector needs
type TradeStream interface {
	Connect(ctx context.Context) error
	SubscribeTrades(coin string, callback func(hyperliquid.Trade)) error
	OnReconnect(fn func())
	Disconnect() error
}

// GapPublisher announces lost stream coverage
type GapPublisher interface {
	PublishDataGap(ctx context.Context, event *events.DataGapEvent) error
}

// flowSlice accumulates one 15s window of taker prints for one symbol
type flowSlice struct {
	sumPxSz      float64
	sumSz        float64
	high         float64
	low          float64
	buyNotional  float64
	sellNotional float64
}

// FlowCollector consumes the trade tape and rolls it up into 15s flow
// aggregates. The stream callback only touches in-memory slices; the worker
// tick flushes closed slices to storage in batches.
type FlowCollector struct {
	*workers.BaseWorker
	repository market_data.Repository
	stream     TradeStream
	publisher  GapPublisher
	symbols    []string

	mu      sync.Mutex
	slices  map[string]map[int64]*flowSlice // symbol -> slice start unix -> accumulator
	pending []market_data.FlowAggregate     // closed slices awaiting a successful insert
}

// NewFlowCollector creates a new flow collector worker
func NewFlowCollector(
	repository market_data.Repository,
	stream TradeStream,
	publisher GapPublisher,
	symbols []string,
	interval time.Duration,
	enabled bool,
) *FlowCollector {
	return &FlowCollector{
		BaseWorker: workers.NewBaseWorker("flow_collector", interval, enabled),
		repository: repository,
		stream:     stream,
		publisher:  publisher,
		symbols:    symbols,
		slices:     make(map[string]map[int64]*flowSlice),
	}
}

// Start connects the stream and subscribes the trade tape for every symbol.
// Must be called before the scheduler starts ticking Run.
func (fc *FlowCollector) Start(ctx context.Context) error {
	if err := fc.stream.Connect(ctx); err != nil {
		return errors.Wrap(err, "connect trades stream")
	}

	fc.stream.OnReconnect(func() {
		fc.announceGap()
	})

	for _, symbol := range fc.symbols {
		if err := fc.stream.SubscribeTrades(symbol, fc.record); err != nil {
			return errors.Wrapf(err, "subscribe trades for %s", symbol)
		}
	}

	fc.Log().Info("Flow collector subscribed", "symbols", len(fc.symbols))
	return nil
}

// Stop disconnects the stream
func (fc *FlowCollector) Stop() error {
	return fc.stream.Disconnect()
}

// Run flushes every closed slice to storage
func (fc *FlowCollector) Run(ctx context.Context) error {
	batch := fc.collectClosed(time.Now().UTC())
	if len(batch) == 0 {
		return nil
	}

	if err := fc.repository.InsertFlowAggregates(ctx, batch); err != nil {
		// keep the batch; the next tick retries it together with newly
		// closed slices
		fc.mu.Lock()
		fc.pending = batch
		fc.mu.Unlock()
		return errors.Wrap(err, "insert flow aggregates")
	}

	for _, agg := range batch {
		metrics.FlowSlicesFlushed.WithLabelValues(agg.Symbol).Inc()
	}

	fc.Log().Debug("Flow slices flushed", "count", len(batch))
	return nil
}

// record folds one print into its slice. Runs on the stream goroutine, so it
// must stay cheap.
func (fc *FlowCollector) record(t hyperliquid.Trade) {
	notional := t.Notional()
	sliceStart := t.Time.Truncate(sliceInterval).Unix()

	fc.mu.Lock()
	defer fc.mu.Unlock()

	bySlice, ok := fc.slices[t.Coin]
	if !ok {
		bySlice = make(map[int64]*flowSlice)
		fc.slices[t.Coin] = bySlice
	}

	slice, ok := bySlice[sliceStart]
	if !ok {
		slice = &flowSlice{low: t.Price, high: t.Price}
		bySlice[sliceStart] = slice
	}

	slice.sumPxSz += t.Price * t.Size
	slice.sumSz += t.Size
	if t.Price > slice.high {
		slice.high = t.Price
	}
	if t.Price < slice.low {
		slice.low = t.Price
	}
	if t.IsBuy() {
		slice.buyNotional += notional
	} else {
		slice.sellNotional += notional
	}

	metrics.StreamTrades.WithLabelValues(t.Coin).Inc()
}

// collectClosed drains every slice that closed before now minus the grace
// window, merging in any batch left over from a failed insert
func (fc *FlowCollector) collectClosed(now time.Time) []market_data.FlowAggregate {
	cutoff := now.Add(-flushGrace)

	fc.mu.Lock()
	defer fc.mu.Unlock()

	batch := fc.pending
	fc.pending = nil

	for symbol, bySlice := range fc.slices {
		for start, slice := range bySlice {
			sliceEnd := time.Unix(start, 0).Add(sliceInterval)
			if sliceEnd.After(cutoff) {
				continue
			}

			batch = append(batch, fc.toAggregate(symbol, start, slice))
			delete(bySlice, start)
		}
		if len(bySlice) == 0 {
			delete(fc.slices, symbol)
		}
	}

	return batch
}

func (fc *FlowCollector) toAggregate(symbol string, start int64, slice *flowSlice) market_data.FlowAggregate {
	vwap := 0.0
	if slice.sumSz > 0 {
		vwap = slice.sumPxSz / slice.sumSz
	}

	return market_data.FlowAggregate{
		Symbol:            symbol,
		Timestamp:         time.Unix(start, 0).UTC(),
		VWAP:              vwap,
		High:              slice.high,
		Low:               slice.low,
		TakerBuyNotional:  slice.buyNotional,
		TakerSellNotional: slice.sellNotional,
	}
}

// announceGap publishes a data gap event per symbol after a reconnect.
// Whatever traded while the stream was down never reached the slices, so
// downstream readings over that window are untrustworthy.
func (fc *FlowCollector) announceGap() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, symbol := range fc.symbols {
		metrics.DataGaps.WithLabelValues(symbol).Inc()

		event := &events.DataGapEvent{
			Symbol: symbol,
			Source: "trades_stream",
			Reason: "reconnect",
		}
		if err := fc.publisher.PublishDataGap(ctx, event); err != nil {
			fc.Log().Error("Failed to publish data gap event",
				"symbol", symbol,
				"error", err,
			)
		}
	}

	fc.Log().Warn("Stream reconnected, data gap announced", "symbols", len(fc.symbols))
}
