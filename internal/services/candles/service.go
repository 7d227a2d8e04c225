package candles

import (
	"context"
	"sort"
	"time"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/market_data"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/logger"
)

// overlayCount is how many fresh candles the feed contributes on the live
// path. Kept small to bound feed latency per classification.
const overlayCount = 5

// Feed supplies recent candles straight from the venue, including the
// still-open bucket the store has not seen yet.
type Feed interface {
	GetRecentCandles(ctx context.Context, coin, timeframe string, count int) ([]market_data.Candle, error)
}

// Service hands out candle series from the store, from flow aggregates, or
// from a store+feed overlay
type Service struct {
	repository market_data.Repository
	feed       Feed
	log        *logger.Logger
}

// NewService creates a new candle service. feed may be nil, which disables
// the realtime overlay.
func NewService(repository market_data.Repository, feed Feed, log *logger.Logger) *Service {
	return &Service{
		repository: repository,
		feed:       feed,
		log:        log,
	}
}

// HasFeed reports whether the realtime overlay is available
func (s *Service) HasFeed() bool {
	return s.feed != nil
}

// Recent returns up to limit stored candles at or before the given time,
// oldest first
func (s *Service) Recent(ctx context.Context, symbol, timeframe string, limit int, atOrBefore time.Time) ([]market_data.Candle, error) {
	candles, err := s.repository.GetCandlesBefore(ctx, symbol, timeframe, limit, atOrBefore)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load candles")
	}
	return candles, nil
}

// FromFlow reconstructs candles from 15s flow aggregates ending at the
// anchor. Used by the realtime path so the current bucket reflects trades
// the candle collector has not persisted yet.
func (s *Service) FromFlow(ctx context.Context, symbol, timeframe string, limit int, anchor time.Time) ([]market_data.Candle, error) {
	interval, ok := market_data.TimeframeDuration(timeframe)
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidTimeframe, "unsupported timeframe for flow aggregation: %s", timeframe)
	}

	from := anchor.Add(-time.Duration(limit) * interval)

	aggregates, err := s.repository.GetFlowAggregates(ctx, symbol, from, anchor)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load flow aggregates")
	}

	if len(aggregates) == 0 {
		s.log.Warnf("No flow data for %s in range [%s, %s)", symbol, from, anchor)
		return nil, nil
	}

	candles := BucketFlow(aggregates, interval, anchor, limit)
	for i := range candles {
		candles[i].Timeframe = timeframe
	}

	return candles, nil
}

// RecentWithOverlay merges the stored page with the latest feed candles.
// Feed wins on bucket collisions since its current candle is fresher than
// anything persisted. Feed failure degrades to the store result.
func (s *Service) RecentWithOverlay(ctx context.Context, symbol, timeframe string, limit int) ([]market_data.Candle, error) {
	stored, err := s.repository.GetCandlesBefore(ctx, symbol, timeframe, limit, time.Now().UTC())
	if err != nil {
		return nil, errors.Wrap(err, "failed to load candles")
	}

	if s.feed == nil {
		return stored, nil
	}

	fresh, err := s.feed.GetRecentCandles(ctx, symbol, timeframe, overlayCount)
	if err != nil {
		s.log.Warnf("Failed to fetch realtime candles for %s/%s: %v, falling back to store only", symbol, timeframe, err)
		return stored, nil
	}

	merged := make(map[int64]market_data.Candle, len(stored)+len(fresh))
	for _, c := range stored {
		merged[c.Timestamp.Unix()] = c
	}
	for _, c := range fresh {
		c.Timeframe = timeframe
		merged[c.Timestamp.Unix()] = c
	}

	out := make([]market_data.Candle, 0, len(merged))
	for _, c := range merged {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	if len(out) > limit {
		out = out[len(out)-limit:]
	}

	return out, nil
}
