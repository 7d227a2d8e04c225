package flow

import (
	"context"
	"time"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/market_data"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/logger"
)

// Service derives windowed flow indicators (CVD, taker split, OI delta) from
// the 15s aggregates and open interest snapshots
type Service struct {
	repository market_data.Repository
	log        *logger.Logger
}

// NewService creates a new flow indicator service
func NewService(repository market_data.Repository, log *logger.Logger) *Service {
	return &Service{
		repository: repository,
		log:        log,
	}
}

// Indicators computes flow readings for the window [at - dur(tf), at).
// Readings that cannot be derived come back nil, never zeroed: the caller
// decides whether a missing reading is fatal (CVD/taker) or neutral (OI).
func (s *Service) Indicators(ctx context.Context, symbol, timeframe string, at time.Time) (*market_data.FlowIndicators, error) {
	window, ok := market_data.TimeframeDuration(timeframe)
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidTimeframe, "unsupported timeframe for flow indicators: %s", timeframe)
	}

	windowStart := at.Add(-window)

	aggregates, err := s.repository.GetFlowAggregates(ctx, symbol, windowStart, at)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load flow aggregates")
	}

	indicators := &market_data.FlowIndicators{}

	if len(aggregates) > 0 {
		var buy, sell float64
		for _, agg := range aggregates {
			buy += agg.TakerBuyNotional
			sell += agg.TakerSellNotional
		}
		indicators.CVD = &market_data.CVDReading{Current: buy - sell}
		indicators.Taker = &market_data.TakerReading{Buy: buy, Sell: sell}
	}

	indicators.OIDelta = s.oiDelta(ctx, symbol, windowStart, at)

	return indicators, nil
}

// oiDelta computes the percent OI change across the window from the snapshot
// at/before the window start to the latest snapshot in the window. Fewer than
// two distinct snapshots means the delta is unknowable for this window.
func (s *Service) oiDelta(ctx context.Context, symbol string, windowStart, at time.Time) *market_data.OIDeltaReading {
	baseline, err := s.repository.GetOpenInterestBefore(ctx, symbol, windowStart)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			s.log.Warnf("Failed to load baseline open interest for %s: %v", symbol, err)
		}
		return nil
	}

	latest, err := s.repository.GetOpenInterestBefore(ctx, symbol, at)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			s.log.Warnf("Failed to load latest open interest for %s: %v", symbol, err)
		}
		return nil
	}

	// same snapshot on both ends means nothing landed inside the window
	if !latest.Timestamp.After(baseline.Timestamp) || baseline.Value == 0 {
		return nil
	}

	change := (latest.Value - baseline.Value) / baseline.Value * 100

	return &market_data.OIDeltaReading{Current: change}
}
