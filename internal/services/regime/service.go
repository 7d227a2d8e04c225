package regime

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/market_data"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/regime"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/logger"
)

// candleHistory is how far back the price metrics look
const candleHistory = 50

// Request selects what to classify. Zero TimestampMs means "now"; a set
// timestamp pins the evaluation window for backtesting and disables the
// realtime overlay. UseRealtime reconstructs candles from flow aggregates
// instead of stored candles so the current bucket is included.
type Request struct {
	Symbol      string
	Timeframe   string
	ConfigID    *uuid.UUID
	TimestampMs int64
	UseRealtime bool
}

// FlowSource supplies windowed flow readings
type FlowSource interface {
	Indicators(ctx context.Context, symbol, timeframe string, at time.Time) (*market_data.FlowIndicators, error)
}

// CandleSource supplies candle series for price metrics
type CandleSource interface {
	Recent(ctx context.Context, symbol, timeframe string, limit int, atOrBefore time.Time) ([]market_data.Candle, error)
	FromFlow(ctx context.Context, symbol, timeframe string, limit int, anchor time.Time) ([]market_data.Candle, error)
	RecentWithOverlay(ctx context.Context, symbol, timeframe string, limit int) ([]market_data.Candle, error)
	HasFeed() bool
}

// Service orchestrates one classification pass: config, flow indicators,
// candles, classifier, confidence
type Service struct {
	configs regime.ConfigRepository
	candles CandleSource
	flow    FlowSource
	cache   *Cache
	log     *logger.Logger
}

// NewService creates the classification orchestrator. cache may be nil.
func NewService(
	configs regime.ConfigRepository,
	candles CandleSource,
	flow FlowSource,
	cache *Cache,
	log *logger.Logger,
) *Service {
	return &Service{
		configs: configs,
		candles: candles,
		flow:    flow,
		cache:   cache,
		log:     log,
	}
}

// Classify evaluates the market regime for one (symbol, timeframe) request.
// It never returns an error: every failure path yields a terminal noise
// result with confidence 0 and a diagnostic reason, so callers always get a
// usable answer.
func (s *Service) Classify(ctx context.Context, req Request) *regime.Classification {
	cacheable := s.cache != nil && req.TimestampMs == 0 && !req.UseRealtime
	if cacheable {
		if cached := s.cache.Get(ctx, req.Symbol, req.Timeframe); cached != nil {
			return cached
		}
	}

	cfg, err := s.lookupConfig(ctx, req.ConfigID)
	if err != nil {
		s.log.Warnf("Regime config lookup failed for %s/%s: %v", req.Symbol, req.Timeframe, err)
		return s.terminal(req, "No regime config found")
	}

	if !market_data.IsValidTimeframe(req.Timeframe) {
		return s.terminal(req, fmt.Sprintf("Unsupported timeframe: %s", req.Timeframe))
	}

	at := time.Now().UTC()
	if req.TimestampMs != 0 {
		at = time.UnixMilli(req.TimestampMs).UTC()
	}

	flowIndicators, err := s.flow.Indicators(ctx, req.Symbol, req.Timeframe, at)
	if err != nil {
		s.log.Warnf("Flow indicators unavailable for %s/%s: %v", req.Symbol, req.Timeframe, err)
		return s.terminal(req, "Insufficient market flow data")
	}
	if flowIndicators.CVD == nil || flowIndicators.Taker == nil {
		return s.terminal(req, "Insufficient market flow data")
	}

	flowMetrics := CalculateFlowMetrics(flowIndicators)
	priceMetrics := CalculatePriceMetrics(s.loadCandles(ctx, req, at))

	features := regime.Features{
		CVDRatio:      flowMetrics.CVDRatio,
		TakerLogRatio: flowMetrics.TakerLogRatio,
		OIDelta:       flowMetrics.OIDelta,
		PriceATR:      priceMetrics.PriceATR,
		RSI:           priceMetrics.RSI,
		PriceRangeATR: priceMetrics.PriceRangeATR,
	}

	regimeType, reason := ClassifyFeatures(features, cfg)
	direction := CalculateDirection(features.CVDRatio, features.TakerLogRatio, features.PriceATR)

	confidence := CalculateBaseConfidence(features.CVDRatio, features.TakerLogRatio, features.OIDelta, features.PriceATR) *
		PatternPenalty(regimeType, features) *
		DirectionPenalty(regimeType, features.CVDRatio, features.PriceATR, features.TakerLogRatio)

	result := &regime.Classification{
		ID:         uuid.New(),
		Symbol:     req.Symbol,
		Timeframe:  req.Timeframe,
		Timestamp:  time.Now().UTC(),
		Regime:     regimeType,
		Direction:  direction,
		Confidence: roundTo(confidence, 3),
		Reason:     reason,
		Indicators: regime.Indicators{
			CVDRatio:   roundTo(features.CVDRatio, 4),
			OIDelta:    roundTo(features.OIDelta, 3),
			TakerRatio: roundTo(math.Exp(features.TakerLogRatio), 3),
			PriceATR:   roundTo(features.PriceATR, 3),
			RSI:        roundTo(features.RSI, 1),
		},
		Debug: regime.Debug{
			CVDRatio:      roundTo(features.CVDRatio, 4),
			TakerLogRatio: roundTo(features.TakerLogRatio, 4),
			OIDeltaPct:    roundTo(features.OIDelta, 3),
			TakerBuy:      roundTo(flowMetrics.TakerBuy, 2),
			TakerSell:     roundTo(flowMetrics.TakerSell, 2),
			TotalNotional: roundTo(flowMetrics.TotalNotional, 2),
			TimestampMs:   at.UnixMilli(),
			Timeframe:     req.Timeframe,
		},
	}

	if cacheable {
		s.cache.Set(ctx, result)
	}

	return result
}

func (s *Service) lookupConfig(ctx context.Context, id *uuid.UUID) (*regime.Config, error) {
	if id != nil {
		return s.configs.GetByID(ctx, *id)
	}
	return s.configs.GetDefault(ctx)
}

// loadCandles picks the candle source for the request. Sourcing failures
// degrade to an empty series (neutral price metrics), never an error.
func (s *Service) loadCandles(ctx context.Context, req Request, at time.Time) []market_data.Candle {
	var (
		candles []market_data.Candle
		err     error
	)

	switch {
	case req.UseRealtime:
		candles, err = s.candles.FromFlow(ctx, req.Symbol, req.Timeframe, candleHistory, at)
	case req.TimestampMs != 0 || !s.candles.HasFeed():
		candles, err = s.candles.Recent(ctx, req.Symbol, req.Timeframe, candleHistory, at)
	default:
		candles, err = s.candles.RecentWithOverlay(ctx, req.Symbol, req.Timeframe, candleHistory)
	}

	if err != nil {
		s.log.Warnf("Candle sourcing failed for %s/%s: %v", req.Symbol, req.Timeframe, err)
		return nil
	}

	return candles
}

// terminal builds the noise result every failure path collapses into
func (s *Service) terminal(req Request, reason string) *regime.Classification {
	return &regime.Classification{
		ID:         uuid.New(),
		Symbol:     req.Symbol,
		Timeframe:  req.Timeframe,
		Timestamp:  time.Now().UTC(),
		Regime:     regime.RegimeNoise,
		Direction:  regime.DirectionNeutral,
		Confidence: 0,
		Reason:     reason,
	}
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
