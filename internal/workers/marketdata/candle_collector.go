package marketdata

import (
	"context"
	"time"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/market_data"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/workers"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
)

// trailingCandles is how many of the most recent buckets each poll refetches.
// The open bucket is included on purpose: the candles table dedups on
// (symbol, timeframe, timestamp), so refetching just overwrites the row with
// a fresher partial and eventually the sealed version.
const trailingCandles = 3

// CandleFeed is the subset of the exchange client the collector needs
type CandleFeed interface {
	GetRecentCandles(ctx context.Context, coin, interval string, count int) ([]market_data.Candle, error)
}

// CandleCollector polls recent OHLCV candles for every configured
// symbol/timeframe pair and upserts them into storage
type CandleCollector struct {
	*workers.BaseWorker
	repository market_data.Repository
	feed       CandleFeed
	symbols    []string
	timeframes []string
}

// NewCandleCollector creates a new candle collector worker
func NewCandleCollector(
	repository market_data.Repository,
	feed CandleFeed,
	symbols []string,
	timeframes []string,
	interval time.Duration,
	enabled bool,
) *CandleCollector {
	return &CandleCollector{
		BaseWorker: workers.NewBaseWorker("candle_collector", interval, enabled),
		repository: repository,
		feed:       feed,
		symbols:    symbols,
		timeframes: timeframes,
	}
}

// Run polls candles for each symbol and timeframe
func (cc *CandleCollector) Run(ctx context.Context) error {
	collected := 0
	var merr errors.MultiError

	for _, symbol := range cc.symbols {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		for _, timeframe := range cc.timeframes {
			if err := cc.collect(ctx, symbol, timeframe); err != nil {
				cc.Log().Error("Failed to collect candles",
					"symbol", symbol,
					"timeframe", timeframe,
					"error", err,
				)
				merr.Add(errors.Wrapf(err, "%s/%s", symbol, timeframe))
				continue
			}
			collected++
		}
	}

	cc.Log().Info("Candle collection completed",
		"collected", collected,
		"errors", len(merr.Errors),
	)

	// Partial failures only get logged; a fully failed sweep counts
	// against the worker
	if collected == 0 && merr.HasErrors() {
		return merr.ToError()
	}
	return nil
}

func (cc *CandleCollector) collect(ctx context.Context, symbol, timeframe string) error {
	candles, err := cc.feed.GetRecentCandles(ctx, symbol, timeframe, trailingCandles)
	if err != nil {
		return errors.Wrap(err, "fetch recent candles")
	}
	if len(candles) == 0 {
		return nil
	}

	if err := cc.repository.InsertCandles(ctx, candles); err != nil {
		return errors.Wrap(err, "insert candles")
	}
	return nil
}
