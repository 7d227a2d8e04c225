package marketdata

import (
	"context"
	"time"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/market_data"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/workers"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
)

// OIFeed is the subset of the exchange client the collector needs
type OIFeed interface {
	GetOpenInterest(ctx context.Context, coin string) (*market_data.OpenInterest, error)
}

// OICollector polls open interest for every configured symbol and appends a
// snapshot row per poll. Deltas are computed at read time from consecutive
// snapshots.
type OICollector struct {
	*workers.BaseWorker
	repository market_data.Repository
	feed       OIFeed
	symbols    []string
}

// NewOICollector creates a new open interest collector worker
func NewOICollector(
	repository market_data.Repository,
	feed OIFeed,
	symbols []string,
	interval time.Duration,
	enabled bool,
) *OICollector {
	return &OICollector{
		BaseWorker: workers.NewBaseWorker("oi_collector", interval, enabled),
		repository: repository,
		feed:       feed,
		symbols:    symbols,
	}
}

// Run snapshots open interest for each symbol
func (oc *OICollector) Run(ctx context.Context) error {
	collected := 0
	var merr errors.MultiError

	for _, symbol := range oc.symbols {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := oc.collect(ctx, symbol); err != nil {
			oc.Log().Error("Failed to collect open interest",
				"symbol", symbol,
				"error", err,
			)
			merr.Add(errors.Wrap(err, symbol))
			continue
		}
		collected++
	}

	oc.Log().Info("Open interest collection completed",
		"collected", collected,
		"errors", len(merr.Errors),
	)

	if collected == 0 && merr.HasErrors() {
		return merr.ToError()
	}
	return nil
}

func (oc *OICollector) collect(ctx context.Context, symbol string) error {
	snapshot, err := oc.feed.GetOpenInterest(ctx, symbol)
	if err != nil {
		return errors.Wrap(err, "fetch open interest")
	}

	if err := oc.repository.InsertOpenInterest(ctx, snapshot); err != nil {
		return errors.Wrap(err, "insert open interest")
	}
	return nil
}
