package bootstrap

import (
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/config"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/hyperliquid"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/telegram"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/market_data"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/regime"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/events"
	regimesvc "github.com/yekaipow/Hyper-Alpha-Arena2/internal/services/regime"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/workers"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/workers/analysis"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/workers/marketdata"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/logger"
)

// provideWorkers initializes all background workers.
// The flow collector is returned separately: it owns the trade stream and
// needs Start/Stop around the scheduler's lifecycle.
func provideWorkers(
	marketDataRepo market_data.Repository,
	snapshotRepo regime.SnapshotRepository,
	regimeService *regimesvc.Service,
	feed *hyperliquid.Client,
	stream *hyperliquid.Stream,
	publisher *events.Publisher,
	tgNotifier *telegram.Notifier,
	cfg *config.Config,
	log *logger.Logger,
) (*marketdata.FlowCollector, *workers.Scheduler) {
	log.Info("Initializing workers...")

	scheduler := workers.NewScheduler()

	symbols := cfg.Markets.Symbols
	timeframes := cfg.Markets.Timeframes

	flowCollector := marketdata.NewFlowCollector(
		marketDataRepo,
		stream,
		publisher,
		symbols,
		cfg.Workers.FlowFlushInterval,
		true,
	)
	scheduler.RegisterWorker(flowCollector)

	scheduler.RegisterWorker(marketdata.NewCandleCollector(
		marketDataRepo,
		feed,
		symbols,
		timeframes,
		cfg.Workers.CandleCollectorInterval,
		true,
	))

	scheduler.RegisterWorker(marketdata.NewOICollector(
		marketDataRepo,
		feed,
		symbols,
		cfg.Workers.OICollectorInterval,
		true,
	))

	// a nil *telegram.Notifier must stay a nil interface inside the detector
	var notifier analysis.Notifier
	if tgNotifier != nil {
		notifier = tgNotifier
	}

	scheduler.RegisterWorker(analysis.NewRegimeDetector(
		regimeService,
		snapshotRepo,
		publisher,
		notifier,
		symbols,
		timeframes,
		cfg.Workers.RegimeDetectorInterval,
		true,
	))

	log.Infow("Workers initialized",
		"symbols", symbols,
		"timeframes", timeframes,
	)

	return flowCollector, scheduler
}
