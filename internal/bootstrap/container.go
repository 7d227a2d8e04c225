package bootstrap

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	chclient "github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/clickhouse"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/config"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/errors/noop"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/errors/sentry"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/hyperliquid"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/kafka"
	pgclient "github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/postgres"
	redisclient "github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/redis"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/telegram"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/api"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/api/health"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/market_data"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/regime"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/events"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/metrics"
	chrepo "github.com/yekaipow/Hyper-Alpha-Arena2/internal/repository/clickhouse"
	pgrepo "github.com/yekaipow/Hyper-Alpha-Arena2/internal/repository/postgres"
	candlesvc "github.com/yekaipow/Hyper-Alpha-Arena2/internal/services/candles"
	flowsvc "github.com/yekaipow/Hyper-Alpha-Arena2/internal/services/flow"
	regimesvc "github.com/yekaipow/Hyper-Alpha-Arena2/internal/services/regime"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/workers"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/workers/marketdata"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/logger"
)

// Container holds all application dependencies and their lifecycle.
// Components are organized in initialization order.
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure Layer (Data stores)
	PG    *pgclient.Client
	CH    *chclient.Client
	Redis *redisclient.Client // nil when the classification cache is disabled

	// Domain Layer - Repositories
	Repos *Repositories

	// Domain Layer - Services
	Services *Services

	// External Adapters
	Adapters *Adapters

	// Application Layer
	Application *Application

	// Background Processing
	Background *Background

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Repositories groups all domain repositories
type Repositories struct {
	MarketData     market_data.Repository   // candles, flow aggregates, OI (ClickHouse)
	RegimeConfig   regime.ConfigRepository  // classification thresholds (Postgres)
	RegimeSnapshot regime.SnapshotRepository // stored classifications (Postgres)
}

// Services groups all domain services
type Services struct {
	Flow    *flowsvc.Service   // windowed flow readings over the 15s tape
	Candles *candlesvc.Service // candle sourcing: store, flow-derived, overlay
	Regime  *regimesvc.Service // classification orchestrator
}

// Adapters groups all external adapters
type Adapters struct {
	KafkaProducer  *kafka.Producer
	EventPublisher *events.Publisher
	Feed           *hyperliquid.Client
	Stream         *hyperliquid.Stream
	Notifier       *telegram.Notifier // nil when alerts are disabled
}

// Application groups application layer components
type Application struct {
	HTTPServer    *api.Server
	HealthHandler *health.Handler
}

// Background groups all background processing components
type Background struct {
	WorkerScheduler *workers.Scheduler
	FlowCollector   *marketdata.FlowCollector // needs Start/Stop around the scheduler
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Repos:       &Repositories{},
		Services:    &Services{},
		Adapters:    &Adapters{},
		Application: &Application{},
		Background:  &Background{},
		Lifecycle:   NewLifecycle(),
		WG:          &sync.WaitGroup{},
		Context:     ctx,
		Cancel:      cancel,
	}
}

// MustInit initializes all components in the correct order.
// Panics on any initialization error (fail-fast at startup).
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitRepositories()
	c.MustInitAdapters()
	c.MustInitServices()
	c.MustInitBackground()
	c.MustInitApplication()
}

// MustInitConfig loads configuration and wires logging and error tracking
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	c.Log = logger.Get()

	c.ErrorTracker = c.provideErrorTracker()
	logger.SetErrorTracker(c.ErrorTracker)

	metrics.Init()

	c.Log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)
}

func (c *Container) provideErrorTracker() errors.Tracker {
	cfg := c.Config.ErrorTracking
	if !cfg.Enabled || cfg.SentryDSN == "" {
		c.Log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.SentryDSN, cfg.Environment)
	if err != nil {
		c.Log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	c.Log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// MustInitInfrastructure connects the data stores
func (c *Container) MustInitInfrastructure() {
	pg, err := pgclient.NewClient(c.Config.Postgres)
	if err != nil {
		c.Log.Fatal("Failed to connect to PostgreSQL", "error", err)
	}
	c.PG = pg
	c.Log.Info("✓ PostgreSQL connected")

	ch, err := chclient.NewClient(c.Config.ClickHouse)
	if err != nil {
		c.Log.Fatal("Failed to connect to ClickHouse", "error", err)
	}
	c.CH = ch
	c.Log.Info("✓ ClickHouse connected")

	if c.Config.Cache.Enabled {
		rd, err := redisclient.NewClient(c.Config.Redis)
		if err != nil {
			c.Log.Fatal("Failed to connect to Redis", "error", err)
		}
		c.Redis = rd
		c.Log.Info("✓ Redis connected")
	} else {
		c.Log.Info("Classification cache disabled, skipping Redis")
	}
}

// MustInitRepositories ensures the schemas and wires the repository layer
func (c *Container) MustInitRepositories() {
	if err := pgrepo.EnsureSchema(c.Context, c.PG.DB()); err != nil {
		c.Log.Fatal("Failed to ensure postgres schema", "error", err)
	}
	if err := chrepo.EnsureSchema(c.Context, c.CH.Conn()); err != nil {
		c.Log.Fatal("Failed to ensure clickhouse schema", "error", err)
	}

	c.Repos.MarketData = chrepo.NewMarketDataRepository(c.CH.Conn())
	c.Repos.RegimeConfig = pgrepo.NewRegimeConfigRepository(c.PG.DB())
	c.Repos.RegimeSnapshot = pgrepo.NewRegimeSnapshotRepository(c.PG.DB())

	collector := metrics.NewCustomCollector(c.Log, c.PG.DB(), c.CH.Conn())
	metrics.RegisterCustomCollector(collector)
}

// MustInitAdapters wires the external adapters
func (c *Container) MustInitAdapters() {
	c.Adapters.KafkaProducer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers: c.Config.Kafka.Brokers,
	})
	c.Adapters.EventPublisher = events.NewPublisher(c.Adapters.KafkaProducer, c.Log)

	c.Adapters.Feed = hyperliquid.NewClient(c.Config.Hyperliquid)
	c.Adapters.Stream = hyperliquid.NewStream(c.Config.Hyperliquid.WSURL)

	if c.Config.Telegram.Enabled {
		notifier, err := telegram.NewNotifier(c.Config.Telegram.BotToken, c.Config.Telegram.ChatID)
		if err != nil {
			c.Log.Fatal("Failed to create telegram notifier", "error", err)
		}
		c.Adapters.Notifier = notifier
		c.Log.Info("✓ Telegram alerts enabled")
	}
}

// MustInitServices wires the domain services
func (c *Container) MustInitServices() {
	c.Services.Flow = flowsvc.NewService(c.Repos.MarketData, c.Log)
	c.Services.Candles = candlesvc.NewService(c.Repos.MarketData, c.Adapters.Feed, c.Log)

	var cache *regimesvc.Cache
	if c.Redis != nil {
		cache = regimesvc.NewCache(c.Redis, c.Config.Cache.ClassificationTTL)
	}

	c.Services.Regime = regimesvc.NewService(
		c.Repos.RegimeConfig,
		c.Services.Candles,
		c.Services.Flow,
		cache,
		c.Log,
	)
}

// MustInitApplication wires the HTTP surface.
// Runs after MustInitBackground so the health handler can report worker runs.
func (c *Container) MustInitApplication() {
	var redisConn *redis.Client
	if c.Redis != nil {
		redisConn = c.Redis.Client()
	}

	c.Application.HealthHandler = health.New(
		c.Log,
		c.PG.DB(),
		c.CH.Conn(),
		redisConn,
		c.Background.WorkerScheduler,
		c.Config.App.Name,
		c.Config.App.Version,
	)

	c.Application.HTTPServer = api.NewServer(api.ServerConfig{
		Port:        c.Config.App.HealthPort,
		ServiceName: c.Config.App.Name,
		Version:     c.Config.App.Version,
	}, c.Application.HealthHandler, c.Log)
}

// MustInitBackground wires the workers
func (c *Container) MustInitBackground() {
	c.Background.FlowCollector, c.Background.WorkerScheduler = provideWorkers(
		c.Repos.MarketData,
		c.Repos.RegimeSnapshot,
		c.Services.Regime,
		c.Adapters.Feed,
		c.Adapters.Stream,
		c.Adapters.EventPublisher,
		c.Adapters.Notifier,
		c.Config,
		c.Log,
	)
}

// Start starts all background components
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	// Subscribe the trade tape before the scheduler starts flushing slices
	if err := c.Background.FlowCollector.Start(c.Context); err != nil {
		return errors.Wrap(err, "failed to start flow collector")
	}

	if err := c.Background.WorkerScheduler.Start(c.Context); err != nil {
		return errors.Wrap(err, "failed to start workers")
	}

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Application.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel() // Trigger shutdown on fatal HTTP error
		}
	}()

	c.Log.Info("✓ All systems operational")
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")

	c.Cancel()

	c.Lifecycle.Shutdown(
		c.WG,
		c.Application.HTTPServer,
		c.Background.WorkerScheduler,
		c.Background.FlowCollector,
		c.Adapters.KafkaProducer,
		c.PG,
		c.CH,
		c.Redis,
		c.ErrorTracker,
		c.Log,
	)
}
