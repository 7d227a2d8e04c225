package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Hyperliquid   HyperliquidConfig
	Telegram      TelegramConfig
	Markets       MarketsConfig
	Cache         CacheConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
}

type AppConfig struct {
	Name       string `envconfig:"APP_NAME" default:"hyper-alpha-arena"`
	Version    string `envconfig:"APP_VERSION" default:"dev"`
	Env        string `envconfig:"APP_ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	Debug      bool   `envconfig:"DEBUG" default:"false"`
	HealthPort int    `envconfig:"HEALTH_PORT" default:"8090"` // health + metrics listener
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST" required:"true"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"market"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" required:"true"`
	GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"hyper-alpha-arena"`
}

// HyperliquidConfig configures the market data feed.
// The public info endpoint needs no credentials.
type HyperliquidConfig struct {
	APIURL         string        `envconfig:"HYPERLIQUID_API_URL" default:"https://api.hyperliquid.xyz"`
	WSURL          string        `envconfig:"HYPERLIQUID_WS_URL" default:"wss://api.hyperliquid.xyz/ws"`
	Timeout        time.Duration `envconfig:"HYPERLIQUID_TIMEOUT" default:"10s"`
	RequestsPerSec float64       `envconfig:"HYPERLIQUID_REQUESTS_PER_SEC" default:"10"`
	Burst          int           `envconfig:"HYPERLIQUID_BURST" default:"20"`
}

type TelegramConfig struct {
	Enabled  bool   `envconfig:"TELEGRAM_ALERTS_ENABLED" default:"false"`
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID   int64  `envconfig:"TELEGRAM_CHAT_ID"`
}

// MarketsConfig lists the symbols and timeframes the workers watch
type MarketsConfig struct {
	Symbols    []string `envconfig:"MARKET_SYMBOLS" default:"BTC,ETH,SOL"`
	Timeframes []string `envconfig:"MARKET_TIMEFRAMES" default:"5m,1h"`
}

type CacheConfig struct {
	Enabled           bool          `envconfig:"CACHE_ENABLED" default:"true"`
	ClassificationTTL time.Duration `envconfig:"CACHE_CLASSIFICATION_TTL" default:"30s"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// WorkerConfig contains intervals for all background workers.
// Defaults balance freshness against feed rate limits.
type WorkerConfig struct {
	// Collection workers
	FlowFlushInterval       time.Duration `envconfig:"WORKER_FLOW_FLUSH_INTERVAL" default:"5s"`       // Flush closed 15s flow slices
	CandleCollectorInterval time.Duration `envconfig:"WORKER_CANDLE_COLLECTOR_INTERVAL" default:"1m"` // Pull recent candles from the feed
	OICollectorInterval     time.Duration `envconfig:"WORKER_OI_COLLECTOR_INTERVAL" default:"1m"`     // Poll open interest snapshots
	RegimeDetectorInterval  time.Duration `envconfig:"WORKER_REGIME_DETECTOR_INTERVAL" default:"5m"`  // Regime detection every 5 minutes
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
