package metrics

import (
	"context"
	"time"

	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/logger"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

// CustomCollector scrapes pipeline state straight from the stores: regime
// distribution from Postgres, data freshness from ClickHouse. Queried on
// every /metrics pull, so everything here must stay cheap.
type CustomCollector struct {
	log        *logger.Logger
	postgres   *sqlx.DB
	clickhouse driver.Conn

	snapshotsByRegime *prometheus.Desc
	snapshots24h      *prometheus.Desc
	configCount       *prometheus.Desc
	flowFreshness     *prometheus.Desc
	candleFreshness   *prometheus.Desc
}

// NewCustomCollector creates a new custom metrics collector
func NewCustomCollector(log *logger.Logger, postgres *sqlx.DB, clickhouse driver.Conn) *CustomCollector {
	return &CustomCollector{
		log:        log,
		postgres:   postgres,
		clickhouse: clickhouse,

		snapshotsByRegime: prometheus.NewDesc(
			"arena_regime_snapshots",
			"Total stored regime snapshots by regime",
			[]string{"regime"}, nil,
		),
		snapshots24h: prometheus.NewDesc(
			"arena_regime_snapshots_24h",
			"Regime snapshots stored in the last 24h",
			nil, nil,
		),
		configCount: prometheus.NewDesc(
			"arena_regime_configs",
			"Number of regime threshold configs",
			nil, nil,
		),
		flowFreshness: prometheus.NewDesc(
			"arena_flow_data_age_seconds",
			"Age of the newest flow aggregate per symbol",
			[]string{"symbol"}, nil,
		),
		candleFreshness: prometheus.NewDesc(
			"arena_candle_data_age_seconds",
			"Age of the newest stored candle per symbol",
			[]string{"symbol"}, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *CustomCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.snapshotsByRegime
	ch <- c.snapshots24h
	ch <- c.configCount
	ch <- c.flowFreshness
	ch <- c.candleFreshness
}

// Collect implements prometheus.Collector
func (c *CustomCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectSnapshotStats(ctx, ch)
	c.collectConfigCount(ctx, ch)
	c.collectFreshness(ctx, ch)
}

func (c *CustomCollector) collectSnapshotStats(ctx context.Context, ch chan<- prometheus.Metric) {
	type RegimeStat struct {
		Regime string `db:"regime"`
		Count  int    `db:"count"`
	}

	var stats []RegimeStat
	err := c.postgres.SelectContext(ctx, &stats, `
		SELECT regime, COUNT(*) as count
		FROM regime_snapshots
		GROUP BY regime
	`)
	if err != nil {
		c.log.Error("Failed to collect snapshot stats", "error", err)
		return
	}

	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(
			c.snapshotsByRegime,
			prometheus.GaugeValue,
			float64(stat.Count),
			stat.Regime,
		)
	}

	var recent int
	err = c.postgres.GetContext(ctx, &recent, `
		SELECT COUNT(*)
		FROM regime_snapshots
		WHERE timestamp > NOW() - INTERVAL '24 hours'
	`)
	if err != nil {
		c.log.Error("Failed to collect recent snapshot count", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(
		c.snapshots24h,
		prometheus.GaugeValue,
		float64(recent),
	)
}

func (c *CustomCollector) collectConfigCount(ctx context.Context, ch chan<- prometheus.Metric) {
	var count int
	err := c.postgres.GetContext(ctx, &count, "SELECT COUNT(*) FROM regime_configs")
	if err != nil {
		c.log.Error("Failed to collect config count", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(
		c.configCount,
		prometheus.GaugeValue,
		float64(count),
	)
}

func (c *CustomCollector) collectFreshness(ctx context.Context, ch chan<- prometheus.Metric) {
	type FreshnessRow struct {
		Symbol string    `ch:"symbol"`
		Latest time.Time `ch:"latest"`
	}

	var flowRows []FreshnessRow
	err := c.clickhouse.Select(ctx, &flowRows, `
		SELECT symbol, max(timestamp) AS latest
		FROM flow_aggregates_15s
		GROUP BY symbol
	`)
	if err != nil {
		c.log.Error("Failed to collect flow freshness", "error", err)
	} else {
		now := time.Now().UTC()
		for _, row := range flowRows {
			ch <- prometheus.MustNewConstMetric(
				c.flowFreshness,
				prometheus.GaugeValue,
				now.Sub(row.Latest).Seconds(),
				row.Symbol,
			)
		}
	}

	var candleRows []FreshnessRow
	err = c.clickhouse.Select(ctx, &candleRows, `
		SELECT symbol, max(timestamp) AS latest
		FROM candles
		GROUP BY symbol
	`)
	if err != nil {
		c.log.Error("Failed to collect candle freshness", "error", err)
		return
	}

	now := time.Now().UTC()
	for _, row := range candleRows {
		ch <- prometheus.MustNewConstMetric(
			c.candleFreshness,
			prometheus.GaugeValue,
			now.Sub(row.Latest).Seconds(),
			row.Symbol,
		)
	}
}

// RegisterCustomCollector registers the custom collector
func RegisterCustomCollector(collector *CustomCollector) {
	prometheus.MustRegister(collector)
}
