package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arena_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "arena_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Classification metrics
	Classifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_classifications_total",
			Help: "Total number of regime classifications",
		},
		[]string{"symbol", "timeframe", "regime"},
	)

	ClassificationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arena_classification_duration_seconds",
			Help:    "Regime classification duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"timeframe"},
	)

	RegimeFlips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_regime_flips_total",
			Help: "Total number of regime transitions",
		},
		[]string{"symbol", "timeframe"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_classification_cache_lookups_total",
			Help: "Classification cache lookups by result",
		},
		[]string{"result"}, // result: hit|miss
	)

	// Feed metrics
	FeedAPICalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_feed_api_calls_total",
			Help: "Total number of feed REST calls",
		},
		[]string{"endpoint", "status"}, // status: success|error|rate_limited
	)

	FeedAPILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arena_feed_api_latency_seconds",
			Help:    "Feed REST call latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"endpoint"},
	)

	// Stream metrics
	StreamTrades = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_stream_trades_total",
			Help: "Total trade prints consumed from the stream",
		},
		[]string{"symbol"},
	)

	StreamReconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_stream_reconnects_total",
			Help: "Total number of stream reconnect attempts",
		},
		[]string{"status"}, // status: success|failed
	)

	DataGaps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_data_gaps_total",
			Help: "Total number of detected stream data gaps",
		},
		[]string{"symbol"},
	)

	FlowSlicesFlushed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_flow_slices_flushed_total",
			Help: "Total 15s flow slices flushed to storage",
		},
		[]string{"symbol"},
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"}, // database: postgres|clickhouse|redis
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arena_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"database", "operation"},
	)

	// Event metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_kafka_messages_total",
			Help: "Total Kafka messages produced/consumed",
		},
		[]string{"topic", "direction", "status"}, // direction: produced|consumed
	)

	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_notifications_sent_total",
			Help: "Total alert notifications sent",
		},
		[]string{"channel", "status"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)

	prometheus.MustRegister(Classifications)
	prometheus.MustRegister(ClassificationDuration)
	prometheus.MustRegister(RegimeFlips)
	prometheus.MustRegister(CacheLookups)

	prometheus.MustRegister(FeedAPICalls)
	prometheus.MustRegister(FeedAPILatency)

	prometheus.MustRegister(StreamTrades)
	prometheus.MustRegister(StreamReconnects)
	prometheus.MustRegister(DataGaps)
	prometheus.MustRegister(FlowSlicesFlushed)

	prometheus.MustRegister(DBQueries)
	prometheus.MustRegister(DBQueryDuration)

	prometheus.MustRegister(KafkaMessages)
	prometheus.MustRegister(NotificationsSent)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordClassification records one completed regime evaluation
func RecordClassification(symbol, timeframe, regime string, duration time.Duration) {
	Classifications.WithLabelValues(symbol, timeframe, regime).Inc()
	ClassificationDuration.WithLabelValues(timeframe).Observe(duration.Seconds())
}

// RecordRegimeFlip records a regime transition
func RecordRegimeFlip(symbol, timeframe string) {
	RegimeFlips.WithLabelValues(symbol, timeframe).Inc()
}

// RecordCacheLookup records a classification cache lookup
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(result).Inc()
}

// RecordFeedCall records a feed REST call
func RecordFeedCall(endpoint string, latency time.Duration, err error) {
	status := "success"
	switch {
	case errors.Is(err, errors.ErrRateLimitExceeded):
		status = "rate_limited"
	case err != nil:
		status = "error"
	}

	FeedAPICalls.WithLabelValues(endpoint, status).Inc()
	FeedAPILatency.WithLabelValues(endpoint).Observe(latency.Seconds())
}

// RecordDBQuery records a database query
func RecordDBQuery(database, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	DBQueries.WithLabelValues(database, operation, status).Inc()
	DBQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// RecordKafkaMessage records a produced or consumed Kafka message
func RecordKafkaMessage(topic, direction string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	KafkaMessages.WithLabelValues(topic, direction, status).Inc()
}

// RecordNotification records an alert delivery attempt
func RecordNotification(channel string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	NotificationsSent.WithLabelValues(channel, status).Inc()
}
