package bootstrap

import (
	"context"
	"sync"
	"time"

	chclient "github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/clickhouse"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/kafka"
	pgclient "github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/postgres"
	redisclient "github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/redis"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/api"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/workers"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/workers/marketdata"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/logger"
)

// Lifecycle manages graceful startup and shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		shutdownTimeout: 60 * time.Second,
	}
}

// Shutdown performs coordinated cleanup of all components in the correct order:
// 1. No new HTTP requests accepted
// 2. Workers finish their in-flight runs
// 3. Trade stream disconnected so no new slices accumulate
// 4. Producer closes after everything that publishes through it
// 5. Logs and errors flushed
// 6. Database connections last (earlier steps may still need them)
func (l *Lifecycle) Shutdown(
	wg *sync.WaitGroup,
	httpServer *api.Server,
	workerScheduler *workers.Scheduler,
	flowCollector *marketdata.FlowCollector,
	kafkaProducer *kafka.Producer,
	pgClient *pgclient.Client,
	chClient *chclient.Client,
	redisClient *redisclient.Client,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer shutdownCancel()

	// ========================================
	// Step 1: Stop HTTP Server (5s timeout)
	// ========================================
	log.Info("[1/7] Stopping HTTP server...")
	httpCtx, httpCancel := context.WithTimeout(shutdownCtx, 5*time.Second)
	defer httpCancel()

	if err := httpServer.Shutdown(httpCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	} else {
		log.Info("✓ HTTP server stopped")
	}

	// ========================================
	// Step 2: Stop Background Workers
	// ========================================
	log.Info("[2/7] Stopping background workers...")
	if err := workerScheduler.Stop(); err != nil {
		log.Error("Workers shutdown failed", "error", err)
	} else {
		log.Info("✓ Workers stopped")
	}

	// ========================================
	// Step 3: Disconnect Trade Stream
	// After the scheduler stops no one flushes slices, so stop feeding them
	// ========================================
	log.Info("[3/7] Disconnecting trade stream...")
	if flowCollector != nil {
		if err := flowCollector.Stop(); err != nil {
			log.Error("Trade stream disconnect failed", "error", err)
		} else {
			log.Info("✓ Trade stream disconnected")
		}
	}

	// ========================================
	// Step 4: Wait for Remaining Goroutines
	// ========================================
	log.Info("[4/7] Waiting for goroutines...")
	l.waitForGoroutines(wg, 5*time.Second, log)

	// ========================================
	// Step 5: Close Kafka Producer
	// ========================================
	log.Info("[5/7] Closing Kafka producer...")
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Error("Kafka producer close failed", "error", err)
		} else {
			log.Info("✓ Kafka producer closed")
		}
	}

	// ========================================
	// Step 6: Flush Error Tracker and Logs
	// ========================================
	log.Info("[6/7] Flushing error tracker...")
	l.flushErrorTracker(errorTracker, shutdownCtx, log)

	if err := logger.Sync(); err != nil {
		log.Warn("Log sync completed with warnings")
	}

	// ========================================
	// Step 7: Close Database Connections
	// LAST - other components may need them during shutdown
	// ========================================
	log.Info("[7/7] Closing database connections...")
	l.closeDatabases(pgClient, chClient, redisClient, log)

	log.Info("✅ Graceful shutdown complete")
}

// waitForGoroutines waits for all goroutines with a timeout
func (l *Lifecycle) waitForGoroutines(wg *sync.WaitGroup, timeout time.Duration, log *logger.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("✓ All goroutines finished")
	case <-time.After(timeout):
		log.Warn("⚠ Some goroutines did not finish within timeout", "timeout", timeout)
	}
}

// flushErrorTracker flushes the error tracker (Sentry, etc.)
func (l *Lifecycle) flushErrorTracker(tracker errors.Tracker, ctx context.Context, log *logger.Logger) {
	if tracker == nil {
		return
	}

	flushCtx, flushCancel := context.WithTimeout(ctx, 3*time.Second)
	defer flushCancel()

	if err := tracker.Flush(flushCtx); err != nil {
		log.Error("Error tracker flush failed", "error", err)
	} else {
		log.Info("✓ Error tracker flushed")
	}
}

// closeDatabases closes all database connections
func (l *Lifecycle) closeDatabases(
	pgClient *pgclient.Client,
	chClient *chclient.Client,
	redisClient *redisclient.Client,
	log *logger.Logger,
) {
	var dbErrors []error

	if pgClient != nil {
		if err := pgClient.Close(); err != nil {
			dbErrors = append(dbErrors, errors.Wrap(err, "postgres"))
		}
	}

	if chClient != nil {
		if err := chClient.Close(); err != nil {
			dbErrors = append(dbErrors, errors.Wrap(err, "clickhouse"))
		}
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			dbErrors = append(dbErrors, errors.Wrap(err, "redis"))
		}
	}

	if len(dbErrors) > 0 {
		log.Error("Database close errors", "errors", dbErrors)
	} else {
		log.Info("✓ Database connections closed")
	}
}
