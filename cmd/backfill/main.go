package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	chclient "github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/clickhouse"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/config"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/hyperliquid"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/market_data"
	chrepo "github.com/yekaipow/Hyper-Alpha-Arena2/internal/repository/clickhouse"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/logger"
)

// pageCandles stays under the feed's 5000-candle response cap
const pageCandles = 4000

// Backfills historical candles from the feed into ClickHouse so regime
// detection has enough lookback on a fresh deployment.
func main() {
	symbol := flag.String("symbol", "BTC", "Coin to backfill")
	timeframe := flag.String("timeframe", "1h", "Candle timeframe")
	startStr := flag.String("start", "", "Start date YYYY-MM-DD (default 30 days ago)")
	endStr := flag.String("end", "", "End date YYYY-MM-DD (default now)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()

	dur, ok := market_data.TimeframeDuration(*timeframe)
	if !ok {
		log.Fatalf("Unsupported timeframe: %s", *timeframe)
	}

	from, to, err := parseRange(*startStr, *endStr)
	if err != nil {
		log.Fatalf("Invalid date range: %v", err)
	}

	log.Infow("Starting backfill",
		"symbol", *symbol,
		"timeframe", *timeframe,
		"from", from.Format("2006-01-02"),
		"to", to.Format("2006-01-02"),
	)

	ch, err := chclient.NewClient(cfg.ClickHouse)
	if err != nil {
		log.Fatalf("Failed to connect to ClickHouse: %v", err)
	}
	defer ch.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// backfill usually runs against a fresh database, before the service
	if err := chrepo.EnsureSchema(ctx, ch.Conn()); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	repo := chrepo.NewMarketDataRepository(ch.Conn())
	feed := hyperliquid.NewClient(cfg.Hyperliquid)

	// Page boundaries overlap by one bucket since the range is inclusive on
	// both ends; the candles table dedups on insert so that is harmless.
	pageSpan := time.Duration(pageCandles) * dur
	total := 0

	for cursor := from; cursor.Before(to); cursor = cursor.Add(pageSpan) {
		if ctx.Err() != nil {
			log.Warn("Backfill interrupted")
			break
		}

		pageEnd := cursor.Add(pageSpan)
		if pageEnd.After(to) {
			pageEnd = to
		}

		candles, err := feed.GetCandleRange(ctx, *symbol, *timeframe, cursor, pageEnd)
		if err != nil {
			log.Fatalf("Fetch failed at %s: %v", cursor.Format(time.RFC3339), err)
		}
		if len(candles) == 0 {
			continue
		}

		if err := repo.InsertCandles(ctx, candles); err != nil {
			log.Fatalf("Insert failed at %s: %v", cursor.Format(time.RFC3339), err)
		}

		total += len(candles)
		log.Infow("Page stored",
			"from", cursor.Format(time.RFC3339),
			"candles", len(candles),
			"total", humanize.Comma(int64(total)),
		)
	}

	log.Infow("✅ Backfill complete",
		"symbol", *symbol,
		"timeframe", *timeframe,
		"candles", humanize.Comma(int64(total)),
	)
}

// parseRange resolves the date flags, defaulting to the trailing 30 days
func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	now := time.Now().UTC()

	from := now.AddDate(0, 0, -30)
	if startStr != "" {
		parsed, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}

	to := now
	if endStr != "" {
		parsed, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}

	return from, to, nil
}
