package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/config"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/market_data"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/metrics"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/logger"
)

const infoPath = "/info"

// Client calls the public info endpoint. No credentials required.
type Client struct {
	apiURL  string
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewClient creates a new feed REST client
func NewClient(cfg config.HyperliquidConfig) *Client {
	return &Client{
		apiURL:  strings.TrimRight(cfg.APIURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		log:     logger.Get().With("component", "hyperliquid_client"),
	}
}

// candleSnapshotReq is the inner req object of a candleSnapshot payload
type candleSnapshotReq struct {
	Coin      string `json:"coin"`
	Interval  string `json:"interval"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
}

// GetRecentCandles fetches the trailing count candles for a coin, including
// the still-open bucket. Interval labels match domain timeframes 1:1.
func (c *Client) GetRecentCandles(ctx context.Context, coin, interval string, count int) ([]market_data.Candle, error) {
	dur, ok := market_data.TimeframeDuration(interval)
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidTimeframe, "%s", interval)
	}

	end := time.Now().UTC()
	start := end.Add(-time.Duration(count) * dur)
	return c.GetCandleRange(ctx, coin, interval, start, end)
}

// GetCandleRange fetches candles between from and to (inclusive bounds on
// bucket start). Malformed entries are skipped with a warning rather than
// failing the whole page.
func (c *Client) GetCandleRange(ctx context.Context, coin, interval string, from, to time.Time) ([]market_data.Candle, error) {
	payload := map[string]interface{}{
		"type": "candleSnapshot",
		"req": candleSnapshotReq{
			Coin:      coin,
			Interval:  interval,
			StartTime: from.UnixMilli(),
			EndTime:   to.UnixMilli(),
		},
	}

	var raw []rawCandle
	if err := c.post(ctx, "candleSnapshot", payload, &raw); err != nil {
		return nil, err
	}

	candles := make([]market_data.Candle, 0, len(raw))
	for i := range raw {
		candle, err := raw[i].toDomain()
		if err != nil {
			c.log.Warnf("Skipping malformed candle for %s/%s: %v", coin, interval, err)
			continue
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

// GetOpenInterest resolves the current open interest for a coin.
// metaAndAssetCtxs returns [meta, assetCtxs]; the universe and context
// arrays line up by index.
func (c *Client) GetOpenInterest(ctx context.Context, coin string) (*market_data.OpenInterest, error) {
	payload := map[string]string{"type": "metaAndAssetCtxs"}

	var raw []json.RawMessage
	if err := c.post(ctx, "metaAndAssetCtxs", payload, &raw); err != nil {
		return nil, err
	}
	if len(raw) < 2 {
		return nil, errors.Wrap(errors.ErrFeedBadResponse, "metaAndAssetCtxs returned short array")
	}

	var meta struct {
		Universe []assetMeta `json:"universe"`
	}
	if err := json.Unmarshal(raw[0], &meta); err != nil {
		return nil, errors.Wrap(errors.ErrFeedBadResponse, "meta decode")
	}

	var ctxs []assetCtx
	if err := json.Unmarshal(raw[1], &ctxs); err != nil {
		return nil, errors.Wrap(errors.ErrFeedBadResponse, "asset contexts decode")
	}

	for i := range meta.Universe {
		if meta.Universe[i].Name != coin {
			continue
		}
		if i >= len(ctxs) {
			break
		}

		value, err := parseDecimal(ctxs[i].OpenInterest)
		if err != nil {
			return nil, errors.Wrapf(err, "open interest for %s", coin)
		}

		return &market_data.OpenInterest{
			Symbol:    coin,
			Timestamp: time.Now().UTC(),
			Value:     value,
		}, nil
	}

	return nil, errors.Wrapf(errors.ErrInvalidSymbol, "%s not in universe", coin)
}

// post sends one info request and decodes the response into dest. The
// request type doubles as the metrics endpoint label.
func (c *Client) post(ctx context.Context, reqType string, payload interface{}, dest interface{}) (err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+infoPath, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	defer func() {
		metrics.RecordFeedCall(reqType, time.Since(start), err)
	}()

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(errors.ErrFeedUnavailable, "post info: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return errors.ErrRateLimitExceeded
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(errors.ErrFeedUnavailable, "info status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return errors.Wrapf(errors.ErrFeedBadResponse, "decode: %v", err)
	}

	return nil
}
