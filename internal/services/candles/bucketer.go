package candles

import (
	"sort"
	"time"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/market_data"
)

// BucketFlow rolls 15s flow aggregates into fixed-interval candles anchored
// at the window end. A record lands in bucket idx = (anchor-ts)/interval
// counted backwards from the anchor; bucket start = anchor-(idx+1)*interval.
// Records at/after the anchor or older than n intervals are dropped, empty
// buckets are skipped, output is oldest-first. Candle timestamps are bucket
// starts truncated to seconds.
func BucketFlow(records []market_data.FlowAggregate, interval time.Duration, anchor time.Time, n int) []market_data.Candle {
	if n <= 0 || interval <= 0 || len(records) == 0 {
		return nil
	}

	buckets := make(map[int][]market_data.FlowAggregate)
	for _, rec := range records {
		if !rec.Timestamp.Before(anchor) {
			continue
		}
		idx := int(anchor.Sub(rec.Timestamp) / interval)
		if idx >= n {
			continue
		}
		buckets[idx] = append(buckets[idx], rec)
	}

	candles := make([]market_data.Candle, 0, len(buckets))
	for idx := n - 1; idx >= 0; idx-- {
		recs := buckets[idx]
		if len(recs) == 0 {
			continue
		}

		sort.Slice(recs, func(i, j int) bool {
			return recs[i].Timestamp.Before(recs[j].Timestamp)
		})

		first, last := recs[0], recs[len(recs)-1]

		var high, low, volume float64
		for _, rec := range recs {
			// zero-priced slices carry no usable extremes
			if rec.High > 0 && rec.High > high {
				high = rec.High
			}
			if rec.Low > 0 && (low == 0 || rec.Low < low) {
				low = rec.Low
			}
			volume += rec.Notional()
		}

		bucketStart := anchor.Add(-time.Duration(idx+1) * interval)

		candles = append(candles, market_data.Candle{
			Symbol:    first.Symbol,
			Timestamp: bucketStart.Truncate(time.Second),
			Open:      first.VWAP,
			High:      high,
			Low:       low,
			Close:     last.VWAP,
			Volume:    volume,
		})
	}

	return candles
}
