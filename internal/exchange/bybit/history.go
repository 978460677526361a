package bybit

import (
	"context"
	"fmt"
	"time"

	"github.com/ducminhle1904/crypto-signal-bot/internal/candle"
	"github.com/ducminhle1904/crypto-signal-bot/internal/retry"
	"github.com/ducminhle1904/crypto-signal-bot/pkg/types"
)

// DownloadHistory pages through [start, end) and returns ascending candles
// with duplicates removed. progress, when set, is called after each page.
func (c *Client) DownloadHistory(ctx context.Context, symbol, timeframe string, start, end time.Time, progress func(fetched int, last time.Time)) ([]types.OHLCV, error) {
	interval, err := candle.BybitInterval(timeframe)
	if err != nil {
		return nil, err
	}
	step, err := candle.Duration(timeframe)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, fmt.Errorf("end %s is not after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	var out []types.OHLCV
	seen := make(map[int64]struct{})
	cursor := start

	for cursor.Before(end) {
		pageEnd := cursor.Add(step * (MaxKlineLimit - 1))
		if pageEnd.After(end) {
			pageEnd = end
		}
		from, to := cursor, pageEnd

		var klines []Kline
		err := retry.Do(ctx, c.config.Retry, IsRetryableError, func(ctx context.Context) error {
			var err error
			klines, err = c.GetKlines(ctx, KlineParams{
				Symbol:   symbol,
				Interval: interval,
				Start:    &from,
				End:      &to,
				Limit:    MaxKlineLimit,
			})
			return err
		})
		if err != nil {
			return out, fmt.Errorf("page from %s: %w", from.Format(time.RFC3339), err)
		}
		if len(klines) == 0 {
			cursor = pageEnd.Add(step)
			continue
		}

		for _, k := range toOHLCV(klines) {
			ms := k.OpenTimeMs()
			if _, dup := seen[ms]; dup || !k.Timestamp.Before(end) {
				continue
			}
			seen[ms] = struct{}{}
			out = append(out, k)
		}

		last := klines[len(klines)-1].StartTime
		if progress != nil {
			progress(len(out), last)
		}
		// a page that does not move forward skips its window
		if last.Before(cursor) {
			cursor = pageEnd.Add(step)
		} else {
			cursor = last.Add(step)
		}
	}
	return out, nil
}
