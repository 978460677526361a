// Package candle converts timeframe labels into bar durations and counts
// bars between candle timestamps.
package candle

import (
	"fmt"
	"sort"
	"time"

	boterrors "github.com/ducminhle1904/crypto-signal-bot/internal/errors"
)

var durations = map[string]int64{
	"1m":  60_000,
	"3m":  180_000,
	"5m":  300_000,
	"15m": 900_000,
	"30m": 1_800_000,
	"1h":  3_600_000,
	"2h":  7_200_000,
	"4h":  14_400_000,
	"1d":  86_400_000,
}

// Bybit kline interval codes per timeframe label
var bybitIntervals = map[string]string{
	"1m":  "1",
	"3m":  "3",
	"5m":  "5",
	"15m": "15",
	"30m": "30",
	"1h":  "60",
	"2h":  "120",
	"4h":  "240",
	"1d":  "D",
}

// DurationMs returns the bar length of a timeframe in milliseconds.
// Unknown labels fail with ErrUnknownTimeframe; callers that want a
// fallback must choose it explicitly.
func DurationMs(timeframe string) (int64, error) {
	ms, ok := durations[timeframe]
	if !ok {
		return 0, fmt.Errorf("%w: %q", boterrors.ErrUnknownTimeframe, timeframe)
	}
	return ms, nil
}

// Duration is DurationMs as a time.Duration
func Duration(timeframe string) (time.Duration, error) {
	ms, err := DurationMs(timeframe)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// BarsBetween returns floor(|t2-t1| / duration) for two millisecond
// timestamps. It is 0 when both fall inside the same bar length.
func BarsBetween(t1Ms, t2Ms int64, timeframe string) (int64, error) {
	ms, err := DurationMs(timeframe)
	if err != nil {
		return 0, err
	}
	delta := t2Ms - t1Ms
	if delta < 0 {
		delta = -delta
	}
	return delta / ms, nil
}

// NextClose returns the first bar boundary strictly after now. Boundaries
// are aligned to the unix epoch in UTC, as exchanges align klines.
func NextClose(now time.Time, timeframe string) (time.Time, error) {
	ms, err := DurationMs(timeframe)
	if err != nil {
		return time.Time{}, err
	}
	nowMs := now.UnixMilli()
	next := (nowMs/ms + 1) * ms
	return time.UnixMilli(next).UTC(), nil
}

// BybitInterval maps a timeframe label to the Bybit kline interval code
func BybitInterval(timeframe string) (string, error) {
	code, ok := bybitIntervals[timeframe]
	if !ok {
		return "", fmt.Errorf("%w: %q", boterrors.ErrUnknownTimeframe, timeframe)
	}
	return code, nil
}

// Validate checks every label, returning the first unknown one
func Validate(timeframes ...string) error {
	for _, tf := range timeframes {
		if _, err := DurationMs(tf); err != nil {
			return err
		}
	}
	return nil
}

// Supported lists the known labels ordered by duration
func Supported() []string {
	out := make([]string, 0, len(durations))
	for tf := range durations {
		out = append(out, tf)
	}
	sort.Slice(out, func(i, j int) bool { return durations[out[i]] < durations[out[j]] })
	return out
}
