package types

import "time"

// OHLCV is one candle. Timestamp is the candle open time.
type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// OpenTimeMs returns the candle open time in unix milliseconds, the
// identity used for candle-based deduplication.
func (c OHLCV) OpenTimeMs() int64 {
	return c.Timestamp.UnixMilli()
}

// Range returns high minus low.
func (c OHLCV) Range() float64 {
	return c.High - c.Low
}

// Closes extracts close prices in order.
func Closes(data []OHLCV) []float64 {
	out := make([]float64, len(data))
	for i, c := range data {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts volumes in order.
func Volumes(data []OHLCV) []float64 {
	out := make([]float64, len(data))
	for i, c := range data {
		out[i] = c.Volume
	}
	return out
}
