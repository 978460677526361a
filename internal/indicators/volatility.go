package indicators

import (
	"math"

	"github.com/ducminhle1904/crypto-signal-bot/pkg/types"
)

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|). The first
// candle has no previous close and uses high-low.
func TrueRange(data []types.OHLCV) []float64 {
	out := make([]float64, len(data))
	for i, c := range data {
		hl := c.High - c.Low
		if i == 0 {
			out[i] = hl
			continue
		}
		prevClose := data[i-1].Close
		out[i] = math.Max(hl, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
	}
	return out
}

// ATR is the simple rolling mean of the true range over period bars. The
// first period-1 positions are NaN.
func ATR(data []types.OHLCV, period int) []float64 {
	tr := TrueRange(data)
	out := make([]float64, len(tr))
	sum := 0.0
	for i, v := range tr {
		sum += v
		if i >= period {
			sum -= tr[i-period]
		}
		if i < period-1 || period <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(period)
	}
	return out
}

// ATRPercent is ATR as a percentage of the close
func ATRPercent(atr []float64, data []types.OHLCV) []float64 {
	out := make([]float64, len(atr))
	for i := range atr {
		out[i] = atr[i] / data[i].Close * 100
	}
	return out
}

// ATRQuantile ranks each ATR value among the last 3*period values. The
// rank is the average rank for ties divided by the number of values, so it
// lies in (0, 1]. Positions with fewer than period values are NaN.
func ATRQuantile(atr []float64, period int) []float64 {
	window := period * 3
	out := make([]float64, len(atr))
	for i := range atr {
		out[i] = math.NaN()
		if math.IsNaN(atr[i]) {
			continue
		}
		start := i - window + 1
		if start < 0 {
			start = 0
		}

		count, less, equal := 0, 0, 0
		for _, v := range atr[start : i+1] {
			if math.IsNaN(v) {
				continue
			}
			count++
			switch {
			case v < atr[i]:
				less++
			case v == atr[i]:
				equal++
			}
		}
		if count < period {
			continue
		}
		out[i] = (float64(less) + float64(equal+1)/2) / float64(count)
	}
	return out
}
