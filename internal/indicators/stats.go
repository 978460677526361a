package indicators

import (
	"math"
	"sort"
)

// rollingWindow returns the non-NaN values of the window ending at i, or
// nil when fewer than minPeriods are available.
func rollingWindow(values []float64, i, window, minPeriods int) []float64 {
	start := i - window + 1
	if start < 0 {
		start = 0
	}
	out := make([]float64, 0, i-start+1)
	for _, v := range values[start : i+1] {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	if len(out) < minPeriods || len(out) == 0 {
		return nil
	}
	return out
}

// RollingZScore is (x - mean) / std over a trailing window using the
// population standard deviation. At least window/2 values are required.
// A flat window divides by zero and yields Inf or NaN.
func RollingZScore(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		w := rollingWindow(values, i, window, window/2)
		if w == nil {
			out[i] = math.NaN()
			continue
		}
		mean := 0.0
		for _, v := range w {
			mean += v
		}
		mean /= float64(len(w))

		variance := 0.0
		for _, v := range w {
			variance += (v - mean) * (v - mean)
		}
		std := math.Sqrt(variance / float64(len(w)))
		out[i] = (values[i] - mean) / std
	}
	return out
}

// RollingMedian is the median over a trailing window with at least
// window/2 values.
func RollingMedian(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		w := rollingWindow(values, i, window, window/2)
		if w == nil {
			out[i] = math.NaN()
			continue
		}
		sort.Float64s(w)
		n := len(w)
		if n%2 == 1 {
			out[i] = w[n/2]
		} else {
			out[i] = (w[n/2-1] + w[n/2]) / 2
		}
	}
	return out
}

// ConsecutiveTrend counts how many of the latest steps moved the same way.
// The result is positive for rises and negative for falls; a flat or NaN
// step ends the run.
func ConsecutiveTrend(values []float64) int {
	count, direction := 0, 0
	for i := len(values) - 1; i > 0; i-- {
		diff := values[i] - values[i-1]
		if math.IsNaN(diff) || diff == 0 {
			break
		}
		d := 1
		if diff < 0 {
			d = -1
		}
		if direction == 0 {
			direction = d
		} else if d != direction {
			break
		}
		count++
	}
	return count * direction
}

// Last returns the final element or NaN for an empty series
func Last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}
