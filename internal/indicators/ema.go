// Package indicators computes the series the signal detectors read: EMA,
// MACD, ATR and a few rolling statistics. Series are aligned with their
// input; positions without enough history hold NaN.
package indicators

import "math"

// EMA is an exponential moving average seeded with the first value
type EMA struct {
	period      int
	alpha       float64
	lastValue   float64
	initialized bool
}

// NewEMA creates a new EMA indicator
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1),
	}
}

// UpdateSingle folds one value into the average and returns it
func (e *EMA) UpdateSingle(value float64) float64 {
	if !e.initialized {
		e.lastValue = value
		e.initialized = true
		return e.lastValue
	}
	e.lastValue = value*e.alpha + e.lastValue*(1-e.alpha)
	return e.lastValue
}

// GetLastValue returns the last calculated EMA value
func (e *EMA) GetLastValue() float64 {
	return e.lastValue
}

// ResetState clears the average
func (e *EMA) ResetState() {
	e.lastValue = 0
	e.initialized = false
}

// EMASeries returns the EMA of every prefix of values. Leading NaNs are
// carried through and the average seeds at the first number.
func EMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	ema := NewEMA(period)
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = ema.UpdateSingle(v)
	}
	return out
}
