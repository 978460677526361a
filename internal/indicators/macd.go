package indicators

import "math"

// MACD holds the fast, slow and signal periods
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// MACDSeries are the MACD lines aligned with the input closes
type MACDSeries struct {
	DIF       []float64
	DEA       []float64
	Hist      []float64
	HistDelta []float64
}

// NewMACD creates a new MACD instance with specified fast, slow, and signal periods
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
	}
}

// DefaultMACD is the usual 12/26/9
func DefaultMACD() *MACD {
	return NewMACD(12, 26, 9)
}

// SlowPeriod returns the slow EMA period
func (m *MACD) SlowPeriod() int {
	return m.slowPeriod
}

// Calculate computes DIF = EMA(fast) - EMA(slow), DEA = EMA(DIF, signal)
// and the histogram DIF - DEA. HistDelta[0] is NaN.
func (m *MACD) Calculate(closes []float64) MACDSeries {
	fast := EMASeries(closes, m.fastPeriod)
	slow := EMASeries(closes, m.slowPeriod)

	dif := make([]float64, len(closes))
	for i := range closes {
		dif[i] = fast[i] - slow[i]
	}
	dea := EMASeries(dif, m.signalPeriod)

	hist := make([]float64, len(closes))
	delta := make([]float64, len(closes))
	for i := range closes {
		hist[i] = dif[i] - dea[i]
		if i == 0 {
			delta[i] = math.NaN()
			continue
		}
		delta[i] = hist[i] - hist[i-1]
	}

	return MACDSeries{DIF: dif, DEA: dea, Hist: hist, HistDelta: delta}
}

// Len returns the series length
func (s MACDSeries) Len() int {
	return len(s.Hist)
}
