package strategy

import (
	"sort"

	"github.com/ducminhle1904/crypto-signal-bot/internal/dedup"
	"github.com/ducminhle1904/crypto-signal-bot/pkg/types"
)

const (
	keyLevelLookback = 20
	maxLevels        = 3
	// fallback invalid level for a BUY with no support below price
	buyInvalidFactor = 0.95
)

// SwingLevels derives support and resistance from the swing points of the
// last lookback candles. A swing low is lower than both neighbours; with
// no swing the lowest low is used, and likewise for highs. Supports are
// ascending and keep the three highest, resistances descending and keep
// the three highest.
func SwingLevels(candles []types.OHLCV, lookback int) (support, resistance []float64) {
	recent := tail(candles, lookback)
	if len(recent) == 0 {
		return nil, nil
	}

	for i := 1; i < len(recent)-1; i++ {
		if recent[i].Low < recent[i-1].Low && recent[i].Low < recent[i+1].Low {
			support = append(support, recent[i].Low)
		}
		if recent[i].High > recent[i-1].High && recent[i].High > recent[i+1].High {
			resistance = append(resistance, recent[i].High)
		}
	}

	if len(support) == 0 {
		low := recent[0].Low
		for _, c := range recent[1:] {
			if c.Low < low {
				low = c.Low
			}
		}
		support = []float64{low}
	}
	if len(resistance) == 0 {
		high := recent[0].High
		for _, c := range recent[1:] {
			if c.High > high {
				high = c.High
			}
		}
		resistance = []float64{high}
	}

	sort.Float64s(support)
	if len(support) > maxLevels {
		support = support[len(support)-maxLevels:]
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(resistance)))
	if len(resistance) > maxLevels {
		resistance = resistance[:maxLevels]
	}
	return support, resistance
}

// directionalLevels attaches the invalidation level for a BUY or SELL. A
// SELL is void above the nearest resistance; a BUY below the highest
// support under the price, or 5% below the price when there is none.
func directionalLevels(candles []types.OHLCV, direction string, price float64) dedup.KeyLevels {
	support, resistance := SwingLevels(candles, keyLevelLookback)
	levels := dedup.KeyLevels{Support: support, Resistance: resistance}

	if direction == DirectionSell {
		if len(resistance) > 0 {
			levels.Invalid = resistance[0]
		}
		return levels
	}

	levels.Invalid = price * buyInvalidFactor
	for i := len(support) - 1; i >= 0; i-- {
		if support[i] < price {
			levels.Invalid = support[i]
			break
		}
	}
	return levels
}

// RangePosition places the last close inside the high/low range of the
// last lookback candles: 0 at the low, 1 at the high, 0.5 for a flat range.
func RangePosition(candles []types.OHLCV, lookback int) float64 {
	recent := tail(candles, lookback)
	if len(recent) == 0 {
		return 0.5
	}
	high, low := recent[0].High, recent[0].Low
	for _, c := range recent[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	if high-low == 0 {
		return 0.5
	}
	return (recent[len(recent)-1].Close - low) / (high - low)
}

func tail(candles []types.OHLCV, n int) []types.OHLCV {
	if n <= 0 || len(candles) <= n {
		return candles
	}
	return candles[len(candles)-n:]
}
