// Package exchange defines where candles come from. The live bot reads
// them from Bybit, backtests and offline runs replay CSV files.
package exchange

import (
	"context"

	"github.com/ducminhle1904/crypto-signal-bot/pkg/types"
)

// MarketDataSource returns the most recent candles of a symbol. Candles are
// ascending by open time and the last one may still be forming.
type MarketDataSource interface {
	FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]types.OHLCV, error)
	Name() string
}
