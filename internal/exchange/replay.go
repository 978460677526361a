package exchange

import (
	"context"
	"fmt"
	"sync"

	boterrors "github.com/ducminhle1904/crypto-signal-bot/internal/errors"
	"github.com/ducminhle1904/crypto-signal-bot/pkg/data"
	"github.com/ducminhle1904/crypto-signal-bot/pkg/types"
)

// ReplaySource serves preloaded candles as if they were live. A cursor per
// series marks the newest visible candle; Advance moves every cursor one
// bar forward.
type ReplaySource struct {
	mu     sync.Mutex
	series map[string][]types.OHLCV
	cursor map[string]int
}

// NewReplaySource creates an empty replay source
func NewReplaySource() *ReplaySource {
	return &ReplaySource{
		series: make(map[string][]types.OHLCV),
		cursor: make(map[string]int),
	}
}

func seriesKey(symbol, timeframe string) string {
	return symbol + "|" + timeframe
}

// Add registers candles for a symbol and timeframe. visible is how many
// leading candles are exposed before the first Advance; anything outside
// [1, len] exposes the whole series.
func (r *ReplaySource) Add(symbol, timeframe string, candles []types.OHLCV, visible int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	candles = data.Normalize(candles)
	if visible <= 0 || visible > len(candles) {
		visible = len(candles)
	}
	key := seriesKey(symbol, timeframe)
	r.series[key] = candles
	r.cursor[key] = visible
}

// LoadCSV reads a candle file through provider and registers it
func (r *ReplaySource) LoadCSV(provider data.DataProvider, path, symbol, timeframe string, visible int) error {
	candles, err := provider.LoadData(path)
	if err != nil {
		return boterrors.NewDataError("replay", "load csv", err).WithContext("path", path)
	}
	r.Add(symbol, timeframe, candles, visible)
	return nil
}

// Advance exposes one more candle per series. It reports whether any
// series still had candles left.
func (r *ReplaySource) Advance() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	moved := false
	for key, n := range r.cursor {
		if n < len(r.series[key]) {
			r.cursor[key] = n + 1
			moved = true
		}
	}
	return moved
}

// FetchCandles returns up to limit candles ending at the cursor
func (r *ReplaySource) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]types.OHLCV, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := seriesKey(symbol, timeframe)
	candles, ok := r.series[key]
	if !ok {
		return nil, fmt.Errorf("replay %s %s: %w", symbol, timeframe, boterrors.ErrDataUnavailable)
	}

	end := r.cursor[key]
	start := 0
	if limit > 0 && end-limit > 0 {
		start = end - limit
	}
	out := make([]types.OHLCV, end-start)
	copy(out, candles[start:end])
	return out, nil
}

// Name identifies the source in logs
func (r *ReplaySource) Name() string {
	return "replay"
}
