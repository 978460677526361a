package exchange

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/ducminhle1904/crypto-signal-bot/internal/errors"
	"github.com/ducminhle1904/crypto-signal-bot/pkg/data"
	"github.com/ducminhle1904/crypto-signal-bot/pkg/types"
)

func series(n int) []types.OHLCV {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.OHLCV, n)
	for i := range out {
		p := float64(100 + i)
		out[i] = types.OHLCV{Timestamp: base.Add(time.Duration(i) * time.Minute), Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 1}
	}
	return out
}

func TestReplaySource_CursorAndLimit(t *testing.T) {
	ctx := context.Background()
	src := NewReplaySource()
	src.Add("BTCUSDT", "1m", series(10), 5)

	candles, err := src.FetchCandles(ctx, "BTCUSDT", "1m", 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{102, 103, 104}, types.Closes(candles))

	assert.True(t, src.Advance())
	candles, err = src.FetchCandles(ctx, "BTCUSDT", "1m", 0)
	require.NoError(t, err)
	assert.Len(t, candles, 6)

	for src.Advance() {
	}
	candles, err = src.FetchCandles(ctx, "BTCUSDT", "1m", 100)
	require.NoError(t, err)
	assert.Len(t, candles, 10)
}

func TestReplaySource_UnknownSeries(t *testing.T) {
	_, err := NewReplaySource().FetchCandles(context.Background(), "ETHUSDT", "1h", 10)
	assert.ErrorIs(t, err, boterrors.ErrDataUnavailable)
}

func TestReplaySource_LoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candles.csv")
	content := "start,open,high,low,close,volume\n" +
		"1704067260000,2,3,1,2.5,10\n" +
		"1704067200000,1,2,0.5,1.5,10\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	src := NewReplaySource()
	provider := data.NewCSVProviderWithFormat(data.BybitCSVFormat, nil)
	require.NoError(t, src.LoadCSV(provider, path, "BTCUSDT", "1m", 0))

	candles, err := src.FetchCandles(context.Background(), "BTCUSDT", "1m", 10)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 1.5, candles[0].Close, "sorted ascending")

	err = src.LoadCSV(provider, filepath.Join(t.TempDir(), "missing.csv"), "X", "1m", 0)
	assert.Error(t, err)
}
