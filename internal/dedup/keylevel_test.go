package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignalKey(t *testing.T) {
	tests := []struct {
		raw  string
		want SignalKey
		ok   bool
	}{
		{"BTC/USDT_5m_up", SignalKey{"BTC/USDT", "5m", "up"}, true},
		{"ETH_PERP_1h_SELL", SignalKey{"ETH_PERP", "1h", "SELL"}, true},
		{"BTCUSDT_bullish", SignalKey{}, false},
		{"_5m_up", SignalKey{}, false},
		{"BTCUSDT_5m_", SignalKey{}, false},
		{"BTCUSDT_9x_up", SignalKey{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			key, err := ParseSignalKey(tt.raw)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
			assert.Equal(t, tt.raw, key.String())
		})
	}
}

func TestSignalKey_IsDownside(t *testing.T) {
	for _, dir := range []string{"SELL", "sell", "down", "Bearish", "short"} {
		assert.True(t, NewSignalKey("X", "1m", dir).IsDownside(), dir)
	}
	for _, dir := range []string{"BUY", "up", "bullish", "long", "WATCH"} {
		assert.False(t, NewSignalKey("X", "1m", dir).IsDownside(), dir)
	}
}

func TestKeyLevelBreaker_SupportSequence(t *testing.T) {
	b := NewKeyLevelBreaker(true, nil)
	key := NewSignalKey("BTCUSDT", "1h", "SELL")
	levels := KeyLevels{Support: []float64{95.0, 90.0}, Invalid: 105.0}

	assert.Nil(t, b.CheckTrigger(key, 96.0, levels))

	event := b.CheckTrigger(key, 94.0, levels)
	require.NotNil(t, event)
	assert.Equal(t, SupportBreak, event.Kind)
	assert.Equal(t, LevelSupport, event.LevelKind)
	assert.Equal(t, 95.0, event.Level)
	assert.Equal(t, 94.0, event.Price)
	assert.Contains(t, event.Message, "95.00")

	assert.Nil(t, b.CheckTrigger(key, 93.0, levels), "95 already consumed")

	event = b.CheckTrigger(key, 89.5, levels)
	require.NotNil(t, event)
	assert.Equal(t, 90.0, event.Level)

	assert.Nil(t, b.CheckTrigger(key, 80.0, levels))
}

func TestKeyLevelBreaker_InvalidLevel(t *testing.T) {
	b := NewKeyLevelBreaker(true, nil)
	sell := NewSignalKey("BTCUSDT", "1h", "SELL")
	buy := NewSignalKey("BTCUSDT", "1h", "BUY")

	event := b.CheckTrigger(sell, 106, KeyLevels{Support: []float64{90}, Invalid: 105})
	require.NotNil(t, event)
	assert.Equal(t, InvalidBreak, event.Kind)
	assert.Equal(t, LevelInvalid, event.LevelKind)

	event = b.CheckTrigger(buy, 94, KeyLevels{Resistance: []float64{120}, Invalid: 95})
	require.NotNil(t, event)
	assert.Equal(t, InvalidBreak, event.Kind)

	assert.Nil(t, b.CheckTrigger(buy, 100, KeyLevels{Resistance: []float64{120}}), "zero invalid means none")
}

func TestKeyLevelBreaker_ResistanceScansHighestFirst(t *testing.T) {
	b := NewKeyLevelBreaker(true, nil)
	key := NewSignalKey("ETHUSDT", "4h", "up")
	levels := KeyLevels{Resistance: []float64{100, 110, 120}}

	event := b.CheckTrigger(key, 125, levels)
	require.NotNil(t, event)
	assert.Equal(t, ResistanceBreak, event.Kind)
	assert.Equal(t, 120.0, event.Level)

	event = b.CheckTrigger(key, 125, levels)
	require.NotNil(t, event)
	assert.Equal(t, 110.0, event.Level)
}

// Fires at most once per level no matter how long the crossing holds
func TestKeyLevelBreaker_FiresOnce(t *testing.T) {
	b := NewKeyLevelBreaker(true, nil)
	key := NewSignalKey("SOLUSDT", "15m", "bearish")
	levels := KeyLevels{Support: []float64{20}}

	fired := 0
	for i := 0; i < 50; i++ {
		if b.CheckTrigger(key, 19.0-float64(i)*0.01, levels) != nil {
			fired++
		}
	}
	assert.Equal(t, 1, fired)
	assert.True(t, b.IsTriggered(key, LevelSupport, 20.004), "levels compare at two decimals")
}

func TestKeyLevelBreaker_Disabled(t *testing.T) {
	b := NewKeyLevelBreaker(false, nil)
	key := NewSignalKey("BTCUSDT", "1h", "SELL")
	assert.Nil(t, b.CheckTrigger(key, 1, KeyLevels{Support: []float64{95}}))
	assert.Equal(t, 0, b.Len())
}

func TestKeyLevelBreaker_Release(t *testing.T) {
	b := NewKeyLevelBreaker(true, nil)
	key := NewSignalKey("BTCUSDT", "1h", "SELL")
	levels := KeyLevels{Support: []float64{95}}

	event := b.CheckTrigger(key, 94, levels)
	require.NotNil(t, event)
	b.Release(event)
	assert.NotNil(t, b.CheckTrigger(key, 94, levels))
}

func TestKeyLevelBreaker_ExportRestore(t *testing.T) {
	b := NewKeyLevelBreaker(true, nil)
	key := NewSignalKey("ETH_PERP", "1h", "SELL")
	require.NotNil(t, b.CheckTrigger(key, 94, KeyLevels{Support: []float64{95}}))

	exported := b.export()
	require.Contains(t, exported, "ETH_PERP_1h_SELL_support_95.00")
	assert.Equal(t, "support", exported["ETH_PERP_1h_SELL_support_95.00"].Type)

	exported["BTCUSDT_1h_SELL_sideways_95.00"] = exported["ETH_PERP_1h_SELL_support_95.00"]
	restored := NewKeyLevelBreaker(true, nil)
	dropped := restored.restore(exported)
	assert.Len(t, dropped, 1)
	assert.True(t, restored.IsTriggered(key, LevelSupport, 95))
}
