package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() *Snapshot {
	s := NewSnapshot()
	s.Cooldowns["BTC/USDT_5m_up"] = CooldownRecord{
		LastEventIdentity: 1_700_000_000_000,
		LastPrice:         50_000.5,
		LastEmittedAt:     "2024-05-01T10:00:00.123456789Z",
		EmissionCount:     3,
	}
	s.Cooldowns["ETH_PERP_1h_SELL"] = CooldownRecord{
		LastEventIdentity: 0,
		LastPrice:         3_000,
		LastEmittedAt:     "2024-05-01T11:00:00Z",
		EmissionCount:     1,
	}
	s.KeyLevels["ETH_PERP_1h_SELL_support_95.00"] = KeyLevelRecord{
		TriggeredAt: "2024-05-01T12:00:00Z",
		Level:       95,
		Type:        "support",
	}
	return s
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	original := sampleSnapshot()

	data, err := Encode(original)
	require.NoError(t, err)

	decoded, warnings, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, original, decoded)
}

func TestEncode_Layout(t *testing.T) {
	data, err := Encode(sampleSnapshot())
	require.NoError(t, err)

	content := string(data)
	for _, field := range []string{
		`"cooldowns"`, `"key_levels"`, `"last_event_identity"`, `"last_price"`,
		`"last_emitted_at"`, `"emission_count"`, `"triggered_at"`, `"level"`, `"type"`,
	} {
		assert.Contains(t, content, field)
	}
}

func TestDecode_FlatLegacy(t *testing.T) {
	data := []byte(`{"BTCUSDT_bullish": 1700000000, "ETHUSDT_5m": 1700000000000}`)

	snapshot, warnings, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Empty(t, snapshot.KeyLevels)
	require.Len(t, snapshot.Cooldowns, 2)

	secs := snapshot.Cooldowns["BTCUSDT_bullish"]
	assert.Equal(t, int64(1_700_000_000), secs.LastEventIdentity)
	assert.Equal(t, 1, secs.EmissionCount)
	emitted, err := secs.EmittedAt()
	require.NoError(t, err)
	assert.True(t, emitted.Equal(time.Unix(1_700_000_000, 0)))

	ms := snapshot.Cooldowns["ETHUSDT_5m"]
	emitted, err = ms.EmittedAt()
	require.NoError(t, err)
	assert.True(t, emitted.Equal(time.UnixMilli(1_700_000_000_000)))
}

func TestDecode_LegacyDedupManager(t *testing.T) {
	data := []byte(`{
		"signals": {
			"BTCUSDT_1h_BUY": {"bar_time": 1700000000000, "price": 35000.5, "timestamp": "2024-05-01T10:00:00.123456", "count": 4}
		},
		"key_levels": {
			"BTCUSDT_1h_BUY_resistance_36000.00": {"timestamp": "2024-05-01T11:00:00", "level": 36000, "type": "resistance"}
		}
	}`)

	snapshot, warnings, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	rec := snapshot.Cooldowns["BTCUSDT_1h_BUY"]
	assert.Equal(t, int64(1_700_000_000_000), rec.LastEventIdentity)
	assert.Equal(t, 35000.5, rec.LastPrice)
	assert.Equal(t, 4, rec.EmissionCount)
	_, err = rec.EmittedAt()
	assert.NoError(t, err)

	level := snapshot.KeyLevels["BTCUSDT_1h_BUY_resistance_36000.00"]
	assert.Equal(t, "resistance", level.Type)
	assert.Equal(t, "2024-05-01T11:00:00", level.TriggeredAt)
}

func TestDecode_MalformedRecordsDropped(t *testing.T) {
	data := []byte(`{
		"cooldowns": {
			"good_5m_up": {"last_event_identity": 1, "last_price": 2, "last_emitted_at": "2024-05-01T10:00:00Z", "emission_count": 1},
			"bad_5m_up": {"last_event_identity": "not a number"},
			"worse_5m_up": 17
		},
		"key_levels": "nope"
	}`)

	snapshot, warnings, err := Decode(data)
	require.NoError(t, err)
	assert.Len(t, snapshot.Cooldowns, 1)
	assert.Contains(t, snapshot.Cooldowns, "good_5m_up")
	assert.Empty(t, snapshot.KeyLevels)
	assert.Len(t, warnings, 3)
}

func TestDecode_Corrupt(t *testing.T) {
	for _, data := range []string{`{"cooldowns":`, `[1,2,3]`, `"text"`} {
		snapshot, _, err := Decode([]byte(data))
		assert.Error(t, err, data)
		require.NotNil(t, snapshot)
		assert.Equal(t, 0, snapshot.Len())
	}
}

func TestDecode_Empty(t *testing.T) {
	snapshot, warnings, err := Decode([]byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 0, snapshot.Len())
}
