package dedup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/ducminhle1904/crypto-signal-bot/internal/errors"
	"github.com/ducminhle1904/crypto-signal-bot/internal/state"
)

func newTestGate(t *testing.T, cfg PolicyConfig, breaker bool, store state.Store) *SignalGate {
	t.Helper()
	policy := mustPolicy(t, cfg)
	return NewSignalGate(policy, NewKeyLevelBreaker(breaker, cfg.Now), store, nil)
}

// sendAndCommit mimics the poll loop: commit only after a delivered send
func sendAndCommit(ctx context.Context, g *SignalGate, key SignalKey, identity int64, price float64, send func() error) error {
	decision, err := g.Evaluate(key, identity, price, KeyLevels{})
	if err != nil {
		return err
	}
	if decision.Kind != Emit {
		return nil
	}
	if err := send(); err != nil {
		return err
	}
	return g.CommitEmit(ctx, key, identity, price)
}

func TestSignalGate_FirstFireEmits(t *testing.T) {
	for _, cfg := range []PolicyConfig{
		{Mode: ModeWallClock, WindowSeconds: 60},
		{Mode: ModeBarCount, CooldownBars: 1},
		{Mode: ModeCandleIdentity},
	} {
		g := newTestGate(t, cfg, true, state.NewMemoryStore())
		decision, err := g.Evaluate(NewSignalKey("BTCUSDT", "5m", "up"), 42, 1, KeyLevels{Support: []float64{2}})
		require.NoError(t, err)
		assert.Equal(t, Emit, decision.Kind, cfg.Mode)
		assert.Nil(t, decision.Event)
	}
}

func TestSignalGate_WallClockScenario(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(t, PolicyConfig{Mode: ModeWallClock, WindowSeconds: 300}, false, state.NewMemoryStore())
	key := NewSignalKey("BTC/USDT", "5m", "up")

	require.NoError(t, g.CommitEmit(ctx, key, 1000, 50000.0))

	decision, err := g.Evaluate(key, 1200, 50010, KeyLevels{})
	require.NoError(t, err)
	assert.Equal(t, Suppressed, decision.Kind)
	assert.Equal(t, int64(200), decision.Detail)

	decision, err = g.Evaluate(key, 1301, 50020, KeyLevels{})
	require.NoError(t, err)
	assert.Equal(t, Emit, decision.Kind)
}

func TestSignalGate_BarCountScenario(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(t, PolicyConfig{Mode: ModeBarCount, CooldownBars: 2}, false, state.NewMemoryStore())
	key := NewSignalKey("BTCUSDT", "1h", "BUY")

	require.NoError(t, g.CommitEmit(ctx, key, 0, 100))

	decision, err := g.Evaluate(key, 3_600_000, 100, KeyLevels{})
	require.NoError(t, err)
	assert.Equal(t, Suppressed, decision.Kind)

	decision, err = g.Evaluate(key, 7_200_000, 100, KeyLevels{})
	require.NoError(t, err)
	assert.Equal(t, Emit, decision.Kind)
}

func TestSignalGate_UnknownTimeframe(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(t, PolicyConfig{Mode: ModeBarCount, CooldownBars: 2}, false, state.NewMemoryStore())
	key := NewSignalKey("BTCUSDT", "2w", "BUY")
	require.NoError(t, g.CommitEmit(ctx, key, 0, 100))

	_, err := g.Evaluate(key, 3_600_000, 100, KeyLevels{})
	assert.ErrorIs(t, err, boterrors.ErrUnknownTimeframe)
}

func TestSignalGate_OverrideWhileCooling(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	g := newTestGate(t, PolicyConfig{Mode: ModeCandleIdentity}, true, store)
	key := NewSignalKey("BTCUSDT", "1h", "SELL")
	levels := KeyLevels{Support: []float64{95.0, 90.0}, Invalid: 105.0}

	require.NoError(t, g.CommitEmit(ctx, key, 7, 96))
	before, _ := g.Policy().Record(key)

	decision, err := g.Evaluate(key, 7, 94, levels)
	require.NoError(t, err)
	require.Equal(t, KeyLevelOverride, decision.Kind)
	require.NotNil(t, decision.Event)
	assert.Equal(t, 95.0, decision.Event.Level)
	require.NoError(t, g.CommitOverride(ctx, decision.Event))

	after, _ := g.Policy().Record(key)
	assert.Equal(t, before, after, "override leaves the cooldown record alone")

	decision, err = g.Evaluate(key, 7, 93, levels)
	require.NoError(t, err)
	assert.Equal(t, Suppressed, decision.Kind)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, loaded.KeyLevels, "BTCUSDT_1h_SELL_support_95.00")
	assert.Equal(t, Stats{TotalSignalKeys: 1, TotalEmissions: 1, TotalKeyLevelTriggers: 1}, g.Stats())
}

func TestSignalGate_ReleaseOverride(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(t, PolicyConfig{Mode: ModeCandleIdentity}, true, state.NewMemoryStore())
	key := NewSignalKey("BTCUSDT", "1h", "SELL")
	levels := KeyLevels{Support: []float64{95.0}}
	require.NoError(t, g.CommitEmit(ctx, key, 7, 96))

	decision, err := g.Evaluate(key, 7, 94, levels)
	require.NoError(t, err)
	require.Equal(t, KeyLevelOverride, decision.Kind)
	g.ReleaseOverride(decision.Event)

	decision, err = g.Evaluate(key, 7, 94, levels)
	require.NoError(t, err)
	assert.Equal(t, KeyLevelOverride, decision.Kind)
}

// A failed send must leave the cooldown record exactly as it was
func TestSignalGate_CommitOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(t, PolicyConfig{Mode: ModeCandleIdentity}, false, state.NewMemoryStore())
	key := NewSignalKey("BTCUSDT", "5m", "bullish")

	require.NoError(t, sendAndCommit(ctx, g, key, 100, 1, func() error { return nil }))
	before, ok := g.Policy().Record(key)
	require.True(t, ok)

	sendErr := errors.New("telegram unavailable")
	err := sendAndCommit(ctx, g, key, 200, 2, func() error { return sendErr })
	assert.ErrorIs(t, err, sendErr)

	after, _ := g.Policy().Record(key)
	assert.Equal(t, before.EmissionCount, after.EmissionCount)
	assert.Equal(t, before.LastEventIdentity, after.LastEventIdentity)

	fresh := NewSignalKey("ETHUSDT", "5m", "bullish")
	require.Error(t, sendAndCommit(ctx, g, fresh, 1, 1, func() error { return sendErr }))
	_, ok = g.Policy().Record(fresh)
	assert.False(t, ok)
}

func TestSignalGate_StoreErrorKeepsMemory(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	store.SaveErr = errors.New("disk full")
	g := newTestGate(t, PolicyConfig{Mode: ModeCandleIdentity}, false, store)
	key := NewSignalKey("BTCUSDT", "5m", "up")

	err := g.CommitEmit(ctx, key, 1, 1)
	require.Error(t, err)
	botErr, ok := err.(*boterrors.BotError)
	require.True(t, ok)
	assert.Equal(t, boterrors.ErrorCategoryState, botErr.Category)

	decision, err := g.Evaluate(key, 1, 1, KeyLevels{})
	require.NoError(t, err)
	assert.Equal(t, Suppressed, decision.Kind)
}

func TestSignalGate_LoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	cfg := PolicyConfig{Mode: ModeBarCount, CooldownBars: 3}

	first := newTestGate(t, cfg, true, state.NewFileStore(nil, path))
	key := NewSignalKey("ETH_PERP", "1h", "SELL")
	require.NoError(t, first.CommitEmit(ctx, key, 3_600_000, 3000))
	decision, err := first.Evaluate(key, 3_600_000, 2900, KeyLevels{Support: []float64{2950}})
	require.NoError(t, err)
	require.Equal(t, KeyLevelOverride, decision.Kind)
	require.NoError(t, first.CommitOverride(ctx, decision.Event))

	second := newTestGate(t, cfg, true, state.NewFileStore(nil, path))
	require.NoError(t, second.Load(ctx))
	assert.Equal(t, first.Snapshot(), second.Snapshot())
	assert.Equal(t, first.Stats(), second.Stats())

	decision, err = second.Evaluate(key, 7_200_000, 2900, KeyLevels{Support: []float64{2950}})
	require.NoError(t, err)
	assert.Equal(t, Suppressed, decision.Kind, "restored level stays consumed")
}

func TestSignalGate_LoadMigratesLegacyScriptState(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	// spike script keys on symbol and timeframe, MACD script on symbol and direction
	legacyState := `{"BTC/USDT_5m": 1700000000000, "ETH/USDT_BUY": 1700000000}`
	require.NoError(t, os.WriteFile(path, []byte(legacyState), 0644))

	g := newTestGate(t, PolicyConfig{Mode: ModeCandleIdentity}, false, state.NewFileStore(nil, path))
	g.SetLegacyKeys(LegacyKeys{
		Symbols:    []string{"BTCUSDT", "ETHUSDT"},
		Timeframes: []string{"5m", "15m"},
		Directions: []string{"BUY", "SELL"},
	})
	require.NoError(t, g.Load(ctx))
	assert.Equal(t, 4, g.Stats().TotalSignalKeys)

	decision, err := g.Evaluate(NewSignalKey("BTCUSDT", "5m", "SELL"), 1700000000000, 1, KeyLevels{})
	require.NoError(t, err)
	assert.Equal(t, Suppressed, decision.Kind, "already sent before the upgrade")

	require.NoError(t, g.Flush(ctx))
	snapshot, err := state.NewFileStore(nil, path).Load(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Cooldowns, 4)
	assert.Equal(t, int64(1700000000000), snapshot.Cooldowns["BTCUSDT_5m_BUY"].LastEventIdentity)
	assert.Equal(t, int64(1700000000000), snapshot.Cooldowns["BTCUSDT_5m_SELL"].LastEventIdentity)
	assert.Equal(t, int64(1700000000), snapshot.Cooldowns["ETHUSDT_5m_BUY"].LastEventIdentity)
	assert.Equal(t, int64(1700000000), snapshot.Cooldowns["ETHUSDT_15m_BUY"].LastEventIdentity)
}

func TestSignalGate_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	now := time.Now()
	clock := now.Add(-30 * time.Hour)
	cfg := PolicyConfig{Mode: ModeCandleIdentity, Now: func() time.Time { return clock }}

	g := newTestGate(t, cfg, true, state.NewFileStore(nil, path))
	old := NewSignalKey("OLDUSDT", "5m", "up")
	require.NoError(t, g.CommitEmit(ctx, old, 1, 1))

	clock = now
	fresh := NewSignalKey("NEWUSDT", "5m", "up")
	require.NoError(t, g.CommitEmit(ctx, fresh, 1, 1))

	removed, err := g.CleanupExpired(ctx, 24)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = g.CleanupExpired(ctx, 24)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	reloaded := newTestGate(t, cfg, true, state.NewFileStore(nil, path))
	require.NoError(t, reloaded.Load(ctx))
	_, ok := reloaded.Policy().Record(old)
	assert.False(t, ok)
	_, ok = reloaded.Policy().Record(fresh)
	assert.True(t, ok)
}

func TestDecisionKind_String(t *testing.T) {
	assert.Equal(t, "emit", Emit.String())
	assert.Equal(t, "suppressed", Suppressed.String())
	assert.Equal(t, "key_level_override", KeyLevelOverride.String())
}
