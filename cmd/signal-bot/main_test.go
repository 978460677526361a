package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-signal-bot/internal/candle"
	"github.com/ducminhle1904/crypto-signal-bot/internal/config"
	"github.com/ducminhle1904/crypto-signal-bot/internal/exchange"
	"github.com/ducminhle1904/crypto-signal-bot/internal/logger"
	"github.com/ducminhle1904/crypto-signal-bot/internal/state"
	"github.com/ducminhle1904/crypto-signal-bot/pkg/types"
)

func spikePreset(t *testing.T) *config.BotConfig {
	t.Helper()
	cfg, err := config.Preset("spike")
	require.NoError(t, err)
	cfg.Symbols = []string{"BTCUSDT"}
	cfg.State.Backend = config.StateMemory
	return cfg
}

// calm is an alternating series with no pin bars
func calm(tf string, n int) []types.OHLCV {
	d, _ := candle.Duration(tf)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.OHLCV, n)
	for i := range out {
		c := types.OHLCV{Open: 100, High: 101, Low: 99.5, Close: 100.5, Volume: 100}
		if i%2 == 1 {
			c = types.OHLCV{Open: 100.5, High: 101.2, Low: 99.5, Close: 100, Volume: 120}
		}
		c.Timestamp = start.Add(time.Duration(i) * d)
		out[i] = c
	}
	return out
}

func TestNewStore(t *testing.T) {
	cfg := spikePreset(t)
	log := logger.NewNopLogger()

	s, closer := newStore(cfg, log)
	assert.IsType(t, &state.MemoryStore{}, s)
	assert.Nil(t, closer)

	cfg.State.Backend = config.StateFile
	cfg.State.Path = filepath.Join(t.TempDir(), "state.json")
	s, _ = newStore(cfg, log)
	fs, ok := s.(*state.FileStore)
	require.True(t, ok)
	assert.Equal(t, cfg.State.Path, fs.Path())

	cfg.State.Backend = config.StateRedis
	cfg.State.RedisAddr = "127.0.0.1:0"
	s, closer = newStore(cfg, log)
	assert.IsType(t, &state.RedisStore{}, s)
	require.NotNil(t, closer)
	assert.NoError(t, closer())
}

func TestNewNotifier_ConsoleFallback(t *testing.T) {
	cfg := spikePreset(t)
	cfg.Notifications.Console = false

	var out bytes.Buffer
	n, err := newNotifier(cfg, logger.NewNopLogger(), &out)
	require.NoError(t, err)
	assert.Equal(t, 1, n.Len())

	require.NoError(t, n.Send(context.Background(), "hello"))
	assert.Contains(t, out.String(), "hello")
}

func TestNewNotifier_Channels(t *testing.T) {
	cfg := spikePreset(t)
	cfg.Notifications.Console = false
	cfg.Notifications.Slack.Enabled = true
	cfg.Notifications.Slack.WebhookURL = "https://hooks.slack.com/services/T/B/X"
	cfg.Notifications.WeCom.Enabled = true
	cfg.Notifications.WeCom.WebhookURL = "https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=x"

	n, err := newNotifier(cfg, logger.NewNopLogger(), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 2, n.Len())
}

func TestNewSource(t *testing.T) {
	cfg := spikePreset(t)
	src, err := newSource(cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, src.Name())

	cfg.Exchange.Name = "kraken"
	_, err = newSource(cfg)
	assert.Error(t, err)
}

func TestRunOnce_Replay(t *testing.T) {
	cfg := spikePreset(t)

	replay := exchange.NewReplaySource()
	for _, tf := range cfg.Timeframes {
		replay.Add("BTCUSDT", tf, calm(tf, cfg.HistoryLimit), 0)
	}

	var out bytes.Buffer
	a, err := buildApp(cfg, replay, logger.NewNopLogger(), &out)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, runOnce(context.Background(), a))
	stats := a.bot.Stats()
	assert.Equal(t, 1, stats.Rounds)
	assert.Equal(t, len(cfg.Timeframes), stats.Totals.Checked)
	assert.Zero(t, stats.Totals.Failed)
	assert.Empty(t, out.String(), "calm candles send nothing")

	status, code := a.health.Status()
	assert.Equal(t, 200, code)
	assert.Equal(t, "healthy", status.Status)
}

func TestRunOnce_MigratesLegacyState(t *testing.T) {
	cfg := spikePreset(t)
	cfg.State.Backend = config.StateFile
	cfg.State.Path = filepath.Join(t.TempDir(), "spike_state.json")
	tf := cfg.Timeframes[0]
	require.NoError(t, os.WriteFile(cfg.State.Path, []byte(`{"BTC/USDT_`+tf+`": 1700000000000}`), 0644))

	replay := exchange.NewReplaySource()
	for _, tf := range cfg.Timeframes {
		replay.Add("BTCUSDT", tf, calm(tf, cfg.HistoryLimit), 0)
	}
	a, err := buildApp(cfg, replay, logger.NewNopLogger(), &bytes.Buffer{})
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, runOnce(context.Background(), a))

	snapshot, err := state.NewFileStore(nil, cfg.State.Path).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, snapshot.Cooldowns, 2)
	assert.Contains(t, snapshot.Cooldowns, "BTCUSDT_"+tf+"_bullish")
	assert.Contains(t, snapshot.Cooldowns, "BTCUSDT_"+tf+"_bearish")
}

func TestApp_CloseLogsFailures(t *testing.T) {
	log, err := logger.NewLoggerWithConfig(logger.Config{Dir: t.TempDir(), Name: "close-test"})
	require.NoError(t, err)

	var order []string
	a := &app{logger: log, closers: []func() error{
		func() error { order = append(order, "store"); return errors.New("redis: client is closed") },
		func() error { order = append(order, "source"); return nil },
	}}
	a.Close()
	require.NoError(t, log.Close())

	assert.Equal(t, []string{"source", "store"}, order)
	data, err := os.ReadFile(log.GetLogPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "redis: client is closed")
}
