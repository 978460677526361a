package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-signal-bot/internal/dedup"
	boterrors "github.com/ducminhle1904/crypto-signal-bot/internal/errors"
	"github.com/ducminhle1904/crypto-signal-bot/internal/strategy"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, filepath.Join("configs", "spike.json"), ResolvePath("spike"))
	assert.Equal(t, filepath.Join("configs", "spike.json"), ResolvePath("spike.json"))
	assert.Equal(t, "./my/bot.json", ResolvePath("./my/bot"))
}

func TestLoadBotConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `{
		"symbols": ["BTCUSDT"],
		"timeframes": ["15m"],
		"detector": "spike",
		"strategy": {"spike": {"shadow_ratio": 3}}
	}`)

	cfg, err := loadBotConfig(path, map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "signal-bot", cfg.Name)
	assert.Equal(t, 200, cfg.HistoryLimit)
	assert.Equal(t, 300, cfg.Poll.IntervalSeconds)
	assert.Equal(t, 5, cfg.Poll.ErrorBackoffSeconds)
	assert.Equal(t, string(dedup.ModeCandleIdentity), cfg.Cooldown.Mode)
	assert.Equal(t, StateFile, cfg.State.Backend)
	assert.Equal(t, filepath.Join("state", "signal-bot.json"), cfg.State.Path)
	assert.Equal(t, 24.0, cfg.State.MaxAgeHours)
	assert.Equal(t, "@every 1h", cfg.State.CleanupSchedule)
	assert.Equal(t, "linear", cfg.Exchange.Category)
	assert.Equal(t, 3, cfg.Exchange.Retry.MaxRetries)
	assert.Equal(t, 2, cfg.Notifications.Retry.MaxRetries)

	// file values replace defaults field by field
	assert.Equal(t, 3.0, cfg.Strategy.Spike.ShadowRatio)
	assert.Equal(t, 14, cfg.Strategy.Spike.ATRPeriod)
	assert.Equal(t, 12, cfg.Strategy.MACDVol.FastPeriod)

	detector, err := cfg.NewDetector()
	require.NoError(t, err)
	assert.Equal(t, strategy.SpikeName, detector.Name())
}

func TestLoadBotConfig_EnvOverlay(t *testing.T) {
	path := writeConfig(t, `{
		"symbols": ["BTCUSDT"],
		"timeframes": ["1h"],
		"notifications": {"telegram": {"enabled": true}, "wecom": {"enabled": true}},
		"state": {"backend": "redis"}
	}`)

	cfg, err := loadBotConfig(path, map[string]string{
		"TELEGRAM_BOT_TOKEN": "123:abc",
		"TELEGRAM_CHAT_ID":   "-100",
		"WECOM_WEBHOOK_URL":  "https://qyapi.example/send?key=k",
		"REDIS_ADDR":         "localhost:6379",
		"BYBIT_API_KEY":      "key",
		"BYBIT_TESTNET":      "true",
		"LOG_LEVEL":          "debug",
	})
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Notifications.Telegram.Token)
	assert.Equal(t, "-100", cfg.Notifications.Telegram.ChatID)
	assert.Equal(t, "localhost:6379", cfg.State.RedisAddr)
	assert.Equal(t, "key", cfg.Exchange.APIKey)
	assert.True(t, cfg.Exchange.Testnet)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadBotConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no symbols", `{"timeframes": ["1h"]}`},
		{"no timeframes", `{"symbols": ["BTCUSDT"]}`},
		{"unknown detector", `{"symbols": ["BTCUSDT"], "timeframes": ["1h"], "detector": "rsi"}`},
		{"wall clock without window", `{"symbols": ["BTCUSDT"], "timeframes": ["1h"], "cooldown": {"mode": "wall_clock"}}`},
		{"bar count without bars", `{"symbols": ["BTCUSDT"], "timeframes": ["1h"], "cooldown": {"mode": "bar_count"}}`},
		{"unknown mode", `{"symbols": ["BTCUSDT"], "timeframes": ["1h"], "cooldown": {"mode": "hourly"}}`},
		{"history too short", `{"symbols": ["BTCUSDT"], "timeframes": ["1h"], "history_limit": 10}`},
		{"history too long", `{"symbols": ["BTCUSDT"], "timeframes": ["1h"], "history_limit": 5000}`},
		{"redis without addr", `{"symbols": ["BTCUSDT"], "timeframes": ["1h"], "state": {"backend": "redis"}}`},
		{"unknown backend", `{"symbols": ["BTCUSDT"], "timeframes": ["1h"], "state": {"backend": "s3"}}`},
		{"telegram without token", `{"symbols": ["BTCUSDT"], "timeframes": ["1h"], "notifications": {"telegram": {"enabled": true}}}`},
		{"slack without webhook", `{"symbols": ["BTCUSDT"], "timeframes": ["1h"], "notifications": {"slack": {"enabled": true}}}`},
		{"consensus duplicate", `{"symbols": ["BTCUSDT"], "timeframes": ["1h", "1h"], "consensus": true}`},
		{"exchange", `{"symbols": ["BTCUSDT"], "timeframes": ["1h"], "exchange": {"name": "kraken"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadBotConfig(writeConfig(t, tt.body), map[string]string{})
			assert.Error(t, err)
		})
	}
}

func TestLoadBotConfig_UnknownTimeframeIsFatal(t *testing.T) {
	_, err := loadBotConfig(writeConfig(t, `{"symbols": ["BTCUSDT"], "timeframes": ["7m"]}`), map[string]string{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boterrors.ErrUnknownTimeframe))
}

func TestLoadBotConfig_FileErrors(t *testing.T) {
	_, err := loadBotConfig(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.Error(t, err)

	_, err = loadBotConfig(writeConfig(t, `{not json`), nil)
	assert.Error(t, err)
}

func TestLoadBotConfig_MigratesLegacy(t *testing.T) {
	path := writeConfig(t, `{
		"symbols": ["BTCUSDT", "ETHUSDT"],
		"timeframes": ["3m", "15m"],
		"cooldown_seconds": 600,
		"poll_interval": 30,
		"state_file": "spike_state.json",
		"detector": "spike"
	}`)

	cfg, err := loadBotConfig(path, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Symbols)
	assert.Equal(t, string(dedup.ModeWallClock), cfg.Cooldown.Mode)
	assert.Equal(t, int64(600), cfg.Cooldown.WindowSeconds)
	assert.Equal(t, 30, cfg.Poll.IntervalSeconds)
	assert.Equal(t, "spike_state.json", cfg.State.Path)
	assert.True(t, cfg.Notifications.Console)

	policy, err := cfg.PolicyConfig()
	require.NoError(t, err)
	assert.Equal(t, dedup.ModeWallClock, policy.Mode)
}

func TestLoadEnvFile(t *testing.T) {
	assert.NoError(t, LoadEnvFile(""))
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SIGNAL_BOT_TEST_VALUE=42\n"), 0o600))
	t.Setenv("SIGNAL_BOT_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("SIGNAL_BOT_TEST_VALUE"))
	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "42", os.Getenv("SIGNAL_BOT_TEST_VALUE"))
}

func TestPresets(t *testing.T) {
	assert.Equal(t, []string{"macd-cross", "macd-momentum", "macd-vol", "spike"}, PresetNames())
	for _, name := range PresetNames() {
		cfg, err := Preset(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, cfg.Name)
	}

	cfg, err := Preset("macd-momentum")
	require.NoError(t, err)
	assert.True(t, cfg.Consensus)
	assert.Len(t, cfg.Timeframes, 4)

	_, err = Preset("grid")
	assert.Error(t, err)
}
