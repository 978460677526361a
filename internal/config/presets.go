package config

import (
	"fmt"
	"sort"

	"github.com/ducminhle1904/crypto-signal-bot/internal/dedup"
	"github.com/ducminhle1904/crypto-signal-bot/internal/strategy"
)

var defaultSymbols = []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "DOGEUSDT", "BNBUSDT", "XRPUSDT"}

// presets mirror the deployments the bot family runs with
var presets = map[string]func() *BotConfig{
	// MACD momentum with a volatility band, 30 minute wall clock cooldown
	// and key level re-alerts
	"macd-vol": func() *BotConfig {
		return &BotConfig{
			Name:       "macd-vol",
			Symbols:    defaultSymbols,
			Timeframes: []string{"15m", "1h"},
			Detector:   strategy.MACDVolName,
			Cooldown: CooldownConfig{
				Mode:          string(dedup.ModeWallClock),
				WindowSeconds: 1800,
				KeyLevelBreak: true,
			},
			Poll: PollConfig{IntervalSeconds: 60},
		}
	},
	// pin bars on closed candles, one alert per candle
	"spike": func() *BotConfig {
		return &BotConfig{
			Name:         "spike",
			Symbols:      defaultSymbols,
			Timeframes:   []string{"3m", "15m", "1h"},
			Detector:     strategy.SpikeName,
			HistoryLimit: 400,
			Cooldown:     CooldownConfig{Mode: string(dedup.ModeCandleIdentity)},
			Poll:         PollConfig{IntervalSeconds: 300},
		}
	},
	// four timeframes must agree on MACD momentum
	"macd-momentum": func() *BotConfig {
		return &BotConfig{
			Name:       "macd-momentum",
			Symbols:    defaultSymbols,
			Timeframes: []string{"3m", "5m", "15m", "1h"},
			Detector:   strategy.MomentumName,
			Consensus:  true,
			Cooldown: CooldownConfig{
				Mode:          string(dedup.ModeWallClock),
				WindowSeconds: 300,
			},
			Poll: PollConfig{IntervalSeconds: 60},
		}
	},
	// histogram zero cross on the closed 5m candle, at most one alert per
	// three bars
	"macd-cross": func() *BotConfig {
		return &BotConfig{
			Name:       "macd-cross",
			Symbols:    defaultSymbols,
			Timeframes: []string{"5m"},
			Detector:   strategy.CrossName,
			Cooldown: CooldownConfig{
				Mode: string(dedup.ModeBarCount),
				Bars: 3,
			},
			Poll: PollConfig{IntervalSeconds: 60, AlignToCandle: true, CloseDelaySeconds: 3},
		}
	},
}

// Preset returns a defaulted, validated preset configuration
func Preset(name string) (*BotConfig, error) {
	build, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q (available: %v)", name, PresetNames())
	}
	c := build()
	c.Strategy = strategy.DefaultConfig()
	c.Symbols = append([]string(nil), c.Symbols...)
	c.Notifications.Console = true
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// PresetNames lists the presets in sorted order
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
