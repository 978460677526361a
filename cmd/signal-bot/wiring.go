package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ducminhle1904/crypto-signal-bot/internal/bot"
	"github.com/ducminhle1904/crypto-signal-bot/internal/config"
	"github.com/ducminhle1904/crypto-signal-bot/internal/dedup"
	"github.com/ducminhle1904/crypto-signal-bot/internal/exchange"
	"github.com/ducminhle1904/crypto-signal-bot/internal/exchange/bybit"
	"github.com/ducminhle1904/crypto-signal-bot/internal/logger"
	"github.com/ducminhle1904/crypto-signal-bot/internal/monitoring"
	"github.com/ducminhle1904/crypto-signal-bot/internal/notifications"
	"github.com/ducminhle1904/crypto-signal-bot/internal/state"
	"github.com/ducminhle1904/crypto-signal-bot/internal/strategy"
)

// app is everything main needs to run and shut down
type app struct {
	bot     *bot.SignalBot
	gate    *dedup.SignalGate
	health  *monitoring.HealthChecker
	metrics *monitoring.Metrics
	logger  *logger.Logger
	closers []func() error
}

// Close releases resources in reverse order, logging any failure
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.LogError("shutdown", err)
		}
	}
}

// newStore opens the configured state backend
func newStore(cfg *config.BotConfig, log *logger.Logger) (state.Store, func() error) {
	switch cfg.State.Backend {
	case config.StateRedis:
		s := state.NewRedisStore(log, &redis.Options{
			Addr:     cfg.State.RedisAddr,
			Password: cfg.State.RedisPassword,
			DB:       cfg.State.RedisDB,
		}, cfg.State.RedisKey)
		return s, s.Close
	case config.StateMemory:
		return state.NewMemoryStore().WithLogger(log), nil
	default:
		return state.NewFileStore(log, cfg.State.Path), nil
	}
}

func newGate(cfg *config.BotConfig, store state.Store, log *logger.Logger, now func() time.Time) (*dedup.SignalGate, error) {
	pc, err := cfg.PolicyConfig()
	if err != nil {
		return nil, err
	}
	pc.Now = now
	policy, err := dedup.NewCooldownPolicy(pc)
	if err != nil {
		return nil, err
	}
	breaker := dedup.NewKeyLevelBreaker(cfg.Cooldown.KeyLevelBreak, now)
	return dedup.NewSignalGate(policy, breaker, store, log), nil
}

// newNotifier fans out to every enabled channel. The console is used when
// nothing else is configured.
func newNotifier(cfg *config.BotConfig, log *logger.Logger, out io.Writer) (*notifications.MultiNotifier, error) {
	n := cfg.Notifications
	var channels []notifications.Notifier

	if n.Telegram.Enabled {
		tg, err := notifications.NewTelegramNotifier(notifications.TelegramConfig{
			Token:     n.Telegram.Token,
			ChatID:    n.Telegram.ChatID,
			ParseMode: n.Telegram.ParseMode,
		})
		if err != nil {
			return nil, err
		}
		channels = append(channels, notifications.WithRetry(tg, n.Retry))
	}
	if n.Slack.Enabled {
		sl, err := notifications.NewSlackNotifier(n.Slack.WebhookURL, n.Slack.Channel, n.Slack.Username)
		if err != nil {
			return nil, err
		}
		channels = append(channels, notifications.WithRetry(sl, n.Retry))
	}
	if n.WeCom.Enabled {
		wc, err := notifications.NewWeComNotifier(n.WeCom.WebhookURL, n.WeCom.MentionedList)
		if err != nil {
			return nil, err
		}
		channels = append(channels, notifications.WithRetry(wc, n.Retry))
	}
	if n.Console || len(channels) == 0 {
		channels = append(channels, notifications.NewConsoleNotifier(out, log))
	}
	return notifications.NewMultiNotifier(log, channels...), nil
}

func newSource(cfg *config.BotConfig) (exchange.MarketDataSource, error) {
	switch strings.ToLower(cfg.Exchange.Name) {
	case "bybit":
		return bybit.NewClient(bybit.Config{
			APIKey:    cfg.Exchange.APIKey,
			APISecret: cfg.Exchange.APISecret,
			Testnet:   cfg.Exchange.Testnet,
			Demo:      cfg.Exchange.Demo,
			BaseURL:   cfg.Exchange.BaseURL,
			Category:  cfg.Exchange.Category,
			Retry:     cfg.Exchange.Retry,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported exchange %q", cfg.Exchange.Name)
	}
}

// buildApp wires a bot from a validated config. source may be nil to use
// the configured exchange.
func buildApp(cfg *config.BotConfig, source exchange.MarketDataSource, log *logger.Logger, out io.Writer) (*app, error) {
	a := &app{
		health:  monitoring.NewHealthChecker(3 * time.Duration(max(cfg.Poll.IntervalSeconds, 60)) * time.Second),
		metrics: monitoring.NewMetrics(),
		logger:  log,
	}

	store, closeStore := newStore(cfg, log)
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	gate, err := newGate(cfg, store, log, time.Now)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.gate = gate

	detector, err := cfg.NewDetector()
	if err != nil {
		a.Close()
		return nil, err
	}
	var consensus *strategy.Consensus
	legacyTimeframes := cfg.Timeframes
	if cfg.Consensus {
		if consensus, err = strategy.NewConsensus(detector, cfg.Timeframes); err != nil {
			a.Close()
			return nil, err
		}
		legacyTimeframes = []string{consensus.Anchor()}
	}
	gate.SetLegacyKeys(dedup.LegacyKeys{
		Symbols:    cfg.Symbols,
		Timeframes: legacyTimeframes,
		Directions: strategy.DirectionsOf(detector),
	})

	notifier, err := newNotifier(cfg, log, out)
	if err != nil {
		a.Close()
		return nil, err
	}

	if source == nil {
		if source, err = newSource(cfg); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.bot, err = bot.NewSignalBot(bot.Options{
		Name:            cfg.Name,
		Symbols:         cfg.Symbols,
		Timeframes:      cfg.Timeframes,
		HistoryLimit:    cfg.HistoryLimit,
		Source:          source,
		Detector:        detector,
		Consensus:       consensus,
		Gate:            gate,
		Notifier:        notifier,
		Logger:          log,
		Health:          a.health,
		Metrics:         a.metrics,
		PollInterval:    time.Duration(cfg.Poll.IntervalSeconds) * time.Second,
		AlignToCandle:   cfg.Poll.AlignToCandle,
		CloseDelay:      time.Duration(cfg.Poll.CloseDelaySeconds) * time.Second,
		ErrorBackoff:    time.Duration(cfg.Poll.ErrorBackoffSeconds) * time.Second,
		CleanupSchedule: cfg.State.CleanupSchedule,
		MaxAgeHours:     cfg.State.MaxAgeHours,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}
