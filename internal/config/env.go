package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	boterrors "github.com/ducminhle1904/crypto-signal-bot/internal/errors"
)

// envOverlay holds the secrets and deployment overrides read from the
// environment. Empty values leave the file configuration untouched.
type envOverlay struct {
	BybitAPIKey    string `env:"BYBIT_API_KEY"`
	BybitAPISecret string `env:"BYBIT_API_SECRET"`
	BybitTestnet   *bool  `env:"BYBIT_TESTNET"`

	TelegramToken  string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID string `env:"TELEGRAM_CHAT_ID"`
	SlackWebhook   string `env:"SLACK_WEBHOOK_URL"`
	WeComWebhook   string `env:"WECOM_WEBHOOK_URL"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	StatePath     string `env:"STATE_FILE"`

	LogLevel         string `env:"LOG_LEVEL"`
	MonitoringListen string `env:"MONITORING_LISTEN"`
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process
// environment. A missing file is not an error; variables already set win.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return boterrors.WrapError(err, boterrors.ErrorCategoryConfiguration, "config", "load env")
	}
	return nil
}

// applyEnv overlays environment values. environment replaces the process
// environment when non-nil, which keeps tests hermetic.
func applyEnv(c *BotConfig, environment map[string]string) error {
	var overlay envOverlay
	opts := env.Options{}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(&overlay, opts); err != nil {
		return boterrors.WrapError(err, boterrors.ErrorCategoryConfiguration, "config", "parse env")
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Exchange.APIKey, overlay.BybitAPIKey)
	set(&c.Exchange.APISecret, overlay.BybitAPISecret)
	if overlay.BybitTestnet != nil {
		c.Exchange.Testnet = *overlay.BybitTestnet
	}

	set(&c.Notifications.Telegram.Token, overlay.TelegramToken)
	set(&c.Notifications.Telegram.ChatID, overlay.TelegramChatID)
	set(&c.Notifications.Slack.WebhookURL, overlay.SlackWebhook)
	set(&c.Notifications.WeCom.WebhookURL, overlay.WeComWebhook)

	set(&c.State.RedisAddr, overlay.RedisAddr)
	set(&c.State.RedisPassword, overlay.RedisPassword)
	set(&c.State.Path, overlay.StatePath)

	set(&c.Logging.Level, overlay.LogLevel)
	set(&c.Monitoring.Listen, overlay.MonitoringListen)
	return nil
}

// Hostname is used to tag alerts from several deployments
func Hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}
