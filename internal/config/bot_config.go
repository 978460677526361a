package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ducminhle1904/crypto-signal-bot/internal/candle"
	"github.com/ducminhle1904/crypto-signal-bot/internal/dedup"
	boterrors "github.com/ducminhle1904/crypto-signal-bot/internal/errors"
	"github.com/ducminhle1904/crypto-signal-bot/internal/retry"
	"github.com/ducminhle1904/crypto-signal-bot/internal/strategy"
)

// Bybit returns at most 1000 klines per request
const maxHistoryLimit = 1000

// State backends
const (
	StateFile   = "file"
	StateRedis  = "redis"
	StateMemory = "memory"
)

// BotConfig represents the complete configuration of one signal bot
type BotConfig struct {
	Name       string   `json:"name"`
	Symbols    []string `json:"symbols"`
	Timeframes []string `json:"timeframes"`

	// Detector configuration
	Detector  string          `json:"detector"`  // macd_vol, spike, macd_momentum, macd_cross
	Consensus bool            `json:"consensus"` // every timeframe must fire the same direction
	Strategy  strategy.Config `json:"strategy"`

	// Candles requested per fetch
	HistoryLimit int `json:"history_limit"`

	Poll          PollConfig         `json:"poll"`
	Cooldown      CooldownConfig     `json:"cooldown"`
	State         StateConfig        `json:"state"`
	Exchange      ExchangeConfig     `json:"exchange"`
	Notifications NotificationConfig `json:"notifications"`
	Monitoring    MonitoringConfig   `json:"monitoring"`
	Logging       LoggingConfig      `json:"logging"`
}

// PollConfig controls the polling loop
type PollConfig struct {
	IntervalSeconds     int  `json:"interval_seconds"`      // pause between rounds
	AlignToCandle       bool `json:"align_to_candle"`       // wait for the next close of the smallest timeframe
	CloseDelaySeconds   int  `json:"close_delay_seconds"`   // grace after a candle close before fetching
	ErrorBackoffSeconds int  `json:"error_backoff_seconds"` // pause after a failed round
}

// CooldownConfig selects the dedup policy
type CooldownConfig struct {
	Mode          string `json:"mode"`           // wall_clock, bar_count, candle_identity
	WindowSeconds int64  `json:"window_seconds"` // wall_clock
	Bars          int64  `json:"bars"`           // bar_count
	KeyLevelBreak bool   `json:"key_level_break"`
}

// StateConfig selects where dedup state lives
type StateConfig struct {
	Backend         string  `json:"backend"` // file, redis, memory
	Path            string  `json:"path"`
	RedisAddr       string  `json:"redis_addr"`
	RedisPassword   string  `json:"-"`
	RedisDB         int     `json:"redis_db"`
	RedisKey        string  `json:"redis_key"`
	MaxAgeHours     float64 `json:"max_age_hours"`
	CleanupSchedule string  `json:"cleanup_schedule"` // cron spec, e.g. "@every 1h"
}

// ExchangeConfig holds the market data source settings
type ExchangeConfig struct {
	Name      string       `json:"name"` // bybit
	Category  string       `json:"category"`
	Testnet   bool         `json:"testnet"`
	Demo      bool         `json:"demo"`
	BaseURL   string       `json:"base_url,omitempty"`
	APIKey    string       `json:"-"`
	APISecret string       `json:"-"`
	Retry     retry.Config `json:"retry"`
}

// NotificationConfig holds notification settings
type NotificationConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Slack    SlackConfig    `json:"slack"`
	WeCom    WeComConfig    `json:"wecom"`
	Console  bool           `json:"console"`
	Retry    retry.Config   `json:"retry"`
}

// TelegramConfig configures the Telegram channel
type TelegramConfig struct {
	Enabled   bool   `json:"enabled"`
	Token     string `json:"-"`
	ChatID    string `json:"chat_id,omitempty"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// SlackConfig configures the Slack webhook channel
type SlackConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"-"`
	Channel    string `json:"channel,omitempty"`
	Username   string `json:"username,omitempty"`
}

// WeComConfig configures the WeCom robot channel
type WeComConfig struct {
	Enabled       bool     `json:"enabled"`
	WebhookURL    string   `json:"-"`
	MentionedList []string `json:"mentioned_list,omitempty"`
}

// MonitoringConfig enables the health and metrics server
type MonitoringConfig struct {
	Listen string `json:"listen"` // e.g. ":9090"; empty disables the server
}

// LoggingConfig configures the file logger
type LoggingConfig struct {
	Dir     string `json:"dir"`
	Level   string `json:"level"`
	Console bool   `json:"console"`
}

// ResolvePath applies the configs/ lookup and .json suffix rules
func ResolvePath(configFile string) string {
	// If config file doesn't contain path separators, look in configs/ directory
	if !strings.ContainsAny(configFile, "/\\") {
		configFile = filepath.Join("configs", configFile)
	}
	if !strings.HasSuffix(configFile, ".json") {
		configFile += ".json"
	}
	return configFile
}

// LoadBotConfig loads configuration from file, overlays the environment,
// applies defaults and validates. A flat legacy file is migrated first.
func LoadBotConfig(configFile string) (*BotConfig, error) {
	return loadBotConfig(ResolvePath(configFile), nil)
}

func loadBotConfig(path string, environment map[string]string) (*BotConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, boterrors.WrapError(fmt.Errorf("failed to read config file %s: %w", path, err),
			boterrors.ErrorCategoryConfiguration, "config", "load")
	}

	config, err := parseBotConfig(data)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(config, environment); err != nil {
		return nil, err
	}

	config.setDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

func parseBotConfig(data []byte) (*BotConfig, error) {
	if isLegacy(data) {
		return migrateLegacy(data)
	}

	config := &BotConfig{Strategy: strategy.DefaultConfig()}
	if err := json.Unmarshal(data, config); err != nil {
		return nil, boterrors.WrapError(fmt.Errorf("failed to parse config file: %w", err),
			boterrors.ErrorCategoryConfiguration, "config", "parse")
	}
	return config, nil
}

// setDefaults sets default values for missing configuration
func (c *BotConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "signal-bot"
	}
	if c.Detector == "" {
		c.Detector = strategy.MACDVolName
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = 200
	}

	if c.Poll.IntervalSeconds == 0 {
		c.Poll.IntervalSeconds = 300
	}
	if c.Poll.ErrorBackoffSeconds == 0 {
		c.Poll.ErrorBackoffSeconds = 5
	}

	if c.Cooldown.Mode == "" {
		c.Cooldown.Mode = string(dedup.ModeCandleIdentity)
	}

	if c.State.Backend == "" {
		c.State.Backend = StateFile
	}
	if c.State.Path == "" {
		c.State.Path = filepath.Join("state", c.Name+".json")
	}
	if c.State.RedisKey == "" {
		c.State.RedisKey = "signal-bot:" + c.Name + ":state"
	}
	if c.State.MaxAgeHours == 0 {
		c.State.MaxAgeHours = 24
	}
	if c.State.CleanupSchedule == "" {
		c.State.CleanupSchedule = "@every 1h"
	}

	if c.Exchange.Name == "" {
		c.Exchange.Name = "bybit"
	}
	if c.Exchange.Category == "" {
		c.Exchange.Category = "linear"
	}
	if c.Exchange.Retry == (retry.Config{}) {
		c.Exchange.Retry = retry.DefaultConfig()
	}
	if c.Notifications.Retry == (retry.Config{}) {
		notify := retry.DefaultConfig()
		notify.MaxRetries = 2
		c.Notifications.Retry = notify
	}

	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// validate validates the configuration
func (c *BotConfig) validate() error {
	if len(c.Symbols) == 0 {
		return boterrors.NewConfigurationError("config", "validate", "at least one symbol is required")
	}
	if len(c.Timeframes) == 0 {
		return boterrors.NewConfigurationError("config", "validate", "at least one timeframe is required")
	}
	if err := candle.Validate(c.Timeframes...); err != nil {
		return err
	}

	detector, err := strategy.New(c.Detector, c.Strategy)
	if err != nil {
		return err
	}
	if c.Consensus {
		if _, err := strategy.NewConsensus(detector, c.Timeframes); err != nil {
			return err
		}
	}
	if c.HistoryLimit < detector.MinCandles() || c.HistoryLimit > maxHistoryLimit {
		return boterrors.NewConfigurationError("config", "validate",
			fmt.Sprintf("history_limit must be between %d and %d, got %d", detector.MinCandles(), maxHistoryLimit, c.HistoryLimit))
	}

	if c.Poll.IntervalSeconds < 0 || c.Poll.ErrorBackoffSeconds < 0 || c.Poll.CloseDelaySeconds < 0 {
		return boterrors.NewConfigurationError("config", "validate", "poll durations must not be negative")
	}

	if _, err := c.PolicyConfig(); err != nil {
		return err
	}

	switch c.State.Backend {
	case StateFile, StateMemory:
	case StateRedis:
		if c.State.RedisAddr == "" {
			return boterrors.NewConfigurationError("config", "validate", "redis state backend requires redis_addr")
		}
	default:
		return boterrors.NewConfigurationError("config", "validate", fmt.Sprintf("unknown state backend %q", c.State.Backend))
	}
	if c.State.MaxAgeHours < 0 {
		return boterrors.NewConfigurationError("config", "validate", "max_age_hours must not be negative")
	}

	if !strings.EqualFold(c.Exchange.Name, "bybit") {
		return boterrors.NewConfigurationError("config", "validate", fmt.Sprintf("unsupported exchange %q", c.Exchange.Name))
	}

	n := c.Notifications
	if n.Telegram.Enabled && (n.Telegram.Token == "" || n.Telegram.ChatID == "") {
		return boterrors.NewConfigurationError("config", "validate", "telegram requires TELEGRAM_BOT_TOKEN and chat_id")
	}
	if n.Slack.Enabled && n.Slack.WebhookURL == "" {
		return boterrors.NewConfigurationError("config", "validate", "slack requires SLACK_WEBHOOK_URL")
	}
	if n.WeCom.Enabled && n.WeCom.WebhookURL == "" {
		return boterrors.NewConfigurationError("config", "validate", "wecom requires WECOM_WEBHOOK_URL")
	}
	return nil
}

// PolicyConfig converts the cooldown section into a dedup policy config
func (c *BotConfig) PolicyConfig() (dedup.PolicyConfig, error) {
	mode, err := dedup.ParseMode(c.Cooldown.Mode)
	if err != nil {
		return dedup.PolicyConfig{}, err
	}
	cfg := dedup.PolicyConfig{
		Mode:          mode,
		WindowSeconds: c.Cooldown.WindowSeconds,
		CooldownBars:  c.Cooldown.Bars,
	}
	// construction runs the mode specific checks
	if _, err := dedup.NewCooldownPolicy(cfg); err != nil {
		return dedup.PolicyConfig{}, err
	}
	return cfg, nil
}

// NewDetector builds the configured detector
func (c *BotConfig) NewDetector() (strategy.Detector, error) {
	return strategy.New(c.Detector, c.Strategy)
}

// legacyBotConfig is the flat layout of the original scripts
type legacyBotConfig struct {
	Symbols         []string `json:"symbols"`
	Timeframes      []string `json:"timeframes"`
	CooldownSeconds int64    `json:"cooldown_seconds"`
	PollInterval    int      `json:"poll_interval"`
	HistoryLimit    int      `json:"history_limit"`
	StateFile       string   `json:"state_file"`
	Detector        string   `json:"detector"`
}

// isLegacy reports a flat file: cooldown_seconds at the top level and no
// cooldown section
func isLegacy(data []byte) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return false
	}
	_, flat := fields["cooldown_seconds"]
	_, nested := fields["cooldown"]
	return flat && !nested
}

func migrateLegacy(data []byte) (*BotConfig, error) {
	var legacy legacyBotConfig
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, boterrors.WrapError(fmt.Errorf("failed to parse legacy config: %w", err),
			boterrors.ErrorCategoryConfiguration, "config", "migrate")
	}

	config := &BotConfig{
		Symbols:      legacy.Symbols,
		Timeframes:   legacy.Timeframes,
		Detector:     legacy.Detector,
		Strategy:     strategy.DefaultConfig(),
		HistoryLimit: legacy.HistoryLimit,
		Poll:         PollConfig{IntervalSeconds: legacy.PollInterval},
		Cooldown: CooldownConfig{
			Mode:          string(dedup.ModeWallClock),
			WindowSeconds: legacy.CooldownSeconds,
		},
		State: StateConfig{Backend: StateFile, Path: legacy.StateFile},
		// the scripts always printed and logged what they sent
		Notifications: NotificationConfig{Console: true},
	}
	return config, nil
}
