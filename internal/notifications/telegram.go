package notifications

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	boterrors "github.com/ducminhle1904/crypto-signal-bot/internal/errors"
)

// TelegramConfig configures the Telegram channel
type TelegramConfig struct {
	Token  string
	ChatID string
	// ParseMode is empty for plain text, or telego.ModeMarkdown / ModeHTML
	ParseMode string
	// APIServer overrides https://api.telegram.org
	APIServer string
}

// TelegramNotifier sends messages through the Bot API
type TelegramNotifier struct {
	bot       *telego.Bot
	chatID    telego.ChatID
	parseMode string
}

// NewTelegramNotifier validates the token and builds the bot client. No
// request is made until the first Send.
func NewTelegramNotifier(cfg TelegramConfig) (*TelegramNotifier, error) {
	if strings.TrimSpace(cfg.ChatID) == "" {
		return nil, boterrors.NewConfigurationError("telegram", "new", "chat id is required")
	}

	opts := []telego.BotOption{telego.WithDiscardLogger()}
	if cfg.APIServer != "" {
		opts = append(opts, telego.WithAPIServer(cfg.APIServer))
	}
	bot, err := telego.NewBot(cfg.Token, opts...)
	if err != nil {
		return nil, boterrors.WrapError(err, boterrors.ErrorCategoryConfiguration, "telegram", "new")
	}

	return &TelegramNotifier{
		bot:       bot,
		chatID:    parseChatID(cfg.ChatID),
		parseMode: cfg.ParseMode,
	}, nil
}

// numeric ids are chats, anything else a @channel username
func parseChatID(s string) telego.ChatID {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return telego.ChatID{ID: id}
	}
	return telego.ChatID{Username: s}
}

// Name returns "telegram"
func (t *TelegramNotifier) Name() string { return "telegram" }

// Send posts the message with sendMessage
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	_, err := t.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: t.parseMode,
	})
	if err != nil {
		return boterrors.NewNotifyError("telegram", "send", fmt.Errorf("%w: %w", boterrors.ErrNotDelivered, err))
	}
	return nil
}
