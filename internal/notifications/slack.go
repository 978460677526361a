package notifications

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	boterrors "github.com/ducminhle1904/crypto-signal-bot/internal/errors"
)

// SlackNotifier posts to an incoming webhook
type SlackNotifier struct {
	webhookURL string
	channel    string
	username   string
}

// NewSlackNotifier creates a webhook notifier. Channel and username are
// optional overrides of the webhook defaults.
func NewSlackNotifier(webhookURL, channel, username string) (*SlackNotifier, error) {
	if webhookURL == "" {
		return nil, boterrors.NewConfigurationError("slack", "new", "webhook url is required")
	}
	return &SlackNotifier{webhookURL: webhookURL, channel: channel, username: username}, nil
}

// Name returns "slack"
func (s *SlackNotifier) Name() string { return "slack" }

// Send posts the text; any non-200 answer is a failed delivery
func (s *SlackNotifier) Send(ctx context.Context, text string) error {
	msg := &slack.WebhookMessage{
		Text:     text,
		Channel:  s.channel,
		Username: s.username,
	}
	if err := slack.PostWebhookContext(ctx, s.webhookURL, msg); err != nil {
		return boterrors.NewNotifyError("slack", "send", fmt.Errorf("%w: %w", boterrors.ErrNotDelivered, err))
	}
	return nil
}
