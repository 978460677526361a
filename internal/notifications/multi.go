package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	boterrors "github.com/ducminhle1904/crypto-signal-bot/internal/errors"
	"github.com/ducminhle1904/crypto-signal-bot/internal/logger"
	"github.com/ducminhle1904/crypto-signal-bot/internal/retry"
)

// MultiNotifier fans a message out to every channel. The message counts
// as delivered when at least one channel acknowledged it, so a later retry
// never repeats it on the channels that already have it.
type MultiNotifier struct {
	notifiers []Notifier
	logger    *logger.Logger
}

// NewMultiNotifier groups channels; nil entries are skipped
func NewMultiNotifier(log *logger.Logger, notifiers ...Notifier) *MultiNotifier {
	if log == nil {
		log = logger.NewNopLogger()
	}
	m := &MultiNotifier{logger: log}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Len returns the number of channels
func (m *MultiNotifier) Len() int { return len(m.notifiers) }

// Name joins the channel names
func (m *MultiNotifier) Name() string {
	names := make([]string, len(m.notifiers))
	for i, n := range m.notifiers {
		names[i] = n.Name()
	}
	return strings.Join(names, "+")
}

// Send delivers to all channels and fails only when none accepted
func (m *MultiNotifier) Send(ctx context.Context, text string) error {
	if len(m.notifiers) == 0 {
		return boterrors.NewNotifyError("notifier", "send", fmt.Errorf("%w: no channel configured", boterrors.ErrNotDelivered))
	}

	var errs []error
	delivered := 0
	for _, n := range m.notifiers {
		if err := n.Send(ctx, text); err != nil {
			m.logger.LogWarning("notify", "%s delivery failed: %v", n.Name(), err)
			errs = append(errs, err)
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return boterrors.NewNotifyError("notifier", "send", fmt.Errorf("%w: %w", boterrors.ErrNotDelivered, errors.Join(errs...)))
	}
	return nil
}

// RetryingNotifier retries a channel with backoff before giving up
type RetryingNotifier struct {
	inner Notifier
	cfg   retry.Config
}

// WithRetry wraps n; a zero MaxRetries sends once
func WithRetry(n Notifier, cfg retry.Config) *RetryingNotifier {
	return &RetryingNotifier{inner: n, cfg: cfg}
}

// Name returns the wrapped channel name
func (r *RetryingNotifier) Name() string { return r.inner.Name() }

// Send retries failures until the attempts or ctx run out. A BotError
// marked not retryable is returned at once.
func (r *RetryingNotifier) Send(ctx context.Context, text string) error {
	return retry.Do(ctx, r.cfg, retryableSend, func(ctx context.Context) error {
		return r.inner.Send(ctx, text)
	})
}

func retryableSend(err error) bool {
	var botErr *boterrors.BotError
	if errors.As(err, &botErr) {
		return botErr.IsRetryable()
	}
	return true
}
