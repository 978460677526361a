// Package notifications delivers signal messages to chat endpoints. A
// Send returning nil means the endpoint acknowledged the message; only
// then does the caller commit its dedup state.
package notifications

import (
	"context"
	"fmt"
)

// Notifier defines the interface for notification services
type Notifier interface {
	// Send delivers text and returns nil only when the endpoint accepted it
	Send(ctx context.Context, text string) error

	// Name identifies the channel in logs and metrics
	Name() string
}

// AlertLevel grades operational alerts such as startup and shutdown
type AlertLevel string

const (
	AlertInfo    AlertLevel = "info"
	AlertWarning AlertLevel = "warning"
	AlertError   AlertLevel = "error"
	AlertSuccess AlertLevel = "success"
)

// FormatAlert prefixes an operational message with the level emoji
func FormatAlert(level AlertLevel, message string) string {
	emoji := "ℹ️"
	switch level {
	case AlertWarning:
		emoji = "⚠️"
	case AlertError:
		emoji = "🚨"
	case AlertSuccess:
		emoji = "✅"
	}
	return fmt.Sprintf("%s Signal Bot Alert\n\n%s", emoji, message)
}

// SendAlert formats and sends an operational alert
func SendAlert(ctx context.Context, n Notifier, level AlertLevel, message string) error {
	return n.Send(ctx, FormatAlert(level, message))
}
