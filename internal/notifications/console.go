package notifications

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ducminhle1904/crypto-signal-bot/internal/logger"
)

// ConsoleNotifier prints messages and records them in the log. It is the
// fallback channel when no chat endpoint is configured and is always
// delivered.
type ConsoleNotifier struct {
	mu     sync.Mutex
	out    io.Writer
	logger *logger.Logger
}

// NewConsoleNotifier writes to out, which may be nil to only log
func NewConsoleNotifier(out io.Writer, log *logger.Logger) *ConsoleNotifier {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &ConsoleNotifier{out: out, logger: log}
}

// Name returns "console"
func (c *ConsoleNotifier) Name() string { return "console" }

// Send prints the text followed by a separator line
func (c *ConsoleNotifier) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Signal("%s", strings.ReplaceAll(text, "\n", " | "))
	if c.out != nil {
		fmt.Fprintf(c.out, "%s\n%s\n", text, strings.Repeat("-", 60))
	}
	return nil
}
