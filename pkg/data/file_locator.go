package data

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ducminhle1904/crypto-signal-bot/internal/candle"
	"github.com/ducminhle1904/crypto-signal-bot/internal/logger"
)

// DefaultFileLocator looks for data/{exchange}/{category}/{symbol}/{minutes}/candles.csv
type DefaultFileLocator struct {
	logger *logger.Logger
}

// NewDefaultFileLocator creates a new default file locator
func NewDefaultFileLocator(log *logger.Logger) *DefaultFileLocator {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &DefaultFileLocator{logger: log}
}

// IntervalMinutes converts a timeframe label such as "5m" or "4h" to its
// length in minutes. Unknown labels are returned unchanged.
func IntervalMinutes(timeframe string) string {
	ms, err := candle.DurationMs(timeframe)
	if err != nil {
		return timeframe
	}
	return strconv.FormatInt(ms/60_000, 10)
}

// FindDataFile returns the first existing candle file, or "" when none is
// found.
func (f *DefaultFileLocator) FindDataFile(dataRoot, exchange, symbol, timeframe string) string {
	symbol = strings.ToUpper(symbol)
	minutes := IntervalMinutes(timeframe)

	var categories []string
	switch strings.ToLower(exchange) {
	case "bybit":
		categories = []string{"spot", "linear", "inverse"}
	default:
		categories = []string{"spot", "futures", "linear", "inverse"}
	}

	var attempted []string
	for _, category := range categories {
		path := filepath.Join(dataRoot, exchange, category, symbol, minutes, "candles.csv")
		attempted = append(attempted, path)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	f.logger.Warning("⚠️ No data file found for %s %s %s in: %s", exchange, symbol, timeframe, strings.Join(attempted, ", "))
	return ""
}
