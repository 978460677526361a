// Package dedup decides whether a freshly detected signal is new or a
// repeat. A CooldownPolicy tracks the last emission per SignalKey, a
// KeyLevelBreaker lets a cooling signal through once per price level, and
// SignalGate ties both to a state.Store.
package dedup

import (
	"fmt"
	"strings"

	"github.com/ducminhle1904/crypto-signal-bot/internal/candle"
)

// SignalKey identifies one recurring condition. Two keys are equal iff all
// three fields are equal, so it is used directly as a map key.
type SignalKey struct {
	Symbol    string
	Timeframe string
	Direction string
}

// NewSignalKey builds a key
func NewSignalKey(symbol, timeframe, direction string) SignalKey {
	return SignalKey{Symbol: symbol, Timeframe: timeframe, Direction: direction}
}

// String renders the persisted form "<symbol>_<timeframe>_<direction>"
func (k SignalKey) String() string {
	return k.Symbol + "_" + k.Timeframe + "_" + k.Direction
}

// IsDownside reports whether the direction is bearish. Anything else is
// treated as the up side when scanning key levels.
func (k SignalKey) IsDownside() bool {
	switch strings.ToLower(k.Direction) {
	case "sell", "down", "bearish", "short":
		return true
	}
	return false
}

// ParseSignalKey reverses String. The string is split from the right since
// timeframe and direction labels never contain an underscore while symbols
// may. The timeframe must be a known label.
func ParseSignalKey(s string) (SignalKey, error) {
	parts := rsplit(s, 3)
	if parts == nil {
		return SignalKey{}, fmt.Errorf("malformed signal key %q", s)
	}
	key := SignalKey{Symbol: parts[0], Timeframe: parts[1], Direction: parts[2]}
	if _, err := candle.DurationMs(key.Timeframe); err != nil {
		return SignalKey{}, fmt.Errorf("malformed signal key %q: %w", s, err)
	}
	return key, nil
}

// LegacyKeys maps the two-part keys of flat legacy state onto full keys.
// "<symbol>_<timeframe>" stands for every direction and
// "<symbol>_<direction>" for every timeframe. A legacy symbol is matched
// against Symbols ignoring case and a "/" separator.
type LegacyKeys struct {
	Symbols    []string
	Timeframes []string
	Directions []string
}

// Expand returns the keys raw stands for, or nil when it is not a
// legacy key
func (l LegacyKeys) Expand(raw string) []SignalKey {
	parts := rsplit(raw, 2)
	if parts == nil {
		return nil
	}
	symbol := l.symbol(parts[0])

	var keys []SignalKey
	if _, err := candle.DurationMs(parts[1]); err == nil {
		for _, d := range l.Directions {
			keys = append(keys, NewSignalKey(symbol, parts[1], d))
		}
		return keys
	}
	for _, d := range l.Directions {
		if !strings.EqualFold(d, parts[1]) {
			continue
		}
		for _, tf := range l.Timeframes {
			keys = append(keys, NewSignalKey(symbol, tf, d))
		}
		return keys
	}
	return nil
}

func (l LegacyKeys) symbol(s string) string {
	norm := func(v string) string {
		return strings.ToUpper(strings.ReplaceAll(v, "/", ""))
	}
	for _, sym := range l.Symbols {
		if norm(sym) == norm(s) {
			return sym
		}
	}
	return s
}

// rsplit splits s into exactly n non-empty parts on the last n-1
// underscores, or returns nil.
func rsplit(s string, n int) []string {
	parts := make([]string, n)
	rest := s
	for i := n - 1; i > 0; i-- {
		idx := strings.LastIndex(rest, "_")
		if idx < 0 {
			return nil
		}
		parts[i] = rest[idx+1:]
		rest = rest[:idx]
	}
	parts[0] = rest
	for _, p := range parts {
		if p == "" {
			return nil
		}
	}
	return parts
}
