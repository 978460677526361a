package strategy

import (
	"fmt"
	"strings"

	boterrors "github.com/ducminhle1904/crypto-signal-bot/internal/errors"
	"github.com/ducminhle1904/crypto-signal-bot/pkg/types"
)

// Consensus runs one detector across several timeframes of a symbol and
// only reports when every timeframe fires in the same direction. The
// resulting signal belongs to the first, anchor, timeframe.
type Consensus struct {
	detector   Detector
	timeframes []string
}

// NewConsensus wraps a detector. At least one timeframe is required and
// duplicates are rejected.
func NewConsensus(detector Detector, timeframes []string) (*Consensus, error) {
	if detector == nil {
		return nil, boterrors.NewConfigurationError("strategy", "consensus", "detector is required")
	}
	if len(timeframes) == 0 {
		return nil, boterrors.NewConfigurationError("strategy", "consensus", "at least one timeframe is required")
	}
	seen := make(map[string]bool, len(timeframes))
	for _, tf := range timeframes {
		if seen[tf] {
			return nil, boterrors.NewConfigurationError("strategy", "consensus",
				fmt.Sprintf("timeframe %q listed twice", tf))
		}
		seen[tf] = true
	}
	return &Consensus{detector: detector, timeframes: append([]string(nil), timeframes...)}, nil
}

// Name is the wrapped detector name
func (c *Consensus) Name() string {
	return c.detector.Name()
}

// Timeframes returns the checked timeframes, anchor first
func (c *Consensus) Timeframes() []string {
	return append([]string(nil), c.timeframes...)
}

// Anchor is the timeframe the signal is keyed on
func (c *Consensus) Anchor() string {
	return c.timeframes[0]
}

// MinCandles is the wrapped detector's requirement per timeframe
func (c *Consensus) MinCandles() int {
	return c.detector.MinCandles()
}

// Evaluate runs the detector on every timeframe in series. A missing
// series is an error; any timeframe that does not fire, or fires the other
// way, yields no signal.
func (c *Consensus) Evaluate(symbol string, series map[string][]types.OHLCV) (*Signal, error) {
	var anchor *Signal
	for _, tf := range c.timeframes {
		candles, ok := series[tf]
		if !ok {
			return nil, fmt.Errorf("consensus %s: no candles for %s: %w", symbol, tf, boterrors.ErrDataUnavailable)
		}
		sig, err := c.detector.Detect(symbol, tf, candles)
		if err != nil {
			return nil, fmt.Errorf("consensus %s %s: %w", symbol, tf, err)
		}
		if sig == nil {
			return nil, nil
		}
		if anchor == nil {
			anchor = sig
			continue
		}
		if sig.Direction != anchor.Direction {
			return nil, nil
		}
	}

	anchor.Timeframes = c.Timeframes()
	anchor.Reasons = append(anchor.Reasons,
		fmt.Sprintf("all %d timeframes agree (%s)", len(c.timeframes), strings.Join(c.timeframes, ", ")))
	return anchor, nil
}
