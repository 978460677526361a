package strategy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ducminhle1904/crypto-signal-bot/internal/dedup"
	boterrors "github.com/ducminhle1904/crypto-signal-bot/internal/errors"
	"github.com/ducminhle1904/crypto-signal-bot/pkg/types"
)

// Detector inspects a candle series and reports a signal when its
// condition holds. A nil signal with a nil error means nothing fired.
type Detector interface {
	// Detect analyzes candles ordered by open time
	Detect(symbol, timeframe string, candles []types.OHLCV) (*Signal, error)

	// Name returns the detector name used in config and key prefixes
	Name() string

	// MinCandles is the shortest series Detect can work with
	MinCandles() int
}

// Direction labels used by the detectors. The MACD-vol detector speaks
// BUY/SELL, the others bullish/bearish, so keys match the persisted state
// each family has always written.
const (
	DirectionBuy     = "BUY"
	DirectionSell    = "SELL"
	DirectionBullish = "bullish"
	DirectionBearish = "bearish"
)

// DirectionsOf lists the direction labels d can emit
func DirectionsOf(d Detector) []string {
	if dd, ok := d.(interface{ Directions() []string }); ok {
		return dd.Directions()
	}
	return []string{DirectionBullish, DirectionBearish}
}

// RiskLevel grades the volatility environment of a signal
type RiskLevel string

const (
	RiskLow  RiskLevel = "LOW"
	RiskMid  RiskLevel = "MID"
	RiskHigh RiskLevel = "HIGH"
)

// SuggestionWatch asks the reader to wait for confirmation
const SuggestionWatch = "WATCH"

// Signal is one detected condition on one symbol and timeframe
type Signal struct {
	Detector     string
	Symbol       string
	Timeframe    string
	Direction    string
	Price        float64
	CandleOpenMs int64
	Levels       dedup.KeyLevels
	Confidence   float64
	Risk         RiskLevel
	Suggestion   string
	Reasons      []string
	Metrics      map[string]float64

	// Timeframes lists every timeframe that agreed when the signal came
	// from a consensus check
	Timeframes []string
}

// Key returns the dedup key of the signal
func (s *Signal) Key() dedup.SignalKey {
	return dedup.NewSignalKey(s.Symbol, s.Timeframe, s.Direction)
}

// Metric returns a metric or 0 when it is absent
func (s *Signal) Metric(name string) float64 {
	return s.Metrics[name]
}

// Config groups the parameters of every detector
type Config struct {
	MACDVol MACDVolConfig `json:"macd_vol"`
	Spike   SpikeConfig   `json:"spike"`
	MACD    MACDConfig    `json:"macd"`
}

// DefaultConfig returns the defaults of every detector
func DefaultConfig() Config {
	return Config{
		MACDVol: DefaultMACDVolConfig(),
		Spike:   DefaultSpikeConfig(),
		MACD:    DefaultMACDConfig(),
	}
}

type factory func(cfg Config) (Detector, error)

var registry = map[string]factory{
	MACDVolName:  func(cfg Config) (Detector, error) { return NewMACDVol(cfg.MACDVol) },
	SpikeName:    func(cfg Config) (Detector, error) { return NewSpike(cfg.Spike) },
	MomentumName: func(cfg Config) (Detector, error) { return NewMACDMomentum(cfg.MACD) },
	CrossName:    func(cfg Config) (Detector, error) { return NewMACDCross(cfg.MACD) },
}

// New builds a detector by name
func New(name string, cfg Config) (Detector, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, boterrors.NewConfigurationError("strategy", "new",
			fmt.Sprintf("unknown detector %q (available: %s)", name, strings.Join(Names(), ", ")))
	}
	return f(cfg)
}

// Names lists the registered detectors in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func invalidParam(detector, format string, args ...interface{}) error {
	return boterrors.NewValidationError("strategy", detector, fmt.Sprintf(format, args...))
}
