package strategy

import (
	"math"

	"github.com/ducminhle1904/crypto-signal-bot/internal/indicators"
	"github.com/ducminhle1904/crypto-signal-bot/pkg/types"
)

// MomentumName is the registry name of the three-bar MACD momentum detector
const MomentumName = "macd_momentum"

// MACDConfig holds the MACD periods shared by the momentum and cross
// detectors
type MACDConfig struct {
	FastPeriod   int `json:"fast_period"`
	SlowPeriod   int `json:"slow_period"`
	SignalPeriod int `json:"signal_period"`
	MinCandles   int `json:"min_candles"`
}

// DefaultMACDConfig returns 12/26/9 with slow+signal+2 candles of history
func DefaultMACDConfig() MACDConfig {
	return MACDConfig{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9, MinCandles: 37}
}

// Validate checks the periods
func (c MACDConfig) Validate() error {
	if c.FastPeriod <= 0 || c.SlowPeriod <= c.FastPeriod || c.SignalPeriod <= 0 {
		return invalidParam("macd", "macd periods %d/%d/%d are invalid", c.FastPeriod, c.SlowPeriod, c.SignalPeriod)
	}
	if c.MinCandles < 3 {
		return invalidParam("macd", "min_candles must be at least 3, got %d", c.MinCandles)
	}
	return nil
}

// MACDMomentum fires when the histogram, DIF and DEA all move the same way
// over the latest three candles, counting the forming one
type MACDMomentum struct {
	cfg  MACDConfig
	macd *indicators.MACD
}

// NewMACDMomentum creates the detector
func NewMACDMomentum(cfg MACDConfig) (*MACDMomentum, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &MACDMomentum{cfg: cfg, macd: indicators.NewMACD(cfg.FastPeriod, cfg.SlowPeriod, cfg.SignalPeriod)}, nil
}

// Name returns the detector name
func (d *MACDMomentum) Name() string { return MomentumName }

// MinCandles returns the configured minimum history
func (d *MACDMomentum) MinCandles() int { return d.cfg.MinCandles }

// Detect implements Detector
func (d *MACDMomentum) Detect(symbol, timeframe string, candles []types.OHLCV) (*Signal, error) {
	if len(candles) < d.cfg.MinCandles {
		return nil, nil
	}
	s := d.macd.Calculate(types.Closes(candles))
	n := len(candles) - 1
	h0, h1, h2 := s.Hist[n], s.Hist[n-1], s.Hist[n-2]
	if anyNaN(h0, h1, h2, s.DIF[n], s.DIF[n-1], s.DEA[n], s.DEA[n-1]) {
		return nil, nil
	}

	var direction string
	switch {
	case h0 > h1 && h1 > h2 && s.DIF[n] > s.DIF[n-1] && s.DEA[n] > s.DEA[n-1]:
		direction = DirectionBullish
	case h0 < h1 && h1 < h2 && s.DIF[n] < s.DIF[n-1] && s.DEA[n] < s.DEA[n-1]:
		direction = DirectionBearish
	default:
		return nil, nil
	}

	current := candles[n]
	return &Signal{
		Detector:     MomentumName,
		Symbol:       symbol,
		Timeframe:    timeframe,
		Direction:    direction,
		Price:        current.Close,
		CandleOpenMs: current.OpenTimeMs(),
		Reasons:      []string{"MACD histogram, DIF and DEA moved together for three bars"},
		Metrics:      macdMetrics(s, n, current.Close),
	}, nil
}

func macdMetrics(s indicators.MACDSeries, i int, price float64) map[string]float64 {
	return map[string]float64{
		"macd_dif":  s.DIF[i],
		"macd_dea":  s.DEA[i],
		"macd_hist": s.Hist[i],
		"close":     price,
	}
}

func anyNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
