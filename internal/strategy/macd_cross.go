package strategy

import (
	"github.com/ducminhle1904/crypto-signal-bot/internal/indicators"
	"github.com/ducminhle1904/crypto-signal-bot/pkg/types"
)

// CrossName is the registry name of the histogram zero-cross detector
const CrossName = "macd_cross"

// MACDCross fires when the histogram of the last closed candle crosses
// zero against the candle before it
type MACDCross struct {
	cfg  MACDConfig
	macd *indicators.MACD
}

// NewMACDCross creates the detector
func NewMACDCross(cfg MACDConfig) (*MACDCross, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &MACDCross{cfg: cfg, macd: indicators.NewMACD(cfg.FastPeriod, cfg.SlowPeriod, cfg.SignalPeriod)}, nil
}

// Name returns the detector name
func (d *MACDCross) Name() string { return CrossName }

// MinCandles returns the configured minimum history
func (d *MACDCross) MinCandles() int { return d.cfg.MinCandles }

// Detect implements Detector
func (d *MACDCross) Detect(symbol, timeframe string, candles []types.OHLCV) (*Signal, error) {
	if len(candles) < d.cfg.MinCandles {
		return nil, nil
	}
	s := d.macd.Calculate(types.Closes(candles))
	i := len(candles) - 2
	cur, prev := s.Hist[i], s.Hist[i-1]
	if anyNaN(cur, prev) {
		return nil, nil
	}

	var direction, reason string
	switch {
	case prev > 0 && cur <= 0:
		direction, reason = DirectionBearish, "MACD histogram crossed below zero"
	case prev < 0 && cur >= 0:
		direction, reason = DirectionBullish, "MACD histogram crossed above zero"
	default:
		return nil, nil
	}

	closed := candles[i]
	metrics := macdMetrics(s, i, closed.Close)
	metrics["prev_macd_hist"] = prev
	return &Signal{
		Detector:     CrossName,
		Symbol:       symbol,
		Timeframe:    timeframe,
		Direction:    direction,
		Price:        closed.Close,
		CandleOpenMs: closed.OpenTimeMs(),
		Reasons:      []string{reason},
		Metrics:      metrics,
	}, nil
}
