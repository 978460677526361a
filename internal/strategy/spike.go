package strategy

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/crypto-signal-bot/internal/dedup"
	"github.com/ducminhle1904/crypto-signal-bot/internal/indicators"
	"github.com/ducminhle1904/crypto-signal-bot/pkg/types"
)

// SpikeName is the registry name of the pin-bar detector
const SpikeName = "spike"

// zero bodies are replaced so shadow ratios stay finite
const minBody = 1e-8

// SpikeConfig holds the pin-bar filters
type SpikeConfig struct {
	ATRPeriod        int     `json:"atr_period"`
	ShadowRatio      float64 `json:"shadow_ratio"`
	ATRRatio         float64 `json:"atr_ratio"`
	ATRMultiplier    float64 `json:"atr_multiplier"`
	RangeZThreshold  float64 `json:"range_z_threshold"`
	VolumeZThreshold float64 `json:"volume_z_threshold"`
	VolumeMultiplier float64 `json:"volume_multiplier"`
	ZWindow          int     `json:"z_window"`
}

// DefaultSpikeConfig returns the production filter set
func DefaultSpikeConfig() SpikeConfig {
	return SpikeConfig{
		ATRPeriod:        14,
		ShadowRatio:      2.0,
		ATRRatio:         1.1,
		ATRMultiplier:    2.0,
		RangeZThreshold:  0,
		VolumeZThreshold: 0.5,
		VolumeMultiplier: 2.0,
		ZWindow:          120,
	}
}

// Validate checks the filter parameters
func (c SpikeConfig) Validate() error {
	if c.ATRPeriod <= 0 {
		return invalidParam(SpikeName, "atr_period must be positive, got %d", c.ATRPeriod)
	}
	if c.ShadowRatio <= 0 {
		return invalidParam(SpikeName, "shadow_ratio must be positive, got %.2f", c.ShadowRatio)
	}
	if c.ZWindow < 2 {
		return invalidParam(SpikeName, "z_window must be at least 2, got %d", c.ZWindow)
	}
	return nil
}

// SpikeFeatures is the candle anatomy and context the filters read
type SpikeFeatures struct {
	Range        float64
	Body         float64
	UpperShadow  float64
	LowerShadow  float64
	ATR          float64
	RangeZ       float64
	VolumeZ      float64
	VolumeMedian float64
}

// SpikeMatch is a candle that passed every filter
type SpikeMatch struct {
	Direction  string
	Shadow     float64
	RangeRatio float64
}

// Spike detects pin bars: a dominant shadow at least ShadowRatio times the
// body on a candle whose range is extreme against ATR and its own history,
// with expanding volume. It reads the last closed candle.
type Spike struct {
	cfg SpikeConfig
}

// NewSpike creates the detector
func NewSpike(cfg SpikeConfig) (*Spike, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Spike{cfg: cfg}, nil
}

// Name returns the detector name
func (d *Spike) Name() string { return SpikeName }

// MinCandles is the ATR period plus a few bars of slack
func (d *Spike) MinCandles() int { return d.cfg.ATRPeriod + 5 }

// Config returns the filter parameters
func (d *Spike) Config() SpikeConfig { return d.cfg }

// Features computes SpikeFeatures for every candle
func (d *Spike) Features(candles []types.OHLCV) []SpikeFeatures {
	ranges := make([]float64, len(candles))
	for i, c := range candles {
		ranges[i] = c.Range()
	}
	volumes := types.Volumes(candles)

	atr := indicators.ATR(candles, d.cfg.ATRPeriod)
	rangeZ := indicators.RollingZScore(ranges, d.cfg.ZWindow)
	volumeZ := indicators.RollingZScore(volumes, d.cfg.ZWindow)
	volumeMed := indicators.RollingMedian(volumes, d.cfg.ZWindow)

	out := make([]SpikeFeatures, len(candles))
	for i, c := range candles {
		body := math.Abs(c.Close - c.Open)
		if body == 0 {
			body = minBody
		}
		out[i] = SpikeFeatures{
			Range:        ranges[i],
			Body:         body,
			UpperShadow:  c.High - math.Max(c.Open, c.Close),
			LowerShadow:  math.Min(c.Open, c.Close) - c.Low,
			ATR:          atr[i],
			RangeZ:       rangeZ[i],
			VolumeZ:      volumeZ[i],
			VolumeMedian: volumeMed[i],
		}
	}
	return out
}

// Match applies the filters to one candle. A z-score or median that is
// still NaN for lack of history does not reject the candle.
func (d *Spike) Match(c types.OHLCV, f SpikeFeatures) (SpikeMatch, bool) {
	if math.IsNaN(f.ATR) || f.ATR == 0 {
		return SpikeMatch{}, false
	}

	m := SpikeMatch{RangeRatio: f.Range / f.ATR}
	switch {
	case f.LowerShadow >= d.cfg.ShadowRatio*f.Body:
		m.Direction, m.Shadow = DirectionBullish, f.LowerShadow
	case f.UpperShadow >= d.cfg.ShadowRatio*f.Body:
		m.Direction, m.Shadow = DirectionBearish, f.UpperShadow
	default:
		return SpikeMatch{}, false
	}

	if m.RangeRatio < d.cfg.ATRRatio || f.RangeZ < d.cfg.RangeZThreshold {
		return SpikeMatch{}, false
	}
	if f.VolumeZ < d.cfg.VolumeZThreshold {
		return SpikeMatch{}, false
	}
	if m.RangeRatio < d.cfg.ATRMultiplier {
		return SpikeMatch{}, false
	}
	if f.VolumeMedian > 0 && c.Volume < f.VolumeMedian*d.cfg.VolumeMultiplier {
		return SpikeMatch{}, false
	}
	return m, true
}

// Detect implements Detector
func (d *Spike) Detect(symbol, timeframe string, candles []types.OHLCV) (*Signal, error) {
	if len(candles) < d.MinCandles() {
		return nil, nil
	}

	features := d.Features(candles)
	i := len(candles) - 2
	last, prev := candles[i], candles[i-1]
	f := features[i]

	m, ok := d.Match(last, f)
	if !ok {
		return nil, nil
	}

	reasons := []string{
		fmt.Sprintf("range %.4f is %.2fx ATR(%d)", f.Range, m.RangeRatio, d.cfg.ATRPeriod),
	}
	bodyLow, bodyHigh := math.Min(prev.Open, prev.Close), math.Max(prev.Open, prev.Close)
	if bodyLow <= last.Close && last.Close <= bodyHigh {
		reasons = append(reasons, "close returned inside the previous body, reversal more likely")
	}
	reasons = append(reasons, "dominant shadow with volume expansion and ATR filter")

	levels := dedup.KeyLevels{Support: []float64{last.Low}, Resistance: []float64{last.High}}
	if m.Direction == DirectionBullish {
		levels.Invalid = last.Low
	} else {
		levels.Invalid = last.High
	}

	volumeRatio := math.NaN()
	if f.VolumeMedian > 0 {
		volumeRatio = last.Volume / f.VolumeMedian
	}

	return &Signal{
		Detector:     SpikeName,
		Symbol:       symbol,
		Timeframe:    timeframe,
		Direction:    m.Direction,
		Price:        last.Close,
		CandleOpenMs: last.OpenTimeMs(),
		Levels:       levels,
		Reasons:      reasons,
		Metrics: map[string]float64{
			"open":         last.Open,
			"high":         last.High,
			"low":          last.Low,
			"close":        last.Close,
			"volume":       last.Volume,
			"range":        f.Range,
			"body":         f.Body,
			"shadow":       m.Shadow,
			"atr":          f.ATR,
			"range_ratio":  m.RangeRatio,
			"range_z":      f.RangeZ,
			"volume_z":     f.VolumeZ,
			"volume_ratio": volumeRatio,
		},
	}, nil
}
