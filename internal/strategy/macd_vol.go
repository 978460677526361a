package strategy

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/crypto-signal-bot/internal/indicators"
	"github.com/ducminhle1904/crypto-signal-bot/pkg/types"
)

// MACDVolName is the registry name of the MACD momentum plus volatility detector
const MACDVolName = "macd_vol"

// macd trend lookback and the run length that counts as momentum
const (
	trendLookback  = 3
	minTrendRun    = 2
	volumeRecent   = 3
	volumeBaseline = 20
)

// MACDVolConfig holds the MACD-vol detector parameters
type MACDVolConfig struct {
	FastPeriod   int     `json:"fast_period"`
	SlowPeriod   int     `json:"slow_period"`
	SignalPeriod int     `json:"signal_period"`
	ATRPeriod    int     `json:"atr_period"`
	LowQuantile  float64 `json:"low_quantile"`
	HighQuantile float64 `json:"high_quantile"`
	MinCandles   int     `json:"min_candles"`
}

// DefaultMACDVolConfig returns 12/26/9 MACD with ATR(14) and a 0.2-0.8
// quantile band
func DefaultMACDVolConfig() MACDVolConfig {
	return MACDVolConfig{
		FastPeriod:   12,
		SlowPeriod:   26,
		SignalPeriod: 9,
		ATRPeriod:    14,
		LowQuantile:  0.2,
		HighQuantile: 0.8,
		MinCandles:   50,
	}
}

// Validate checks periods and the quantile band
func (c MACDVolConfig) Validate() error {
	if c.FastPeriod <= 0 || c.SlowPeriod <= c.FastPeriod || c.SignalPeriod <= 0 {
		return invalidParam(MACDVolName, "macd periods %d/%d/%d are invalid", c.FastPeriod, c.SlowPeriod, c.SignalPeriod)
	}
	if c.ATRPeriod <= 0 {
		return invalidParam(MACDVolName, "atr_period must be positive, got %d", c.ATRPeriod)
	}
	if c.LowQuantile < 0 || c.HighQuantile > 1 || c.LowQuantile >= c.HighQuantile {
		return invalidParam(MACDVolName, "quantile band [%.2f, %.2f] is invalid", c.LowQuantile, c.HighQuantile)
	}
	if c.MinCandles < trendLookback {
		return invalidParam(MACDVolName, "min_candles must be at least %d", trendLookback)
	}
	return nil
}

// MACDVol fires when the MACD histogram has moved the same way for at
// least two bars while ATR sits inside its normal quantile band. It reads
// the latest, still forming, candle.
type MACDVol struct {
	cfg  MACDVolConfig
	macd *indicators.MACD
}

// NewMACDVol creates the detector
func NewMACDVol(cfg MACDVolConfig) (*MACDVol, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &MACDVol{
		cfg:  cfg,
		macd: indicators.NewMACD(cfg.FastPeriod, cfg.SlowPeriod, cfg.SignalPeriod),
	}, nil
}

// Name returns the detector name
func (d *MACDVol) Name() string { return MACDVolName }

// MinCandles returns the configured minimum history
func (d *MACDVol) MinCandles() int { return d.cfg.MinCandles }

// Directions returns the BUY/SELL labels of this detector
func (d *MACDVol) Directions() []string { return []string{DirectionBuy, DirectionSell} }

// volatilityState is where the current ATR sits within its history
type volatilityState string

const (
	volatilityLow    volatilityState = "low"
	volatilityNormal volatilityState = "normal"
	volatilityHigh   volatilityState = "high"
)

func (d *MACDVol) volatility(q float64) volatilityState {
	switch {
	case q < d.cfg.LowQuantile:
		return volatilityLow
	case q > d.cfg.HighQuantile:
		return volatilityHigh
	default:
		return volatilityNormal
	}
}

// Detect implements Detector
func (d *MACDVol) Detect(symbol, timeframe string, candles []types.OHLCV) (*Signal, error) {
	if len(candles) < d.cfg.MinCandles {
		return nil, nil
	}

	series := d.macd.Calculate(types.Closes(candles))
	atr := indicators.ATR(candles, d.cfg.ATRPeriod)
	atrPct := indicators.ATRPercent(atr, candles)
	quantile := indicators.ATRQuantile(atr, d.cfg.ATRPeriod)

	n := len(candles) - 1
	current := candles[n]
	hist, delta, q := series.Hist[n], series.HistDelta[n], quantile[n]
	if math.IsNaN(hist) || math.IsNaN(q) {
		return nil, nil
	}

	run := indicators.ConsecutiveTrend(series.Hist[n-trendLookback+1:])
	difRising := series.DIF[n]-series.DIF[n-1] > 0
	deaRising := series.DEA[n]-series.DEA[n-1] > 0
	inBand := d.cfg.LowQuantile <= q && q <= d.cfg.HighQuantile

	var direction string
	var reasons []string
	switch {
	case run <= -minTrendRun && (hist < 0 || delta < 0) && inBand:
		direction = DirectionSell
		reasons = append(reasons, fmt.Sprintf("MACD histogram fell for %d bars, momentum weakening", -run))
		if hist < 0 {
			reasons = append(reasons, "histogram turned negative, bearish momentum building")
		}
		if !difRising && !deaRising {
			reasons = append(reasons, "DIF and DEA both falling, trend in agreement")
		}
	case run >= minTrendRun && (hist > 0 || delta > 0) && inBand:
		direction = DirectionBuy
		reasons = append(reasons, fmt.Sprintf("MACD histogram rose for %d bars, momentum strengthening", run))
		if hist > 0 {
			reasons = append(reasons, "histogram turned positive, bullish momentum building")
		}
		if difRising && deaRising {
			reasons = append(reasons, "DIF and DEA both rising, trend in agreement")
		}
	default:
		return nil, nil
	}

	aligned := (direction == DirectionSell && !difRising && !deaRising) ||
		(direction == DirectionBuy && difRising && deaRising)
	position := RangePosition(candles, keyLevelLookback)
	confidence := d.confidence(candles, run, aligned, q, position, direction)
	risk := riskFromQuantile(q)

	switch d.volatility(q) {
	case volatilityHigh:
		reasons = append(reasons, fmt.Sprintf("volatility elevated (%.2f), pullback risk rising", q))
	case volatilityNormal:
		reasons = append(reasons, fmt.Sprintf("volatility moderate (%.2f), market healthy", q))
	}

	return &Signal{
		Detector:     MACDVolName,
		Symbol:       symbol,
		Timeframe:    timeframe,
		Direction:    direction,
		Price:        current.Close,
		CandleOpenMs: current.OpenTimeMs(),
		Levels:       directionalLevels(candles, direction, current.Close),
		Confidence:   confidence,
		Risk:         risk,
		Suggestion:   suggest(confidence, risk, direction),
		Reasons:      reasons,
		Metrics: map[string]float64{
			"macd_hist":    hist,
			"macd_dif":     series.DIF[n],
			"macd_dea":     series.DEA[n],
			"atr":          atr[n],
			"atr_pct":      atrPct[n],
			"atr_quantile": q,
			"volume":       current.Volume,
		},
	}, nil
}

// confidence weights MACD consistency 0.3, volatility health 0.3, range
// position 0.2 and volume 0.2, rounded to two decimals
func (d *MACDVol) confidence(candles []types.OHLCV, run int, aligned bool, q, position float64, direction string) float64 {
	score := 0.0

	if run != 0 {
		macdScore := math.Min(math.Abs(float64(run))/5, 1)
		if aligned {
			macdScore *= 1.2
		}
		score += math.Min(macdScore, 1) * 0.3
	}

	volScore := 1.0
	switch d.volatility(q) {
	case volatilityLow:
		volScore = q / d.cfg.LowQuantile
	case volatilityHigh:
		volScore = (1 - q) / (1 - d.cfg.HighQuantile)
	}
	score += volScore * 0.3

	if direction == DirectionSell {
		score += position * 0.2
	} else {
		score += (1 - position) * 0.2
	}

	volumes := types.Volumes(candles)
	recent := mean(volumes[len(volumes)-min(volumeRecent, len(volumes)):])
	baseline := mean(volumes[len(volumes)-min(volumeBaseline, len(volumes)):])
	volumeScore := 0.5
	if baseline > 0 {
		volumeScore = math.Min(recent/baseline/1.5, 1)
	}
	score += volumeScore * 0.2

	return math.Round(score*100) / 100
}

func riskFromQuantile(q float64) RiskLevel {
	switch {
	case q > 0.8:
		return RiskHigh
	case q < 0.3:
		return RiskLow
	default:
		return RiskMid
	}
}

// suggest only follows the direction with a confident, non-high-risk signal
func suggest(confidence float64, risk RiskLevel, direction string) string {
	if risk == RiskHigh || confidence < 0.4 {
		return SuggestionWatch
	}
	if confidence >= 0.6 {
		return direction
	}
	return SuggestionWatch
}

func mean(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
