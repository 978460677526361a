package bot

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ducminhle1904/crypto-signal-bot/internal/candle"
	"github.com/ducminhle1904/crypto-signal-bot/internal/dedup"
	"github.com/ducminhle1904/crypto-signal-bot/internal/strategy"
)

const (
	timeLayout = "2006-01-02 15:04:05 MST"
	disclaimer = "⚠️ For research only, not investment advice"
)

// FormatSignal renders a signal for the notifier. now is the local time of
// the round.
func FormatSignal(sig *strategy.Signal, now time.Time) string {
	switch sig.Detector {
	case strategy.SpikeName:
		return formatSpike(sig, now.Location())
	case strategy.MomentumName, strategy.CrossName:
		return formatMACD(sig, now)
	default:
		return formatScored(sig, now)
	}
}

func isDownside(direction string) bool {
	return direction == strategy.DirectionSell || direction == strategy.DirectionBearish
}

func directionEmoji(direction string) string {
	if isDownside(direction) {
		return "🔴"
	}
	return "🟢"
}

// formatScored renders confidence-rated signals with reasons and levels
func formatScored(sig *strategy.Signal, now time.Time) string {
	side := "LONG signal"
	if isDownside(sig.Direction) {
		side = "SHORT signal"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[Signal] %s %s %s %s\n", sig.Symbol, sig.Timeframe, directionEmoji(sig.Direction), side)
	fmt.Fprintf(&sb, "Price: %.4f\n", sig.Price)
	fmt.Fprintf(&sb, "Time: %s\n\n", now.Format(timeLayout))

	fmt.Fprintf(&sb, "Confidence: %.0f%%\n", sig.Confidence*100)
	fmt.Fprintf(&sb, "Risk: %s\n", sig.Risk)
	fmt.Fprintf(&sb, "Suggestion: %s\n", sig.Suggestion)

	if len(sig.Reasons) > 0 {
		sb.WriteString("\nReasons:\n")
		for i, r := range sig.Reasons {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, r)
		}
	}

	if !sig.Levels.Empty() {
		sb.WriteString("\nKey levels:\n")
		if len(sig.Levels.Support) > 0 {
			fmt.Fprintf(&sb, "- Support: %s\n", joinLevels(sig.Levels.Support))
		}
		if len(sig.Levels.Resistance) > 0 {
			fmt.Fprintf(&sb, "- Resistance: %s\n", joinLevels(sig.Levels.Resistance))
		}
		if sig.Levels.Invalid > 0 {
			fmt.Fprintf(&sb, "- Invalid: %.4f\n", sig.Levels.Invalid)
		}
	}

	if _, ok := sig.Metrics["macd_hist"]; ok {
		sb.WriteString("\nIndicators:\n")
		fmt.Fprintf(&sb, "- MACD hist: %.4f\n", sig.Metric("macd_hist"))
		fmt.Fprintf(&sb, "- DIF: %.4f\n", sig.Metric("macd_dif"))
		fmt.Fprintf(&sb, "- DEA: %.4f\n", sig.Metric("macd_dea"))
		fmt.Fprintf(&sb, "- ATR: %.4f (%.2f%%)\n", sig.Metric("atr"), sig.Metric("atr_pct"))
		fmt.Fprintf(&sb, "- ATR quantile: %.2f\n", sig.Metric("atr_quantile"))
	}

	sb.WriteString("\n" + disclaimer)
	return sb.String()
}

// formatSpike renders a pin bar with its anatomy. The time shown is the
// close of the spike candle.
func formatSpike(sig *strategy.Signal, loc *time.Location) string {
	arrow := "bullish reversal ↑ (lower wick)"
	if isDownside(sig.Direction) {
		arrow = "bearish reversal ↓ (upper wick)"
	}

	closeAt := time.UnixMilli(sig.CandleOpenMs).In(loc)
	if d, err := candle.Duration(sig.Timeframe); err == nil {
		closeAt = closeAt.Add(d)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[Spike] %s %s %s\n", sig.Symbol, sig.Timeframe, arrow)
	fmt.Fprintf(&sb, "Candle close: %s\n", closeAt.Format(timeLayout))
	fmt.Fprintf(&sb, "O/H/L/C: %.4f / %.4f / %.4f / %.4f\n",
		sig.Metric("open"), sig.Metric("high"), sig.Metric("low"), sig.Metric("close"))
	fmt.Fprintf(&sb, "Range: %.2f  ATR: %.2f  range_z: %s\n",
		sig.Metric("range"), sig.Metric("atr"), formatOptional(sig.Metric("range_z")))
	fmt.Fprintf(&sb, "Shadow: %.2f vs body %.2f\n", sig.Metric("shadow"), sig.Metric("body"))
	fmt.Fprintf(&sb, "Volume: %.0f  z=%s  xMed=%s\n",
		sig.Metric("volume"), formatOptional(sig.Metric("volume_z")), formatOptional(sig.Metric("volume_ratio")))

	if len(sig.Reasons) > 0 {
		sb.WriteString("\n📎 Reversal check\n")
		for _, r := range sig.Reasons {
			fmt.Fprintf(&sb, "· %s\n", r)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// formatMACD renders the short MACD alerts, listing agreeing timeframes
// for consensus signals
func formatMACD(sig *strategy.Signal, now time.Time) string {
	side := "🟢 bullish (up)"
	if isDownside(sig.Direction) {
		side = "🔴 bearish (down)"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[MACD] %s %s\n", sig.Symbol, side)
	fmt.Fprintf(&sb, "Time: %s\n", now.Format(timeLayout))
	fmt.Fprintf(&sb, "Close: %.4f  DIF=%.4f  DEA=%.4f  hist=%.4f\n",
		sig.Price, sig.Metric("macd_dif"), sig.Metric("macd_dea"), sig.Metric("macd_hist"))

	if len(sig.Timeframes) > 1 {
		fmt.Fprintf(&sb, "\nAll %d timeframes (%s) agree", len(sig.Timeframes), strings.Join(sig.Timeframes, ", "))
	} else {
		fmt.Fprintf(&sb, "\nTimeframe: %s", sig.Timeframe)
	}
	return sb.String()
}

// FormatOverride renders a key level crossing that reopened a cooling key
func FormatOverride(sig *strategy.Signal, event *dedup.TriggerEvent, now time.Time) string {
	side := "BUY"
	if isDownside(sig.Direction) {
		side = "SELL"
	}

	title := "🚨 Key level reached"
	action := fmt.Sprintf("earlier %s view further confirmed", side)
	if event.Kind == dedup.InvalidBreak {
		title = "⚠️ Signal invalidated"
		action = fmt.Sprintf("earlier %s view no longer holds", side)
	}

	lines := []string{
		title,
		fmt.Sprintf("%s %s %s %s", sig.Symbol, sig.Timeframe, directionEmoji(sig.Direction), side),
		"",
		event.Message,
		action,
		"",
		fmt.Sprintf("Price: %.4f", event.Price),
		fmt.Sprintf("Time: %s", now.Format(timeLayout)),
	}
	if sig.Risk != "" {
		lines = append(lines, fmt.Sprintf("Risk: %s", sig.Risk))
	}
	lines = append(lines, "", disclaimer)
	return strings.Join(lines, "\n")
}

func joinLevels(levels []float64) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = fmt.Sprintf("%.4f", l)
	}
	return strings.Join(parts, ", ")
}

// formatOptional shows n/a for values that lacked history
func formatOptional(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
