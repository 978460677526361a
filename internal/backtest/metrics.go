package backtest

import (
	"fmt"
	"math"
)

// UpdateMetrics recomputes the summary from Trades
func (b *BacktestResults) UpdateMetrics() {
	b.TotalTrades = len(b.Trades)
	b.WinningTrades, b.LosingTrades = 0, 0
	b.TotalPnL = 0
	for _, t := range b.Trades {
		b.TotalPnL += t.PnL
		if t.PnL > 0 {
			b.WinningTrades++
		} else {
			b.LosingTrades++
		}
	}

	b.WinRate = b.CalculateWinRate()
	b.ROI = 0
	if b.StartBalance > 0 {
		b.ROI = b.TotalPnL / b.StartBalance * 100
	}
	b.ProfitFactor = b.CalculateProfitFactor()
	b.MaxDrawdown = b.CalculateMaxDrawdown()
}

// CalculateWinRate is the percentage of trades with a positive PnL
func (b *BacktestResults) CalculateWinRate() float64 {
	if len(b.Trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range b.Trades {
		if t.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(b.Trades)) * 100
}

// CalculateProfitFactor is the average win over the absolute average
// loss. Breakeven trades count as losses; no losses gives 0.
func (b *BacktestResults) CalculateProfitFactor() float64 {
	var winSum, lossSum float64
	var wins, losses int
	for _, t := range b.Trades {
		if t.PnL > 0 {
			winSum += t.PnL
			wins++
		} else {
			lossSum += t.PnL
			losses++
		}
	}

	avgWin := 0.0
	if wins > 0 {
		avgWin = winSum / float64(wins)
	}
	avgLoss := 0.0
	if losses > 0 {
		avgLoss = math.Abs(lossSum / float64(losses))
	}
	if avgLoss == 0 {
		return 0
	}
	return avgWin / avgLoss
}

// CalculateMaxDrawdown is the largest fall from a running peak of the
// post-trade balance, in percent
func (b *BacktestResults) CalculateMaxDrawdown() float64 {
	peak, maxDD := 0.0, 0.0
	for i, t := range b.Trades {
		if i == 0 || t.Balance > peak {
			peak = t.Balance
		}
		if peak > 0 {
			if dd := (peak - t.Balance) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD * 100
}

// Summary renders the plain text report
func (b *BacktestResults) Summary() string {
	if b.TotalTrades == 0 {
		return "no trades"
	}
	return fmt.Sprintf("Trades: %d\nWin rate: %.2f%%\nTotal PnL: %.2f U (%.2f%%)\nMax drawdown: %.2f%%\nAvg win/loss: %.2f\nFinal balance: %.2f U",
		b.TotalTrades, b.WinRate, b.TotalPnL, b.ROI, b.MaxDrawdown, b.ProfitFactor, b.EndBalance)
}
