package reporting

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/crypto-signal-bot/internal/backtest"
)

const consoleTimeLayout = "2006-01-02 15:04"

// DefaultConsoleReporter renders results as go-pretty tables
type DefaultConsoleReporter struct {
	// MaxTrades caps the trade table, 0 prints every trade
	MaxTrades int
}

// NewDefaultConsoleReporter creates a console reporter showing the last 20
// trades
func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return &DefaultConsoleReporter{MaxTrades: 20}
}

// OutputResults prints the summary and the most recent trades
func (r *DefaultConsoleReporter) OutputResults(w io.Writer, results *backtest.BacktestResults) {
	r.printSummary(w, results)
	if len(results.Trades) > 0 {
		r.printTrades(w, results)
	}
}

func (r *DefaultConsoleReporter) printSummary(w io.Writer, results *backtest.BacktestResults) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("BACKTEST %s %s", results.Symbol, results.Timeframe))
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🕯️ Candles", results.Candles},
		{"💰 Initial Balance", fmt.Sprintf("%.2f U", results.StartBalance)},
		{"💰 Final Balance", fmt.Sprintf("%.2f U", results.EndBalance)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"🔄 Trades", results.TotalTrades},
		{"✅ Win Rate", fmt.Sprintf("%.2f%% (%d/%d)", results.WinRate, results.WinningTrades, results.TotalTrades)},
		{"📈 Total PnL", fmt.Sprintf("%.2f U (%.2f%%)", results.TotalPnL, results.ROI)},
		{"📉 Max Drawdown", fmt.Sprintf("%.2f%%", results.MaxDrawdown)},
		{"💹 Avg Win/Loss", fmt.Sprintf("%.2f", results.ProfitFactor)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 40, Align: text.AlignRight},
	})
	t.Render()
	fmt.Fprintln(w)
}

func (r *DefaultConsoleReporter) printTrades(w io.Writer, results *backtest.BacktestResults) {
	trades := results.Trades
	title := "TRADES"
	if r.MaxTrades > 0 && len(trades) > r.MaxTrades {
		trades = trades[len(trades)-r.MaxTrades:]
		title = fmt.Sprintf("LAST %d OF %d TRADES", r.MaxTrades, len(results.Trades))
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Entry", "Exit", "Side", "Entry Px", "Exit Px", "Size", "PnL", "Reason", "Balance"})

	for _, tr := range trades {
		pnl := fmt.Sprintf("%.2f", tr.PnL)
		if tr.PnL > 0 {
			pnl = text.FgGreen.Sprint(pnl)
		} else {
			pnl = text.FgRed.Sprint(pnl)
		}
		t.AppendRow(table.Row{
			tr.EntryTime.Format(consoleTimeLayout),
			tr.ExitTime.Format(consoleTimeLayout),
			tr.Side,
			fmt.Sprintf("%.4f", tr.EntryPrice),
			fmt.Sprintf("%.4f", tr.ExitPrice),
			fmt.Sprintf("%.4f", tr.Size),
			pnl,
			tr.Reason,
			fmt.Sprintf("%.2f", tr.Balance),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 9, Align: text.AlignRight},
	})
	t.Render()
	fmt.Fprintln(w)
}
