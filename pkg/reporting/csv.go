package reporting

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ducminhle1904/crypto-signal-bot/internal/backtest"
)

const csvTimeLayout = "2006-01-02 15:04:05"

// DefaultCSVReporter writes one row per trade
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

// WriteTradesCSV writes trades to path. An .xlsx path is written as a
// workbook instead.
func (r *DefaultCSVReporter) WriteTradesCSV(results *backtest.BacktestResults, path string) error {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return NewDefaultExcelReporter().WriteTradesXLSX(results, path)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(tradeHeaders); err != nil {
		return err
	}
	for _, t := range results.Trades {
		if err := w.Write([]string{
			t.ID,
			string(t.Side),
			t.EntryTime.UTC().Format(csvTimeLayout),
			t.ExitTime.UTC().Format(csvTimeLayout),
			price(t.EntryPrice),
			price(t.ExitPrice),
			price(t.StopLoss),
			price(t.TakeProfit),
			price(t.Size),
			money(t.Commission),
			money(t.PnL),
			money(t.Balance),
			string(t.Reason),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func price(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

func money(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
