package reporting

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ducminhle1904/crypto-signal-bot/internal/backtest"
)

// DefaultOutputDir is results/SYMBOL_timeframe
func DefaultOutputDir(symbol, timeframe string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	tf := strings.ToLower(strings.TrimSpace(timeframe))
	if s == "" {
		s = "UNKNOWN"
	}
	if tf == "" {
		tf = "unknown"
	}
	return filepath.Join("results", fmt.Sprintf("%s_%s", s, tf))
}

// OutputConsole prints results with the default console reporter
func OutputConsole(w io.Writer, results *backtest.BacktestResults) {
	NewDefaultConsoleReporter().OutputResults(w, results)
}

// WriteTradesCSV writes trades with the default CSV reporter
func WriteTradesCSV(results *backtest.BacktestResults, path string) error {
	return NewDefaultCSVReporter().WriteTradesCSV(results, path)
}

// WriteTradesXLSX writes the workbook with the default Excel reporter
func WriteTradesXLSX(results *backtest.BacktestResults, path string) error {
	return NewDefaultExcelReporter().WriteTradesXLSX(results, path)
}
