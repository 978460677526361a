package reporting

import (
	"io"

	"github.com/ducminhle1904/crypto-signal-bot/internal/backtest"
)

// ConsoleReporter prints results for a terminal
type ConsoleReporter interface {
	OutputResults(w io.Writer, results *backtest.BacktestResults)
}

// FileReporter writes results to disk
type FileReporter interface {
	WriteTradesCSV(results *backtest.BacktestResults, path string) error
	WriteTradesXLSX(results *backtest.BacktestResults, path string) error
}

// ExcelStyles holds the workbook style ids
type ExcelStyles struct {
	HeaderStyle   int
	CurrencyStyle int
	PercentStyle  int
	NumberStyle   int
	DateStyle     int
	ProfitStyle   int
	LossStyle     int
	LabelStyle    int
}
