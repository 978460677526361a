package data

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ducminhle1904/crypto-signal-bot/pkg/types"
)

var csvHeader = []string{"timestamp", "open", "high", "low", "close", "volume"}

// WriteCSV writes candles in DefaultCSVFormat, timestamps in UTC
func WriteCSV(w io.Writer, candles []types.OHLCV) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, c := range candles {
		if err := cw.Write([]string{
			c.Timestamp.UTC().Format(DefaultCSVFormat.DateFormat),
			formatFloat(c.Open),
			formatFloat(c.High),
			formatFloat(c.Low),
			formatFloat(c.Close),
			formatFloat(c.Volume),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes candles to path, creating its directory
func SaveCSV(path string, candles []types.OHLCV) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, candles); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// DataPath is where FindDataFile looks first for a category
func DataPath(dataRoot, exchange, category, symbol, timeframe string) string {
	return filepath.Join(dataRoot, exchange, category, symbol, IntervalMinutes(timeframe), "candles.csv")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
