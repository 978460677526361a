package data

import (
	"github.com/ducminhle1904/crypto-signal-bot/pkg/types"
)

// DataProvider loads historical candles from a source
type DataProvider interface {
	// LoadData loads candles from the specified source
	LoadData(source string) ([]types.OHLCV, error)

	// ValidateData validates the integrity of the loaded data
	ValidateData(data []types.OHLCV) error

	// GetName returns the name of the data provider
	GetName() string
}

// TimestampUnixMs as a DateFormat reads the timestamp column as unix
// milliseconds, the way Bybit kline exports store it.
const TimestampUnixMs = "unix_ms"

// CSVColumnMapping defines the column positions for different CSV formats
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
	DateFormat   string
}

// Predefined CSV formats
var (
	DefaultCSVFormat = CSVColumnMapping{
		TimestampCol: 0,
		OpenCol:      1,
		HighCol:      2,
		LowCol:       3,
		CloseCol:     4,
		VolumeCol:    5,
		MinColumns:   6,
		DateFormat:   "2006-01-02 15:04:05",
	}

	BybitCSVFormat = CSVColumnMapping{
		TimestampCol: 0,
		OpenCol:      1,
		HighCol:      2,
		LowCol:       3,
		CloseCol:     4,
		VolumeCol:    5,
		MinColumns:   6,
		DateFormat:   TimestampUnixMs,
	}
)

// FileLocator finds candle files on disk
type FileLocator interface {
	// FindDataFile locates the candle file for an exchange, symbol and timeframe
	FindDataFile(dataRoot, exchange, symbol, timeframe string) string
}
