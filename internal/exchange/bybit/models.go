package bybit

import (
	"fmt"
	"strconv"
	"time"
)

// Kline is one candlestick as returned by /v5/market/kline
type Kline struct {
	StartTime  time.Time
	OpenPrice  float64
	HighPrice  float64
	LowPrice   float64
	ClosePrice float64
	Volume     float64
	Turnover   float64
}

// klineResult is the result object of a kline response. Each list item is
// [startTime, open, high, low, close, volume, turnover], newest first.
type klineResult struct {
	Symbol   string     `json:"symbol"`
	Category string     `json:"category"`
	List     [][]string `json:"list"`
}

func parseKlineRow(item []string) (Kline, error) {
	if len(item) < 7 {
		return Kline{}, fmt.Errorf("kline row has %d fields, want 7", len(item))
	}
	start, err := parseInt64(item[0])
	if err != nil {
		return Kline{}, fmt.Errorf("kline start %q: %w", item[0], err)
	}

	var values [6]float64
	for i := range values {
		if values[i], err = parseFloat64(item[i+1]); err != nil {
			return Kline{}, fmt.Errorf("kline field %d %q: %w", i+1, item[i+1], err)
		}
	}

	return Kline{
		StartTime:  time.UnixMilli(start).UTC(),
		OpenPrice:  values[0],
		HighPrice:  values[1],
		LowPrice:   values[2],
		ClosePrice: values[3],
		Volume:     values[4],
		Turnover:   values[5],
	}, nil
}

func parseFloat64(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
