package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/ducminhle1904/crypto-signal-bot/internal/candle"
	boterrors "github.com/ducminhle1904/crypto-signal-bot/internal/errors"
	"github.com/ducminhle1904/crypto-signal-bot/internal/retry"
	"github.com/ducminhle1904/crypto-signal-bot/pkg/types"
)

// MaxKlineLimit is the largest page the kline endpoint returns
const MaxKlineLimit = 1000

// KlineParams holds parameters for fetching kline data
type KlineParams struct {
	Category string // "spot", "linear", "inverse"
	Symbol   string
	Interval string // Bybit interval code, see candle.BybitInterval
	Start    *time.Time
	End      *time.Time
	Limit    int // max 1000, default 200
}

// GetKlines performs one kline request. Rows come back in ascending order.
func (c *Client) GetKlines(ctx context.Context, params KlineParams) ([]Kline, error) {
	if params.Category == "" {
		params.Category = c.config.Category
	}
	if params.Limit == 0 {
		params.Limit = 200
	}
	if params.Limit > MaxKlineLimit {
		params.Limit = MaxKlineLimit
	}

	reqParams := map[string]interface{}{
		"category": params.Category,
		"symbol":   params.Symbol,
		"interval": params.Interval,
		"limit":    params.Limit,
	}
	if params.Start != nil {
		reqParams["start"] = params.Start.UnixMilli()
	}
	if params.End != nil {
		reqParams["end"] = params.End.UnixMilli()
	}

	result, err := c.fetchKline(ctx, reqParams)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines: %w", err)
	}

	klines, err := parseKlineResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse kline response: %w", err)
	}
	return klines, nil
}

// FetchCandles implements exchange.MarketDataSource. Transient failures are
// retried; once retries are exhausted the error wraps ErrDataUnavailable.
// Rejected credentials and exhausted rate limits come back as a BotError of
// the matching category.
func (c *Client) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]types.OHLCV, error) {
	interval, err := candle.BybitInterval(timeframe)
	if err != nil {
		return nil, boterrors.NewConfigurationError("bybit", "fetch candles", err.Error()).
			WithContext("timeframe", timeframe)
	}

	var klines []Kline
	err = retry.Do(ctx, c.config.Retry, IsRetryableError, func(ctx context.Context) error {
		var err error
		klines, err = c.GetKlines(ctx, KlineParams{Symbol: symbol, Interval: interval, Limit: limit})
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		wrapped := fmt.Errorf("%s %s from %s: %w: %w", symbol, timeframe, c.Name(), boterrors.ErrDataUnavailable, err)
		switch {
		case IsAuthenticationError(err):
			return nil, boterrors.WrapError(wrapped, boterrors.ErrorCategoryCredentials, "bybit", "fetch candles")
		case IsRateLimitError(err):
			return nil, boterrors.WrapError(wrapped, boterrors.ErrorCategoryRateLimit, "bybit", "fetch candles")
		}
		return nil, wrapped
	}

	return toOHLCV(klines), nil
}

func toOHLCV(klines []Kline) []types.OHLCV {
	out := make([]types.OHLCV, len(klines))
	for i, k := range klines {
		out[i] = types.OHLCV{
			Timestamp: k.StartTime,
			Open:      k.OpenPrice,
			High:      k.HighPrice,
			Low:       k.LowPrice,
			Close:     k.ClosePrice,
			Volume:    k.Volume,
		}
	}
	return out
}

// parseKlineResponse converts the API response into ascending klines.
// Malformed rows fail the whole response rather than leaving a gap.
func parseKlineResponse(response interface{}) ([]Kline, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok || serverResp == nil {
		return nil, fmt.Errorf("invalid response type %T", response)
	}
	if err := ParseAPIError(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return nil, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	var result klineResult
	if err := json.Unmarshal(resultBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal kline result: %w", err)
	}

	klines := make([]Kline, 0, len(result.List))
	for _, item := range result.List {
		k, err := parseKlineRow(item)
		if err != nil {
			return nil, err
		}
		klines = append(klines, k)
	}

	sort.Slice(klines, func(i, j int) bool {
		return klines[i].StartTime.Before(klines[j].StartTime)
	})
	return klines, nil
}
