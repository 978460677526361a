// Package bybit reads public market data from the Bybit v5 REST API.
package bybit

import (
	"context"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/ducminhle1904/crypto-signal-bot/internal/retry"
)

// DemoURL is the paper trading environment
const DemoURL = "https://api-demo.bybit.com"

// Client wraps the Bybit API client with retries and candle conversion
type Client struct {
	httpClient *bybit_api.Client
	config     Config

	// fetchKline performs the raw kline request; tests replace it
	fetchKline func(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

// Config holds the configuration for the Bybit client. Keys are optional
// since kline data is public.
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool
	// BaseURL overrides the environment URL when set
	BaseURL string
	// Category is spot, linear or inverse; linear when empty
	Category string
	Retry    retry.Config
}

// NewClient creates a new Bybit client
func NewClient(config Config) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		switch {
		case config.Demo:
			baseURL = DemoURL
		case config.Testnet:
			baseURL = bybit_api.TESTNET
		default:
			baseURL = bybit_api.MAINNET
		}
	}
	if config.Category == "" {
		config.Category = "linear"
	}
	if config.Retry.MaxRetries == 0 && config.Retry.InitialDelay == 0 {
		config.Retry = retry.DefaultConfig()
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	c := &Client{
		httpClient: httpClient,
		config:     config,
	}
	c.fetchKline = func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		return c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	}
	return c
}

// GetEnvironment returns a string describing the current environment
func (c *Client) GetEnvironment() string {
	switch {
	case c.config.BaseURL != "":
		return c.config.BaseURL
	case c.config.Demo:
		return "demo"
	case c.config.Testnet:
		return "testnet"
	default:
		return "mainnet"
	}
}

// Name identifies the source in logs
func (c *Client) Name() string {
	return "bybit-" + c.GetEnvironment()
}
