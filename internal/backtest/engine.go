package backtest

import (
	"time"

	"github.com/google/uuid"

	boterrors "github.com/ducminhle1904/crypto-signal-bot/internal/errors"
	"github.com/ducminhle1904/crypto-signal-bot/internal/strategy"
	"github.com/ducminhle1904/crypto-signal-bot/pkg/types"
)

// Side of an open position
type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

// ExitReason tells which bracket closed a trade
type ExitReason string

const (
	StopLoss   ExitReason = "Stop Loss"
	TakeProfit ExitReason = "Take Profit"
)

// Config holds the sizing and bracket parameters
type Config struct {
	InitialBalance float64 `json:"initial_balance"`
	RiskPerTrade   float64 `json:"risk_per_trade"`  // fraction of balance lost at the stop
	Commission     float64 `json:"commission"`      // per side, on notional
	StopBuffer     float64 `json:"stop_buffer"`     // stop distance beyond the spike extreme, fraction of price
	TakeProfitATR  float64 `json:"take_profit_atr"` // target distance from entry in ATRs
}

// DefaultConfig risks 2% of a 10000 balance per trade with 0.05% fees
func DefaultConfig() Config {
	return Config{
		InitialBalance: 10000,
		RiskPerTrade:   0.02,
		Commission:     0.0005,
		StopBuffer:     0.005,
		TakeProfitATR:  2.0,
	}
}

// Validate checks the parameters
func (c Config) Validate() error {
	if c.InitialBalance <= 0 {
		return boterrors.NewValidationError("backtest", "config", "initial balance must be positive")
	}
	if c.RiskPerTrade <= 0 || c.RiskPerTrade >= 1 {
		return boterrors.NewValidationError("backtest", "config", "risk per trade must be in (0, 1)")
	}
	if c.Commission < 0 || c.StopBuffer < 0 || c.TakeProfitATR <= 0 {
		return boterrors.NewValidationError("backtest", "config", "commission, stop buffer and take profit must not be negative")
	}
	return nil
}

// Matcher computes per-candle features and tests one candle, as
// strategy.Spike does
type Matcher interface {
	Features(candles []types.OHLCV) []strategy.SpikeFeatures
	Match(c types.OHLCV, f strategy.SpikeFeatures) (strategy.SpikeMatch, bool)
}

// Trade is one closed round trip
type Trade struct {
	ID         string     `json:"id"`
	Side       Side       `json:"side"`
	EntryTime  time.Time  `json:"entry_time"`
	ExitTime   time.Time  `json:"exit_time"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	StopLoss   float64    `json:"stop_loss"`
	TakeProfit float64    `json:"take_profit"`
	Size       float64    `json:"size"`
	Commission float64    `json:"commission"`
	PnL        float64    `json:"pnl"`
	Balance    float64    `json:"balance"` // after this trade
	Reason     ExitReason `json:"reason"`
}

// BacktestResults summarizes a replay
type BacktestResults struct {
	Symbol        string    `json:"symbol"`
	Timeframe     string    `json:"timeframe"`
	Candles       int       `json:"candles"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	StartBalance  float64   `json:"start_balance"`
	EndBalance    float64   `json:"end_balance"`
	TotalTrades   int       `json:"total_trades"`
	WinningTrades int       `json:"winning_trades"`
	LosingTrades  int       `json:"losing_trades"`
	WinRate       float64   `json:"win_rate"`      // percent
	TotalPnL      float64   `json:"total_pnl"`
	ROI           float64   `json:"roi"`           // percent of the start balance
	MaxDrawdown   float64   `json:"max_drawdown"`  // percent, over post-trade balances
	ProfitFactor  float64   `json:"profit_factor"` // average win over average loss
	Trades        []Trade   `json:"trades"`
}

// position is the single open trade
type position struct {
	side       Side
	entryTime  time.Time
	entryPrice float64
	stopLoss   float64
	takeProfit float64
	size       float64
}

// SpikeEngine replays candles through a pin-bar matcher, entering at the
// signal close with one position at a time
type SpikeEngine struct {
	cfg     Config
	matcher Matcher
	newID   func() string
}

// NewSpikeEngine creates an engine
func NewSpikeEngine(cfg Config, matcher Matcher) (*SpikeEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if matcher == nil {
		return nil, boterrors.NewConfigurationError("backtest", "new", "matcher is required")
	}
	return &SpikeEngine{cfg: cfg, matcher: matcher, newID: uuid.NewString}, nil
}

// Run replays data. An open position at the end of the data is dropped.
func (e *SpikeEngine) Run(symbol, timeframe string, data []types.OHLCV) *BacktestResults {
	results := &BacktestResults{
		Symbol:       symbol,
		Timeframe:    timeframe,
		Candles:      len(data),
		StartBalance: e.cfg.InitialBalance,
		EndBalance:   e.cfg.InitialBalance,
		Trades:       make([]Trade, 0),
	}
	if len(data) == 0 {
		return results
	}
	results.StartTime = data[0].Timestamp
	results.EndTime = data[len(data)-1].Timestamp

	features := e.matcher.Features(data)
	balance := e.cfg.InitialBalance
	var open *position

	for i := 1; i < len(data); i++ {
		curr := data[i]

		if open != nil {
			if trade, closed := e.checkExit(open, curr); closed {
				balance += trade.PnL
				trade.Balance = balance
				results.Trades = append(results.Trades, trade)
				open = nil
			}
			// no re-entry on the exit candle
			continue
		}

		m, ok := e.matcher.Match(curr, features[i])
		if !ok {
			continue
		}
		open = e.enter(m.Direction, curr, features[i].ATR, balance)
	}

	results.EndBalance = balance
	results.UpdateMetrics()
	return results
}

// enter sizes a position so the stop loses RiskPerTrade of balance
func (e *SpikeEngine) enter(direction string, c types.OHLCV, atr, balance float64) *position {
	p := &position{entryTime: c.Timestamp, entryPrice: c.Close}
	var dist float64

	switch direction {
	case strategy.DirectionBullish:
		p.side = Long
		p.stopLoss = c.Low * (1 - e.cfg.StopBuffer)
		p.takeProfit = c.Close + atr*e.cfg.TakeProfitATR
		dist = c.Close - p.stopLoss
	case strategy.DirectionBearish:
		p.side = Short
		p.stopLoss = c.High * (1 + e.cfg.StopBuffer)
		p.takeProfit = c.Close - atr*e.cfg.TakeProfitATR
		dist = p.stopLoss - c.Close
	default:
		return nil
	}
	if dist <= 0 {
		return nil
	}
	p.size = balance * e.cfg.RiskPerTrade / dist
	return p
}

// checkExit tests the brackets against one candle, the stop first
func (e *SpikeEngine) checkExit(p *position, c types.OHLCV) (Trade, bool) {
	var exit float64
	var reason ExitReason

	if p.side == Long {
		switch {
		case c.Low <= p.stopLoss:
			exit, reason = p.stopLoss, StopLoss
		case c.High >= p.takeProfit:
			exit, reason = p.takeProfit, TakeProfit
		default:
			return Trade{}, false
		}
	} else {
		switch {
		case c.High >= p.stopLoss:
			exit, reason = p.stopLoss, StopLoss
		case c.Low <= p.takeProfit:
			exit, reason = p.takeProfit, TakeProfit
		default:
			return Trade{}, false
		}
	}

	raw := (exit - p.entryPrice) * p.size
	if p.side == Short {
		raw = -raw
	}
	fee := (exit*p.size + p.entryPrice*p.size) * e.cfg.Commission

	return Trade{
		ID:         e.newID(),
		Side:       p.side,
		EntryTime:  p.entryTime,
		ExitTime:   c.Timestamp,
		EntryPrice: p.entryPrice,
		ExitPrice:  exit,
		StopLoss:   p.stopLoss,
		TakeProfit: p.takeProfit,
		Size:       p.size,
		Commission: fee,
		PnL:        raw - fee,
		Reason:     reason,
	}, true
}
