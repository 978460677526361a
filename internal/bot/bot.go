package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ducminhle1904/crypto-signal-bot/internal/candle"
	"github.com/ducminhle1904/crypto-signal-bot/internal/dedup"
	boterrors "github.com/ducminhle1904/crypto-signal-bot/internal/errors"
	"github.com/ducminhle1904/crypto-signal-bot/internal/exchange"
	"github.com/ducminhle1904/crypto-signal-bot/internal/logger"
	"github.com/ducminhle1904/crypto-signal-bot/internal/monitoring"
	"github.com/ducminhle1904/crypto-signal-bot/internal/notifications"
	"github.com/ducminhle1904/crypto-signal-bot/internal/strategy"
	"github.com/ducminhle1904/crypto-signal-bot/pkg/types"
)

const (
	defaultFetchTimeout = 30 * time.Second
	flushTimeout        = 10 * time.Second

	// a rate limited round waits this many error backoffs
	rateLimitBackoffFactor = 4
	recentErrorsKept       = 10
)

// Options wires a SignalBot. Source, Detector, Gate and Notifier are
// required; everything else has a default.
type Options struct {
	Name         string
	Symbols      []string
	Timeframes   []string
	HistoryLimit int

	Source   exchange.MarketDataSource
	Detector strategy.Detector
	// Consensus replaces per-timeframe detection with one check per symbol
	// across all of its timeframes
	Consensus *strategy.Consensus
	Gate      *dedup.SignalGate
	Notifier  notifications.Notifier

	Logger  *logger.Logger
	Health  *monitoring.HealthChecker
	Metrics *monitoring.Metrics

	PollInterval  time.Duration
	AlignToCandle bool
	CloseDelay    time.Duration
	ErrorBackoff  time.Duration
	FetchTimeout  time.Duration

	// CleanupSchedule is a cron spec for expired state pruning, empty
	// disables it
	CleanupSchedule string
	MaxAgeHours     float64

	// Location renders message timestamps, UTC when nil
	Location *time.Location

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// RoundStats counts what happened in one polling round
type RoundStats struct {
	Checked    int `json:"checked"`
	Detected   int `json:"detected"`
	Emitted    int `json:"emitted"`
	Overrides  int `json:"overrides"`
	Suppressed int `json:"suppressed"`
	Failed     int `json:"failed"`
}

func (s RoundStats) String() string {
	return fmt.Sprintf("checked=%d detected=%d emitted=%d overrides=%d suppressed=%d failed=%d",
		s.Checked, s.Detected, s.Emitted, s.Overrides, s.Suppressed, s.Failed)
}

func (s *RoundStats) add(o RoundStats) {
	s.Checked += o.Checked
	s.Detected += o.Detected
	s.Emitted += o.Emitted
	s.Overrides += o.Overrides
	s.Suppressed += o.Suppressed
	s.Failed += o.Failed
}

// ErrorSummary counts failed checks by category
type ErrorSummary struct {
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"by_category"`
	Recent     []string       `json:"recent"`
}

// Stats is the running summary served on /stats
type Stats struct {
	Name      string       `json:"name"`
	Rounds    int          `json:"rounds"`
	LastRound RoundStats   `json:"last_round"`
	Totals    RoundStats   `json:"totals"`
	State     dedup.Stats  `json:"state"`
	Errors    ErrorSummary `json:"errors"`
}

// SignalBot polls candles, runs the detector and pushes deduplicated
// signals to the notifier
type SignalBot struct {
	opts     Options
	logger   *logger.Logger
	health   *monitoring.HealthChecker
	metrics  *monitoring.Metrics
	location *time.Location
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	rounds    int
	lastRound RoundStats
	totals    RoundStats
	errors    *boterrors.ErrorStats
}

// NewSignalBot validates the options and fills the defaults
func NewSignalBot(opts Options) (*SignalBot, error) {
	switch {
	case opts.Source == nil:
		return nil, boterrors.NewConfigurationError("bot", "new", "market data source is required")
	case opts.Detector == nil && opts.Consensus == nil:
		return nil, boterrors.NewConfigurationError("bot", "new", "detector is required")
	case opts.Gate == nil:
		return nil, boterrors.NewConfigurationError("bot", "new", "signal gate is required")
	case opts.Notifier == nil:
		return nil, boterrors.NewConfigurationError("bot", "new", "notifier is required")
	case len(opts.Symbols) == 0:
		return nil, boterrors.NewConfigurationError("bot", "new", "at least one symbol is required")
	}
	if opts.Consensus != nil {
		opts.Timeframes = opts.Consensus.Timeframes()
	}
	if len(opts.Timeframes) == 0 {
		return nil, boterrors.NewConfigurationError("bot", "new", "at least one timeframe is required")
	}
	if err := candle.Validate(opts.Timeframes...); err != nil {
		return nil, err
	}
	if opts.CleanupSchedule != "" {
		if _, err := cronParser.Parse(opts.CleanupSchedule); err != nil {
			return nil, boterrors.NewConfigurationError("bot", "new",
				fmt.Sprintf("invalid cleanup schedule %q: %v", opts.CleanupSchedule, err))
		}
	}

	if opts.Name == "" {
		opts.Name = "signal-bot"
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = 5 * time.Second
	}

	b := &SignalBot{
		opts:     opts,
		logger:   opts.Logger,
		health:   opts.Health,
		metrics:  opts.Metrics,
		location: opts.Location,
		now:      opts.Now,
		sleep:    opts.Sleep,
		errors:   boterrors.NewErrorStats(recentErrorsKept),
	}
	if b.logger == nil {
		b.logger = logger.NewNopLogger()
	}
	if b.health == nil {
		b.health = monitoring.NewHealthChecker(0)
	}
	if b.metrics == nil {
		b.metrics = monitoring.NewMetrics()
	}
	if b.location == nil {
		b.location = time.UTC
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.sleep == nil {
		b.sleep = sleepContext
	}
	return b, nil
}

// detectorName labels metrics and logs
func (b *SignalBot) detectorName() string {
	if b.opts.Consensus != nil {
		return b.opts.Consensus.Name()
	}
	return b.opts.Detector.Name()
}

// Stats returns the running round summary
func (b *SignalBot) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	errs := ErrorSummary{
		Total:      b.errors.TotalErrors,
		ByCategory: make(map[string]int, len(b.errors.ErrorsByCategory)),
		Recent:     make([]string, 0, len(b.errors.RecentErrors)),
	}
	for category, n := range b.errors.ErrorsByCategory {
		errs.ByCategory[string(category)] = n
	}
	for _, err := range b.errors.RecentErrors {
		errs.Recent = append(errs.Recent, err.Error())
	}
	return Stats{
		Name:      b.opts.Name,
		Rounds:    b.rounds,
		LastRound: b.lastRound,
		Totals:    b.totals,
		State:     b.opts.Gate.Stats(),
		Errors:    errs,
	}
}

// Run loads state, polls until ctx is cancelled and flushes state before
// returning. A failed round waits ErrorBackoff instead of the poll interval,
// a rate limited one waits longer. Credential and configuration failures
// end the loop with the round error.
func (b *SignalBot) Run(ctx context.Context) error {
	if err := b.opts.Gate.Load(ctx); err != nil {
		b.logger.LogWarning("state", "starting with empty dedup state: %v", err)
	}

	stopHousekeeping, err := b.startHousekeeping(ctx)
	if err != nil {
		return err
	}
	defer stopHousekeeping()

	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := b.opts.Gate.Flush(flushCtx); err != nil {
			b.logger.LogError("final state flush", err)
			return
		}
		b.logger.Info("Dedup state flushed to %s", b.opts.Gate.StoreName())
	}()

	b.logger.Info("Polling %d symbols on %v with %s", len(b.opts.Symbols), b.opts.Timeframes, b.detectorName())
	for {
		_, err := b.RunOnce(ctx)
		pause := b.pollPause()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			b.logger.LogError("polling round", err)
			switch boterrors.CategorizeError(err, "bot", "poll").GetRecoveryAction() {
			case boterrors.RecoveryActionStop:
				b.logger.Error("Unrecoverable round failure - ending polling loop")
				return err
			case boterrors.RecoveryActionWait:
				pause = b.opts.ErrorBackoff * rateLimitBackoffFactor
			default:
				pause = b.opts.ErrorBackoff
			}
		}
		if err := b.sleep(ctx, pause); err != nil {
			break
		}
	}

	b.logger.Info("Stop signal received - ending polling loop")
	return nil
}

// pollPause is the wait after a successful round
func (b *SignalBot) pollPause() time.Duration {
	if !b.opts.AlignToCandle {
		return b.opts.PollInterval
	}
	wait, err := b.untilNextClose()
	if err != nil {
		return b.opts.PollInterval
	}
	return wait + b.opts.CloseDelay
}

// untilNextClose is the time to the next close of the shortest timeframe
func (b *SignalBot) untilNextClose() (time.Duration, error) {
	now := b.now()
	var wait time.Duration = -1
	for _, tf := range b.opts.Timeframes {
		next, err := candle.NextClose(now, tf)
		if err != nil {
			return 0, err
		}
		if d := next.Sub(now); wait < 0 || d < wait {
			wait = d
		}
	}
	return wait, nil
}

// RunOnce checks every key once. Per-key failures are counted and skipped.
// An error is returned when ctx was cancelled, when every check failed, or
// when any check failed in a way that calls for a stop. It wraps the most
// severe failure of the round.
func (b *SignalBot) RunOnce(ctx context.Context) (RoundStats, error) {
	start := time.Now()
	var stats RoundStats
	var worstErr error
	worstAction := boterrors.RecoveryActionSkip

	fail := func(err error) {
		stats.Failed++
		if ctx.Err() != nil {
			return
		}
		action := b.recordError(err)
		if worstErr == nil || actionSeverity(action) > actionSeverity(worstAction) {
			worstErr, worstAction = err, action
		}
	}

	for _, symbol := range b.opts.Symbols {
		if b.opts.Consensus != nil {
			stats.Checked++
			if err := b.checkConsensus(ctx, symbol, &stats); err != nil {
				fail(err)
			}
			continue
		}
		for _, tf := range b.opts.Timeframes {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Checked++
			if err := b.checkTimeframe(ctx, symbol, tf, &stats); err != nil {
				fail(err)
			}
		}
	}

	var roundErr error
	switch {
	case ctx.Err() != nil:
		roundErr = ctx.Err()
	case worstErr != nil && worstAction == boterrors.RecoveryActionStop:
		roundErr = fmt.Errorf("unrecoverable check failure: %w", worstErr)
	case stats.Checked > 0 && stats.Failed == stats.Checked:
		roundErr = fmt.Errorf("all %d checks failed: %w", stats.Checked, worstErr)
	}

	b.finishRound(stats, roundErr, time.Since(start))
	return stats, roundErr
}

// recordError counts a failed check and returns what the loop should do
// about it
func (b *SignalBot) recordError(err error) boterrors.RecoveryAction {
	botErr := boterrors.CategorizeError(err, "bot", "check")
	b.mu.Lock()
	b.errors.RecordError(botErr)
	b.mu.Unlock()
	return botErr.GetRecoveryAction()
}

func actionSeverity(a boterrors.RecoveryAction) int {
	switch a {
	case boterrors.RecoveryActionStop:
		return 3
	case boterrors.RecoveryActionWait:
		return 2
	case boterrors.RecoveryActionRetry:
		return 1
	}
	return 0
}

func (b *SignalBot) finishRound(stats RoundStats, err error, took time.Duration) {
	b.mu.Lock()
	b.rounds++
	b.lastRound = stats
	b.totals.add(stats)
	round := b.rounds
	b.mu.Unlock()

	b.health.RecordRound(err)
	b.metrics.ObserveRound(took)
	gateStats := b.opts.Gate.Stats()
	b.metrics.UpdateStateRecords(gateStats.TotalSignalKeys, gateStats.TotalKeyLevelTriggers)
	b.logger.Status("Round #%d done in %s: %s", round, took.Round(time.Millisecond), stats)
}

func (b *SignalBot) fetch(ctx context.Context, symbol, tf string) ([]types.OHLCV, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, b.opts.FetchTimeout)
	defer cancel()

	candles, err := b.opts.Source.FetchCandles(fetchCtx, symbol, tf, b.opts.HistoryLimit)
	if err != nil {
		b.metrics.RecordError("fetch")
		return nil, fmt.Errorf("fetch %s %s from %s: %w", symbol, tf, b.opts.Source.Name(), err)
	}
	if len(candles) > 0 {
		b.metrics.UpdatePrice(symbol, tf, candles[len(candles)-1].Close)
	}
	return candles, nil
}

func (b *SignalBot) checkTimeframe(ctx context.Context, symbol, tf string, stats *RoundStats) error {
	candles, err := b.fetch(ctx, symbol, tf)
	if err != nil {
		b.logger.LogWarning("fetch", "%v", err)
		return err
	}
	sig, err := b.opts.Detector.Detect(symbol, tf, candles)
	if err != nil {
		b.metrics.RecordError("detect")
		b.logger.LogError(fmt.Sprintf("detect %s %s", symbol, tf), err)
		return err
	}
	return b.handle(ctx, sig, stats)
}

func (b *SignalBot) checkConsensus(ctx context.Context, symbol string, stats *RoundStats) error {
	series := make(map[string][]types.OHLCV, len(b.opts.Timeframes))
	for _, tf := range b.opts.Timeframes {
		candles, err := b.fetch(ctx, symbol, tf)
		if err != nil {
			b.logger.LogWarning("fetch", "%v", err)
			return err
		}
		series[tf] = candles
	}
	sig, err := b.opts.Consensus.Evaluate(symbol, series)
	if err != nil {
		b.metrics.RecordError("detect")
		b.logger.LogError("consensus "+symbol, err)
		return err
	}
	return b.handle(ctx, sig, stats)
}

// handle runs a detected signal through the gate, sends it and commits.
// Nothing is committed unless the notifier accepted the message.
func (b *SignalBot) handle(ctx context.Context, sig *strategy.Signal, stats *RoundStats) error {
	if sig == nil {
		return nil
	}
	stats.Detected++
	b.metrics.UpdateConfidence(sig.Detector, sig.Symbol, sig.Confidence)

	now := b.now()
	key := sig.Key()
	identity := b.opts.Gate.Policy().Identity(now, sig.CandleOpenMs)

	decision, err := b.opts.Gate.Evaluate(key, identity, sig.Price, sig.Levels)
	if err != nil {
		b.metrics.RecordError("gate")
		b.logger.LogError("evaluate "+key.String(), err)
		return err
	}
	b.metrics.RecordDecision(sig.Detector, sig.Symbol, sig.Timeframe, decision.Kind.String())

	switch decision.Kind {
	case dedup.Suppressed:
		stats.Suppressed++
		b.logger.Debug("%s suppressed by cooldown (%d)", key, decision.Detail)
		return nil

	case dedup.KeyLevelOverride:
		if err := b.send(ctx, FormatOverride(sig, decision.Event, now.In(b.location))); err != nil {
			b.opts.Gate.ReleaseOverride(decision.Event)
			return err
		}
		stats.Overrides++
		b.logger.Signal("%s key level override: %s", key, decision.Event.Message)
		if err := b.opts.Gate.CommitOverride(ctx, decision.Event); err != nil {
			b.stateSaveFailed(ctx, err)
		}
		return nil
	}

	if err := b.send(ctx, FormatSignal(sig, now.In(b.location))); err != nil {
		return err
	}
	stats.Emitted++
	b.health.RecordSignal(sig.Symbol)
	b.logger.Signal("%s %s at %.4f emitted (confidence %.2f)", key, sig.Detector, sig.Price, sig.Confidence)
	if err := b.opts.Gate.CommitEmit(ctx, key, identity, sig.Price); err != nil {
		b.stateSaveFailed(ctx, err)
	}
	return nil
}

func (b *SignalBot) send(ctx context.Context, text string) error {
	err := b.opts.Notifier.Send(ctx, text)
	b.metrics.RecordNotification(b.opts.Notifier.Name(), err == nil)
	if err != nil {
		b.logger.LogError("notify via "+b.opts.Notifier.Name(), err)
	}
	return err
}

// stateSaveFailed reports a commit that stayed in memory only. The signal
// already went out, so this does not fail the key.
func (b *SignalBot) stateSaveFailed(ctx context.Context, err error) {
	b.metrics.RecordError("state")
	msg := fmt.Sprintf("%s: dedup state save to %s failed, duplicates possible after restart: %v",
		b.opts.Name, b.opts.Gate.StoreName(), err)
	if alertErr := notifications.SendAlert(ctx, b.opts.Notifier, notifications.AlertWarning, msg); alertErr != nil {
		b.logger.LogWarning("alert", "could not deliver state alert: %v", alertErr)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
