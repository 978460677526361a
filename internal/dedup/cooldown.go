package dedup

import (
	"fmt"
	"time"

	"github.com/ducminhle1904/crypto-signal-bot/internal/candle"
	boterrors "github.com/ducminhle1904/crypto-signal-bot/internal/errors"
	"github.com/ducminhle1904/crypto-signal-bot/internal/state"
)

// Mode selects how a cooldown elapses
type Mode string

const (
	// ModeWallClock: identities are unix seconds, cooling while fewer
	// than WindowSeconds have passed.
	ModeWallClock Mode = "wall_clock"
	// ModeBarCount: identities are candle open times in ms, cooling while
	// fewer than CooldownBars bars of the key's timeframe have passed.
	ModeBarCount Mode = "bar_count"
	// ModeCandleIdentity: identities are candle open times in ms, cooling
	// only for the exact same candle.
	ModeCandleIdentity Mode = "candle_identity"
)

// ParseMode validates a configured mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeWallClock, ModeBarCount, ModeCandleIdentity:
		return Mode(s), nil
	}
	return "", boterrors.NewConfigurationError("dedup", "parse mode",
		fmt.Sprintf("unknown cooldown mode %q (want wall_clock, bar_count or candle_identity)", s))
}

// PolicyConfig configures a CooldownPolicy. One mode applies to every key
// of a deployment.
type PolicyConfig struct {
	Mode          Mode
	WindowSeconds int64
	CooldownBars  int64
	// Now is the emission clock, time.Now when nil
	Now func() time.Time
}

// CooldownPolicy holds the last accepted emission per key
type CooldownPolicy struct {
	cfg     PolicyConfig
	records map[SignalKey]state.CooldownRecord
}

// NewCooldownPolicy validates cfg and returns an empty policy
func NewCooldownPolicy(cfg PolicyConfig) (*CooldownPolicy, error) {
	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}
	switch cfg.Mode {
	case ModeWallClock:
		if cfg.WindowSeconds <= 0 {
			return nil, boterrors.NewConfigurationError("dedup", "new policy", "wall_clock mode needs a positive window")
		}
	case ModeBarCount:
		if cfg.CooldownBars <= 0 {
			return nil, boterrors.NewConfigurationError("dedup", "new policy", "bar_count mode needs a positive bar count")
		}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CooldownPolicy{
		cfg:     cfg,
		records: make(map[SignalKey]state.CooldownRecord),
	}, nil
}

// Mode returns the configured mode
func (p *CooldownPolicy) Mode() Mode {
	return p.cfg.Mode
}

// Identity picks the event identity for this mode: unix seconds of now for
// wall_clock, the candle open time otherwise.
func (p *CooldownPolicy) Identity(now time.Time, candleOpenMs int64) int64 {
	if p.cfg.Mode == ModeWallClock {
		return now.Unix()
	}
	return candleOpenMs
}

// IsCoolingDown reports whether key is inside its cooldown at identity.
// detail is seconds elapsed (wall_clock), bars elapsed (bar_count) or the
// identity difference (candle_identity). A key with no record is never
// cooling. The only error is an unknown timeframe in bar_count mode.
func (p *CooldownPolicy) IsCoolingDown(key SignalKey, identity int64) (bool, int64, error) {
	rec, ok := p.records[key]
	if !ok {
		return false, 0, nil
	}

	switch p.cfg.Mode {
	case ModeWallClock:
		elapsed := identity - rec.LastEventIdentity
		return elapsed < p.cfg.WindowSeconds, elapsed, nil

	case ModeBarCount:
		bars, err := candle.BarsBetween(rec.LastEventIdentity, identity, key.Timeframe)
		if err != nil {
			return false, 0, err
		}
		return bars < p.cfg.CooldownBars, bars, nil

	default:
		return identity == rec.LastEventIdentity, identity - rec.LastEventIdentity, nil
	}
}

// Accept records an emission for key, overwriting any previous record.
// Call only after the notification was delivered.
func (p *CooldownPolicy) Accept(key SignalKey, identity int64, price float64) state.CooldownRecord {
	rec := state.CooldownRecord{
		LastEventIdentity: identity,
		LastPrice:         price,
		LastEmittedAt:     state.FormatTimestamp(p.cfg.Now()),
		EmissionCount:     p.records[key].EmissionCount + 1,
	}
	p.records[key] = rec
	return rec
}

// Record returns the stored record for key
func (p *CooldownPolicy) Record(key SignalKey) (state.CooldownRecord, bool) {
	rec, ok := p.records[key]
	return rec, ok
}

// Len returns the number of tracked keys
func (p *CooldownPolicy) Len() int {
	return len(p.records)
}

func (p *CooldownPolicy) export() map[string]state.CooldownRecord {
	out := make(map[string]state.CooldownRecord, len(p.records))
	for key, rec := range p.records {
		out[key.String()] = rec
	}
	return out
}

// restore replaces all records. Two-part legacy keys are expanded through
// legacy and never override a full key. Entries with an unparseable key or
// emission time are treated as absent and reported back.
func (p *CooldownPolicy) restore(records map[string]state.CooldownRecord, legacy LegacyKeys) []string {
	var dropped []string
	p.records = make(map[SignalKey]state.CooldownRecord, len(records))
	expanded := make(map[SignalKey]state.CooldownRecord)
	for raw, rec := range records {
		if _, err := rec.EmittedAt(); err != nil {
			dropped = append(dropped, fmt.Sprintf("cooldown %q: %v", raw, err))
			continue
		}
		key, err := ParseSignalKey(raw)
		if err == nil {
			p.records[key] = rec
			continue
		}
		keys := legacy.Expand(raw)
		if len(keys) == 0 {
			dropped = append(dropped, err.Error())
			continue
		}
		for _, k := range keys {
			// the newest of two legacy entries mapping to one key wins
			if prev, ok := expanded[k]; !ok || prev.LastEventIdentity < rec.LastEventIdentity {
				expanded[k] = rec
			}
		}
	}
	for key, rec := range expanded {
		if _, ok := p.records[key]; !ok {
			p.records[key] = rec
		}
	}
	return dropped
}
