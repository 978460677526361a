package dedup

import (
	"context"
	"sync"
	"time"

	boterrors "github.com/ducminhle1904/crypto-signal-bot/internal/errors"
	"github.com/ducminhle1904/crypto-signal-bot/internal/logger"
	"github.com/ducminhle1904/crypto-signal-bot/internal/state"
)

// DecisionKind is the outcome of SignalGate.Evaluate
type DecisionKind int

const (
	// Emit: send the signal, then CommitEmit
	Emit DecisionKind = iota
	// Suppressed: the key is cooling and no level fired
	Suppressed
	// KeyLevelOverride: the key is cooling but a level fired; send the
	// override, then CommitOverride
	KeyLevelOverride
)

func (k DecisionKind) String() string {
	switch k {
	case Emit:
		return "emit"
	case Suppressed:
		return "suppressed"
	case KeyLevelOverride:
		return "key_level_override"
	}
	return "unknown"
}

// Decision carries the gate outcome. Event is set only for
// KeyLevelOverride, Detail is the cooldown detail of IsCoolingDown.
type Decision struct {
	Kind   DecisionKind
	Event  *TriggerEvent
	Detail int64
}

// Stats summarizes the gate state
type Stats struct {
	TotalSignalKeys       int `json:"total_signal_keys"`
	TotalEmissions        int `json:"total_emissions"`
	TotalKeyLevelTriggers int `json:"total_key_level_triggers"`
}

// SignalGate evaluates candidate signals and persists accepted ones. It is
// safe for concurrent use.
type SignalGate struct {
	mu      sync.Mutex
	policy  *CooldownPolicy
	breaker *KeyLevelBreaker
	store   state.Store
	logger  *logger.Logger
	legacy  LegacyKeys
}

// NewSignalGate wires a policy and breaker to store. A nil breaker means
// overrides are off, a nil logger discards.
func NewSignalGate(policy *CooldownPolicy, breaker *KeyLevelBreaker, store state.Store, log *logger.Logger) *SignalGate {
	if breaker == nil {
		breaker = NewKeyLevelBreaker(false, policy.cfg.Now)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &SignalGate{
		policy:  policy,
		breaker: breaker,
		store:   store,
		logger:  log,
	}
}

// Policy returns the cooldown policy
func (g *SignalGate) Policy() *CooldownPolicy {
	return g.policy
}

// SetLegacyKeys configures how Load expands two-part legacy keys
func (g *SignalGate) SetLegacyKeys(l LegacyKeys) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.legacy = l
}

// StoreName names the backing store
func (g *SignalGate) StoreName() string {
	return g.store.Name()
}

// Load replaces in-memory state with the store contents. Malformed records
// are logged and treated as absent.
func (g *SignalGate) Load(ctx context.Context) error {
	snapshot, err := g.store.Load(ctx)
	if err != nil {
		g.logger.LogError("state load from "+g.store.Name(), err)
		return boterrors.NewStateError("dedup", "load", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	dropped := g.policy.restore(snapshot.Cooldowns, g.legacy)
	dropped = append(dropped, g.breaker.restore(snapshot.KeyLevels)...)
	for _, msg := range dropped {
		g.logger.LogWarning("state load", "dropping record: %s", msg)
	}
	g.logger.Info("📂 Loaded %d cooldowns and %d key levels from %s",
		g.policy.Len(), g.breaker.Len(), g.store.Name())
	return nil
}

// Evaluate decides what to do with a detected signal. A fired level is
// marked right away; call ReleaseOverride if its message is not delivered.
func (g *SignalGate) Evaluate(key SignalKey, identity int64, price float64, levels KeyLevels) (Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cooling, detail, err := g.policy.IsCoolingDown(key, identity)
	if err != nil {
		return Decision{}, boterrors.WrapError(err, boterrors.ErrorCategoryValidation, "dedup", "evaluate").
			WithContext("key", key.String())
	}
	if !cooling {
		return Decision{Kind: Emit, Detail: detail}, nil
	}
	if event := g.breaker.CheckTrigger(key, price, levels); event != nil {
		return Decision{Kind: KeyLevelOverride, Event: event, Detail: detail}, nil
	}
	return Decision{Kind: Suppressed, Detail: detail}, nil
}

// CommitEmit records a delivered emission and persists. On a store error
// the in-memory record stands and the error is returned.
func (g *SignalGate) CommitEmit(ctx context.Context, key SignalKey, identity int64, price float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.policy.Accept(key, identity, price)
	return g.saveLocked(ctx)
}

// CommitOverride persists the level marked by Evaluate. The base cooldown
// record is not touched.
func (g *SignalGate) CommitOverride(ctx context.Context, event *TriggerEvent) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if event != nil {
		g.logger.Signal("🎯 Key level %s: %s", event.Kind, event.Message)
	}
	return g.saveLocked(ctx)
}

// ReleaseOverride re-arms the level of an undelivered override
func (g *SignalGate) ReleaseOverride(event *TriggerEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.breaker.Release(event)
}

// Flush persists the current state
func (g *SignalGate) Flush(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saveLocked(ctx)
}

// CleanupExpired drops records older than maxAgeHours and saves when
// anything was removed.
func (g *SignalGate) CleanupExpired(ctx context.Context, maxAgeHours float64) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	snapshot := g.snapshotLocked()
	removed := snapshot.CleanupExpired(maxAgeHours, g.policy.cfg.Now())
	if removed == 0 {
		return 0, nil
	}

	g.policy.restore(snapshot.Cooldowns, LegacyKeys{})
	g.breaker.restore(snapshot.KeyLevels)
	g.logger.Info("🧹 Removed %d records older than %.1fh", removed, maxAgeHours)
	return removed, g.saveLocked(ctx)
}

// Snapshot returns a copy of the current state
func (g *SignalGate) Snapshot() *state.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

// Stats reports key, emission and trigger totals
func (g *SignalGate) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	stats := Stats{
		TotalSignalKeys:       g.policy.Len(),
		TotalKeyLevelTriggers: g.breaker.Len(),
	}
	for _, rec := range g.policy.records {
		stats.TotalEmissions += rec.EmissionCount
	}
	return stats
}

func (g *SignalGate) snapshotLocked() *state.Snapshot {
	return &state.Snapshot{
		Cooldowns: g.policy.export(),
		KeyLevels: g.breaker.export(),
	}
}

func (g *SignalGate) saveLocked(ctx context.Context) error {
	start := time.Now()
	if err := g.store.Save(ctx, g.snapshotLocked()); err != nil {
		g.logger.LogError("state save to "+g.store.Name(), err)
		return boterrors.NewStateError("dedup", "save", err)
	}
	g.logger.Debug("💾 State saved to %s in %s", g.store.Name(), time.Since(start))
	return nil
}
