package dedup

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/crypto-signal-bot/internal/state"
)

// LevelKind names which list a level came from
type LevelKind string

const (
	LevelSupport    LevelKind = "support"
	LevelResistance LevelKind = "resistance"
	LevelInvalid    LevelKind = "invalid"
)

// TriggerKind names what a price crossing means
type TriggerKind string

const (
	SupportBreak    TriggerKind = "support_break"
	ResistanceBreak TriggerKind = "resistance_break"
	InvalidBreak    TriggerKind = "invalid_break"
)

// KeyLevels are the price levels attached to a signal. Support is
// ascending, Resistance descending. Invalid is 0 when there is none.
type KeyLevels struct {
	Support    []float64
	Resistance []float64
	Invalid    float64
}

// Empty reports whether no level is set
func (l KeyLevels) Empty() bool {
	return len(l.Support) == 0 && len(l.Resistance) == 0 && l.Invalid <= 0
}

// TriggerEvent is a first-time crossing of one level
type TriggerEvent struct {
	Key       SignalKey
	Kind      TriggerKind
	LevelKind LevelKind
	Level     float64
	Price     float64
	Message   string
}

// levelMark identifies a level of a key; the level is kept as its two
// decimal rendering so nearly equal floats share a mark.
type levelMark struct {
	key   SignalKey
	kind  LevelKind
	level string
}

func newLevelMark(key SignalKey, kind LevelKind, level float64) levelMark {
	return levelMark{key: key, kind: kind, level: decimal.NewFromFloat(level).StringFixed(2)}
}

func (m levelMark) String() string {
	return m.key.String() + "_" + string(m.kind) + "_" + m.level
}

func parseLevelMark(s string) (levelMark, error) {
	parts := rsplit(s, 5)
	if parts == nil {
		return levelMark{}, fmt.Errorf("malformed key level %q", s)
	}
	kind := LevelKind(parts[3])
	switch kind {
	case LevelSupport, LevelResistance, LevelInvalid:
	default:
		return levelMark{}, fmt.Errorf("malformed key level %q: unknown kind %q", s, parts[3])
	}
	if _, err := strconv.ParseFloat(parts[4], 64); err != nil {
		return levelMark{}, fmt.Errorf("malformed key level %q: %w", s, err)
	}
	key, err := ParseSignalKey(parts[0] + "_" + parts[1] + "_" + parts[2])
	if err != nil {
		return levelMark{}, err
	}
	return levelMark{key: key, kind: kind, level: parts[4]}, nil
}

// KeyLevelBreaker fires at most once per (key, kind, level). Fired levels
// never re-arm until their record expires.
type KeyLevelBreaker struct {
	enabled   bool
	now       func() time.Time
	triggered map[levelMark]state.KeyLevelRecord
}

// NewKeyLevelBreaker creates a breaker; now defaults to time.Now
func NewKeyLevelBreaker(enabled bool, now func() time.Time) *KeyLevelBreaker {
	if now == nil {
		now = time.Now
	}
	return &KeyLevelBreaker{
		enabled:   enabled,
		now:       now,
		triggered: make(map[levelMark]state.KeyLevelRecord),
	}
}

// Enabled reports whether overrides are on
func (b *KeyLevelBreaker) Enabled() bool {
	return b.enabled
}

// CheckTrigger looks for the first untriggered level that price crosses.
// Down-side keys scan supports lowest first, then the invalid level from
// below. Up-side keys scan resistances highest first, then the invalid
// level from above. A hit is marked immediately and returned.
func (b *KeyLevelBreaker) CheckTrigger(key SignalKey, price float64, levels KeyLevels) *TriggerEvent {
	if !b.enabled {
		return nil
	}

	if key.IsDownside() {
		supports := append([]float64(nil), levels.Support...)
		sort.Float64s(supports)
		for _, level := range supports {
			if price <= level && !b.IsTriggered(key, LevelSupport, level) {
				return b.fire(key, SupportBreak, LevelSupport, level, price)
			}
		}
		if levels.Invalid > 0 && price >= levels.Invalid && !b.IsTriggered(key, LevelInvalid, levels.Invalid) {
			return b.fire(key, InvalidBreak, LevelInvalid, levels.Invalid, price)
		}
		return nil
	}

	resistances := append([]float64(nil), levels.Resistance...)
	sort.Sort(sort.Reverse(sort.Float64Slice(resistances)))
	for _, level := range resistances {
		if price >= level && !b.IsTriggered(key, LevelResistance, level) {
			return b.fire(key, ResistanceBreak, LevelResistance, level, price)
		}
	}
	if levels.Invalid > 0 && price <= levels.Invalid && !b.IsTriggered(key, LevelInvalid, levels.Invalid) {
		return b.fire(key, InvalidBreak, LevelInvalid, levels.Invalid, price)
	}
	return nil
}

// IsTriggered reports whether the level already fired for key
func (b *KeyLevelBreaker) IsTriggered(key SignalKey, kind LevelKind, level float64) bool {
	_, ok := b.triggered[newLevelMark(key, kind, level)]
	return ok
}

// Release re-arms the level of event, used when its override could not be
// delivered.
func (b *KeyLevelBreaker) Release(event *TriggerEvent) {
	if event == nil {
		return
	}
	delete(b.triggered, newLevelMark(event.Key, event.LevelKind, event.Level))
}

// Len returns the number of fired levels
func (b *KeyLevelBreaker) Len() int {
	return len(b.triggered)
}

func (b *KeyLevelBreaker) fire(key SignalKey, kind TriggerKind, levelKind LevelKind, level, price float64) *TriggerEvent {
	b.triggered[newLevelMark(key, levelKind, level)] = state.KeyLevelRecord{
		TriggeredAt: state.FormatTimestamp(b.now()),
		Level:       level,
		Type:        string(levelKind),
	}
	return &TriggerEvent{
		Key:       key,
		Kind:      kind,
		LevelKind: levelKind,
		Level:     level,
		Price:     price,
		Message:   triggerMessage(key, kind, level, price),
	}
}

func triggerMessage(key SignalKey, kind TriggerKind, level, price float64) string {
	var what string
	switch kind {
	case SupportBreak:
		what = "broke below support"
	case ResistanceBreak:
		what = "broke above resistance"
	default:
		what = "crossed the invalidation level"
	}
	return fmt.Sprintf("%s %s %s: price %s %s %s",
		key.Symbol, key.Timeframe, key.Direction,
		decimal.NewFromFloat(price).StringFixed(2), what,
		decimal.NewFromFloat(level).StringFixed(2))
}

func (b *KeyLevelBreaker) export() map[string]state.KeyLevelRecord {
	out := make(map[string]state.KeyLevelRecord, len(b.triggered))
	for mark, rec := range b.triggered {
		out[mark.String()] = rec
	}
	return out
}

func (b *KeyLevelBreaker) restore(records map[string]state.KeyLevelRecord) []string {
	var dropped []string
	b.triggered = make(map[levelMark]state.KeyLevelRecord, len(records))
	for raw, rec := range records {
		mark, err := parseLevelMark(raw)
		if err != nil {
			dropped = append(dropped, err.Error())
			continue
		}
		b.triggered[mark] = rec
	}
	return dropped
}
