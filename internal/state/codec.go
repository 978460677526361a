package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// legacyManagerCooldown is the per-key record of the older dedup manager,
// stored under a top level "signals" object.
type legacyManagerCooldown struct {
	BarTime   *int64  `json:"bar_time"`
	Price     float64 `json:"price"`
	Timestamp string  `json:"timestamp"`
	Count     int     `json:"count"`
}

type legacyManagerKeyLevel struct {
	Timestamp string  `json:"timestamp"`
	Level     float64 `json:"level"`
	Type      string  `json:"type"`
}

// Encode marshals a snapshot in the persisted layout
func Encode(s *Snapshot) ([]byte, error) {
	if s == nil {
		s = NewSnapshot()
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	return data, nil
}

// Decode parses persisted state. It understands three shapes:
//
//	{"cooldowns": {...}, "key_levels": {...}}   current layout
//	{"signals": {...}, "key_levels": {...}}     older dedup manager
//	{"<key>": <timestamp>, ...}                 flat legacy map
//
// An error is returned only when the document is not a JSON object. Records
// that fail to decode are skipped and reported in the warnings slice.
func Decode(data []byte) (*Snapshot, []string, error) {
	snapshot := NewSnapshot()
	if len(bytes.TrimSpace(data)) == 0 {
		return snapshot, nil, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return snapshot, nil, fmt.Errorf("failed to parse state: %w", err)
	}

	var warnings []string
	warn := func(format string, args ...interface{}) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	_, hasCooldowns := top["cooldowns"]
	_, hasSignals := top["signals"]
	_, hasKeyLevels := top["key_levels"]

	switch {
	case hasCooldowns || (hasKeyLevels && !hasSignals):
		for key, raw := range rawObject(top["cooldowns"], "cooldowns", warn) {
			var rec CooldownRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				warn("dropping malformed cooldown %q: %v", key, err)
				continue
			}
			snapshot.Cooldowns[key] = rec
		}
		for key, raw := range rawObject(top["key_levels"], "key_levels", warn) {
			var rec KeyLevelRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				warn("dropping malformed key level %q: %v", key, err)
				continue
			}
			snapshot.KeyLevels[key] = rec
		}

	case hasSignals:
		for key, raw := range rawObject(top["signals"], "signals", warn) {
			rec, err := decodeLegacyValue(raw)
			if err != nil {
				warn("dropping malformed signal %q: %v", key, err)
				continue
			}
			snapshot.Cooldowns[key] = rec
		}
		for key, raw := range rawObject(top["key_levels"], "key_levels", warn) {
			var legacy legacyManagerKeyLevel
			if err := json.Unmarshal(raw, &legacy); err != nil {
				warn("dropping malformed key level %q: %v", key, err)
				continue
			}
			snapshot.KeyLevels[key] = KeyLevelRecord{
				TriggeredAt: legacy.Timestamp,
				Level:       legacy.Level,
				Type:        legacy.Type,
			}
		}

	default:
		for key, raw := range top {
			rec, err := decodeLegacyValue(raw)
			if err != nil {
				warn("dropping malformed legacy entry %q: %v", key, err)
				continue
			}
			snapshot.Cooldowns[key] = rec
		}
	}

	sort.Strings(warnings)
	return snapshot, warnings, nil
}

func rawObject(raw json.RawMessage, name string, warn func(string, ...interface{})) map[string]json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		warn("ignoring %s: %v", name, err)
		return nil
	}
	return out
}

// decodeLegacyValue reads a flat legacy value: either a bare integer
// timestamp or an older dedup manager object.
func decodeLegacyValue(raw json.RawMessage) (CooldownRecord, error) {
	var ts json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&ts); err == nil {
		identity, err := ts.Int64()
		if err != nil {
			f, ferr := ts.Float64()
			if ferr != nil {
				return CooldownRecord{}, fmt.Errorf("timestamp %s is not a number", ts)
			}
			identity = int64(f)
		}
		return CooldownRecord{
			LastEventIdentity: identity,
			LastEmittedAt:     FormatTimestamp(identityTime(identity)),
			EmissionCount:     1,
		}, nil
	}

	var legacy legacyManagerCooldown
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return CooldownRecord{}, err
	}

	rec := CooldownRecord{
		LastPrice:     legacy.Price,
		LastEmittedAt: legacy.Timestamp,
		EmissionCount: legacy.Count,
	}
	if legacy.BarTime != nil {
		rec.LastEventIdentity = *legacy.BarTime
	}
	if rec.EmissionCount == 0 {
		rec.EmissionCount = 1
	}
	return rec, nil
}

// identityTime interprets a legacy identity as a wall time. Values above
// 1e11 can only be milliseconds.
func identityTime(identity int64) time.Time {
	if identity > 100_000_000_000 {
		return time.UnixMilli(identity).UTC()
	}
	return time.Unix(identity, 0).UTC()
}
