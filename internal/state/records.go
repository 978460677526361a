package state

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 layout written for every record.
const TimestampLayout = time.RFC3339Nano

// layouts accepted when reading, newest writer first. The naive forms are
// what the older dedup manager produced.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// CooldownRecord is the last emission for one signal key
type CooldownRecord struct {
	// Unix seconds in wall_clock mode, candle open time in ms otherwise
	LastEventIdentity int64   `json:"last_event_identity"`
	LastPrice         float64 `json:"last_price"`
	LastEmittedAt     string  `json:"last_emitted_at"`
	EmissionCount     int     `json:"emission_count"`
}

// EmittedAt parses LastEmittedAt
func (r CooldownRecord) EmittedAt() (time.Time, error) {
	return ParseTimestamp(r.LastEmittedAt)
}

// KeyLevelRecord marks a key level that has already fired
type KeyLevelRecord struct {
	TriggeredAt string  `json:"triggered_at"`
	Level       float64 `json:"level"`
	Type        string  `json:"type"`
}

// Triggered parses TriggeredAt
func (r KeyLevelRecord) Triggered() (time.Time, error) {
	return ParseTimestamp(r.TriggeredAt)
}

// Snapshot is the full persisted dedup state of one bot instance
type Snapshot struct {
	Cooldowns map[string]CooldownRecord `json:"cooldowns"`
	KeyLevels map[string]KeyLevelRecord `json:"key_levels"`
}

// NewSnapshot returns an empty snapshot with both maps allocated
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Cooldowns: make(map[string]CooldownRecord),
		KeyLevels: make(map[string]KeyLevelRecord),
	}
}

// Len returns the total number of records
func (s *Snapshot) Len() int {
	return len(s.Cooldowns) + len(s.KeyLevels)
}

// CleanupExpired removes records older than maxAgeHours relative to now.
// Records whose timestamp is missing or unparseable are removed as well.
// Returns the number of records removed.
func (s *Snapshot) CleanupExpired(maxAgeHours float64, now time.Time) int {
	cutoff := now.Add(-time.Duration(maxAgeHours * float64(time.Hour)))
	removed := 0

	for key, rec := range s.Cooldowns {
		emitted, err := rec.EmittedAt()
		if err != nil || emitted.Before(cutoff) {
			delete(s.Cooldowns, key)
			removed++
		}
	}

	for key, rec := range s.KeyLevels {
		triggered, err := rec.Triggered()
		if err != nil || triggered.Before(cutoff) {
			delete(s.KeyLevels, key)
			removed++
		}
	}

	return removed
}

// FormatTimestamp renders t in the persisted layout
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp accepts RFC 3339 and the naive ISO forms written by older
// versions. Naive values are read in local time.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for i, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if i == 0 {
			t, err = time.Parse(layout, value)
		} else {
			t, err = time.ParseInLocation(layout, value, time.Local)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}
