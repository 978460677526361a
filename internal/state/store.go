// Package state persists the dedup snapshot of a signal bot: per-key
// cooldown records and consumed key levels.
package state

import (
	"context"

	"github.com/ducminhle1904/crypto-signal-bot/internal/logger"
)

// Store is durable storage for a Snapshot.
//
// Load never fails for a missing or corrupt backing store: it returns an
// empty snapshot and logs a warning. An error means the store could not be
// read at all; callers continue with empty state.
//
// Save must leave the previous copy readable if it fails halfway.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, s *Snapshot) error
	Name() string
}

// MemoryStore keeps the encoded snapshot in memory. Used by tests and the
// one-shot CLI mode where nothing should touch disk.
type MemoryStore struct {
	data    []byte
	logger  *logger.Logger
	SaveErr error
	Saves   int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logger: logger.NewNopLogger()}
}

// WithLogger sets where decode problems are reported
func (m *MemoryStore) WithLogger(log *logger.Logger) *MemoryStore {
	if log != nil {
		m.logger = log
	}
	return m
}

// Load decodes the last saved snapshot
func (m *MemoryStore) Load(ctx context.Context) (*Snapshot, error) {
	snapshot, warnings, err := Decode(m.data)
	if err != nil {
		m.logger.LogWarning("State Load", "In-memory state is corrupt (%v), using clean state", err)
		return NewSnapshot(), nil
	}
	for _, w := range warnings {
		m.logger.LogWarning("State Load", "%s", w)
	}
	return snapshot, nil
}

// Save encodes and keeps s, or returns SaveErr when set
func (m *MemoryStore) Save(ctx context.Context, s *Snapshot) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	data, err := Encode(s)
	if err != nil {
		return err
	}
	m.data = data
	m.Saves++
	return nil
}

// Name identifies the store in logs
func (m *MemoryStore) Name() string {
	return "memory"
}
