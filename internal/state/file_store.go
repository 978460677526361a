package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ducminhle1904/crypto-signal-bot/internal/logger"
)

// FileStore keeps the snapshot in a single JSON file. Writes go to a
// temporary file that is renamed over the target.
type FileStore struct {
	logger *logger.Logger
	path   string
	mu     sync.Mutex
}

// NewFileStore creates a store backed by path
func NewFileStore(log *logger.Logger, path string) *FileStore {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &FileStore{logger: log, path: path}
}

// Path returns the state file location
func (fs *FileStore) Path() string {
	return fs.path
}

// Name identifies the store in logs
func (fs *FileStore) Name() string {
	return "file:" + fs.path
}

// Load reads the state file
func (fs *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			fs.logger.Info("No existing state file found at %s, starting with clean state", fs.path)
			return NewSnapshot(), nil
		}
		return NewSnapshot(), fmt.Errorf("failed to read state file: %w", err)
	}

	snapshot, warnings, err := Decode(data)
	if err != nil {
		fs.logger.LogWarning("State Load", "State file %s is corrupt (%v), using clean state", fs.path, err)
		fs.quarantine(data)
		return NewSnapshot(), nil
	}

	for _, w := range warnings {
		fs.logger.LogWarning("State Load", "%s", w)
	}

	fs.logger.Info("State loaded from %s: %d cooldowns, %d key levels",
		fs.path, len(snapshot.Cooldowns), len(snapshot.KeyLevels))
	return snapshot, nil
}

// quarantine keeps a copy of an unreadable file next to the original so the
// next save does not destroy it.
func (fs *FileStore) quarantine(data []byte) {
	corrupt := fs.path + ".corrupt"
	if err := os.WriteFile(corrupt, data, 0644); err != nil {
		fs.logger.LogWarning("State Load", "Failed to keep corrupt copy: %v", err)
	}
}

// Save writes s atomically
func (fs *FileStore) Save(ctx context.Context, s *Snapshot) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if dir := filepath.Dir(fs.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	// Keep the previous good copy around
	if _, err := os.Stat(fs.path); err == nil {
		if err := copyFile(fs.path, fs.path+".bak"); err != nil {
			fs.logger.LogWarning("State Backup", "Failed to create backup: %v", err)
		}
	}

	tempFile := fs.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write temp state file: %w", err)
	}

	if err := os.Rename(tempFile, fs.path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to move state file: %w", err)
	}

	fs.logger.Debug("State saved to %s", fs.path)
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
