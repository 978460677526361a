package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ducminhle1904/crypto-signal-bot/internal/logger"
)

// RedisStore keeps the snapshot as one JSON value under a single key, for
// deployments where the bot host has no durable disk. SET replaces the
// value in one step so readers never see a partial write.
type RedisStore struct {
	Client redis.UniversalClient
	key    string
	logger *logger.Logger
}

// NewRedisStore connects with opt and stores the snapshot under key
func NewRedisStore(log *logger.Logger, opt *redis.Options, key string) *RedisStore {
	return NewRedisStoreWithClient(log, redis.NewClient(opt), key)
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(log *logger.Logger, client redis.UniversalClient, key string) *RedisStore {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &RedisStore{Client: client, key: key, logger: log}
}

// Name identifies the store in logs
func (s *RedisStore) Name() string {
	return "redis:" + s.key
}

// Load fetches and decodes the snapshot
func (s *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	b, err := s.Client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		s.logger.Info("No existing state under redis key %s, starting with clean state", s.key)
		return NewSnapshot(), nil
	}
	if err != nil {
		return NewSnapshot(), fmt.Errorf("failed to read state from redis: %w", err)
	}

	snapshot, warnings, err := Decode(b)
	if err != nil {
		s.logger.LogWarning("State Load", "Redis key %s holds corrupt state (%v), using clean state", s.key, err)
		return NewSnapshot(), nil
	}
	for _, w := range warnings {
		s.logger.LogWarning("State Load", "%s", w)
	}
	return snapshot, nil
}

// Save encodes and writes the snapshot without expiry. Record expiry is
// handled by CleanupExpired, not by a key TTL.
func (s *RedisStore) Save(ctx context.Context, snapshot *Snapshot) error {
	data, err := Encode(snapshot)
	if err != nil {
		return err
	}
	if err := s.Client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write state to redis: %w", err)
	}
	return nil
}

// Close releases the client connection pool
func (s *RedisStore) Close() error {
	return s.Client.Close()
}
