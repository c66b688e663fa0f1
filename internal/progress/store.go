package progress

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/surgimedia/casesync/internal/models"
	"github.com/surgimedia/casesync/internal/redisclient"
	"go.uber.org/zap"
)

const (
	snapshotKey = "sync:progress"

	// snapshotTTL keeps a stale snapshot from outliving a crashed run
	// by much; an active run republishes well within this window.
	snapshotTTL = 10 * time.Minute
)

// Store publishes and reads the in-flight progress snapshot. It is
// single-writer (the active run) and multi-reader (UI polling);
// last-write-wins replacement is the only guarantee.
type Store interface {
	Publish(ctx context.Context, snapshot *models.ProgressSnapshot) error
	Read(ctx context.Context) *models.ProgressSnapshot
	Clear(ctx context.Context) error
}

// RedisStore is the Redis-backed progress store.
type RedisStore struct {
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewRedisStore creates a progress store over the traced Redis client.
func NewRedisStore(client *redisclient.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{redis: client, logger: logger}
}

// Publish overwrites the snapshot. Failures are logged, not returned
// as fatal: losing a progress tick must never fail the sync itself.
func (s *RedisStore) Publish(ctx context.Context, snapshot *models.ProgressSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Error("failed to marshal progress snapshot", zap.Error(err))
		return err
	}
	if err := s.redis.Set(ctx, snapshotKey, string(data), snapshotTTL).Err(); err != nil {
		s.logger.Warn("failed to publish progress snapshot", zap.Error(err))
		return err
	}
	return nil
}

// Read returns the best-known snapshot. It never blocks and degrades
// to an idle snapshot when nothing is published or Redis is down.
func (s *RedisStore) Read(ctx context.Context) *models.ProgressSnapshot {
	data, err := s.redis.Get(ctx, snapshotKey).Result()
	if err == redis.Nil {
		return models.IdleSnapshot()
	}
	if err != nil {
		s.logger.Warn("failed to read progress snapshot", zap.Error(err))
		return models.IdleSnapshot()
	}

	var snapshot models.ProgressSnapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		s.logger.Warn("failed to decode progress snapshot", zap.Error(err))
		return models.IdleSnapshot()
	}
	return &snapshot
}

// Clear removes the snapshot at run end or explicit stop.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.redis.Del(ctx, snapshotKey).Err()
}
