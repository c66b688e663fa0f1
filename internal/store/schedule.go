package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/surgimedia/casesync/internal/models"
	"github.com/surgimedia/casesync/internal/redisclient"
)

// Redis keys for schedule state, the cooperative stop flag, and the
// cross-process run lock.
const (
	scheduleConfigKey = "sync:schedule:config"
	nextRunKey        = "sync:schedule:next_run"
	stopFlagKey       = "sync:stop_flag"
	runLockKey        = "sync:run_lock"
)

// runLockTTL bounds how long a crashed holder can block the next run.
// The resource guard pauses a run segment well before this expires.
const runLockTTL = 10 * time.Minute

// ScheduleStore persists the weekly schedule, the computed next-run
// time, and the stop flag the engine polls at batch boundaries.
type ScheduleStore interface {
	SaveSchedule(ctx context.Context, config *models.ScheduleConfig) error
	LoadSchedule(ctx context.Context) (*models.ScheduleConfig, error)
	SaveNextRun(ctx context.Context, t time.Time) error
	LoadNextRun(ctx context.Context) (time.Time, error)
	ClearNextRun(ctx context.Context) error
	RequestStop(ctx context.Context) error
	ClearStop(ctx context.Context) error
	StopRequested(ctx context.Context) bool
}

// RedisScheduleStore is the Redis-backed schedule store.
type RedisScheduleStore struct {
	redis *redisclient.Client
}

// NewRedisScheduleStore creates a schedule store over the traced
// Redis client.
func NewRedisScheduleStore(client *redisclient.Client) *RedisScheduleStore {
	return &RedisScheduleStore{redis: client}
}

// SaveSchedule persists the schedule configuration.
func (s *RedisScheduleStore) SaveSchedule(ctx context.Context, config *models.ScheduleConfig) error {
	data, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule config: %w", err)
	}
	if err := s.redis.Set(ctx, scheduleConfigKey, string(data), 0).Err(); err != nil {
		return fmt.Errorf("failed to save schedule config: %w", err)
	}
	return nil
}

// LoadSchedule reads the schedule configuration, returning a disabled
// default when none was ever saved.
func (s *RedisScheduleStore) LoadSchedule(ctx context.Context) (*models.ScheduleConfig, error) {
	data, err := s.redis.Get(ctx, scheduleConfigKey).Result()
	if err == redis.Nil {
		return &models.ScheduleConfig{Enabled: false, DayOfWeek: 0, TimeOfDay: "02:00"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule config: %w", err)
	}

	var config models.ScheduleConfig
	if err := json.Unmarshal([]byte(data), &config); err != nil {
		return nil, fmt.Errorf("failed to decode schedule config: %w", err)
	}
	return &config, nil
}

// SaveNextRun persists the computed next-run time.
func (s *RedisScheduleStore) SaveNextRun(ctx context.Context, t time.Time) error {
	if err := s.redis.Set(ctx, nextRunKey, t.UTC().Format(time.RFC3339), 0).Err(); err != nil {
		return fmt.Errorf("failed to save next run time: %w", err)
	}
	return nil
}

// LoadNextRun reads the persisted next-run time; the zero time means
// nothing is scheduled.
func (s *RedisScheduleStore) LoadNextRun(ctx context.Context) (time.Time, error) {
	data, err := s.redis.Get(ctx, nextRunKey).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load next run time: %w", err)
	}
	t, err := time.Parse(time.RFC3339, data)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse next run time %q: %w", data, err)
	}
	return t, nil
}

// ClearNextRun drops the scheduled next-run time.
func (s *RedisScheduleStore) ClearNextRun(ctx context.Context) error {
	return s.redis.Del(ctx, nextRunKey).Err()
}

// RequestStop sets the cooperative stop flag. The engine honors it at
// the next batch boundary, never mid-batch.
func (s *RedisScheduleStore) RequestStop(ctx context.Context) error {
	return s.redis.Set(ctx, stopFlagKey, "1", 0).Err()
}

// ClearStop clears the stop flag.
func (s *RedisScheduleStore) ClearStop(ctx context.Context) error {
	return s.redis.Del(ctx, stopFlagKey).Err()
}

// StopRequested reports whether a stop was requested. Errors read as
// "no stop" so a Redis outage cannot silently halt a run.
func (s *RedisScheduleStore) StopRequested(ctx context.Context) bool {
	n, err := s.redis.Exists(ctx, stopFlagKey).Result()
	if err != nil {
		return false
	}
	return n > 0
}

// AcquireRunLock claims the single run-execution slot for runID. At
// most one process holds it at a time; a paused or finished run
// releases it so another process can pick the run up.
func (s *RedisScheduleStore) AcquireRunLock(ctx context.Context, runID string) (bool, error) {
	ok, err := s.redis.SetNX(ctx, runLockKey, runID, runLockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	return ok, nil
}

// ReleaseRunLock frees the run-execution slot, but only if runID still
// holds it. A lock that expired and was re-acquired elsewhere is left
// alone.
func (s *RedisScheduleStore) ReleaseRunLock(ctx context.Context, runID string) error {
	holder, err := s.redis.Get(ctx, runLockKey).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read run lock: %w", err)
	}
	if holder != runID {
		return nil
	}
	return s.redis.Del(ctx, runLockKey).Err()
}
