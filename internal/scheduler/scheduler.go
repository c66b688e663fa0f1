package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/surgimedia/casesync/internal/engine"
	"github.com/surgimedia/casesync/internal/models"
	"github.com/surgimedia/casesync/internal/registry"
	"github.com/surgimedia/casesync/internal/store"
	"go.uber.org/zap"
)

// pollInterval is how often the daemon re-reads the schedule and
// checks whether the next run is due. Coarse on purpose: the schedule
// has minute granularity.
const pollInterval = 30 * time.Second

// Scheduler owns the weekly automatic sync. It computes the next run
// time from the persisted schedule, pre-registers the run with the job
// coordinator, and invokes the engine when the time arrives.
type Scheduler struct {
	engine   *engine.Engine
	store    store.ScheduleStore
	registry registry.Client
	logger   *zap.Logger
}

// New creates a scheduler.
func New(eng *engine.Engine, scheduleStore store.ScheduleStore, registryClient registry.Client, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		engine:   eng,
		store:    scheduleStore,
		registry: registryClient,
		logger:   logger,
	}
}

// NextRunTime computes the first occurrence of the configured weekday
// and time strictly after now, in the schedule's timezone. If today is
// the configured day and the time is still ahead, the run is today;
// otherwise it is the next weekly occurrence.
func NextRunTime(config *models.ScheduleConfig, now time.Time) (time.Time, error) {
	hour, minute, err := config.ParseTimeOfDay()
	if err != nil {
		return time.Time{}, err
	}

	loc := config.Location()
	local := now.In(loc)

	daysAhead := (config.DayOfWeek - int(local.Weekday()) + 7) % 7
	candidate := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc).
		AddDate(0, 0, daysAhead)
	if !candidate.After(local) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate, nil
}

// Apply validates and persists a new schedule, recomputing and
// registering the next run when the schedule is enabled. Disabling
// drops the pending next-run time.
func (s *Scheduler) Apply(ctx context.Context, config *models.ScheduleConfig) (time.Time, error) {
	if err := config.Validate(); err != nil {
		return time.Time{}, err
	}
	if err := s.store.SaveSchedule(ctx, config); err != nil {
		return time.Time{}, err
	}

	if !config.Enabled {
		if err := s.store.ClearNextRun(ctx); err != nil {
			s.logger.Warn("failed to clear next run time", zap.Error(err))
		}
		s.logger.Info("automatic sync disabled")
		return time.Time{}, nil
	}

	next, err := NextRunTime(config, time.Now())
	if err != nil {
		return time.Time{}, err
	}
	if err := s.store.SaveNextRun(ctx, next); err != nil {
		return time.Time{}, err
	}

	s.preRegister(ctx, next)

	s.logger.Info("automatic sync scheduled",
		zap.Time("next_run", next),
		zap.Int("day_of_week", config.DayOfWeek),
		zap.String("time_of_day", config.TimeOfDay))
	return next, nil
}

// preRegister claims the future slot with the coordinator. Registration
// is deferred when another job is active; ensureRegistered retries it
// on later polls once the slot frees up. A coordinator outage is
// tolerated the same way.
func (s *Scheduler) preRegister(ctx context.Context, next time.Time) {
	_, err := s.registry.RegisterSync(ctx, models.JobTypeAuto, &next)
	if err == nil {
		s.logger.Info("scheduled run pre-registered", zap.Time("next_run", next))
		return
	}
	if errors.Is(err, models.ErrScheduleConflict) {
		s.logger.Info("coordinator busy, deferring scheduled-run registration")
		return
	}
	s.logger.Warn("failed to pre-register scheduled run", zap.Error(err))
}

// ensureRegistered re-attempts a deferred pre-registration while a run
// is pending. A successful registration holds the coordinator slot, so
// this registers at most once per pending run.
func (s *Scheduler) ensureRegistered(ctx context.Context, next time.Time) {
	active, err := s.registry.HasActiveJob(ctx)
	if err != nil || active {
		return
	}
	s.preRegister(ctx, next)
}

// Run is the daemon loop. It wakes on a coarse interval, fires the
// engine when the next-run time has passed, and reschedules the
// following occurrence afterwards. It returns when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	config, err := s.store.LoadSchedule(ctx)
	if err != nil {
		s.logger.Warn("failed to load schedule", zap.Error(err))
		return
	}
	if !config.Enabled {
		return
	}

	next, err := s.store.LoadNextRun(ctx)
	if err != nil {
		s.logger.Warn("failed to load next run time", zap.Error(err))
		return
	}
	if next.IsZero() {
		// enabled but never scheduled, e.g. after a flush; recompute
		if _, err := s.Apply(ctx, config); err != nil {
			s.logger.Warn("failed to reschedule", zap.Error(err))
		}
		return
	}
	if time.Now().Before(next) {
		s.ensureRegistered(ctx, next)
		return
	}

	s.logger.Info("scheduled sync due", zap.Time("next_run", next))
	result := s.engine.RunFullSync(ctx, models.SourceAutomatic)
	s.logger.Info("scheduled sync finished",
		zap.String("status", result.Status),
		zap.Int("processed", result.Processed),
		zap.Bool("needs_resume", result.NeedsResume))

	if result.NeedsResume {
		// leave next_run in the past so the next tick resumes the run
		return
	}

	if _, err := s.Apply(ctx, config); err != nil {
		s.logger.Warn("failed to schedule next occurrence", zap.Error(err))
	}
}
