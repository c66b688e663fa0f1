package services

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/surgimedia/casesync/internal/engine"
	"github.com/surgimedia/casesync/internal/models"
	"github.com/surgimedia/casesync/internal/progress"
	"github.com/surgimedia/casesync/internal/registry"
	"github.com/surgimedia/casesync/internal/store"
	"go.uber.org/zap"
)

// resumeCooldown is how long a paused run waits before resuming. The
// pause exists to shed memory and yield the CPU, so resuming
// immediately would defeat it.
const resumeCooldown = 5 * time.Second

// SyncService runs syncs in the background and answers status queries.
// It enforces one run per process; cross-process exclusion belongs to
// the job coordinator.
type SyncService struct {
	engine    *engine.Engine
	schedules store.ScheduleStore
	history   store.HistoryStore
	progress  progress.Store
	registry  registry.Client
	logger    *zap.Logger

	mu         sync.Mutex
	running    bool
	lastResult *engine.RunResult
}

// NewSyncService creates the sync service.
func NewSyncService(
	eng *engine.Engine,
	schedules store.ScheduleStore,
	history store.HistoryStore,
	progressStore progress.Store,
	registryClient registry.Client,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		engine:    eng,
		schedules: schedules,
		history:   history,
		progress:  progressStore,
		registry:  registryClient,
		logger:    logger,
	}
}

// TriggerAsync starts a sync in the background. It returns false when
// a run is already active in this process.
func (s *SyncService) TriggerAsync(source string) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()
		s.runToCompletion(context.Background(), source)
	}()
	return true
}

// runToCompletion drives a run through any pauses. Each pause sheds
// memory and waits out the cooldown before the engine picks the run
// back up from its persisted cursor.
func (s *SyncService) runToCompletion(ctx context.Context, source string) {
	for {
		result := s.engine.RunFullSync(ctx, source)

		s.mu.Lock()
		s.lastResult = &result
		s.mu.Unlock()

		if !result.NeedsResume {
			return
		}

		s.logger.Info("run paused, resuming after cooldown",
			zap.String("run_id", result.RunID),
			zap.Int("processed", result.Processed))
		runtime.GC()
		time.Sleep(resumeCooldown)
	}
}

// IsRunning reports whether a run is active in this process.
func (s *SyncService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastResult returns the most recent run result, or nil.
func (s *SyncService) LastResult() *engine.RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastResult == nil {
		return nil
	}
	copied := *s.lastResult
	return &copied
}

// RequestStop raises the cooperative stop flag. The active run honors
// it at the next batch boundary.
func (s *SyncService) RequestStop(ctx context.Context) error {
	return s.schedules.RequestStop(ctx)
}

// Status assembles the full status view: local run state, schedule,
// coordinator job, and the most recent history entry.
func (s *SyncService) Status(ctx context.Context) map[string]interface{} {
	status := map[string]interface{}{
		"running": s.IsRunning(),
	}

	if last := s.LastResult(); last != nil {
		status["last_run"] = last
	}

	if config, err := s.schedules.LoadSchedule(ctx); err == nil {
		status["schedule"] = config
	}
	if next, err := s.schedules.LoadNextRun(ctx); err == nil && !next.IsZero() {
		status["next_run"] = next.UTC().Format(time.RFC3339)
	}

	if records, err := s.history.List(ctx, 1); err == nil && len(records) > 0 {
		status["last_log"] = records[0]
	}

	// coordinator state is advisory; omit it when unreachable
	if job, err := s.registry.GetCurrentJob(ctx); err == nil && job != nil {
		status["active_job"] = job
	}
	if report, err := s.registry.GetLastReport(ctx); err == nil && report != nil {
		status["last_report"] = report
	}

	return status
}

// Progress returns the live snapshot for the active run, degrading to
// idle when nothing is running.
func (s *SyncService) Progress(ctx context.Context) *models.ProgressSnapshot {
	return s.progress.Read(ctx)
}

// ResumeIfInterrupted checks for a run that a previous process left
// behind and finishes it. Called once at startup.
func (s *SyncService) ResumeIfInterrupted(ctx context.Context) {
	snapshot := s.progress.Read(ctx)
	if snapshot != nil && snapshot.Stage != models.StageIdle {
		s.logger.Info("found in-flight progress snapshot from previous process")
	}

	if s.TriggerResumeOnly() {
		s.logger.Info("resuming interrupted run from persisted artifacts")
	}
}

// TriggerResumeOnly starts a background run only when persisted run
// state exists, i.e. a previous run was interrupted mid-flight.
func (s *SyncService) TriggerResumeOnly() bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	state, err := s.engine.LoadRunState(context.Background())
	if err != nil || state == nil {
		return false
	}
	return s.TriggerAsync(state.Source)
}
