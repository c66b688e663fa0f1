package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/surgimedia/casesync/internal/models"
	"github.com/surgimedia/casesync/internal/observability"
	"go.uber.org/zap"
)

// RunFullSync drives a run end to end: conflict check, registration,
// the three stages, and terminal bookkeeping. It is also the resume
// entry point: when a persisted run state exists and the manifest
// artifact survived, the fetch and manifest stages are skipped and the
// batch loop continues from the stored cursor. A run lock held for the
// duration of the invocation keeps a run single-writer even when more
// than one process sees the persisted state.
//
// A NeedsResume result is not terminal. The run keeps its history
// record in the started state and expects RunFullSync to be invoked
// again; everything it needs to continue is in the persisted
// artifacts.
func (e *Engine) RunFullSync(ctx context.Context, source string) RunResult {
	state, err := e.artifacts.LoadRunState(ctx)
	if err != nil {
		e.logger.Error("failed to load run state", zap.Error(err))
		return RunResult{Status: models.LogStatusFailed, Message: err.Error()}
	}
	resuming := state != nil

	if resuming {
		e.logger.Info("resuming paused sync run",
			zap.String("run_id", state.RunID),
			zap.String("record_id", state.RecordID),
			zap.String("source", state.Source))
	} else {
		state = &models.SyncRunState{
			RunID:     uuid.NewString(),
			Source:    source,
			StartedAt: time.Now().UTC(),
		}
	}

	// The run lock keeps the cursor single-writer: two processes that
	// both see a paused run must not both drain it.
	acquired, lockErr := e.lock.AcquireRunLock(ctx, state.RunID)
	if lockErr != nil {
		e.logger.Warn("run lock unavailable, proceeding without cross-process exclusion", zap.Error(lockErr))
	} else if !acquired {
		e.logger.Info("sync refused: another process holds the run lock",
			zap.String("run_id", state.RunID),
			zap.String("source", state.Source))
		return RunResult{
			Status:  RunStatusConflict,
			Message: "another process is already executing a sync run",
			RunID:   state.RunID,
		}
	} else {
		defer func() {
			if err := e.lock.ReleaseRunLock(ctx, state.RunID); err != nil {
				e.logger.Warn("failed to release run lock", zap.Error(err))
			}
		}()
	}

	if resuming {
		state.AddActivity("resumed paused run")
	} else {
		if result, proceed := e.checkConflict(ctx, state); !proceed {
			return result
		}

		recordID, err := e.history.LogStart(ctx, source)
		if err != nil {
			e.logger.Error("failed to open history record", zap.Error(err))
			return RunResult{Status: models.LogStatusFailed, Message: err.Error()}
		}
		state.RecordID = recordID

		e.register(ctx, state)

		if err := e.artifacts.SaveRunState(ctx, state); err != nil {
			return e.finishRun(ctx, state, nil, models.LogStatusFailed, err.Error())
		}
	}

	e.reportStatus(ctx, state, models.JobStatusInProgress, 0, "sync in progress")

	runStages := !resuming
	if resuming {
		// A crash between registration and the manifest write leaves a
		// run state with nothing to resume from. Redo the stages under
		// the same record and job instead of failing.
		if _, err := e.artifacts.LoadManifest(ctx); err != nil {
			if !errors.Is(err, models.ErrPrerequisiteMissing) {
				state.AddError(err.Error())
				return e.finishRun(ctx, state, nil, models.LogStatusFailed, err.Error())
			}
			e.logger.Info("no manifest found at resume, rerunning earlier stages",
				zap.String("run_id", state.RunID))
			state.AddActivity("manifest missing at resume, rerunning fetch and manifest stages")
			runStages = true
		}
	}

	if runStages {
		if result := e.FetchProcedures(ctx, state); !result.Success {
			return e.finishRun(ctx, state, nil, models.LogStatusFailed, result.Message)
		}
		if result := e.BuildManifest(ctx, state); !result.Success {
			return e.finishRun(ctx, state, nil, models.LogStatusFailed, result.Message)
		}
		if err := e.artifacts.SaveRunState(ctx, state); err != nil {
			return e.finishRun(ctx, state, nil, models.LogStatusFailed, err.Error())
		}
	}

	return e.runBatchLoop(ctx, state)
}

// LoadRunState exposes the persisted run state so callers can detect
// an interrupted run without reaching into the artifact store.
func (e *Engine) LoadRunState(ctx context.Context) (*models.SyncRunState, error) {
	return e.artifacts.LoadRunState(ctx)
}

// checkConflict enforces single-run exclusion before any work starts.
// An automatically triggered run adopts the job the scheduler
// pre-registered; every other source is refused while a job is active.
// A coordinator outage degrades to proceeding without exclusion.
func (e *Engine) checkConflict(ctx context.Context, state *models.SyncRunState) (RunResult, bool) {
	active, err := e.registry.HasActiveJob(ctx)
	if err != nil {
		e.logger.Warn("coordinator unreachable, proceeding without exclusion check", zap.Error(err))
		state.AddWarning(fmt.Sprintf("coordinator unreachable during conflict check: %v", err))
		return RunResult{}, true
	}
	if !active {
		return RunResult{}, true
	}

	if state.Source == models.SourceAutomatic {
		job, err := e.registry.GetCurrentJob(ctx)
		if err == nil && job != nil && job.Type == models.JobTypeAuto {
			state.JobID = job.ID
			state.AddActivity(fmt.Sprintf("adopted scheduled job %s", job.ID))
			return RunResult{}, true
		}
	}

	e.logger.Info("sync refused: another job is active",
		zap.String("source", state.Source))
	return RunResult{
		Status:  RunStatusConflict,
		Message: "another sync job is already active",
		RunID:   state.RunID,
	}, false
}

// register obtains a coordinator job ID unless one was adopted from
// the scheduler. Coordinator failures are non-fatal: the run proceeds
// unregistered and the gap is recorded as a warning.
func (e *Engine) register(ctx context.Context, state *models.SyncRunState) {
	if state.JobID != "" {
		return
	}

	jobType := models.JobTypeManual
	if state.Source == models.SourceAutomatic {
		jobType = models.JobTypeAuto
	}

	jobID, err := e.registry.RegisterSync(ctx, jobType, nil)
	if err != nil {
		if errors.Is(err, models.ErrScheduleConflict) {
			e.logger.Warn("coordinator reported conflict at register time, proceeding unregistered")
			state.AddWarning("coordinator registration conflict, run proceeds unregistered")
			return
		}
		e.logger.Warn("coordinator registration failed", zap.Error(err))
		state.AddWarning(fmt.Sprintf("coordinator registration failed: %v", err))
		return
	}
	state.JobID = jobID
}

// runBatchLoop is Stage 3: drain the manifest batch by batch, checking
// the stop flag and the resource guard only between batches.
func (e *Engine) runBatchLoop(ctx context.Context, state *models.SyncRunState) RunResult {
	manifest, err := e.artifacts.LoadManifest(ctx)
	if err != nil {
		state.AddError(err.Error())
		return e.finishRun(ctx, state, nil, models.LogStatusFailed, err.Error())
	}

	cursor, err := e.artifacts.LoadCursor(ctx)
	if err != nil {
		state.AddError(err.Error())
		return e.finishRun(ctx, state, nil, models.LogStatusFailed, err.Error())
	}
	if cursor == nil {
		cursor = &models.BatchCursor{TotalCases: manifest.TotalCases()}
	}

	guard := newResourceGuard(e.opts.MaxElapsed, e.opts.MemoryLimitMB)

	for loop := 0; loop < e.opts.MaxBatchLoops; loop++ {
		if e.stop.StopRequested(ctx) {
			e.logger.Info("stop requested, ending run at batch boundary",
				zap.Int("processed", cursor.Processed),
				zap.Int("remaining", cursor.Remaining()))
			state.AddActivity(fmt.Sprintf("stopped by operator after %d of %d cases", cursor.Processed, cursor.TotalCases))
			return e.finishRun(ctx, state, cursor, models.LogStatusStopped, "stopped by operator")
		}

		if pause, reason := guard.shouldPause(); pause {
			return e.pauseRun(ctx, state, cursor, reason)
		}

		result := e.ProcessNextBatch(ctx, state, manifest, cursor, guard)
		if !result.Success {
			return e.finishRun(ctx, state, cursor, models.LogStatusFailed, result.Message)
		}
		if !result.NeedsContinue {
			break
		}

		if e.opts.BatchYield > 0 {
			time.Sleep(e.opts.BatchYield)
		}
	}

	if cursor.NeedsContinue() {
		msg := fmt.Sprintf("batch loop ceiling reached with %d cases remaining", cursor.Remaining())
		state.AddError(msg)
		return e.finishRun(ctx, state, cursor, models.LogStatusFailed, msg)
	}

	status := models.LogStatusCompleted
	message := fmt.Sprintf("synced %d cases", cursor.Processed)
	if cursor.Failed > 0 {
		status = models.LogStatusPartial
		message = fmt.Sprintf("synced %d cases, %d failed", cursor.Processed, cursor.Failed)
	}
	state.AddActivity(message)
	return e.finishRun(ctx, state, cursor, status, message)
}

// pauseRun suspends the run without a terminal transition. The history
// record stays open and all artifacts remain for the next invocation.
func (e *Engine) pauseRun(ctx context.Context, state *models.SyncRunState, cursor *models.BatchCursor, reason string) RunResult {
	observability.SyncPauses.WithLabelValues(reason).Inc()
	state.AddActivity(fmt.Sprintf("paused (%s) after %d of %d cases", reason, cursor.Processed, cursor.TotalCases))

	if err := e.artifacts.SaveRunState(ctx, state); err != nil {
		e.logger.Error("failed to persist run state at pause", zap.Error(err))
		return e.finishRun(ctx, state, cursor, models.LogStatusFailed, err.Error())
	}

	e.logger.Info("run paused, awaiting resume",
		zap.String("reason", reason),
		zap.Int("processed", cursor.Processed),
		zap.Int("remaining", cursor.Remaining()))

	return RunResult{
		Status:      RunStatusPaused,
		Message:     fmt.Sprintf("paused: %s limit reached", reason),
		RunID:       state.RunID,
		RecordID:    state.RecordID,
		JobID:       state.JobID,
		Processed:   cursor.Processed,
		Failed:      cursor.Failed,
		NeedsResume: true,
	}
}

// finishRun performs the terminal transition: close the history
// record, report to the coordinator, and clear all run state so the
// next run starts clean.
func (e *Engine) finishRun(ctx context.Context, state *models.SyncRunState, cursor *models.BatchCursor, status, message string) RunResult {
	processed, failed := 0, 0
	if cursor != nil {
		processed = cursor.Processed
		failed = cursor.Failed
	}

	if state.RecordID != "" {
		details := state.Details(cursor)
		if err := e.history.LogUpdate(ctx, state.RecordID, status, processed, failed, details); err != nil {
			// The started->terminal window was already consumed, most
			// likely by a crash between the terminal write and cleanup.
			// Amend folds this continuation's counts into the record.
			e.logger.Warn("terminal log update rejected, amending record",
				zap.String("record_id", state.RecordID),
				zap.Error(err))
			if amendErr := e.history.Amend(ctx, state.RecordID, status, processed, failed, details); amendErr != nil {
				e.logger.Error("failed to amend history record", zap.Error(amendErr))
			}
		}
	}

	e.reportStatus(ctx, state, jobStatusFor(status, processed), processed, message)
	observability.SyncRuns.WithLabelValues(state.Source, status).Inc()

	if err := e.artifacts.Clear(ctx); err != nil {
		e.logger.Warn("failed to clear run artifacts", zap.Error(err))
	}
	if err := e.progress.Clear(ctx); err != nil {
		e.logger.Warn("failed to clear progress snapshot", zap.Error(err))
	}
	if err := e.stop.ClearStop(ctx); err != nil {
		e.logger.Warn("failed to clear stop flag", zap.Error(err))
	}

	e.logger.Info("sync run finished",
		zap.String("run_id", state.RunID),
		zap.String("status", status),
		zap.Int("processed", processed),
		zap.Int("failed", failed))

	return RunResult{
		Status:    status,
		Message:   message,
		RunID:     state.RunID,
		RecordID:  state.RecordID,
		JobID:     state.JobID,
		Processed: processed,
		Failed:    failed,
	}
}

// jobStatusFor maps a history status onto the coordinator's vocabulary.
// The coordinator has no stopped status: a stop with work done reports
// partial, a stop before any work reports failed.
func jobStatusFor(logStatus string, processed int) string {
	switch logStatus {
	case models.LogStatusCompleted:
		return models.JobStatusSuccess
	case models.LogStatusPartial:
		return models.JobStatusPartial
	case models.LogStatusStopped:
		if processed > 0 {
			return models.JobStatusPartial
		}
		return models.JobStatusFailed
	}
	return models.JobStatusFailed
}

// reportStatus sends a best-effort coordinator report. The coordinator
// is advisory during a run; its outage never changes the run outcome.
func (e *Engine) reportStatus(ctx context.Context, state *models.SyncRunState, status string, casesSynced int, message string) {
	if state.JobID == "" {
		return
	}
	err := e.registry.ReportSync(ctx, status, casesSynced, message, map[string]interface{}{
		"run_id": state.RunID,
		"source": state.Source,
	})
	if err != nil {
		e.logger.Warn("coordinator report failed",
			zap.String("status", status),
			zap.Error(err))
		state.AddWarning(fmt.Sprintf("coordinator report (%s) failed: %v", status, err))
	}
}
