package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/surgimedia/casesync/internal/models"
	"github.com/surgimedia/casesync/internal/observability"
	"go.uber.org/zap"
)

// ProcessNextBatch is one Stage 3 iteration: fetch and upsert a
// bounded slice of cases starting at the cursor, then persist the
// advanced cursor. A per-case failure is recorded and counted but
// never aborts the batch; only an artifact-store failure does, since a
// cursor that cannot be persisted would make resumption repeat work.
func (e *Engine) ProcessNextBatch(ctx context.Context, state *models.SyncRunState, manifest *models.Manifest, cursor *models.BatchCursor, guard *resourceGuard) BatchResult {
	start := time.Now()
	batch := manifest.Slice(cursor.NextIndex, e.opts.BatchSize)
	if len(batch) == 0 {
		return BatchResult{
			Success:    true,
			Processed:  0,
			TotalCases: cursor.TotalCases,
		}
	}

	snapshot := e.newSnapshot(state, models.StageProcessing, guard)
	var created, updated, failed int

	for _, caseID := range batch {
		detail, err := e.gallery.FetchCaseDetail(ctx, caseID)
		if err != nil {
			failed++
			state.AddError(fmt.Sprintf("case %s: fetch: %v", caseID, err))
			// A refetch failure for a case imported by an earlier run
			// leaves the older copy in place rather than losing it.
			if exists, existsErr := e.entities.CaseExists(ctx, caseID); existsErr == nil && exists {
				state.AddWarning(fmt.Sprintf("case %s: refetch failed, previously imported copy retained", caseID))
			}
			e.logger.Warn("case fetch failed",
				zap.String("case_id", caseID),
				zap.Error(err))
			observability.CasesSynced.WithLabelValues("failed").Inc()
			snapshot.PushRecentCase(caseID, "failed")
			continue
		}

		wasCreated, err := e.entities.UpsertCase(ctx, detail)
		if err != nil {
			failed++
			state.AddError(fmt.Sprintf("case %s: upsert: %v", caseID, err))
			e.logger.Warn("case upsert failed",
				zap.String("case_id", caseID),
				zap.Error(err))
			observability.CasesSynced.WithLabelValues("failed").Inc()
			snapshot.PushRecentCase(caseID, "failed")
			continue
		}

		if wasCreated {
			created++
			observability.CasesSynced.WithLabelValues("created").Inc()
			snapshot.PushRecentCase(caseID, "created")
		} else {
			updated++
			observability.CasesSynced.WithLabelValues("updated").Inc()
			snapshot.PushRecentCase(caseID, "updated")
		}
		if len(detail.ProcedureSlugs) > 0 {
			snapshot.CurrentProcedure = detail.ProcedureSlugs[0]
		}
	}

	cursor.NextIndex += len(batch)
	cursor.Created += created
	cursor.Updated += updated
	cursor.Failed += failed
	cursor.Processed += len(batch)
	cursor.UpdatedAt = time.Now().UTC()

	// The cursor write is the checkpoint: everything before it can be
	// repeated on crash, everything after it cannot be lost.
	if err := e.artifacts.SaveCursor(ctx, cursor); err != nil {
		e.logger.Error("failed to persist batch cursor", zap.Error(err))
		state.AddError(err.Error())
		return BatchResult{Success: false, Message: err.Error(), TotalCases: cursor.TotalCases}
	}

	snapshot.CaseProgress = models.StageProgress{
		Current: cursor.Processed,
		Total:   cursor.TotalCases,
		Percent: models.Percent(cursor.Processed, cursor.TotalCases),
	}
	snapshot.OverallPercent = overallPercent(models.StageProcessing, snapshot.CaseProgress.Percent)
	e.progress.Publish(ctx, snapshot)

	observability.BatchDuration.Observe(time.Since(start).Seconds())
	e.logger.Debug("batch processed",
		zap.Int("batch_size", len(batch)),
		zap.Int("created", created),
		zap.Int("updated", updated),
		zap.Int("failed", failed),
		zap.Int("next_index", cursor.NextIndex),
		zap.Int("total_cases", cursor.TotalCases))

	return BatchResult{
		Success:       true,
		Created:       created,
		Updated:       updated,
		Failed:        failed,
		Processed:     len(batch),
		TotalCases:    cursor.TotalCases,
		NeedsContinue: cursor.NeedsContinue(),
	}
}

// overallPercent maps a stage-local percentage onto the whole run:
// fetching covers 0-5%, manifest 5-15%, processing 15-100%.
func overallPercent(stage string, stagePercent float64) float64 {
	switch stage {
	case models.StageFetching:
		return stagePercent * 0.05
	case models.StageManifest:
		return 5 + stagePercent*0.10
	case models.StageProcessing:
		return 15 + stagePercent*0.85
	}
	return 0
}

// newSnapshot builds a snapshot carrying run-wide context, preserving
// the recent-case ring from the previous publish.
func (e *Engine) newSnapshot(state *models.SyncRunState, stage string, guard *resourceGuard) *models.ProgressSnapshot {
	snapshot := e.progress.Read(context.Background())
	if snapshot == nil || snapshot.Stage == models.StageIdle {
		snapshot = &models.ProgressSnapshot{}
	}
	snapshot.Stage = stage
	if guard != nil {
		snapshot.ElapsedSeconds = guard.elapsedSeconds()
		snapshot.MemoryUsedBytes = guard.sample()
		snapshot.MemoryPeakBytes = guard.memPeak
		snapshot.MemoryLimitBytes = guard.memLimit
	}
	return snapshot
}

// publishSnapshot publishes a stage transition outside the batch loop.
func (e *Engine) publishSnapshot(ctx context.Context, state *models.SyncRunState, stage string, procedureProgress, caseProgress *models.StageProgress) {
	snapshot := e.newSnapshot(state, stage, nil)
	if procedureProgress != nil {
		snapshot.ProcedureProgress = *procedureProgress
		snapshot.OverallPercent = overallPercent(stage, procedureProgress.Percent)
	}
	if caseProgress != nil {
		snapshot.CaseProgress = *caseProgress
		snapshot.OverallPercent = overallPercent(stage, caseProgress.Percent)
	}
	e.progress.Publish(ctx, snapshot)
}
