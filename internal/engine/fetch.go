package engine

import (
	"context"
	"fmt"

	"github.com/surgimedia/casesync/internal/models"
	"go.uber.org/zap"
)

// FetchProcedures is Stage 1: pull the remote procedure catalog,
// upsert the taxonomy entries, and write the durable procedures
// artifact Stage 2 depends on.
func (e *Engine) FetchProcedures(ctx context.Context, state *models.SyncRunState) StageResult {
	e.publishSnapshot(ctx, state, models.StageFetching, nil, nil)

	procedures, err := e.gallery.FetchProcedures(ctx)
	if err != nil {
		e.logger.Error("procedure fetch failed", zap.Error(err))
		state.AddError(err.Error())
		return StageResult{Success: false, Message: err.Error()}
	}
	if len(procedures) == 0 {
		msg := "remote catalog returned no procedures"
		state.AddError(msg)
		return StageResult{Success: false, Message: msg}
	}

	var created, updated int
	for i, procedure := range procedures {
		wasCreated, err := e.entities.UpsertProcedure(ctx, procedure)
		if err != nil {
			// A single bad taxonomy entry is a warning; losing the
			// whole catalog would already have failed above.
			e.logger.Warn("procedure upsert failed",
				zap.String("slug", procedure.Slug),
				zap.Error(err))
			state.AddWarning(fmt.Sprintf("procedure %s: %v", procedure.Slug, err))
			continue
		}
		if wasCreated {
			created++
		} else {
			updated++
		}

		e.publishSnapshot(ctx, state, models.StageFetching, &models.StageProgress{
			Current: i + 1,
			Total:   len(procedures),
			Percent: models.Percent(i+1, len(procedures)),
		}, nil)
	}

	if err := e.artifacts.SaveProcedures(ctx, procedures); err != nil {
		e.logger.Error("failed to persist procedures artifact", zap.Error(err))
		state.AddError(err.Error())
		return StageResult{Success: false, Message: err.Error(), Created: created, Updated: updated}
	}

	state.ProcedureCount = len(procedures)
	state.ProceduresCreated = created
	state.ProceduresUpdated = updated
	state.AddActivity(fmt.Sprintf("fetched %d procedures (%d created, %d updated)",
		len(procedures), created, updated))

	e.logger.Info("stage 1 complete",
		zap.Int("procedures", len(procedures)),
		zap.Int("created", created),
		zap.Int("updated", updated))

	return StageResult{Success: true, Created: created, Updated: updated}
}
