package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/surgimedia/casesync/internal/models"
	"go.uber.org/zap"
)

// BuildManifest is Stage 2: walk each procedure's case-ID list in
// order and collapse it into a single deduplicated, ordered manifest.
//
// Two duplicate counters are kept: duplicateOccurrences counts every
// repeat that was skipped, duplicateCount counts the unique IDs that
// repeated at least once.
func (e *Engine) BuildManifest(ctx context.Context, state *models.SyncRunState) ManifestResult {
	procedures, err := e.artifacts.LoadProcedures(ctx)
	if err != nil {
		if errors.Is(err, models.ErrPrerequisiteMissing) {
			e.logger.Error("manifest build refused: no procedures artifact")
		}
		state.AddError(err.Error())
		return ManifestResult{Success: false, Message: err.Error()}
	}
	if len(procedures) == 0 {
		err := fmt.Errorf("%w: procedures artifact is empty", models.ErrPrerequisiteMissing)
		state.AddError(err.Error())
		return ManifestResult{Success: false, Message: err.Error()}
	}

	e.publishSnapshot(ctx, state, models.StageManifest, &models.StageProgress{
		Total: len(procedures),
	}, nil)

	manifest := &models.Manifest{
		ProcedureCount: len(procedures),
		GeneratedAt:    time.Now().UTC(),
	}
	seen := make(map[string]int, 64)
	duplicated := make(map[string]bool)

	for _, procedure := range procedures {
		for _, caseID := range procedure.CaseIDs {
			if caseID == "" {
				continue
			}
			if _, ok := seen[caseID]; ok {
				manifest.DuplicateOccurrences++
				if !duplicated[caseID] {
					duplicated[caseID] = true
					manifest.DuplicateCount++
				}
				continue
			}
			seen[caseID] = len(manifest.CaseIDs)
			manifest.CaseIDs = append(manifest.CaseIDs, caseID)
		}
	}

	if err := e.artifacts.SaveManifest(ctx, manifest); err != nil {
		e.logger.Error("failed to persist manifest artifact", zap.Error(err))
		state.AddError(err.Error())
		return ManifestResult{Success: false, Message: err.Error()}
	}

	state.DuplicateOccurrences = manifest.DuplicateOccurrences
	state.DuplicateCount = manifest.DuplicateCount
	state.AddActivity(fmt.Sprintf("built manifest: %d unique cases from %d procedures (%d duplicate occurrences across %d cases)",
		len(manifest.CaseIDs), len(procedures), manifest.DuplicateOccurrences, manifest.DuplicateCount))

	e.logger.Info("stage 2 complete",
		zap.Int("unique_cases", len(manifest.CaseIDs)),
		zap.Int("procedures", len(procedures)),
		zap.Int("duplicate_occurrences", manifest.DuplicateOccurrences),
		zap.Int("duplicate_count", manifest.DuplicateCount))

	return ManifestResult{
		Success:        true,
		ProcedureCount: len(procedures),
		CaseCount:      len(manifest.CaseIDs),
	}
}
