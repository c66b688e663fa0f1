package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/surgimedia/casesync/internal/engine"
	"github.com/surgimedia/casesync/internal/gallery"
	"github.com/surgimedia/casesync/internal/models"
	"github.com/surgimedia/casesync/internal/registry"
	"github.com/surgimedia/casesync/internal/scheduler"
	"github.com/surgimedia/casesync/internal/services"
	"go.uber.org/zap"
)

type stubGallery struct {
	block chan struct{}
}

func (s *stubGallery) FetchProcedures(ctx context.Context) ([]gallery.Procedure, error) {
	if s.block != nil {
		<-s.block
	}
	return []gallery.Procedure{{Slug: "rhinoplasty", CaseIDs: []string{"a"}}}, nil
}

func (s *stubGallery) FetchCaseDetail(ctx context.Context, caseID string) (*gallery.CaseDetail, error) {
	return &gallery.CaseDetail{CaseID: caseID}, nil
}

type stubArtifacts struct {
	procedures []gallery.Procedure
	manifest   *models.Manifest
	cursor     *models.BatchCursor
	runState   *models.SyncRunState
}

func (s *stubArtifacts) SaveProcedures(ctx context.Context, p []gallery.Procedure) error {
	s.procedures = p
	return nil
}

func (s *stubArtifacts) LoadProcedures(ctx context.Context) ([]gallery.Procedure, error) {
	if s.procedures == nil {
		return nil, fmt.Errorf("%w: procedures", models.ErrPrerequisiteMissing)
	}
	return s.procedures, nil
}

func (s *stubArtifacts) SaveManifest(ctx context.Context, m *models.Manifest) error {
	s.manifest = m
	return nil
}

func (s *stubArtifacts) LoadManifest(ctx context.Context) (*models.Manifest, error) {
	if s.manifest == nil {
		return nil, fmt.Errorf("%w: manifest", models.ErrPrerequisiteMissing)
	}
	return s.manifest, nil
}

func (s *stubArtifacts) SaveCursor(ctx context.Context, c *models.BatchCursor) error {
	s.cursor = c
	return nil
}

func (s *stubArtifacts) LoadCursor(ctx context.Context) (*models.BatchCursor, error) {
	return s.cursor, nil
}

func (s *stubArtifacts) SaveRunState(ctx context.Context, st *models.SyncRunState) error {
	s.runState = st
	return nil
}

func (s *stubArtifacts) LoadRunState(ctx context.Context) (*models.SyncRunState, error) {
	return s.runState, nil
}

func (s *stubArtifacts) Clear(ctx context.Context) error {
	s.procedures, s.manifest, s.cursor, s.runState = nil, nil, nil, nil
	return nil
}

type stubEntities struct{}

func (stubEntities) UpsertProcedure(ctx context.Context, p gallery.Procedure) (bool, error) {
	return true, nil
}

func (stubEntities) UpsertCase(ctx context.Context, d *gallery.CaseDetail) (bool, error) {
	return true, nil
}

func (stubEntities) CaseExists(ctx context.Context, caseID string) (bool, error) {
	return false, nil
}

type stubHistory struct {
	records   []models.SyncLogRecord
	deleted   []string
	deleteAll bool
}

func (s *stubHistory) LogStart(ctx context.Context, source string) (string, error) {
	return "rec-1", nil
}

func (s *stubHistory) LogUpdate(ctx context.Context, id, status string, processed, failed int, details models.SyncDetails) error {
	return nil
}

func (s *stubHistory) Amend(ctx context.Context, id, status string, processed, failed int, details models.SyncDetails) error {
	return nil
}

func (s *stubHistory) Get(ctx context.Context, id string) (*models.SyncLogRecord, error) {
	for i := range s.records {
		if s.records[i].ID == id {
			return &s.records[i], nil
		}
	}
	return nil, models.ErrRecordNotFound
}

func (s *stubHistory) List(ctx context.Context, limit int) ([]models.SyncLogRecord, error) {
	return s.records, nil
}

func (s *stubHistory) Delete(ctx context.Context, id string) error {
	for _, r := range s.records {
		if r.ID == id {
			s.deleted = append(s.deleted, id)
			return nil
		}
	}
	return models.ErrRecordNotFound
}

func (s *stubHistory) DeleteAll(ctx context.Context) (int64, error) {
	s.deleteAll = true
	n := int64(len(s.records))
	s.records = nil
	return n, nil
}

type stubProgress struct {
	snapshot *models.ProgressSnapshot
}

func (s *stubProgress) Publish(ctx context.Context, snap *models.ProgressSnapshot) error {
	s.snapshot = snap
	return nil
}

func (s *stubProgress) Read(ctx context.Context) *models.ProgressSnapshot {
	if s.snapshot == nil {
		return models.IdleSnapshot()
	}
	return s.snapshot
}

func (s *stubProgress) Clear(ctx context.Context) error {
	s.snapshot = nil
	return nil
}

type stubRegistry struct {
	registered int
}

func (s *stubRegistry) HasActiveJob(ctx context.Context) (bool, error) { return false, nil }

func (s *stubRegistry) RegisterSync(ctx context.Context, jobType string, t *time.Time) (string, error) {
	s.registered++
	return "job-1", nil
}

func (s *stubRegistry) ReportSync(ctx context.Context, status string, n int, msg string, detail map[string]interface{}) error {
	return nil
}

func (s *stubRegistry) GetCurrentJob(ctx context.Context) (*models.SyncJob, error) {
	return nil, nil
}

func (s *stubRegistry) GetLastReport(ctx context.Context) (*registry.Report, error) {
	return nil, nil
}

type stubSchedules struct {
	config     *models.ScheduleConfig
	nextRun    time.Time
	stop       bool
	lockHolder string
}

func (s *stubSchedules) SaveSchedule(ctx context.Context, c *models.ScheduleConfig) error {
	s.config = c
	return nil
}

func (s *stubSchedules) LoadSchedule(ctx context.Context) (*models.ScheduleConfig, error) {
	if s.config == nil {
		return &models.ScheduleConfig{Enabled: false, TimeOfDay: "02:00"}, nil
	}
	return s.config, nil
}

func (s *stubSchedules) SaveNextRun(ctx context.Context, t time.Time) error {
	s.nextRun = t
	return nil
}

func (s *stubSchedules) LoadNextRun(ctx context.Context) (time.Time, error) {
	return s.nextRun, nil
}

func (s *stubSchedules) ClearNextRun(ctx context.Context) error {
	s.nextRun = time.Time{}
	return nil
}

func (s *stubSchedules) RequestStop(ctx context.Context) error {
	s.stop = true
	return nil
}

func (s *stubSchedules) ClearStop(ctx context.Context) error {
	s.stop = false
	return nil
}

func (s *stubSchedules) StopRequested(ctx context.Context) bool { return s.stop }

func (s *stubSchedules) AcquireRunLock(ctx context.Context, runID string) (bool, error) {
	if s.lockHolder != "" {
		return false, nil
	}
	s.lockHolder = runID
	return true, nil
}

func (s *stubSchedules) ReleaseRunLock(ctx context.Context, runID string) error {
	if s.lockHolder == runID {
		s.lockHolder = ""
	}
	return nil
}

type handlerFixture struct {
	router    *gin.Engine
	handlers  *SyncHandlers
	history   *stubHistory
	schedules *stubSchedules
	progress  *stubProgress
	gallery   *stubGallery
}

func newFixture() *handlerFixture {
	gin.SetMode(gin.TestMode)

	f := &handlerFixture{
		history:   &stubHistory{},
		schedules: &stubSchedules{},
		progress:  &stubProgress{},
		gallery:   &stubGallery{},
	}

	logger := zap.NewNop()
	reg := &stubRegistry{}
	eng := engine.New(f.gallery, &stubArtifacts{}, stubEntities{}, f.history, f.progress, reg, f.schedules, f.schedules, engine.Options{}, logger)
	sched := scheduler.New(eng, f.schedules, reg, logger)
	service := services.NewSyncService(eng, f.schedules, f.history, f.progress, reg, logger)

	f.handlers = NewSyncHandlers(service, sched, f.schedules, f.history)

	router := gin.New()
	v1 := router.Group("/v1")
	{
		v1.POST("/sync/trigger", f.handlers.TriggerSync)
		v1.POST("/sync/start", f.handlers.StartSync)
		v1.POST("/sync/stop", f.handlers.StopSync)
		v1.GET("/sync/status", f.handlers.GetStatus)
		v1.GET("/sync/progress", f.handlers.GetProgress)
		v1.GET("/sync/schedule", f.handlers.GetSchedule)
		v1.PUT("/sync/schedule", f.handlers.UpdateSchedule)
		v1.GET("/sync/history", f.handlers.ListHistory)
		v1.DELETE("/sync/history", f.handlers.DeleteAllHistory)
		v1.DELETE("/sync/history/:id", f.handlers.DeleteHistoryRecord)
	}
	f.router = router
	return f
}
