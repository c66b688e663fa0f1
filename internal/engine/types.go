package engine

import (
	"context"
	"time"

	"github.com/surgimedia/casesync/internal/gallery"
	"github.com/surgimedia/casesync/internal/progress"
	"github.com/surgimedia/casesync/internal/registry"
	"github.com/surgimedia/casesync/internal/store"
	"go.uber.org/zap"
)

// StopFlag is the cooperative cancellation token. It is checked only
// at batch boundaries; a requested stop never interrupts a batch.
type StopFlag interface {
	StopRequested(ctx context.Context) bool
	ClearStop(ctx context.Context) error
}

// RunLock serializes run execution across processes. The persisted
// artifacts have exactly one writer while the lock is held; it is
// released on pause or terminal transition so another process can pick
// a paused run up.
type RunLock interface {
	AcquireRunLock(ctx context.Context, runID string) (bool, error)
	ReleaseRunLock(ctx context.Context, runID string) error
}

// StageResult is the outcome of Stage 1 (procedure fetch).
type StageResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
}

// ManifestResult is the outcome of Stage 2 (manifest build).
type ManifestResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	ProcedureCount int    `json:"procedure_count"`
	CaseCount      int    `json:"case_count"`
}

// BatchResult is the outcome of one Stage 3 batch.
type BatchResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	Created       int    `json:"created"`
	Updated       int    `json:"updated"`
	Failed        int    `json:"failed"`
	Processed     int    `json:"processed"`
	TotalCases    int    `json:"total_cases"`
	NeedsContinue bool   `json:"needs_continue"`
}

// Run statuses beyond the job statuses shared with the coordinator.
const (
	RunStatusConflict = "conflict"
	RunStatusStopped  = "stopped"
	RunStatusPaused   = "paused"
)

// RunResult is what RunFullSync hands back to its caller. NeedsResume
// distinguishes normal back-pressure pausing from failure: a paused
// run is not terminal and expects to be re-invoked.
type RunResult struct {
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	RunID       string `json:"run_id,omitempty"`
	RecordID    string `json:"record_id,omitempty"`
	JobID       string `json:"job_id,omitempty"`
	Processed   int    `json:"processed"`
	Failed      int    `json:"failed"`
	NeedsResume bool   `json:"needs_resume"`
}

// Options tunes the engine. Zero values are replaced by defaults in
// New.
type Options struct {
	BatchSize     int
	MaxElapsed    time.Duration
	MemoryLimitMB int
	BatchYield    time.Duration
	MaxBatchLoops int
}

// Hard ceiling on batch-loop iterations; guards against a pathological
// manifest keeping the loop alive forever.
const defaultMaxBatchLoops = 1000

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 10
	}
	if o.MaxElapsed <= 0 {
		o.MaxElapsed = 4 * time.Minute
	}
	if o.MemoryLimitMB <= 0 {
		o.MemoryLimitMB = 256
	}
	if o.MaxBatchLoops <= 0 {
		o.MaxBatchLoops = defaultMaxBatchLoops
	}
	return o
}

// Engine is the stage-based synchronization engine. All collaborators
// are injected so the stage logic is testable without a running host.
type Engine struct {
	gallery   gallery.API
	artifacts store.ArtifactStore
	entities  store.EntityStore
	history   store.HistoryStore
	progress  progress.Store
	registry  registry.Client
	stop      StopFlag
	lock      RunLock
	opts      Options
	logger    *zap.Logger
}

// New creates an engine with the given collaborators.
func New(
	galleryAPI gallery.API,
	artifacts store.ArtifactStore,
	entities store.EntityStore,
	history store.HistoryStore,
	progressStore progress.Store,
	registryClient registry.Client,
	stop StopFlag,
	lock RunLock,
	opts Options,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		gallery:   galleryAPI,
		artifacts: artifacts,
		entities:  entities,
		history:   history,
		progress:  progressStore,
		registry:  registryClient,
		stop:      stop,
		lock:      lock,
		opts:      opts.withDefaults(),
		logger:    logger,
	}
}
