package models

import "time"

// Sync sources describe what triggered a run.
const (
	SourceManual    = "manual"
	SourceRESTAPI   = "rest_api"
	SourceAutomatic = "automatic"
)

// Sync job types as understood by the job coordinator.
const (
	JobTypeManual = "manual"
	JobTypeAuto   = "auto"
)

// Job statuses reported to the coordinator. A job moves
// registered -> in_progress -> success|partial|failed.
const (
	JobStatusRegistered = "registered"
	JobStatusInProgress = "in_progress"
	JobStatusSuccess    = "success"
	JobStatusPartial    = "partial"
	JobStatusFailed     = "failed"
)

// SyncJob represents one coordinator-tracked run. The coordinator
// enforces that at most one job is in_progress at a time, so a SyncJob
// doubles as a mutual-exclusion token.
type SyncJob struct {
	ID            string     `json:"id" bson:"id"`
	Source        string     `json:"source" bson:"source"`
	Type          string     `json:"type" bson:"type"`
	Status        string     `json:"status" bson:"status"`
	ScheduledTime *time.Time `json:"scheduled_time,omitempty" bson:"scheduled_time,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty" bson:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// IsTerminalStatus reports whether a job status ends the run.
func IsTerminalStatus(status string) bool {
	switch status {
	case JobStatusSuccess, JobStatusPartial, JobStatusFailed:
		return true
	}
	return false
}
