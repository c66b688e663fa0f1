package models

import "time"

// SyncRunState is the explicit per-run state threaded through the
// orchestrator instead of ad hoc global flags. It is persisted next to
// the manifest and cursor so a paused run can resume after a process
// restart with its identity and accumulated context intact.
type SyncRunState struct {
	RunID     string    `json:"run_id" bson:"run_id"`
	RecordID  string    `json:"record_id" bson:"record_id"`
	JobID     string    `json:"job_id" bson:"job_id"`
	Source    string    `json:"source" bson:"source"`
	StartedAt time.Time `json:"started_at" bson:"started_at"`

	ProcedureCount       int `json:"procedure_count" bson:"procedure_count"`
	ProceduresCreated    int `json:"procedures_created" bson:"procedures_created"`
	ProceduresUpdated    int `json:"procedures_updated" bson:"procedures_updated"`
	DuplicateOccurrences int `json:"duplicate_occurrences" bson:"duplicate_occurrences"`
	DuplicateCount       int `json:"duplicate_count" bson:"duplicate_count"`

	Activity []string `json:"activity,omitempty" bson:"activity,omitempty"`
	Warnings []string `json:"warnings,omitempty" bson:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty" bson:"errors,omitempty"`
}

// AddActivity appends a line to the run's activity log.
func (s *SyncRunState) AddActivity(msg string) {
	s.Activity = append(s.Activity, msg)
}

// AddWarning records a non-fatal problem.
func (s *SyncRunState) AddWarning(msg string) {
	s.Warnings = append(s.Warnings, msg)
}

// AddError records a fatal or per-item error message.
func (s *SyncRunState) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// Details folds the run state and cursor totals into the structured
// detail payload written to the history log.
func (s *SyncRunState) Details(cursor *BatchCursor) SyncDetails {
	details := SyncDetails{
		ProceduresCreated:    s.ProceduresCreated,
		ProceduresUpdated:    s.ProceduresUpdated,
		DuplicateOccurrences: s.DuplicateOccurrences,
		DuplicateCount:       s.DuplicateCount,
		Warnings:             s.Warnings,
		Errors:               s.Errors,
		Activity:             s.Activity,
	}
	if cursor != nil {
		details.CasesCreated = cursor.Created
		details.CasesUpdated = cursor.Updated
	}
	return details
}
