package models

import "time"

// Log record statuses. A record transitions started ->
// completed|failed|partial|stopped exactly once; repeated updates to
// the same terminal status are idempotent.
const (
	LogStatusStarted   = "started"
	LogStatusCompleted = "completed"
	LogStatusFailed    = "failed"
	LogStatusPartial   = "partial"
	LogStatusStopped   = "stopped"
)

// SyncDetails is the structured detail payload of a run record. It is
// stored as an open document rather than fixed columns so the schema
// can evolve; legacy field names are normalized once on read by
// NormalizeDetails.
type SyncDetails struct {
	ProceduresCreated    int      `json:"procedures_created" bson:"procedures_created"`
	ProceduresUpdated    int      `json:"procedures_updated" bson:"procedures_updated"`
	CasesCreated         int      `json:"cases_created" bson:"cases_created"`
	CasesUpdated         int      `json:"cases_updated" bson:"cases_updated"`
	DuplicateOccurrences int      `json:"duplicate_occurrences" bson:"duplicate_occurrences"`
	DuplicateCount       int      `json:"duplicate_count" bson:"duplicate_count"`
	Warnings             []string `json:"warnings,omitempty" bson:"warnings,omitempty"`
	Errors               []string `json:"errors,omitempty" bson:"errors,omitempty"`
	Activity             []string `json:"activity,omitempty" bson:"activity,omitempty"`
}

// SyncLogRecord is one append-only history entry per run attempt.
type SyncLogRecord struct {
	ID             string      `json:"id" bson:"_id,omitempty"`
	StartedAt      time.Time   `json:"started_at" bson:"started_at"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	Status         string      `json:"status" bson:"status"`
	Source         string      `json:"source" bson:"source"`
	ItemsProcessed int         `json:"items_processed" bson:"items_processed"`
	ItemsFailed    int         `json:"items_failed" bson:"items_failed"`
	Details        SyncDetails `json:"details" bson:"details"`
}

// IsTerminalLogStatus reports whether a log status ends the record's
// lifecycle. "stopped" is terminal but distinct from "failed": it is
// the normal outcome of an operator stop request.
func IsTerminalLogStatus(status string) bool {
	switch status {
	case LogStatusCompleted, LogStatusFailed, LogStatusPartial, LogStatusStopped:
		return true
	}
	return false
}

// legacy -> current field names across the two engine generations that
// wrote these documents
var legacyDetailNames = map[string]string{
	"created_procedures":    "procedures_created",
	"updated_procedures":    "procedures_updated",
	"created_cases":         "cases_created",
	"updated_cases":         "cases_updated",
	"duplicates_skipped":    "duplicate_occurrences",
	"duplicate_case_count":  "duplicate_count",
	"log":                   "activity",
	"warning_messages":      "warnings",
	"error_messages":        "errors",
}

// NormalizeDetails folds legacy field names into the current schema.
// Current names win when both variants are present. Consumers only
// ever see the normalized form.
func NormalizeDetails(raw map[string]interface{}) SyncDetails {
	merged := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		if current, ok := legacyDetailNames[k]; ok {
			k = current
		}
		if _, exists := merged[k]; exists {
			continue
		}
		merged[k] = v
	}
	// Current names override any legacy value merged above.
	for k, v := range raw {
		if _, legacy := legacyDetailNames[k]; !legacy {
			merged[k] = v
		}
	}

	return SyncDetails{
		ProceduresCreated:    asInt(merged["procedures_created"]),
		ProceduresUpdated:    asInt(merged["procedures_updated"]),
		CasesCreated:         asInt(merged["cases_created"]),
		CasesUpdated:         asInt(merged["cases_updated"]),
		DuplicateOccurrences: asInt(merged["duplicate_occurrences"]),
		DuplicateCount:       asInt(merged["duplicate_count"]),
		Warnings:             asStrings(merged["warnings"]),
		Errors:               asStrings(merged["errors"]),
		Activity:             asStrings(merged["activity"]),
	}
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func asStrings(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return nil
}
