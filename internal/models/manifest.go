package models

import "time"

// Manifest is the deduplicated, ordered list of case identifiers a run
// must import. Insertion order is preserved so batch slicing is
// deterministic across resumptions.
//
// DuplicateOccurrences counts every repeat that was skipped while
// building the manifest; DuplicateCount counts the unique identifiers
// that had at least one repeat. The two are tracked separately for
// observability.
type Manifest struct {
	CaseIDs              []string  `json:"case_ids" bson:"case_ids"`
	ProcedureCount       int       `json:"procedure_count" bson:"procedure_count"`
	DuplicateOccurrences int       `json:"duplicate_occurrences" bson:"duplicate_occurrences"`
	DuplicateCount       int       `json:"duplicate_count" bson:"duplicate_count"`
	GeneratedAt          time.Time `json:"generated_at" bson:"generated_at"`
}

// TotalCases returns the number of unique cases in the manifest.
func (m *Manifest) TotalCases() int {
	return len(m.CaseIDs)
}

// Slice returns up to size case IDs starting at offset. It never
// panics on out-of-range offsets; callers get an empty slice instead.
func (m *Manifest) Slice(offset, size int) []string {
	if offset < 0 || offset >= len(m.CaseIDs) || size <= 0 {
		return nil
	}
	end := offset + size
	if end > len(m.CaseIDs) {
		end = len(m.CaseIDs)
	}
	return m.CaseIDs[offset:end]
}
