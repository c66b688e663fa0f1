package models

// Pipeline stages reported through the progress snapshot.
const (
	StageIdle       = "idle"
	StageFetching   = "fetching"
	StageManifest   = "manifest"
	StageProcessing = "processing"
)

// MaxRecentCases bounds the recent-cases ring in a snapshot.
const MaxRecentCases = 10

// StageProgress is a current/total pair with a precomputed percentage.
type StageProgress struct {
	Current int     `json:"current"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// RecentCase is one entry in the most-recent-first case ring.
type RecentCase struct {
	CaseID string `json:"case_id"`
	Action string `json:"action"` // created, updated, failed
}

// ProgressSnapshot is the ephemeral status object the UI polls. It is
// overwritten on every tick and cleared when the run ends, so
// last-write-wins is all the consistency it needs.
type ProgressSnapshot struct {
	Stage             string        `json:"stage"`
	OverallPercent    float64       `json:"overall_percent"`
	CurrentProcedure  string        `json:"current_procedure,omitempty"`
	ProcedureProgress StageProgress `json:"procedure_progress"`
	CaseProgress      StageProgress `json:"case_progress"`
	RecentCases       []RecentCase  `json:"recent_cases,omitempty"`
	ElapsedSeconds    float64       `json:"elapsed_seconds"`
	MemoryUsedBytes   uint64        `json:"memory_used_bytes"`
	MemoryPeakBytes   uint64        `json:"memory_peak_bytes"`
	MemoryLimitBytes  uint64        `json:"memory_limit_bytes"`
}

// IdleSnapshot is what progress reads degrade to when no run is active.
func IdleSnapshot() *ProgressSnapshot {
	return &ProgressSnapshot{Stage: StageIdle}
}

// PushRecentCase prepends a case to the ring, dropping the oldest entry
// once the ring is full.
func (s *ProgressSnapshot) PushRecentCase(caseID, action string) {
	s.RecentCases = append([]RecentCase{{CaseID: caseID, Action: action}}, s.RecentCases...)
	if len(s.RecentCases) > MaxRecentCases {
		s.RecentCases = s.RecentCases[:MaxRecentCases]
	}
}

// Percent computes a 0-100 percentage, safe against zero totals.
func Percent(current, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(current) / float64(total) * 100
}
