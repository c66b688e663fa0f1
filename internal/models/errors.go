package models

import "errors"

// Error constants for the sync engine
var (
	// ErrPrerequisiteMissing is returned when a stage runs before its
	// prerequisite stage produced an artifact. Fatal, no retry.
	ErrPrerequisiteMissing = errors.New("prerequisite stage artifact missing")

	// ErrRemoteFetch is returned when the remote catalog API cannot be
	// reached or returns a failure. Fatal for the current stage.
	ErrRemoteFetch = errors.New("remote catalog fetch failed")

	// ErrRegistryUnavailable is returned when the job coordination API
	// is unreachable. Non-fatal: the local run proceeds.
	ErrRegistryUnavailable = errors.New("job registry unavailable")

	// ErrScheduleConflict is returned when the coordinator rejects a
	// registration because another job is already active.
	ErrScheduleConflict = errors.New("another sync job is already active")

	// ErrSecurityCheckFailed is returned when a trigger request carries
	// a bad or missing token. Rejected before any state change.
	ErrSecurityCheckFailed = errors.New("security check failed")

	// ErrRecordNotFound is returned when a sync log record does not exist.
	ErrRecordNotFound = errors.New("sync log record not found")
)
