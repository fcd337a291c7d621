package domain

import "time"

// JobStatus represents the lifecycle state of a migration job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusPaused     JobStatus = "PAUSED"
	JobStatusCancelled  JobStatus = "CANCELLED"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"

	// JobStatusNotFound is a synthetic status returned for unknown job IDs.
	// Polling an expired or never-issued ID is a routine client pattern, so
	// it is surfaced as a status rather than an error.
	JobStatusNotFound JobStatus = "NOT_FOUND"
)

// Terminal reports whether the status is final. Terminal jobs are retained
// read-only for polling and never transition again.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCancelled, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// MigrationJob tracks one bulk migration run. Counters are mutated
// exclusively by the job's runner through the Ledger; the API side only
// reads snapshots or sets CancelRequested.
type MigrationJob struct {
	ID        string
	StartedBy string
	Status    JobStatus
	Simulate  bool

	// Total is set once the source file has been parsed, before any row is
	// processed. It stays 0 when the file itself cannot be read.
	Total     int
	Processed int
	Failed    int

	Error string

	// CancelRequested is a cooperative flag checked by the runner between
	// rows. It is kept separate from Status so the API can set it without
	// racing runner status writes.
	CancelRequested bool

	// Paused is display-only: status queries report PAUSED while the job is
	// IN_PROGRESS and this flag is set. The runner does not block on it.
	Paused bool

	StartedAt   time.Time
	CompletedAt *time.Time
}

// ProgressPercent derives completion from the counters. It is never stored,
// so it cannot drift from Processed/Failed/Total.
func (j *MigrationJob) ProgressPercent() int {
	if j.Total <= 0 {
		return 0
	}
	return (j.Processed + j.Failed) * 100 / j.Total
}

// DisplayStatus maps the stored status to the status reported to clients,
// folding the pause flag into a derived PAUSED state.
func (j *MigrationJob) DisplayStatus() JobStatus {
	if j.Status == JobStatusInProgress && j.Paused {
		return JobStatusPaused
	}
	return j.Status
}
