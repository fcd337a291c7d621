package service

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mkraft/subsync/internal/domain"
)

// Ledger is the in-process registry of migration job state. All mutation of
// a job's counters and status is serialized through Update; readers only
// ever see snapshots. Each entry carries its own lock so concurrent jobs do
// not contend, while the outer lock only guards entry creation and lookup.
type Ledger struct {
	mu   sync.RWMutex
	jobs map[string]*ledgerEntry
}

type ledgerEntry struct {
	mu  sync.Mutex
	job domain.MigrationJob
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{jobs: make(map[string]*ledgerEntry)}
}

// Create allocates a fresh job in PENDING state and returns its ID.
func (l *Ledger) Create(startedBy string, simulate bool) string {
	id := uuid.New().String()
	entry := &ledgerEntry{
		job: domain.MigrationJob{
			ID:        id,
			StartedBy: startedBy,
			Status:    domain.JobStatusPending,
			Simulate:  simulate,
			StartedAt: time.Now(),
		},
	}

	l.mu.Lock()
	l.jobs[id] = entry
	l.mu.Unlock()

	return id
}

func (l *Ledger) entry(id string) *ledgerEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.jobs[id]
}

// Get returns a snapshot of the job's current state. Callers never receive
// a live reference, so they cannot bypass the mutation contract.
func (l *Ledger) Get(id string) (domain.MigrationJob, bool) {
	entry := l.entry(id)
	if entry == nil {
		return domain.MigrationJob{}, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.job, true
}

// Update applies one atomic mutation to the job. Unknown IDs are a silent
// no-op. A job that has reached a terminal status keeps that status and its
// completion fields regardless of what the mutator does; entering a terminal
// status stamps CompletedAt exactly once.
func (l *Ledger) Update(id string, fn func(*domain.MigrationJob)) {
	entry := l.entry(id)
	if entry == nil {
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	prev := entry.job
	fn(&entry.job)

	if prev.Status.Terminal() {
		entry.job.Status = prev.Status
		entry.job.Error = prev.Error
		entry.job.CompletedAt = prev.CompletedAt
		return
	}

	if entry.job.Status.Terminal() && entry.job.CompletedAt == nil {
		now := time.Now()
		entry.job.CompletedAt = &now
	}
}

// RequestCancel sets the cooperative cancellation flag. It is idempotent,
// never touches Status, and is accepted for terminal and unknown jobs alike.
func (l *Ledger) RequestCancel(id string) {
	entry := l.entry(id)
	if entry == nil {
		return
	}
	entry.mu.Lock()
	entry.job.CancelRequested = true
	entry.mu.Unlock()
}

// SetPaused sets the display-only pause flag.
func (l *Ledger) SetPaused(id string, paused bool) {
	entry := l.entry(id)
	if entry == nil {
		return
	}
	entry.mu.Lock()
	entry.job.Paused = paused
	entry.mu.Unlock()
}

// List returns snapshots of all jobs, newest first.
func (l *Ledger) List() []domain.MigrationJob {
	l.mu.RLock()
	entries := make([]*ledgerEntry, 0, len(l.jobs))
	for _, e := range l.jobs {
		entries = append(entries, e)
	}
	l.mu.RUnlock()

	jobs := make([]domain.MigrationJob, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		jobs = append(jobs, e.job)
		e.mu.Unlock()
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartedAt.After(jobs[j].StartedAt)
	})
	return jobs
}
