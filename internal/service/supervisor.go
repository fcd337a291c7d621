package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mkraft/subsync/internal/domain"
	"github.com/mkraft/subsync/internal/logger"
	"github.com/mkraft/subsync/internal/metrics"
)

// ErrEmptyFile is returned by StartJob when the uploaded file carries no data.
var ErrEmptyFile = errors.New("source file is missing or empty")

// ObjectStore is the slice of object storage the migration service needs:
// staging the uploaded source file and persisting the run report.
type ObjectStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

// MigrationService supervises bulk migration jobs: it starts runs, answers
// status queries and exposes cancellation. Each started job is driven by its
// own background goroutine; the request path never waits for one.
type MigrationService struct {
	ledger   *Ledger
	resolver *Resolver
	store    ObjectStore
	logger   *logger.Logger

	rowDelay     time.Duration
	uploadPrefix string
	reportPrefix string
}

// MigrationConfig holds tuning for the migration service.
type MigrationConfig struct {
	RowDelay     time.Duration
	UploadPrefix string
	ReportPrefix string
}

// NewMigrationService creates a new migration service.
func NewMigrationService(ledger *Ledger, resolver *Resolver, store ObjectStore, log *logger.Logger, cfg *MigrationConfig) *MigrationService {
	if cfg == nil {
		cfg = &MigrationConfig{}
	}
	uploadPrefix := cfg.UploadPrefix
	if uploadPrefix == "" {
		uploadPrefix = "uploads"
	}
	reportPrefix := cfg.ReportPrefix
	if reportPrefix == "" {
		reportPrefix = "reports"
	}
	return &MigrationService{
		ledger:       ledger,
		resolver:     resolver,
		store:        store,
		logger:       log,
		rowDelay:     cfg.RowDelay,
		uploadPrefix: strings.TrimSuffix(uploadPrefix, "/"),
		reportPrefix: strings.TrimSuffix(reportPrefix, "/"),
	}
}

// StartOptions carries per-run flags.
type StartOptions struct {
	// Simulate computes outcomes without writing to the destination store.
	Simulate bool
}

// JobView is the client-facing projection of a job.
type JobView struct {
	ID              string           `json:"job_id"`
	Status          domain.JobStatus `json:"status"`
	StartedBy       string           `json:"started_by,omitempty"`
	Simulate        bool             `json:"simulate,omitempty"`
	Total           int              `json:"total"`
	Processed       int              `json:"processed"`
	Failed          int              `json:"failed"`
	ProgressPercent int              `json:"progress_percent"`
	Error           string           `json:"error,omitempty"`
	StartedAt       *time.Time       `json:"started_at,omitempty"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
}

func viewOf(job domain.MigrationJob) JobView {
	v := JobView{
		ID:              job.ID,
		Status:          job.DisplayStatus(),
		StartedBy:       job.StartedBy,
		Simulate:        job.Simulate,
		Total:           job.Total,
		Processed:       job.Processed,
		Failed:          job.Failed,
		ProgressPercent: job.ProgressPercent(),
		Error:           job.Error,
		CompletedAt:     job.CompletedAt,
	}
	if !job.StartedAt.IsZero() {
		started := job.StartedAt
		v.StartedAt = &started
	}
	return v
}

// StartJob registers a new job and launches its runner. It validates only
// that the file carries data, registers the job, and returns the ID without
// waiting for any row to be processed.
func (s *MigrationService) StartJob(ctx context.Context, data []byte, startedBy string, opts *StartOptions) (string, error) {
	if opts == nil {
		opts = &StartOptions{}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", ErrEmptyFile
	}

	id := s.ledger.Create(startedBy, opts.Simulate)
	s.ledger.Update(id, func(j *domain.MigrationJob) {
		j.Status = domain.JobStatusInProgress
	})
	metrics.JobsStarted.Inc()

	logger.CtxInfo(ctx, "Starting migration job: job_id=%s, started_by=%s, simulate=%v, bytes=%d",
		id, startedBy, opts.Simulate, len(data))

	// The runner outlives the request; its context carries the job fields
	// but no request deadline.
	runCtx := logger.WithFields(context.Background(), logger.Fields{
		logger.FieldJobID:     id,
		logger.FieldStartedBy: startedBy,
		logger.FieldComponent: "runner",
	})
	go s.runJob(runCtx, id, data, opts.Simulate)

	return id, nil
}

// GetStatus returns the job's current view. Unknown IDs yield a NOT_FOUND
// view rather than an error; polling an expired ID is an expected pattern.
func (s *MigrationService) GetStatus(id string) JobView {
	job, ok := s.ledger.Get(id)
	if !ok {
		return JobView{ID: id, Status: domain.JobStatusNotFound}
	}
	return viewOf(job)
}

// Cancel requests cooperative cancellation. It returns immediately; the
// runner honors the flag at its next between-rows check, so a status query
// right after may still report IN_PROGRESS. Terminal and unknown jobs are
// unaffected, and the call is always acknowledged.
func (s *MigrationService) Cancel(id string) {
	s.ledger.RequestCancel(id)
}

// SetPaused flips the display-only pause flag. The runner keeps processing.
func (s *MigrationService) SetPaused(id string, paused bool) {
	s.ledger.SetPaused(id, paused)
}

// List returns all jobs, newest first.
func (s *MigrationService) List() []JobView {
	jobs := s.ledger.List()
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, viewOf(job))
	}
	return views
}

// Report streams the persisted run report. It errors until the runner has
// written one.
func (s *MigrationService) Report(ctx context.Context, id string) (io.ReadCloser, error) {
	return s.store.Download(ctx, s.reportKey(id))
}

func (s *MigrationService) uploadKey(id string) string {
	return fmt.Sprintf("%s/%s.csv", s.uploadPrefix, id)
}

func (s *MigrationService) reportKey(id string) string {
	return fmt.Sprintf("%s/%s.csv", s.reportPrefix, id)
}
