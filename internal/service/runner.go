package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/mkraft/subsync/internal/domain"
	"github.com/mkraft/subsync/internal/logger"
	"github.com/mkraft/subsync/internal/metrics"
)

// runJob drives one migration job to a terminal state. It owns the job's
// counters exclusively: the API side only reads snapshots or sets the
// cancellation flag. Per-row failures are counted and reported, never
// retried within the run; a fresh job over a filtered input is the retry
// path.
func (s *MigrationService) runJob(ctx context.Context, id string, data []byte, simulate bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.CtxError(ctx, "Migration run panicked: %v", r)
			s.ledger.Update(id, func(j *domain.MigrationJob) {
				j.Status = domain.JobStatusFailed
				j.Error = fmt.Sprintf("internal error: %v", r)
			})
			metrics.JobsFinished.WithLabelValues(string(domain.JobStatusFailed)).Inc()
		}
	}()

	s.stageUpload(ctx, id, data)

	rows, err := ParseRows(bytes.NewReader(data))
	if err != nil {
		logger.CtxWarn(ctx, "Source file unreadable: %v", err)
		s.ledger.Update(id, func(j *domain.MigrationJob) {
			j.Status = domain.JobStatusFailed
			j.Error = err.Error()
		})
		metrics.JobsFinished.WithLabelValues(string(domain.JobStatusFailed)).Inc()
		return
	}

	// Total is fixed before any row is processed
	s.ledger.Update(id, func(j *domain.MigrationJob) {
		j.Total = len(rows)
	})

	report := newReportBuilder()
	cancelled := false

	for _, row := range rows {
		// Cancellation is honored strictly between rows; a row in progress
		// always finishes first
		if snap, ok := s.ledger.Get(id); ok && snap.CancelRequested {
			cancelled = true
			break
		}

		outcome := s.resolver.Resolve(ctx, row, simulate)
		s.ledger.Update(id, func(j *domain.MigrationJob) {
			if outcome.CountsAsProcessed() {
				j.Processed++
			} else {
				j.Failed++
			}
		})
		report.Add(outcome)
		metrics.RowsResolved.WithLabelValues(string(outcome.Kind)).Inc()

		if outcome.Kind == OutcomeFailed {
			logger.CtxDebug(ctx, "Row failed: key=%s, detail=%s", outcome.Key, outcome.Detail)
		}

		if s.rowDelay > 0 {
			time.Sleep(s.rowDelay)
		}
	}

	status := domain.JobStatusCompleted
	if cancelled {
		status = domain.JobStatusCancelled
	}
	s.ledger.Update(id, func(j *domain.MigrationJob) {
		j.Status = status
	})
	metrics.JobsFinished.WithLabelValues(string(status)).Inc()

	s.writeReport(ctx, id, report)

	if snap, ok := s.ledger.Get(id); ok {
		logger.CtxInfo(ctx, "Migration run finished: status=%s, total=%d, processed=%d, failed=%d, attempted=%d",
			status, snap.Total, snap.Processed, snap.Failed, report.Len())
	}
}

// stageUpload keeps a copy of the source file in object storage so a failed
// run can be re-inspected. Best effort: a storage outage must not fail the
// run itself.
func (s *MigrationService) stageUpload(ctx context.Context, id string, data []byte) {
	uploadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	key := s.uploadKey(id)
	if err := s.store.Upload(uploadCtx, key, bytes.NewReader(data), int64(len(data)), "text/csv"); err != nil {
		logger.CtxWarn(ctx, "Failed to stage source file: key=%s, error=%v", key, err)
	}
}

// writeReport persists the run report on completion or cancellation.
func (s *MigrationService) writeReport(ctx context.Context, id string, report *reportBuilder) {
	data := report.Bytes()
	writeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	key := s.reportKey(id)
	if err := s.store.Upload(writeCtx, key, bytes.NewReader(data), int64(len(data)), "text/csv"); err != nil {
		logger.CtxError(ctx, "Failed to persist run report: key=%s, error=%v", key, err)
		return
	}
	logger.CtxInfo(ctx, "Run report written: key=%s, lines=%d", key, report.Len())
}
