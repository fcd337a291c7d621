package service

import (
	"bytes"
	"encoding/csv"
)

// Report statuses are coarser than outcomes: both skip variants collapse to
// SKIPPED and the detail string keeps the distinction.
const (
	reportStatusMigrated = "MIGRATED"
	reportStatusSkipped  = "SKIPPED"
	reportStatusFailed   = "FAILED"
)

func reportStatus(kind OutcomeKind) string {
	switch kind {
	case OutcomeMigrated:
		return reportStatusMigrated
	case OutcomeAlreadyPresent, OutcomeNotFoundInSource:
		return reportStatusSkipped
	default:
		return reportStatusFailed
	}
}

// reportBuilder accumulates one line per attempted row and renders the run
// report as a CSV file.
type reportBuilder struct {
	lines []Outcome
}

func newReportBuilder() *reportBuilder {
	return &reportBuilder{}
}

func (b *reportBuilder) Add(o Outcome) {
	b.lines = append(b.lines, o)
}

func (b *reportBuilder) Len() int {
	return len(b.lines)
}

// Bytes renders the report with the Identifier,Status,Details header.
func (b *reportBuilder) Bytes() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"Identifier", "Status", "Details"})
	for _, o := range b.lines {
		w.Write([]string{o.Key, reportStatus(o.Kind), o.Detail})
	}
	w.Flush()
	return buf.Bytes()
}
