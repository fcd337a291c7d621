package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkraft/subsync/internal/domain"
)

// SourceStore reads subscriber records from the system being migrated from.
type SourceStore interface {
	FindByIdentifier(ctx context.Context, key string) (*domain.Subscriber, error)
}

// DestinationStore reads and writes subscriber records in the system being
// migrated to. Lookup and Write must be independently safe to call from
// multiple concurrently running jobs.
type DestinationStore interface {
	Lookup(ctx context.Context, key string) (*domain.Subscriber, error)
	Write(ctx context.Context, key string, sub *domain.Subscriber) error
}

// OutcomeKind classifies the result of resolving one row.
type OutcomeKind string

const (
	OutcomeMigrated         OutcomeKind = "MIGRATED"
	OutcomeAlreadyPresent   OutcomeKind = "ALREADY_PRESENT"
	OutcomeNotFoundInSource OutcomeKind = "NOT_FOUND_IN_SOURCE"
	OutcomeFailed           OutcomeKind = "FAILED"
)

// Outcome is the result of attempting to process one row.
type Outcome struct {
	Kind   OutcomeKind
	Key    string
	Detail string
}

// CountsAsProcessed reports whether the outcome increments the processed
// counter; every other outcome increments failed, so processed+failed always
// covers exactly the rows attempted.
func (o Outcome) CountsAsProcessed() bool {
	return o.Kind == OutcomeMigrated || o.Kind == OutcomeAlreadyPresent
}

// Resolver decides, per row, whether to skip, migrate or fail against the
// source and destination stores.
type Resolver struct {
	source  SourceStore
	dest    DestinationStore
	timeout time.Duration
}

// NewResolver creates a Resolver. timeout bounds each individual store call;
// zero disables the bound.
func NewResolver(source SourceStore, dest DestinationStore, timeout time.Duration) *Resolver {
	return &Resolver{source: source, dest: dest, timeout: timeout}
}

func (r *Resolver) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Resolve classifies one row. Store errors are always converted into a
// FAILED outcome so the caller can keep processing subsequent rows. In
// simulate mode the destination write is skipped but the outcome is still
// MIGRATED.
func (r *Resolver) Resolve(ctx context.Context, row Row, simulate bool) Outcome {
	key := row.Identifier()
	if key == "" {
		return Outcome{
			Kind:   OutcomeFailed,
			Key:    fmt.Sprintf("row-%d", row.Index),
			Detail: "missing identifier",
		}
	}

	// Destination first: an existing record means the source is never read
	destCtx, cancel := r.callCtx(ctx)
	_, err := r.dest.Lookup(destCtx, key)
	cancel()
	switch {
	case err == nil:
		return Outcome{Kind: OutcomeAlreadyPresent, Key: key, Detail: "destination record exists"}
	case !errors.Is(err, domain.ErrSubscriberNotFound):
		return Outcome{Kind: OutcomeFailed, Key: key, Detail: "destination lookup: " + err.Error()}
	}

	srcCtx, cancel := r.callCtx(ctx)
	sub, err := r.source.FindByIdentifier(srcCtx, key)
	cancel()
	switch {
	case errors.Is(err, domain.ErrSubscriberNotFound):
		return Outcome{Kind: OutcomeNotFoundInSource, Key: key, Detail: "no source record"}
	case err != nil:
		return Outcome{Kind: OutcomeFailed, Key: key, Detail: "source lookup: " + err.Error()}
	}

	if simulate {
		return Outcome{Kind: OutcomeMigrated, Key: key, Detail: "simulated, no write performed"}
	}

	writeCtx, cancel := r.callCtx(ctx)
	err = r.dest.Write(writeCtx, key, sub)
	cancel()
	if err != nil {
		return Outcome{Kind: OutcomeFailed, Key: key, Detail: "destination write: " + err.Error()}
	}

	return Outcome{Kind: OutcomeMigrated, Key: key, Detail: "migrated from source"}
}
