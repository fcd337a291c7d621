package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func keyedRow(key string) Row {
	return Row{Index: 2, Fields: map[string]string{"subscriber_id": key}}
}

func TestResolveMigrates(t *testing.T) {
	source := newMemSource("SUB-1001")
	dest := newMemDest()
	r := NewResolver(source, dest, 0)

	out := r.Resolve(context.Background(), keyedRow("SUB-1001"), false)
	if out.Kind != OutcomeMigrated {
		t.Fatalf("kind = %s, want MIGRATED", out.Kind)
	}
	if !out.CountsAsProcessed() {
		t.Error("MIGRATED must count as processed")
	}
	if !dest.has("SUB-1001") {
		t.Error("record not written to destination")
	}
}

func TestResolveAlreadyPresentSkipsSource(t *testing.T) {
	source := newMemSource("SUB-1001")
	dest := newMemDest("SUB-1001")
	r := NewResolver(source, dest, 0)

	out := r.Resolve(context.Background(), keyedRow("SUB-1001"), false)
	if out.Kind != OutcomeAlreadyPresent {
		t.Fatalf("kind = %s, want ALREADY_PRESENT", out.Kind)
	}
	if !out.CountsAsProcessed() {
		t.Error("ALREADY_PRESENT must count as processed")
	}
}

func TestResolveNotFoundInSource(t *testing.T) {
	r := NewResolver(newMemSource(), newMemDest(), 0)

	out := r.Resolve(context.Background(), keyedRow("SUB-MISSING"), false)
	if out.Kind != OutcomeNotFoundInSource {
		t.Fatalf("kind = %s, want NOT_FOUND_IN_SOURCE", out.Kind)
	}
	if out.CountsAsProcessed() {
		t.Error("NOT_FOUND_IN_SOURCE must count as failed")
	}
}

func TestResolveMissingIdentifier(t *testing.T) {
	r := NewResolver(newMemSource(), newMemDest(), 0)

	row := Row{Index: 7, Fields: map[string]string{"full_name": "Alice"}}
	out := r.Resolve(context.Background(), row, false)
	if out.Kind != OutcomeFailed {
		t.Fatalf("kind = %s, want FAILED", out.Kind)
	}
	if out.Key != "row-7" {
		t.Errorf("key = %q, want row-7", out.Key)
	}
}

func TestResolveDestinationErrorFails(t *testing.T) {
	dest := newMemDest()
	dest.lookupErr = errors.New("connection refused")
	r := NewResolver(newMemSource("SUB-1001"), dest, 0)

	out := r.Resolve(context.Background(), keyedRow("SUB-1001"), false)
	if out.Kind != OutcomeFailed {
		t.Fatalf("kind = %s, want FAILED", out.Kind)
	}
}

func TestResolveTimeoutBecomesFailure(t *testing.T) {
	dest := newMemDest()
	dest.blockFor = 5 * time.Second
	r := NewResolver(newMemSource("SUB-1001"), dest, 20*time.Millisecond)

	start := time.Now()
	out := r.Resolve(context.Background(), keyedRow("SUB-1001"), false)
	if out.Kind != OutcomeFailed {
		t.Fatalf("kind = %s, want FAILED", out.Kind)
	}
	if time.Since(start) > time.Second {
		t.Error("store timeout did not bound the call")
	}
}

func TestResolveSimulateSkipsWrite(t *testing.T) {
	source := newMemSource("SUB-1001")
	dest := newMemDest()
	r := NewResolver(source, dest, 0)

	out := r.Resolve(context.Background(), keyedRow("SUB-1001"), true)
	if out.Kind != OutcomeMigrated {
		t.Fatalf("kind = %s, want MIGRATED", out.Kind)
	}
	if dest.has("SUB-1001") {
		t.Error("simulate mode wrote to the destination")
	}
}
