package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mkraft/subsync/internal/domain"
	"github.com/mkraft/subsync/internal/logger"
)

// memSource is an in-memory source store.
type memSource struct {
	recs map[string]*domain.Subscriber
}

func newMemSource(keys ...string) *memSource {
	s := &memSource{recs: make(map[string]*domain.Subscriber)}
	for _, k := range keys {
		s.recs[k] = &domain.Subscriber{SubscriberID: k, Status: domain.SubscriberStatusActive}
	}
	return s
}

func (s *memSource) FindByIdentifier(ctx context.Context, key string) (*domain.Subscriber, error) {
	if sub, ok := s.recs[key]; ok {
		copied := *sub
		return &copied, nil
	}
	return nil, domain.ErrSubscriberNotFound
}

// memDest is an in-memory destination store with hooks for fault and
// timing injection.
type memDest struct {
	mu      sync.Mutex
	recs    map[string]*domain.Subscriber
	lookups int

	lookupErr error
	blockFor  time.Duration
	onLookup  func(call int)
}

func newMemDest(keys ...string) *memDest {
	d := &memDest{recs: make(map[string]*domain.Subscriber)}
	for _, k := range keys {
		d.recs[k] = &domain.Subscriber{SubscriberID: k}
	}
	return d
}

func (d *memDest) Lookup(ctx context.Context, key string) (*domain.Subscriber, error) {
	d.mu.Lock()
	d.lookups++
	call := d.lookups
	hook := d.onLookup
	d.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if d.blockFor > 0 {
		select {
		case <-time.After(d.blockFor):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.lookupErr != nil {
		return nil, d.lookupErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if sub, ok := d.recs[key]; ok {
		copied := *sub
		return &copied, nil
	}
	return nil, domain.ErrSubscriberNotFound
}

func (d *memDest) Write(ctx context.Context, key string, sub *domain.Subscriber) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	copied := *sub
	d.recs[key] = &copied
	return nil
}

func (d *memDest) has(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.recs[key]
	return ok
}

// memObjectStore is an in-memory object store.
type memObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: make(map[string][]byte)}
}

func (s *memObjectStore) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return nil
}

func (s *memObjectStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memObjectStore) get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

// newTestService wires a migration service over the in-memory fakes with
// row pacing disabled.
func newTestService(source SourceStore, dest DestinationStore, store ObjectStore) (*MigrationService, *Ledger) {
	ledger := NewLedger()
	resolver := NewResolver(source, dest, time.Second)
	svc := NewMigrationService(ledger, resolver, store, logger.GetDefault(), &MigrationConfig{})
	return svc, ledger
}

// waitForTerminal polls until the job leaves IN_PROGRESS or the deadline hits.
func waitForTerminal(t *testing.T, svc *MigrationService, id string) JobView {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		view := svc.GetStatus(id)
		if view.Status.Terminal() {
			return view
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state", id)
	return JobView{}
}
