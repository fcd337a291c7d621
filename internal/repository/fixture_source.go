package repository

import (
	"context"
	"time"

	"github.com/mkraft/subsync/internal/domain"
)

// FixtureSource is an in-memory source store holding canned subscriber
// records. It is only used when the source driver is explicitly set to
// "fixture" in configuration; a failing legacy-store connection never
// switches to it implicitly.
type FixtureSource struct {
	byKey map[string]*domain.Subscriber
}

// NewFixtureSource creates a FixtureSource preloaded with sample records.
func NewFixtureSource() *FixtureSource {
	f := &FixtureSource{byKey: make(map[string]*domain.Subscriber)}
	for i := range fixtureSubscribers {
		f.add(&fixtureSubscribers[i])
	}
	return f
}

func (f *FixtureSource) add(sub *domain.Subscriber) {
	f.byKey[sub.SubscriberID] = sub
	if sub.MSISDN != "" {
		f.byKey[sub.MSISDN] = sub
	}
	if sub.Email != "" {
		f.byKey[sub.Email] = sub
	}
}

// FindByIdentifier resolves a fixture record by any of its identifiers.
func (f *FixtureSource) FindByIdentifier(ctx context.Context, key string) (*domain.Subscriber, error) {
	if sub, ok := f.byKey[key]; ok {
		copied := *sub
		return &copied, nil
	}
	return nil, domain.ErrSubscriberNotFound
}

// Records returns a copy of all fixture records, for seeding a real store.
func (f *FixtureSource) Records() []domain.Subscriber {
	out := make([]domain.Subscriber, len(fixtureSubscribers))
	copy(out, fixtureSubscribers)
	return out
}

var fixtureTime = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

var fixtureSubscribers = []domain.Subscriber{
	{SubscriberID: "SUB-1001", MSISDN: "15550100001", Email: "ana.reyes@example.com", FullName: "Ana Reyes", Plan: "unlimited", Status: domain.SubscriberStatusActive, CreatedAt: fixtureTime, UpdatedAt: fixtureTime},
	{SubscriberID: "SUB-1002", MSISDN: "15550100002", Email: "ben.okafor@example.com", FullName: "Ben Okafor", Plan: "prepaid", Status: domain.SubscriberStatusActive, CreatedAt: fixtureTime, UpdatedAt: fixtureTime},
	{SubscriberID: "SUB-1003", MSISDN: "15550100003", Email: "carla.m@example.com", FullName: "Carla Mendes", Plan: "family", Status: domain.SubscriberStatusSuspended, CreatedAt: fixtureTime, UpdatedAt: fixtureTime},
	{SubscriberID: "SUB-1004", MSISDN: "15550100004", Email: "d.ivanova@example.com", FullName: "Daria Ivanova", Plan: "unlimited", Status: domain.SubscriberStatusActive, CreatedAt: fixtureTime, UpdatedAt: fixtureTime},
	{SubscriberID: "SUB-1005", MSISDN: "15550100005", Email: "eli.tan@example.com", FullName: "Eli Tan", Plan: "prepaid", Status: domain.SubscriberStatusClosed, CreatedAt: fixtureTime, UpdatedAt: fixtureTime},
}
