package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkraft/subsync/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriberRepository reads subscriber records from the legacy relational
// store. It is the migration source system and is never written to by a run.
type SubscriberRepository struct {
	db *gorm.DB
}

// NewSubscriberRepository creates a new SubscriberRepository.
func NewSubscriberRepository(db *gorm.DB) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

// FindByIdentifier resolves a subscriber by any of its recognized
// identifiers. Returns domain.ErrSubscriberNotFound when no row matches.
func (r *SubscriberRepository) FindByIdentifier(ctx context.Context, key string) (*domain.Subscriber, error) {
	var sub domain.Subscriber
	err := r.db.WithContext(ctx).
		Where("subscriber_id = ? OR msisdn = ? OR email = ?", key, key, key).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSubscriberNotFound
		}
		return nil, fmt.Errorf("failed to query subscriber: %w", err)
	}
	return &sub, nil
}

// Count returns the number of subscriber rows in the legacy store.
func (r *SubscriberRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Subscriber{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count subscribers: %w", err)
	}
	return count, nil
}

// Seed inserts subscriber rows, skipping ones that already exist. Used by
// the migrate CLI to load sample data into a fresh legacy store.
func (r *SubscriberRepository) Seed(ctx context.Context, subs []domain.Subscriber) error {
	if len(subs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subscriber_id"}},
		DoNothing: true,
	}).Create(&subs).Error
}
