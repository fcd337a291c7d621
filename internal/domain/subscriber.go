package domain

import (
	"errors"
	"time"
)

// ErrSubscriberNotFound is returned by source and destination stores when no
// record exists for the given identifier.
var ErrSubscriberNotFound = errors.New("subscriber not found")

// SubscriberStatus represents the provisioning state of a subscriber.
type SubscriberStatus string

const (
	SubscriberStatusActive    SubscriberStatus = "active"
	SubscriberStatusSuspended SubscriberStatus = "suspended"
	SubscriberStatusClosed    SubscriberStatus = "closed"
)

// Subscriber is one subscriber record in the legacy relational store. The
// same shape is written to the destination key-value store during migration.
type Subscriber struct {
	SubscriberID string           `gorm:"column:subscriber_id;type:text;primaryKey" json:"subscriber_id"`
	MSISDN       string           `gorm:"column:msisdn;type:text;index" json:"msisdn,omitempty"`
	Email        string           `gorm:"type:text;index" json:"email,omitempty"`
	FullName     string           `gorm:"type:text" json:"full_name,omitempty"`
	Plan         string           `gorm:"type:text" json:"plan,omitempty"`
	Status       SubscriberStatus `gorm:"type:text;default:active" json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// TableName returns the database table name for Subscriber.
func (Subscriber) TableName() string {
	return "subscribers"
}
