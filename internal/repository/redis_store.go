package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mkraft/subsync/internal/config"
	"github.com/mkraft/subsync/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisStore is the destination key-value store. Subscriber records are
// stored as JSON under a configurable key prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a RedisStore from configuration.
func NewRedisStore(cfg *config.RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{
		client: client,
		prefix: cfg.KeyPrefix,
	}
}

// Ping verifies connectivity to the destination store.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

// Lookup fetches a subscriber record by identifying key. Returns
// domain.ErrSubscriberNotFound when the key is absent.
func (s *RedisStore) Lookup(ctx context.Context, key string) (*domain.Subscriber, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSubscriberNotFound
		}
		return nil, fmt.Errorf("failed to read destination record: %w", err)
	}

	var sub domain.Subscriber
	if err := json.Unmarshal([]byte(val), &sub); err != nil {
		return nil, fmt.Errorf("failed to decode destination record: %w", err)
	}
	return &sub, nil
}

// Write stores a subscriber record under the identifying key.
func (s *RedisStore) Write(ctx context.Context, key string, sub *domain.Subscriber) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to encode destination record: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write destination record: %w", err)
	}
	return nil
}
