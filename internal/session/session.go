// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package session provides Valkey-backed refresh sessions. Each session is
// keyed by the refresh token's ID and stored as JSON with a TTL equal to
// the token lifetime. A per-user set indexes the sessions so every login
// of an account can be revoked at once.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long a session lives when the caller passes zero.
	DefaultTTL = 7 * 24 * time.Hour

	// keyPrefix namespaces session keys in Valkey to avoid collisions.
	keyPrefix = "session:"

	// userPrefix namespaces the per-user session index.
	userPrefix = "user_sessions:"
)

// Data holds the session payload stored in Valkey.
type Data struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Store manages session lifecycle in Valkey.
type Store struct {
	client *redis.Client
}

// NewStore creates a session store backed by the given Valkey client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Create stores a session under id and indexes it for its user.
func (s *Store) Create(ctx context.Context, id string, data *Data, ttl time.Duration) error {
	if id == "" {
		return errors.New("session create: empty id")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	data.CreatedAt = time.Now().UTC()

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}

	userKey := userPrefix + data.UserID.String()
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keyPrefix+id, payload, ttl)
	pipe.SAdd(ctx, userKey, id)
	pipe.Expire(ctx, userKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}

// Get returns the session stored under id, or nil if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Data, error) {
	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // expired or revoked
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}
	return decode(payload)
}

// Consume atomically fetches and removes the session stored under id.
// Two concurrent refreshes with the same token cannot both succeed.
func (s *Store) Consume(ctx context.Context, id string) (*Data, error) {
	payload, err := s.client.GetDel(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session consume: %w", err)
	}
	data, err := decode(payload)
	if err != nil {
		return nil, err
	}
	s.client.SRem(ctx, userPrefix+data.UserID.String(), id)
	return data, nil
}

// Destroy removes one session. Missing sessions are not an error.
func (s *Store) Destroy(ctx context.Context, id string) error {
	_, err := s.Consume(ctx, id)
	return err
}

// DestroyAll removes every session of a user and reports how many were
// removed.
func (s *Store) DestroyAll(ctx context.Context, userID uuid.UUID) (int, error) {
	userKey := userPrefix + userID.String()
	ids, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return 0, fmt.Errorf("session list: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, keyPrefix+id)
	}

	var removed int64
	if len(ids) > 0 {
		removed, err = s.client.Del(ctx, keys...).Result()
		if err != nil {
			return 0, fmt.Errorf("session destroy all: %w", err)
		}
	}
	if err := s.client.Del(ctx, userKey).Err(); err != nil {
		return int(removed), fmt.Errorf("session index cleanup: %w", err)
	}
	return int(removed), nil
}

func decode(payload []byte) (*Data, error) {
	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	return &data, nil
}
