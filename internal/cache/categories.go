// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"bizdir/internal/models"
)

const (
	// forestKey is the Valkey key holding the serialized category forest.
	forestKey = "categories:forest"

	// DefaultCategoryTTL is how long the cached forest stays valid.
	DefaultCategoryTTL = 10 * time.Minute
)

// LoadFunc builds the forest from the database on a cache miss.
type LoadFunc func(ctx context.Context) ([]models.Category, error)

// CategoryCache caches the public category forest as JSON in Valkey.
// Cache failures are logged and never fail the read.
type CategoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCategoryCache creates a forest cache. A nil client disables caching.
func NewCategoryCache(client *redis.Client, ttl time.Duration) *CategoryCache {
	if ttl == 0 {
		ttl = DefaultCategoryTTL
	}
	return &CategoryCache{client: client, ttl: ttl}
}

// Forest returns the cached forest, calling load and storing its result
// on a miss.
func (c *CategoryCache) Forest(ctx context.Context, load LoadFunc) ([]models.Category, error) {
	if c.client == nil {
		return load(ctx)
	}

	raw, err := c.client.Get(ctx, forestKey).Bytes()
	switch {
	case err == nil:
		var forest []models.Category
		jerr := json.Unmarshal(raw, &forest)
		if jerr == nil {
			slog.Debug("category cache hit")
			return forest, nil
		}
		slog.Warn("category cache decode error", "error", jerr)
	case !errors.Is(err, redis.Nil):
		slog.Warn("category cache get error", "error", err)
	}

	forest, err := load(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(forest)
	if err != nil {
		slog.Warn("category cache encode error", "error", err)
		return forest, nil
	}
	if err := c.client.Set(ctx, forestKey, payload, c.ttl).Err(); err != nil {
		slog.Warn("category cache set error", "error", err)
	}
	return forest, nil
}

// Invalidate drops the cached forest. Called after every category write.
func (c *CategoryCache) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, forestKey).Err(); err != nil {
		slog.Warn("category cache invalidate error", "error", err)
		return
	}
	slog.Debug("category cache invalidated")
}
