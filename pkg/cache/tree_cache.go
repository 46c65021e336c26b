// Package cache provides a Redis-backed read-through cache for loaded
// template trees. Entries are invalidated whenever the template or any of
// its descendants is mutated.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "playbook:tree:"

// TreeCache stores fully assembled template trees in Redis with a TTL.
type TreeCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewTreeCache creates a tree cache from a Redis URL.
func NewTreeCache(redisURL string, ttl time.Duration, logger *slog.Logger) (*TreeCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	return &TreeCache{client: redis.NewClient(opts), ttl: ttl, logger: logger}, nil
}

// Get returns the cached tree for a template, or (nil, false) on a miss. A
// Redis failure is treated as a miss.
func (c *TreeCache) Get(ctx context.Context, templateID string) (*models.Template, bool) {
	raw, err := c.client.Get(ctx, keyPrefix+templateID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "tree cache read failed", "template_id", templateID, "error", err)
		}

		return nil, false
	}

	var template models.Template
	if err := json.Unmarshal(raw, &template); err != nil {
		c.logger.WarnContext(ctx, "tree cache entry corrupt, dropping", "template_id", templateID, "error", err)

		if err := c.client.Del(ctx, keyPrefix+templateID).Err(); err != nil {
			c.logger.WarnContext(ctx, "failed to drop corrupt cache entry", "template_id", templateID, "error", err)
		}

		return nil, false
	}

	return &template, true
}

// Set stores the tree.
func (c *TreeCache) Set(ctx context.Context, template *models.Template) error {
	raw, err := json.Marshal(template)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, keyPrefix+template.ID, raw, c.ttl).Err()
}

// Invalidate drops the cached tree for a template.
func (c *TreeCache) Invalidate(ctx context.Context, templateID string) error {
	return c.client.Del(ctx, keyPrefix+templateID).Err()
}

// Close releases the Redis connection.
func (c *TreeCache) Close() error {
	return c.client.Close()
}
