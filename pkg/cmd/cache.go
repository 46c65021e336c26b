package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/getplaybook/playbook/pkg/cache"
	"github.com/getplaybook/playbook/pkg/services"
)

const defaultTreeCacheTTL = 10 * time.Minute

// NewTreeCache creates the redis-backed tree cache, or returns nil when no
// redis URL is configured. Services treat a nil cache as "caching disabled".
func NewTreeCache(redisURL string, logger *slog.Logger) services.TreeCache {
	if redisURL == "" {
		return nil
	}

	treeCache, err := cache.NewTreeCache(redisURL, defaultTreeCacheTTL, logger)
	if err != nil {
		panic(fmt.Errorf("failed to create tree cache: %w", err))
	}

	return treeCache
}
