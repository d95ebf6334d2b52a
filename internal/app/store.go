package app

import (
	"context"
	"fmt"

	"github.com/deusflow/geonews/internal/cache"
	"github.com/deusflow/geonews/internal/config"
	"github.com/deusflow/geonews/internal/logger"
	"github.com/deusflow/geonews/internal/storage"
)

const (
	memoEntries = 4096
	memoPrefix  = "geonews:"
)

// openStore picks PostgreSQL when DATABASE_URL is set and the in-memory
// store (optionally snapshotted to a file) otherwise.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.DatabaseURL != "" {
		store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	store := storage.NewMemoryStore(cfg.MemorySnapshotPath)
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("load memory snapshot: %w", err)
	}
	logger.Warn("DATABASE_URL not set, using in-memory store", "snapshot", cfg.MemorySnapshotPath)
	return store, nil
}

// openMemo returns the shared lookup memo: Redis when configured and
// reachable, otherwise a process-local LRU.
func openMemo(ctx context.Context, cfg *config.Config) cache.Store {
	if cfg.RedisAddr != "" {
		rs, err := cache.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, memoPrefix)
		if err == nil {
			logger.Info("using Redis lookup cache", "addr", cfg.RedisAddr)
			return rs
		}
		logger.Warn("Redis unavailable, falling back to memory cache", "addr", cfg.RedisAddr, "error", err)
	}
	return cache.NewMemoryStore(memoEntries)
}
