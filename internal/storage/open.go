package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/chronicle/internal/config"
	"github.com/jwebster45206/chronicle/pkg/storage"
)

// Open builds the configured store and waits until it is reachable. The
// returned Redis client is nil for the SQLite backend.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, *redis.Client, error) {
	content := NewContent(cfg.DataDir, logger)

	switch cfg.StoreBackend {
	case config.BackendSQLite:
		s, err := OpenSQLite(cfg.SQLitePath, content, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case config.BackendRedis:
		s, err := NewRedisStorage(cfg.RedisURL, content, cfg.SessionTTL, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := s.WaitForConnection(ctx); err != nil {
			_ = s.Close()
			return nil, nil, err
		}
		return s, s.Client(), nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
