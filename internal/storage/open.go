package storage

import (
	"context"
	"fmt"

	"github.com/nikbrunner/quickmark/internal/config"
	"github.com/nikbrunner/quickmark/internal/logger"
)

// Open opens the backend selected in cfg.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (KV, error) {
	switch cfg.Backend {
	case config.BackendFile:
		log.Debug("using file storage", logger.String("path", cfg.DataPath))
		return NewFileKV(cfg.DataPath), nil

	case config.BackendSQLite:
		log.Debug("using sqlite storage", logger.String("path", cfg.SQLitePath))
		kv, err := NewSQLiteKV(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return kv, nil

	case config.BackendRedis:
		log.Debug("using redis storage", logger.String("addr", cfg.Redis.Addr))
		kv, err := NewRedisKV(ctx, RedisOptions{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return kv, nil

	default:
		return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
}
