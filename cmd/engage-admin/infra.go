package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/engage-api/internal/bootstrap"
)

// runtime is the connected infrastructure and services a command works with.
type runtime struct {
	DB       *sql.DB
	Services bootstrap.ServiceContainer
	Close    func() error
}

// opener connects the runtime. wantRedis asks for the settings cache and
// backfill lock; commands still run without Redis when it is not configured.
type opener func(ctx context.Context, wantRedis bool) (*runtime, error)

func connectRuntime(logger *slog.Logger) opener {
	return func(ctx context.Context, wantRedis bool) (*runtime, error) {
		cfg, err := bootstrap.LoadConfig()
		if err != nil {
			return nil, err
		}

		db, err := bootstrap.ConnectDB(ctx, bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}

		var redisClient redis.UniversalClient
		if wantRedis {
			redisClient, err = bootstrap.ConnectRedis(ctx, bootstrap.DatabaseConfig{RedisConfig: cfg.Redis, Logger: logger})
			switch {
			case errors.Is(err, bootstrap.ErrRedisNotConfigured):
				logger.Info("no redis configuration detected; skipping redis connection")
			case err != nil:
				return nil, errors.Join(fmt.Errorf("connect redis: %w", err), closeInfra(db, nil))
			}
		}

		services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
			Config:      &cfg,
			DB:          db,
			RedisClient: redisClient,
			Logger:      logger,
		})
		if err != nil {
			return nil, errors.Join(fmt.Errorf("wire services: %w", err), closeInfra(db, redisClient))
		}

		return &runtime{
			DB:       db,
			Services: services,
			Close:    func() error { return closeInfra(db, redisClient) },
		}, nil
	}
}

func closeInfra(db *sql.DB, redisClient redis.UniversalClient) error {
	var closeErr error
	if db != nil {
		if err := db.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close db: %w", err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close redis: %w", err))
		}
	}
	return closeErr
}
