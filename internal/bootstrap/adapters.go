package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/engage-api/internal/adapters/backfill"
	"github.com/target/engage-api/internal/service"
)

// BackfillConfig contains configuration for the conversion backfill runner.
type BackfillConfig struct {
	Service  *service.ConversionService
	Interval time.Duration
	Logger   *slog.Logger
}

// RunConversionBackfill starts the conversion backfill loop.
func RunConversionBackfill(ctx context.Context, cfg BackfillConfig) error {
	if cfg.Service == nil {
		return errors.New("create backfill runner: conversion service is required")
	}
	runner, err := backfill.NewRunner(backfill.RunnerOptions{
		Service:  cfg.Service,
		Interval: cfg.Interval,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return fmt.Errorf("create backfill runner: %w", err)
	}
	return runner.Run(ctx)
}
