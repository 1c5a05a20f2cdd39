// Package backfill provides the adapter that periodically re-evaluates
// conversions for every journey with tracking enabled.
package backfill

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/target/engage-api/internal/domain/model"
)

// Backfiller runs one backfill pass over all tracked journeys.
type Backfiller interface {
	BackfillAll(ctx context.Context) ([]model.BackfillStats, error)
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Service  Backfiller
	Interval time.Duration
	Logger   *slog.Logger
}

// Runner drives Backfiller on a fixed interval.
type Runner struct {
	svc      Backfiller
	interval time.Duration
	logger   *slog.Logger
}

// NewRunner creates a new backfill runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Service == nil {
		return nil, errors.New("backfill service is required")
	}
	if opts.Interval <= 0 {
		return nil, errors.New("backfill interval must be positive")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		svc:      opts.Service,
		interval: opts.Interval,
		logger:   logger.With("component", "conversion_backfill"),
	}, nil
}

// Run performs a pass after a short jitter, then one per interval, until ctx
// is cancelled. Pass failures are logged and never stop the loop.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting conversion backfill runner", "interval", r.interval)

	r.waitWithJitter(ctx)
	if ctx.Err() != nil {
		return nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "conversion backfill runner stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	start := time.Now()
	stats, err := r.svc.BackfillAll(ctx)

	var evaluated, converted, skipped int
	for _, s := range stats {
		evaluated += s.Evaluated
		converted += s.Converted
		if s.Skipped {
			skipped++
		}
	}

	attrs := []any{
		"journeys", len(stats),
		"skipped", skipped,
		"evaluated", evaluated,
		"converted", converted,
		"elapsed", time.Since(start),
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.ErrorContext(ctx, "conversion backfill pass failed", append(attrs, "error", err)...)
		return
	}
	r.logger.InfoContext(ctx, "conversion backfill pass completed", attrs...)
}

// waitWithJitter delays up to 10% of the interval so instances started
// together do not contend for the same journey locks.
func (r *Runner) waitWithJitter(ctx context.Context) {
	maxJitter := int64(r.interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		r.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}
