package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/target/engage-api/internal/core"
	"github.com/target/engage-api/internal/domain/conversion"
	"github.com/target/engage-api/internal/domain/model"
	"github.com/target/engage-api/internal/domain/paging"
	apperrors "github.com/target/engage-api/internal/errors"
	"github.com/target/engage-api/internal/observability/metrics"
	"github.com/target/engage-api/internal/observability/statsd"
)

// MaxEvaluateBatch bounds the customers evaluated by one EvaluateBatch call.
const MaxEvaluateBatch = 1000

// ConversionServiceConfig groups configuration parameters for ConversionService.
type ConversionServiceConfig struct {
	SettingsPath    string        // JMESPath of the tracking block in the settings document
	Concurrency     int           // Parallel evaluations per batch
	BackfillBatch   int           // Enrollments per backfill page
	BackfillLockTTL time.Duration // Lifetime of a journey's backfill lock
}

// DefaultConversionServiceConfig returns sensible defaults for ConversionService configuration.
func DefaultConversionServiceConfig() ConversionServiceConfig {
	return ConversionServiceConfig{
		SettingsPath:    conversion.DefaultSettingsPath,
		Concurrency:     8,
		BackfillBatch:   500,
		BackfillLockTTL: time.Minute,
	}
}

// ConversionRepositories groups the repositories ConversionService reads and writes.
type ConversionRepositories struct {
	Journeys    core.JourneyRepository
	Enrollments core.EnrollmentRepository
	Events      core.CustomerEventRepository
	Conversions core.ConversionRepository
}

// ConversionLocker guards backfills so a journey is processed by one
// instance at a time.
type ConversionLocker struct {
	Cache core.CacheRepository
	// Key maps a journey id to its lock key.
	Key func(journeyID string) string
}

// ConversionServiceOptions groups dependencies for ConversionService.
type ConversionServiceOptions struct {
	Repos   ConversionRepositories  // Required: storage ports
	Config  ConversionServiceConfig // Required: service configuration
	Cache   *core.SettingsCache     // Optional: parsed settings cache
	Locker  ConversionLocker        // Optional: backfill lock; runs unguarded without it
	Metrics statsd.Sink             // Optional: evaluation metrics
	Logger  *slog.Logger            // Optional: structured logger
	Now     func() time.Time        // Optional: clock, defaults to time.Now
}

// ConversionService evaluates whether journey participants converted.
//
// Settings are read from the journey's settings document at the configured
// path and cached. Evaluation loads a participant's tracked events inside the
// conversion window and applies conversion.Evaluate; inactive settings never
// touch the event store. Backfill walks a journey's enrollments page by page
// and persists every outcome.
type ConversionService struct {
	repos     ConversionRepositories
	config    ConversionServiceConfig
	extractor *conversion.Extractor
	fields    []string
	cache     *core.SettingsCache
	locker    ConversionLocker
	metrics   statsd.Sink
	logger    *slog.Logger
	now       func() time.Time
}

// NewConversionService constructs a new ConversionService.
func NewConversionService(opts ConversionServiceOptions) (*ConversionService, error) {
	if opts.Repos.Journeys == nil {
		return nil, errors.New("JourneyRepository is required")
	}
	if opts.Repos.Enrollments == nil {
		return nil, errors.New("EnrollmentRepository is required")
	}
	if opts.Repos.Events == nil {
		return nil, errors.New("CustomerEventRepository is required")
	}
	if opts.Repos.Conversions == nil {
		return nil, errors.New("ConversionRepository is required")
	}
	if opts.Config.Concurrency <= 0 {
		return nil, errors.New("Concurrency must be positive")
	}
	if opts.Config.BackfillBatch <= 0 {
		return nil, errors.New("BackfillBatch must be positive")
	}
	if opts.Locker.Cache != nil && opts.Locker.Key == nil {
		return nil, errors.New("Locker.Key is required when Locker.Cache is set")
	}

	extractor, err := conversion.NewExtractor(opts.Config.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("settings path: %w", err)
	}
	// Settings updates and the tracked-journey query both address the
	// settings block by key, so only dotted field paths are usable.
	fields, err := extractor.Fields()
	if err != nil {
		return nil, fmt.Errorf("settings path: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "conversion_service")
		logger.Debug("ConversionService initialized",
			"settings_path", extractor.Path(),
			"concurrency", opts.Config.Concurrency,
			"backfill_batch", opts.Config.BackfillBatch,
			"cache", opts.Cache != nil,
			"locking", opts.Locker.Cache != nil)
	}

	return &ConversionService{
		repos:     opts.Repos,
		config:    opts.Config,
		extractor: extractor,
		fields:    fields,
		cache:     opts.Cache,
		locker:    opts.Locker,
		metrics:   opts.Metrics,
		logger:    logger,
		now:       now,
	}, nil
}

// MustNewConversionService constructs a new ConversionService and panics on error.
func MustNewConversionService(opts ConversionServiceOptions) *ConversionService {
	svc, err := NewConversionService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast during startup wiring when configuration is invalid
		panic(fmt.Sprintf("failed to create ConversionService: %v", err))
	}
	return svc
}

// Settings returns the conversion settings of a journey.
func (s *ConversionService) Settings(ctx context.Context, journeyID string) (conversion.Settings, error) {
	t, err := s.tracking(ctx, journeyID)
	if err != nil {
		return conversion.Settings{}, err
	}
	return t.Settings, nil
}

// UpdateSettings validates settings and writes them into the journey's
// settings document, leaving every other key untouched.
func (s *ConversionService) UpdateSettings(
	ctx context.Context,
	journeyID string,
	settings conversion.Settings,
) (conversion.Settings, error) {
	normalized, err := settings.Normalize()
	if err != nil {
		return conversion.Settings{}, err
	}

	err = s.repos.Journeys.UpdateSettings(ctx, journeyID, func(doc json.RawMessage) (json.RawMessage, error) {
		return s.extractor.Merge(doc, normalized)
	})
	if err != nil {
		return conversion.Settings{}, fmt.Errorf("update conversion settings: %w", err)
	}

	if err := s.cache.Invalidate(ctx, journeyID); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to invalidate conversion settings cache",
			"journey_id", journeyID, "error", err)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "conversion settings updated",
			"journey_id", journeyID, "enabled", normalized.Enabled, "events", len(normalized.TrackedEvents))
	}
	return normalized, nil
}

// tracking loads a journey's settings, consulting the cache first.
func (s *ConversionService) tracking(ctx context.Context, journeyID string) (core.Tracking, error) {
	if strings.TrimSpace(journeyID) == "" {
		return core.Tracking{}, apperrors.ValidationField("journey_id", "journey_id is required")
	}

	cached, hit, err := s.cache.Get(ctx, journeyID)
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "conversion settings cache read failed", "journey_id", journeyID, "error", err)
	}
	if hit {
		return cached, nil
	}

	js, err := s.repos.Journeys.GetSettings(ctx, journeyID)
	if err != nil {
		return core.Tracking{}, fmt.Errorf("load journey settings: %w", err)
	}
	settings, err := s.extractor.Extract(js.Document)
	if err != nil {
		return core.Tracking{}, fmt.Errorf("journey %s: %w", journeyID, err)
	}

	t := core.Tracking{WorkspaceID: js.WorkspaceID, Settings: settings}
	if err := s.cache.Put(ctx, journeyID, t); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "conversion settings cache write failed", "journey_id", journeyID, "error", err)
	}
	return t, nil
}

// Evaluate reports whether an enrolled customer converted.
func (s *ConversionService) Evaluate(
	ctx context.Context,
	journeyID, customerID string,
) (*model.ConversionOutcome, error) {
	t, err := s.tracking(ctx, journeyID)
	if err != nil {
		return nil, err
	}
	e, err := s.repos.Enrollments.Get(ctx, journeyID, customerID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	out, err := s.evaluate(ctx, t, *e)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// EvaluateBatch evaluates several customers of one journey concurrently.
// Outcomes are returned in the order of customerIDs; the first failure
// cancels the rest.
func (s *ConversionService) EvaluateBatch(
	ctx context.Context,
	journeyID string,
	customerIDs []string,
) ([]model.ConversionOutcome, error) {
	if len(customerIDs) == 0 {
		return nil, apperrors.ValidationField("customer_ids", "customer_ids is required and cannot be empty")
	}
	if len(customerIDs) > MaxEvaluateBatch {
		return nil, apperrors.ValidationField("customer_ids",
			fmt.Sprintf("customer_ids cannot exceed %d per request", MaxEvaluateBatch))
	}

	t, err := s.tracking(ctx, journeyID)
	if err != nil {
		return nil, err
	}

	out := make([]model.ConversionOutcome, len(customerIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for i, customerID := range customerIDs {
		g.Go(func() error {
			e, err := s.repos.Enrollments.Get(gctx, journeyID, customerID)
			if err != nil {
				return fmt.Errorf("load enrollment of customer %s: %w", customerID, err)
			}
			res, err := s.evaluate(gctx, t, *e)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// StoredResult returns the last persisted evaluation for a customer.
func (s *ConversionService) StoredResult(
	ctx context.Context,
	journeyID, customerID string,
) (*model.ConversionRecord, error) {
	rec, err := s.repos.Conversions.Get(ctx, journeyID, customerID)
	if err != nil {
		return nil, fmt.Errorf("load stored conversion: %w", err)
	}
	return rec, nil
}

func (s *ConversionService) evaluate(
	ctx context.Context,
	t core.Tracking,
	e model.Enrollment,
) (model.ConversionOutcome, error) {
	start := s.now()
	window := conversion.Window{EntryAt: e.EnteredAt}

	if t.Settings.Active() {
		occ, err := s.repos.Events.ListOccurrences(ctx, model.OccurrenceQuery{
			WorkspaceID: t.WorkspaceID,
			CustomerID:  e.CustomerID,
			Names:       t.Settings.TrackedEvents,
			From:        e.EnteredAt,
			To:          t.Settings.Deadline(e.EnteredAt),
		})
		if err != nil {
			err = fmt.Errorf("load events of customer %s: %w", e.CustomerID, err)
			metrics.EmitConversion(s.metrics, metrics.Conversion{
				Result: metrics.ResultError, Duration: s.now().Sub(start), Err: err,
			})
			return model.ConversionOutcome{}, err
		}
		window.Events = occ
	}

	res := conversion.Evaluate(t.Settings, window)
	metrics.EmitConversion(s.metrics, metrics.Conversion{
		Outcome:  outcomeOf(t.Settings, res),
		Result:   metrics.ResultSuccess,
		Duration: s.now().Sub(start),
	})

	return model.ConversionOutcome{
		JourneyID:  e.JourneyID,
		CustomerID: e.CustomerID,
		EnteredAt:  e.EnteredAt,
		Result:     res,
		Display:    conversion.Describe(t.Settings, res),
	}, nil
}

func outcomeOf(s conversion.Settings, r conversion.Result) string {
	switch {
	case !s.Enabled:
		return metrics.OutcomeDisabled
	case r.Converted:
		return metrics.OutcomeConverted
	default:
		return metrics.OutcomeNotConverted
	}
}

// Backfill re-evaluates every enrollment of a journey and stores the results.
// The run is skipped when tracking is inactive or another instance holds the
// journey's lock.
func (s *ConversionService) Backfill(ctx context.Context, journeyID string) (*model.BackfillStats, error) {
	start := s.now()
	stats := &model.BackfillStats{JourneyID: journeyID}

	t, err := s.tracking(ctx, journeyID)
	if err != nil {
		s.emitBackfill(stats, metrics.ResultError, start, err)
		return nil, err
	}
	if !t.Settings.Active() {
		stats.Skipped = true
		s.emitBackfill(stats, metrics.ResultNoop, start, nil)
		return stats, nil
	}

	release, acquired, err := s.lock(ctx, journeyID)
	if err != nil {
		s.emitBackfill(stats, metrics.ResultError, start, err)
		return nil, err
	}
	if !acquired {
		stats.Skipped = true
		s.emitBackfill(stats, metrics.ResultNoop, start, nil)
		if s.logger != nil {
			s.logger.DebugContext(ctx, "backfill already running elsewhere", "journey_id", journeyID)
		}
		return stats, nil
	}
	defer release()

	if err := s.walkEnrollments(ctx, t, journeyID, stats); err != nil {
		s.emitBackfill(stats, metrics.ResultError, start, err)
		return nil, err
	}

	s.emitBackfill(stats, metrics.ResultSuccess, start, nil)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "conversion backfill complete",
			"journey_id", journeyID,
			"pages", stats.Pages,
			"evaluated", stats.Evaluated,
			"converted", stats.Converted,
			"duration", s.now().Sub(start))
	}
	return stats, nil
}

func (s *ConversionService) walkEnrollments(
	ctx context.Context,
	t core.Tracking,
	journeyID string,
	stats *model.BackfillStats,
) error {
	fetch := paging.FetchParams{Anchor: paging.AnchorFirstPage}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		q := model.EnrollmentPageQuery{
			JourneyID: journeyID,
			PageQuery: model.PageQuery{
				Sort:   model.EnrollmentSortEnteredAt,
				Dir:    model.SortAsc,
				Anchor: fetch.Anchor,
				Cursor: fetch.CursorID,
				Limit:  s.config.BackfillBatch + 1,
			},
		}
		rows, err := s.repos.Enrollments.FetchPage(ctx, q)
		if err != nil {
			return fmt.Errorf("fetch enrollments: %w", err)
		}
		page, err := paging.ApplyFetchResult(rows, fetch.Anchor, s.config.BackfillBatch, s.repos.Enrollments.CursorKey(q))
		if err != nil {
			return err
		}
		if len(page.Items) == 0 {
			return nil
		}

		records, err := s.evaluatePage(ctx, t, page.Items)
		if err != nil {
			return err
		}
		if _, err := s.repos.Conversions.UpsertResults(ctx, records); err != nil {
			return fmt.Errorf("store conversions: %w", err)
		}

		stats.Pages++
		stats.Evaluated += len(records)
		for _, r := range records {
			if r.Converted {
				stats.Converted++
			}
		}

		next, ok := paging.ComputeNextRequest(page.State, paging.GoNext)
		if !ok {
			return nil
		}
		fetch = next
	}
}

func (s *ConversionService) evaluatePage(
	ctx context.Context,
	t core.Tracking,
	items []model.Enrollment,
) ([]model.ConversionRecord, error) {
	evaluatedAt := s.now().UTC()
	records := make([]model.ConversionRecord, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for i, e := range items {
		g.Go(func() error {
			out, err := s.evaluate(gctx, t, e)
			if err != nil {
				return err
			}
			records[i] = out.Record(evaluatedAt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// lock takes the journey's backfill lock. Without a locker every call acquires.
func (s *ConversionService) lock(ctx context.Context, journeyID string) (func(), bool, error) {
	if s.locker.Cache == nil {
		return func() {}, true, nil
	}

	key := s.locker.Key(journeyID)
	token := []byte(uuid.NewString())
	ttl := s.config.BackfillLockTTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	ok, err := s.locker.Cache.SetIfNotExists(ctx, key, token, ttl)
	if err != nil {
		return nil, false, fmt.Errorf("acquire backfill lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// the run context may already be canceled; release on a fresh one
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if _, err := s.locker.Cache.DeleteIfValue(relCtx, key, token); err != nil && s.logger != nil {
			s.logger.WarnContext(relCtx, "failed to release backfill lock", "journey_id", journeyID, "error", err)
		}
	}
	return release, true, nil
}

func (s *ConversionService) emitBackfill(stats *model.BackfillStats, result string, start time.Time, err error) {
	metrics.EmitBackfill(s.metrics, metrics.Backfill{
		Result:    result,
		Evaluated: stats.Evaluated,
		Converted: stats.Converted,
		Duration:  s.now().Sub(start),
		Err:       err,
	})
}

// BackfillAll backfills every journey with tracking enabled. Failures are
// logged per journey and returned joined once all journeys were attempted.
func (s *ConversionService) BackfillAll(ctx context.Context) ([]model.BackfillStats, error) {
	ids, err := s.repos.Journeys.ListTrackingEnabled(ctx, s.fields)
	if err != nil {
		return nil, fmt.Errorf("list tracked journeys: %w", err)
	}

	var (
		all  []model.BackfillStats
		errs []error
	)
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		stats, err := s.Backfill(ctx, id)
		if err != nil {
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "conversion backfill failed", "journey_id", id, "error", err)
			}
			errs = append(errs, fmt.Errorf("journey %s: %w", id, err))
			continue
		}
		all = append(all, *stats)
	}
	return all, errors.Join(errs...)
}
