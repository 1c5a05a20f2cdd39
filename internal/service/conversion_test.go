package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/engage-api/internal/core"
	"github.com/target/engage-api/internal/domain/conversion"
	"github.com/target/engage-api/internal/domain/model"
	"github.com/target/engage-api/internal/domain/paging"
	apperrors "github.com/target/engage-api/internal/errors"
	"github.com/target/engage-api/internal/mocks"
	"github.com/target/engage-api/internal/observability/statsd"
)

const trackedDoc = `{"entry":{"segment":"new"},"conversionTracking":{"enabled":true,"events":["purchase"],"timeLimit":{"unit":"Days","value":3}}}`

var entered = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type conversionFixture struct {
	journeys    *mocks.MockJourneyRepository
	enrollments *mocks.MockEnrollmentRepository
	events      *mocks.MockCustomerEventRepository
	conversions *mocks.MockConversionRepository
	cache       *mocks.MockCacheRepository
	recorder    *statsd.Recorder
	svc         *ConversionService
}

type conversionFixtureOptions struct {
	cache  bool
	locker bool
	config ConversionServiceConfig
}

func newConversionFixture(t *testing.T, o conversionFixtureOptions) *conversionFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &conversionFixture{
		journeys:    mocks.NewMockJourneyRepository(ctrl),
		enrollments: mocks.NewMockEnrollmentRepository(ctrl),
		events:      mocks.NewMockCustomerEventRepository(ctrl),
		conversions: mocks.NewMockConversionRepository(ctrl),
		cache:       mocks.NewMockCacheRepository(ctrl),
		recorder:    &statsd.Recorder{},
	}

	cfg := o.config
	if cfg == (ConversionServiceConfig{}) {
		cfg = DefaultConversionServiceConfig()
	}
	opts := ConversionServiceOptions{
		Repos: ConversionRepositories{
			Journeys:    f.journeys,
			Enrollments: f.enrollments,
			Events:      f.events,
			Conversions: f.conversions,
		},
		Config:  cfg,
		Metrics: f.recorder,
		Now:     func() time.Time { return entered.Add(96 * time.Hour) },
	}
	if o.cache {
		opts.Cache = core.NewSettingsCache(core.SettingsCacheOptions{
			Cache: f.cache,
			Key:   func(id string) string { return "settings:" + id },
			TTL:   time.Minute,
		})
	}
	if o.locker {
		opts.Locker = ConversionLocker{Cache: f.cache, Key: func(id string) string { return "lock:" + id }}
	}
	f.svc = MustNewConversionService(opts)
	return f
}

func (f *conversionFixture) expectSettings(journeyID, doc string) {
	f.journeys.EXPECT().GetSettings(gomock.Any(), journeyID).
		Return(&model.JourneySettings{JourneyID: journeyID, WorkspaceID: "ws", Document: json.RawMessage(doc)}, nil)
}

func TestNewConversionService(t *testing.T) {
	ctrl := gomock.NewController(t)
	repos := ConversionRepositories{
		Journeys:    mocks.NewMockJourneyRepository(ctrl),
		Enrollments: mocks.NewMockEnrollmentRepository(ctrl),
		Events:      mocks.NewMockCustomerEventRepository(ctrl),
		Conversions: mocks.NewMockConversionRepository(ctrl),
	}

	t.Run("success", func(t *testing.T) {
		svc, err := NewConversionService(ConversionServiceOptions{Repos: repos, Config: DefaultConversionServiceConfig()})
		require.NoError(t, err)
		assert.Equal(t, "conversionTracking", svc.extractor.Path())
		assert.Equal(t, []string{"conversionTracking"}, svc.fields)
	})

	t.Run("nested settings path", func(t *testing.T) {
		cfg := DefaultConversionServiceConfig()
		cfg.SettingsPath = "tracking.conversion"
		svc, err := NewConversionService(ConversionServiceOptions{Repos: repos, Config: cfg})
		require.NoError(t, err)
		assert.Equal(t, []string{"tracking", "conversion"}, svc.fields)
	})

	t.Run("settings path that is not a field path", func(t *testing.T) {
		cfg := DefaultConversionServiceConfig()
		cfg.SettingsPath = "settings[0].tracking"
		_, err := NewConversionService(ConversionServiceOptions{Repos: repos, Config: cfg})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a plain field path")
	})

	t.Run("missing conversions repo", func(t *testing.T) {
		r := repos
		r.Conversions = nil
		_, err := NewConversionService(ConversionServiceOptions{Repos: r, Config: DefaultConversionServiceConfig()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ConversionRepository is required")
	})

	t.Run("invalid settings path", func(t *testing.T) {
		cfg := DefaultConversionServiceConfig()
		cfg.SettingsPath = "tracking.["
		_, err := NewConversionService(ConversionServiceOptions{Repos: repos, Config: cfg})
		require.Error(t, err)
	})

	t.Run("locker without key", func(t *testing.T) {
		_, err := NewConversionService(ConversionServiceOptions{
			Repos:  repos,
			Config: DefaultConversionServiceConfig(),
			Locker: ConversionLocker{Cache: mocks.NewMockCacheRepository(ctrl)},
		})
		require.Error(t, err)
	})
}

func TestConversionService_Settings_CachesMisses(t *testing.T) {
	f := newConversionFixture(t, conversionFixtureOptions{cache: true})

	f.cache.EXPECT().Get(gomock.Any(), "settings:j1").Return(nil, nil)
	f.expectSettings("j1", trackedDoc)
	f.cache.EXPECT().
		Set(gomock.Any(), "settings:j1", gomock.Any(), time.Minute).
		DoAndReturn(func(_ context.Context, _ string, raw []byte, _ time.Duration) error {
			assert.JSONEq(t, `{"workspace_id":"ws","settings":{"enabled":true,"events":["purchase"],"timeLimit":{"unit":"Days","value":3}}}`, string(raw))
			return nil
		})

	got, err := f.svc.Settings(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, conversion.Settings{
		Enabled:       true,
		TrackedEvents: []string{"purchase"},
		TimeLimit:     &conversion.TimeLimit{Unit: conversion.Days, Value: 3},
	}, got)
}

func TestConversionService_Settings_CacheHitSkipsRepository(t *testing.T) {
	f := newConversionFixture(t, conversionFixtureOptions{cache: true})

	f.cache.EXPECT().Get(gomock.Any(), "settings:j1").
		Return([]byte(`{"workspace_id":"ws","settings":{"enabled":false,"events":[]}}`), nil)

	got, err := f.svc.Settings(context.Background(), "j1")
	require.NoError(t, err)
	assert.False(t, got.Enabled)
}

func TestConversionService_Settings_CacheErrorFallsBack(t *testing.T) {
	f := newConversionFixture(t, conversionFixtureOptions{cache: true})

	f.cache.EXPECT().Get(gomock.Any(), "settings:j1").Return(nil, errors.New("redis down"))
	f.expectSettings("j1", `{}`)
	f.cache.EXPECT().Set(gomock.Any(), "settings:j1", gomock.Any(), time.Minute).Return(errors.New("redis down"))

	got, err := f.svc.Settings(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, conversion.Settings{}, got)
}

func TestConversionService_Settings_NotFound(t *testing.T) {
	f := newConversionFixture(t, conversionFixtureOptions{})
	f.journeys.EXPECT().GetSettings(gomock.Any(), "missing").Return(nil, apperrors.NotFound("journey not found"))

	_, err := f.svc.Settings(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestConversionService_UpdateSettings(t *testing.T) {
	f := newConversionFixture(t, conversionFixtureOptions{cache: true})

	f.journeys.EXPECT().
		UpdateSettings(gomock.Any(), "j1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, fn func(json.RawMessage) (json.RawMessage, error)) error {
			out, err := fn(json.RawMessage(`{"entry":{"segment":"new"}}`))
			require.NoError(t, err)
			assert.JSONEq(t, `{
				"entry":{"segment":"new"},
				"conversionTracking":{"enabled":true,"events":["purchase"],"timeLimit":{"unit":"Hours","value":6}}
			}`, string(out))
			return nil
		})
	f.cache.EXPECT().Delete(gomock.Any(), "settings:j1").Return(true, nil)

	got, err := f.svc.UpdateSettings(context.Background(), "j1", conversion.Settings{
		Enabled:       true,
		TrackedEvents: []string{" purchase ", "purchase"},
		TimeLimit:     &conversion.TimeLimit{Unit: conversion.Hours, Value: 6},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"purchase"}, got.TrackedEvents)
}

func TestConversionService_UpdateSettings_RejectsInvalid(t *testing.T) {
	f := newConversionFixture(t, conversionFixtureOptions{cache: true})

	_, err := f.svc.UpdateSettings(context.Background(), "j1", conversion.Settings{
		Enabled:   true,
		TimeLimit: &conversion.TimeLimit{Unit: conversion.Days, Value: -1},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestConversionService_Evaluate_Converted(t *testing.T) {
	f := newConversionFixture(t, conversionFixtureOptions{})
	f.expectSettings("j1", trackedDoc)
	f.enrollments.EXPECT().Get(gomock.Any(), "j1", "c1").
		Return(&model.Enrollment{JourneyID: "j1", CustomerID: "c1", EnteredAt: entered}, nil)
	f.events.EXPECT().
		ListOccurrences(gomock.Any(), model.OccurrenceQuery{
			WorkspaceID: "ws",
			CustomerID:  "c1",
			Names:       []string{"purchase"},
			From:        entered,
			To:          entered.Add(72 * time.Hour),
		}).
		Return([]conversion.Occurrence{{Name: "purchase", OccurredAt: entered.Add(2 * time.Hour)}}, nil)

	out, err := f.svc.Evaluate(context.Background(), "j1", "c1")
	require.NoError(t, err)

	assert.True(t, out.Result.Converted)
	assert.Equal(t, entered.Add(2*time.Hour), *out.Result.ConvertedAt)
	assert.Equal(t, entered.Add(72*time.Hour), out.Result.DeadlineAt)
	assert.True(t, out.Display.Enabled)
	assert.Equal(t, "3 Days", out.Display.TimeLimit)

	evals := f.recorder.Named("conversion.evaluate")
	require.Len(t, evals, 1)
	assert.Equal(t, "converted", evals[0].Tags["outcome"])
}

func TestConversionService_Evaluate_DisabledSkipsEvents(t *testing.T) {
	f := newConversionFixture(t, conversionFixtureOptions{})
	f.expectSettings("j1", `{"conversionTracking":{"enabled":false,"events":["purchase"],"timeLimit":{"unit":"Days","value":3}}}`)
	f.enrollments.EXPECT().Get(gomock.Any(), "j1", "c1").
		Return(&model.Enrollment{JourneyID: "j1", CustomerID: "c1", EnteredAt: entered}, nil)
	// no ListOccurrences expectation: the mock fails the test if it is called

	out, err := f.svc.Evaluate(context.Background(), "j1", "c1")
	require.NoError(t, err)
	assert.False(t, out.Result.Converted)
	assert.Equal(t, entered.Add(72*time.Hour), out.Result.DeadlineAt)
	assert.Equal(t, conversion.NoTrackingMessage, out.Display.Message)
	assert.Equal(t, "disabled", f.recorder.Named("conversion.evaluate")[0].Tags["outcome"])
}

func TestConversionService_Evaluate_NotEnrolled(t *testing.T) {
	f := newConversionFixture(t, conversionFixtureOptions{})
	f.expectSettings("j1", trackedDoc)
	f.enrollments.EXPECT().Get(gomock.Any(), "j1", "c1").Return(nil, apperrors.NotFound("not enrolled"))

	_, err := f.svc.Evaluate(context.Background(), "j1", "c1")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestConversionService_Evaluate_EventStoreError(t *testing.T) {
	f := newConversionFixture(t, conversionFixtureOptions{})
	f.expectSettings("j1", trackedDoc)
	f.enrollments.EXPECT().Get(gomock.Any(), "j1", "c1").
		Return(&model.Enrollment{JourneyID: "j1", CustomerID: "c1", EnteredAt: entered}, nil)
	f.events.EXPECT().ListOccurrences(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))

	_, err := f.svc.Evaluate(context.Background(), "j1", "c1")
	require.Error(t, err)
	assert.Equal(t, "error", f.recorder.Named("conversion.evaluate")[0].Tags["result"])
}

func TestConversionService_EvaluateBatch_PreservesOrder(t *testing.T) {
	f := newConversionFixture(t, conversionFixtureOptions{config: ConversionServiceConfig{
		SettingsPath: "conversionTracking", Concurrency: 3, BackfillBatch: 10,
	}})
	f.expectSettings("j1", trackedDoc)

	customers := []string{"c1", "c2", "c3", "c4", "c5"}
	f.enrollments.EXPECT().Get(gomock.Any(), "j1", gomock.Any()).
		DoAndReturn(func(_ context.Context, j, c string) (*model.Enrollment, error) {
			return &model.Enrollment{JourneyID: j, CustomerID: c, EnteredAt: entered}, nil
		}).Times(len(customers))
	f.events.EXPECT().ListOccurrences(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q model.OccurrenceQuery) ([]conversion.Occurrence, error) {
			if q.CustomerID == "c2" || q.CustomerID == "c5" {
				return []conversion.Occurrence{{Name: "purchase", OccurredAt: entered.Add(time.Hour)}}, nil
			}
			return nil, nil
		}).Times(len(customers))

	out, err := f.svc.EvaluateBatch(context.Background(), "j1", customers)
	require.NoError(t, err)
	require.Len(t, out, len(customers))
	for i, c := range customers {
		assert.Equal(t, c, out[i].CustomerID)
		assert.Equal(t, c == "c2" || c == "c5", out[i].Result.Converted, c)
	}
}

func TestConversionService_EvaluateBatch_Validation(t *testing.T) {
	f := newConversionFixture(t, conversionFixtureOptions{})

	_, err := f.svc.EvaluateBatch(context.Background(), "j1", nil)
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.svc.EvaluateBatch(context.Background(), "j1", make([]string, MaxEvaluateBatch+1))
	assert.True(t, apperrors.IsValidation(err))
}

func TestConversionService_EvaluateBatch_FirstErrorWins(t *testing.T) {
	f := newConversionFixture(t, conversionFixtureOptions{})
	f.expectSettings("j1", trackedDoc)
	f.enrollments.EXPECT().Get(gomock.Any(), "j1", gomock.Any()).
		Return(nil, apperrors.NotFound("not enrolled")).MinTimes(1)

	_, err := f.svc.EvaluateBatch(context.Background(), "j1", []string{"c1", "c2"})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func enrollmentRows(ids ...string) []model.Enrollment {
	out := make([]model.Enrollment, len(ids))
	for i, id := range ids {
		out[i] = model.Enrollment{JourneyID: "j1", CustomerID: id, EnteredAt: entered.Add(time.Duration(i) * time.Minute)}
	}
	return out
}

func TestConversionService_Backfill_WalksAllPages(t *testing.T) {
	f := newConversionFixture(t, conversionFixtureOptions{locker: true, config: ConversionServiceConfig{
		SettingsPath: "conversionTracking", Concurrency: 2, BackfillBatch: 2, BackfillLockTTL: 30 * time.Second,
	}})
	f.expectSettings("j1", trackedDoc)

	var token []byte
	f.cache.EXPECT().SetIfNotExists(gomock.Any(), "lock:j1", gomock.Any(), 30*time.Second).
		DoAndReturn(func(_ context.Context, _ string, v []byte, _ time.Duration) (bool, error) {
			token = v
			return true, nil
		})
	f.cache.EXPECT().DeleteIfValue(gomock.Any(), "lock:j1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, v []byte) (bool, error) {
			assert.Equal(t, token, v)
			return true, nil
		})

	f.enrollments.EXPECT().CursorKey(gomock.Any()).
		Return(func(e model.Enrollment) (string, error) { return "cur:" + e.CustomerID, nil }).Times(2)
	gomock.InOrder(
		f.enrollments.EXPECT().FetchPage(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, q model.EnrollmentPageQuery) ([]model.Enrollment, error) {
				assert.Equal(t, paging.AnchorFirstPage, q.Anchor)
				assert.Equal(t, 3, q.Limit)
				assert.Equal(t, model.SortAsc, q.Dir)
				return enrollmentRows("c1", "c2", "c3"), nil
			}),
		f.enrollments.EXPECT().FetchPage(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, q model.EnrollmentPageQuery) ([]model.Enrollment, error) {
				assert.Equal(t, paging.AnchorNext, q.Anchor)
				require.NotNil(t, q.Cursor)
				assert.Equal(t, "cur:c2", *q.Cursor)
				return enrollmentRows("c3"), nil
			}),
	)
	f.events.EXPECT().ListOccurrences(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q model.OccurrenceQuery) ([]conversion.Occurrence, error) {
			if q.CustomerID == "c1" {
				return []conversion.Occurrence{{Name: "purchase", OccurredAt: q.From}}, nil
			}
			return nil, nil
		}).Times(3)

	var stored []model.ConversionRecord
	f.conversions.EXPECT().UpsertResults(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, recs []model.ConversionRecord) (int, error) {
			stored = append(stored, recs...)
			return len(recs), nil
		}).Times(2)

	stats, err := f.svc.Backfill(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, model.BackfillStats{JourneyID: "j1", Pages: 2, Evaluated: 3, Converted: 1}, *stats)

	require.Len(t, stored, 3)
	assert.Equal(t, "c1", stored[0].CustomerID)
	assert.True(t, stored[0].Converted)
	assert.Equal(t, entered.Add(96*time.Hour), stored[0].EvaluatedAt)

	runs := f.recorder.Named("conversion.backfill")
	require.Len(t, runs, 1)
	assert.Equal(t, "success", runs[0].Tags["result"])
}

func TestConversionService_Backfill_LockHeld(t *testing.T) {
	f := newConversionFixture(t, conversionFixtureOptions{locker: true})
	f.expectSettings("j1", trackedDoc)
	f.cache.EXPECT().SetIfNotExists(gomock.Any(), "lock:j1", gomock.Any(), time.Minute).Return(false, nil)

	stats, err := f.svc.Backfill(context.Background(), "j1")
	require.NoError(t, err)
	assert.True(t, stats.Skipped)
	assert.Equal(t, "noop", f.recorder.Named("conversion.backfill")[0].Tags["result"])
}

func TestConversionService_Backfill_InactiveTracking(t *testing.T) {
	f := newConversionFixture(t, conversionFixtureOptions{locker: true})
	f.expectSettings("j1", `{"conversionTracking":{"enabled":true,"events":["purchase"]}}`)

	stats, err := f.svc.Backfill(context.Background(), "j1")
	require.NoError(t, err)
	assert.True(t, stats.Skipped)
}

func TestConversionService_Backfill_StoreErrorReleasesLock(t *testing.T) {
	f := newConversionFixture(t, conversionFixtureOptions{locker: true})
	f.expectSettings("j1", trackedDoc)
	f.cache.EXPECT().SetIfNotExists(gomock.Any(), "lock:j1", gomock.Any(), gomock.Any()).Return(true, nil)
	f.cache.EXPECT().DeleteIfValue(gomock.Any(), "lock:j1", gomock.Any()).Return(true, nil)
	f.enrollments.EXPECT().FetchPage(gomock.Any(), gomock.Any()).Return(enrollmentRows("c1"), nil)
	f.enrollments.EXPECT().CursorKey(gomock.Any()).
		Return(func(e model.Enrollment) (string, error) { return e.CustomerID, nil })
	f.events.EXPECT().ListOccurrences(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.conversions.EXPECT().UpsertResults(gomock.Any(), gomock.Any()).Return(0, errors.New("deadlock detected"))

	_, err := f.svc.Backfill(context.Background(), "j1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store conversions")
}

func TestConversionService_BackfillAll(t *testing.T) {
	f := newConversionFixture(t, conversionFixtureOptions{})
	f.journeys.EXPECT().ListTrackingEnabled(gomock.Any(), []string{"conversionTracking"}).
		Return([]string{"j1", "j2"}, nil)
	f.journeys.EXPECT().GetSettings(gomock.Any(), "j1").Return(nil, errors.New("boom"))
	f.expectSettings("j2", trackedDoc)
	f.enrollments.EXPECT().FetchPage(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.enrollments.EXPECT().CursorKey(gomock.Any()).
		Return(func(e model.Enrollment) (string, error) { return e.CustomerID, nil })

	stats, err := f.svc.BackfillAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journey j1")
	require.Len(t, stats, 1)
	assert.Equal(t, model.BackfillStats{JourneyID: "j2"}, stats[0])
}

func TestConversionService_StoredResult(t *testing.T) {
	f := newConversionFixture(t, conversionFixtureOptions{})
	rec := &model.ConversionRecord{JourneyID: "j1", CustomerID: "c1", Converted: true}
	f.conversions.EXPECT().Get(gomock.Any(), "j1", "c1").Return(rec, nil)

	got, err := f.svc.StoredResult(context.Background(), "j1", "c1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}
