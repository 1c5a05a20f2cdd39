package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	goflags "github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/engage-api/internal/bootstrap"
	"github.com/target/engage-api/internal/domain/model"
	"github.com/target/engage-api/internal/domain/paging"
	"github.com/target/engage-api/internal/mocks"
	"github.com/target/engage-api/internal/service"
)

type adminFixture struct {
	events      *mocks.MockCustomerEventRepository
	customers   *mocks.MockCustomerRepository
	enrollments *mocks.MockEnrollmentRepository
	journeys    *mocks.MockJourneyRepository
	conversions *mocks.MockConversionRepository
	out         *bytes.Buffer
	closed      bool
	app         *app
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &adminFixture{
		events:      mocks.NewMockCustomerEventRepository(ctrl),
		customers:   mocks.NewMockCustomerRepository(ctrl),
		enrollments: mocks.NewMockEnrollmentRepository(ctrl),
		journeys:    mocks.NewMockJourneyRepository(ctrl),
		conversions: mocks.NewMockConversionRepository(ctrl),
		out:         &bytes.Buffer{},
	}

	pager := service.MustNewPagerService(service.PagerServiceOptions{
		Repos: service.PagerRepositories{
			Events:      f.events,
			Customers:   f.customers,
			Enrollments: f.enrollments,
		},
		Config: service.PagerServiceConfig{DefaultPageSize: 2, MaxPageSize: 10},
	})
	conversions := service.MustNewConversionService(service.ConversionServiceOptions{
		Repos: service.ConversionRepositories{
			Journeys:    f.journeys,
			Enrollments: f.enrollments,
			Events:      f.events,
			Conversions: f.conversions,
		},
		Config: service.DefaultConversionServiceConfig(),
	})

	f.app = &app{
		globals: &GlobalFlags{},
		out:     f.out,
		logger:  slog.Default(),
		open: func(context.Context, bool) (*runtime, error) {
			return &runtime{
				Services: bootstrap.ServiceContainer{Pager: pager, Conversions: conversions},
				Close: func() error {
					f.closed = true
					return nil
				},
			}, nil
		},
	}
	return f
}

func (f *adminFixture) run(args ...string) error {
	return runWithArgs(f.app, args)
}

func TestPageCommand_WalksForward(t *testing.T) {
	f := newAdminFixture(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := func(ids ...string) []model.CustomerEvent {
		out := make([]model.CustomerEvent, len(ids))
		for i, id := range ids {
			out[i] = model.CustomerEvent{ID: id, CustomerID: "c1", EventName: "purchase", OccurredAt: at}
		}
		return out
	}
	key := func(e model.CustomerEvent) (string, error) { return "k:" + e.ID, nil }

	gomock.InOrder(
		f.events.EXPECT().FetchPage(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, q model.EventPageQuery) ([]model.CustomerEvent, error) {
				assert.Equal(t, paging.AnchorFirstPage, q.Anchor)
				assert.Equal(t, "ws1", q.WorkspaceID)
				require.NotNil(t, q.EventName)
				assert.Equal(t, "purchase", *q.EventName)
				return rows("e1", "e2", "e3"), nil
			}),
		f.events.EXPECT().FetchPage(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, q model.EventPageQuery) ([]model.CustomerEvent, error) {
				assert.Equal(t, paging.AnchorNext, q.Anchor)
				require.NotNil(t, q.Cursor)
				assert.Equal(t, "k:e2", *q.Cursor)
				return rows("e3"), nil
			}),
	)
	f.events.EXPECT().CursorKey(gomock.Any()).Return(key).Times(2)

	require.NoError(t, f.run("page", "--resource", "events", "--workspace", "ws1", "--event", "purchase", "--pages", "5"))

	out := f.out.String()
	assert.Contains(t, out, "# page 1 (first_page, 2 rows)")
	assert.Contains(t, out, "# page 2 (next, 1 rows)")
	assert.Contains(t, out, "e3")
	assert.Contains(t, out, "2024-03-01T12:00:00Z")
	assert.NotContains(t, out, "# page 3")
	assert.True(t, f.closed)
}

func TestPageCommand_JSONEnrollments(t *testing.T) {
	f := newAdminFixture(t)
	entered := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	f.enrollments.EXPECT().FetchPage(gomock.Any(), gomock.Any()).
		Return([]model.Enrollment{{JourneyID: "j1", CustomerID: "c1", EnteredAt: entered}}, nil)
	f.enrollments.EXPECT().CursorKey(gomock.Any()).
		Return(func(e model.Enrollment) (string, error) { return e.CustomerID, nil })

	require.NoError(t, f.run("--json", "page", "--resource", "enrollments", "--journey", "j1"))

	var got service.ListResult[model.Enrollment]
	require.NoError(t, json.Unmarshal(f.out.Bytes(), &got))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "c1", got.Items[0].CustomerID)
	assert.False(t, got.State.HasNext)
	assert.Equal(t, 2, got.PageSize)
}

func TestPageCommand_Validation(t *testing.T) {
	f := newAdminFixture(t)

	err := f.run("page", "--workspace", "ws1")
	require.Error(t, err)
	var flagsErr *goflags.Error
	require.ErrorAs(t, err, &flagsErr)
	assert.Equal(t, goflags.ErrRequired, flagsErr.Type)

	err = f.run("page", "--resource", "orders")
	require.ErrorAs(t, err, &flagsErr)
	assert.Equal(t, goflags.ErrInvalidChoice, flagsErr.Type)

	require.Error(t, f.run("page", "--resource", "events", "--workspace", "ws1", "--pages", "0"))
	// Missing workspace is rejected by the pager before any fetch.
	require.Error(t, f.run("page", "--resource", "customers"))
}

func TestEvaluateCommand_Stored(t *testing.T) {
	f := newAdminFixture(t)
	deadline := time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)

	f.conversions.EXPECT().Get(gomock.Any(), "j1", "c1").Return(&model.ConversionRecord{
		JourneyID:   "j1",
		CustomerID:  "c1",
		DeadlineAt:  deadline,
		EvaluatedAt: deadline,
	}, nil)

	require.NoError(t, f.run("evaluate", "--journey", "j1", "--customer", "c1", "--stored"))
	out := f.out.String()
	assert.Contains(t, out, "CUSTOMER")
	assert.Contains(t, out, "c1")
	assert.Contains(t, out, "false")
	assert.Contains(t, out, "2024-01-09T00:00:00Z")
}

func TestEvaluateCommand_DisabledTracking(t *testing.T) {
	f := newAdminFixture(t)
	f.app.globals.JSON = true

	f.journeys.EXPECT().GetSettings(gomock.Any(), "j1").
		Return(&model.JourneySettings{JourneyID: "j1", WorkspaceID: "ws1", Document: []byte(`{}`)}, nil)
	f.enrollments.EXPECT().Get(gomock.Any(), "j1", "c1").
		Return(&model.Enrollment{JourneyID: "j1", CustomerID: "c1", EnteredAt: time.Now()}, nil)

	require.NoError(t, f.run("evaluate", "--journey", "j1", "--customer", "c1"))

	var got []model.ConversionOutcome
	require.NoError(t, json.Unmarshal(f.out.Bytes(), &got))
	require.Len(t, got, 1)
	assert.False(t, got[0].Result.Converted)
	assert.False(t, got[0].Display.Enabled)
}

func TestBackfillCommand_SkipsInactiveJourney(t *testing.T) {
	f := newAdminFixture(t)

	f.journeys.EXPECT().GetSettings(gomock.Any(), "j1").
		Return(&model.JourneySettings{JourneyID: "j1", WorkspaceID: "ws1"}, nil)

	require.NoError(t, f.run("backfill", "--journey", "j1"))
	assert.Contains(t, f.out.String(), "JOURNEY")
	assert.Regexp(t, `j1\s+0\s+0\s+0\s+true`, f.out.String())
}

func TestBackfillCommand_PropagatesErrors(t *testing.T) {
	f := newAdminFixture(t)

	f.journeys.EXPECT().ListTrackingEnabled(gomock.Any(), []string{"conversionTracking"}).
		Return(nil, errors.New("db down"))

	err := f.run("backfill")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.True(t, f.closed)
}

func TestRunWithArgs_Help(t *testing.T) {
	f := newAdminFixture(t)
	require.NoError(t, f.run("--help"))
}

func TestRunWithArgs_OpenFailure(t *testing.T) {
	f := newAdminFixture(t)
	f.app.open = func(context.Context, bool) (*runtime, error) { return nil, errors.New("connect db: refused") }

	err := f.run("migrate", "--status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect db")
}
