package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/engage-api/internal/domain/model"
	"github.com/target/engage-api/internal/domain/paging"
	apperrors "github.com/target/engage-api/internal/errors"
	"github.com/target/engage-api/internal/mocks"
	"github.com/target/engage-api/internal/observability/statsd"
)

type pagerFixture struct {
	events      *mocks.MockCustomerEventRepository
	customers   *mocks.MockCustomerRepository
	enrollments *mocks.MockEnrollmentRepository
	recorder    *statsd.Recorder
	svc         *PagerService
}

func newPagerFixture(t *testing.T, cfg PagerServiceConfig) *pagerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &pagerFixture{
		events:      mocks.NewMockCustomerEventRepository(ctrl),
		customers:   mocks.NewMockCustomerRepository(ctrl),
		enrollments: mocks.NewMockEnrollmentRepository(ctrl),
		recorder:    &statsd.Recorder{},
	}
	f.svc = MustNewPagerService(PagerServiceOptions{
		Repos:   PagerRepositories{Events: f.events, Customers: f.customers, Enrollments: f.enrollments},
		Config:  cfg,
		Metrics: f.recorder,
		Logger:  slog.Default(),
	})
	return f
}

func eventKey(e model.CustomerEvent) (string, error) { return "c:" + e.ID, nil }

func events(ids ...string) []model.CustomerEvent {
	out := make([]model.CustomerEvent, len(ids))
	for i, id := range ids {
		out[i] = model.CustomerEvent{ID: id, WorkspaceID: "ws"}
	}
	return out
}

func ids(items []model.CustomerEvent) []string {
	out := make([]string, len(items))
	for i, e := range items {
		out[i] = e.ID
	}
	return out
}

func TestNewPagerService(t *testing.T) {
	ctrl := gomock.NewController(t)
	repos := PagerRepositories{
		Events:      mocks.NewMockCustomerEventRepository(ctrl),
		Customers:   mocks.NewMockCustomerRepository(ctrl),
		Enrollments: mocks.NewMockEnrollmentRepository(ctrl),
	}

	t.Run("success", func(t *testing.T) {
		svc, err := NewPagerService(PagerServiceOptions{Repos: repos, Config: DefaultPagerServiceConfig()})
		require.NoError(t, err)
		assert.Equal(t, 20, svc.config.DefaultPageSize)
		assert.Nil(t, svc.logger)
	})

	t.Run("missing events repo", func(t *testing.T) {
		r := repos
		r.Events = nil
		svc, err := NewPagerService(PagerServiceOptions{Repos: r, Config: DefaultPagerServiceConfig()})
		require.Error(t, err)
		assert.Nil(t, svc)
		assert.Contains(t, err.Error(), "CustomerEventRepository is required")
	})

	t.Run("default above max", func(t *testing.T) {
		_, err := NewPagerService(PagerServiceOptions{
			Repos:  repos,
			Config: PagerServiceConfig{DefaultPageSize: 50, MaxPageSize: 10},
		})
		require.Error(t, err)
	})

	t.Run("must constructor panics", func(t *testing.T) {
		assert.Panics(t, func() { MustNewPagerService(PagerServiceOptions{}) })
	})
}

func TestPagerService_ListEvents_FirstPage(t *testing.T) {
	f := newPagerFixture(t, PagerServiceConfig{DefaultPageSize: 2, MaxPageSize: 10})
	name := "signup"

	f.events.EXPECT().
		FetchPage(gomock.Any(), model.EventPageQuery{
			WorkspaceID: "ws",
			EventName:   &name,
			PageQuery:   model.PageQuery{Sort: "occurred_at", Dir: "desc", Anchor: paging.AnchorFirstPage, Limit: 3},
		}).
		Return(events("e1", "e2", "e3"), nil)
	f.events.EXPECT().CursorKey(gomock.Any()).Return(eventKey)

	res, err := f.svc.ListEvents(context.Background(), ListEventsRequest{
		WorkspaceID: "ws",
		EventName:   &name,
		Page:        PageRequest{Sort: "occurred_at", Dir: "desc"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"e1", "e2"}, ids(res.Items))
	assert.Equal(t, 2, res.PageSize)
	assert.True(t, res.State.HasNext)
	assert.True(t, res.State.HasLast)
	assert.False(t, res.State.HasPrev)
	require.NotNil(t, res.State.NextCursor)
	assert.Equal(t, "c:e2", *res.State.NextCursor)

	assert.Contains(t, res.Links, paging.GoFirst)
	assert.Contains(t, res.Links, paging.GoLast)
	assert.NotContains(t, res.Links, paging.GoPrev)
	assert.Equal(t, paging.AnchorNext, res.Links[paging.GoNext].Anchor)

	fetches := f.recorder.Named("page.fetch")
	require.Len(t, fetches, 1)
	assert.Equal(t, map[string]string{"resource": "events", "anchor": "first_page", "result": "success"}, fetches[0].Tags)
	rows := f.recorder.Named("page.fetch.rows")
	require.Len(t, rows, 1)
	assert.InDelta(t, 2, rows[0].Value, 0)
}

func TestPagerService_ListEvents_PreviousPageIsReversed(t *testing.T) {
	f := newPagerFixture(t, PagerServiceConfig{DefaultPageSize: 2, MaxPageSize: 10})
	cursor := "c:e5"

	f.events.EXPECT().
		FetchPage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q model.EventPageQuery) ([]model.CustomerEvent, error) {
			assert.Equal(t, paging.AnchorPrevious, q.Anchor)
			assert.Equal(t, &cursor, q.Cursor)
			return events("e4", "e3"), nil
		})
	f.events.EXPECT().CursorKey(gomock.Any()).Return(eventKey)

	res, err := f.svc.ListEvents(context.Background(), ListEventsRequest{
		WorkspaceID: "ws",
		Page:        PageRequest{Fetch: paging.FetchParams{Anchor: paging.AnchorPrevious, CursorID: &cursor}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"e3", "e4"}, ids(res.Items))
	assert.False(t, res.State.HasPrev)
	assert.True(t, res.State.HasNext)
	assert.NotContains(t, res.Links, paging.GoPrev)
}

func TestPagerService_PageSize(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		wantLimit int
		wantErr   bool
	}{
		{name: "default", requested: 0, wantLimit: 6},
		{name: "explicit", requested: 3, wantLimit: 4},
		{name: "clamped", requested: 500, wantLimit: 11},
		{name: "negative", requested: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPagerFixture(t, PagerServiceConfig{DefaultPageSize: 5, MaxPageSize: 10})
			if !tt.wantErr {
				f.customers.EXPECT().
					FetchPage(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, q model.CustomerPageQuery) ([]model.Customer, error) {
						assert.Equal(t, tt.wantLimit, q.Limit)
						return nil, nil
					})
				f.customers.EXPECT().CursorKey(gomock.Any()).
					Return(func(c model.Customer) (string, error) { return c.ID, nil })
			}

			res, err := f.svc.ListCustomers(context.Background(), ListCustomersRequest{
				WorkspaceID: "ws",
				Page:        PageRequest{PageSize: tt.requested},
			})
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsValidation(err))
				assert.Equal(t, "page_size", apperrors.GetField(err))
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, res.Items)
			assert.Empty(t, res.Items)
			assert.Equal(t, paging.PageState{CurrentAnchor: paging.AnchorFirstPage}, res.State)
			assert.Equal(t, map[paging.Action]paging.FetchParams{
				paging.GoFirst: {Anchor: paging.AnchorFirstPage},
			}, res.Links)
		})
	}
}

func TestPagerService_RepositoryErrors(t *testing.T) {
	f := newPagerFixture(t, DefaultPagerServiceConfig())

	f.events.EXPECT().FetchPage(gomock.Any(), gomock.Any()).
		Return(nil, apperrors.InvalidArgument(`cursor is required for anchor "next"`))
	_, err := f.svc.ListEvents(context.Background(), ListEventsRequest{
		WorkspaceID: "ws",
		Page:        PageRequest{Fetch: paging.FetchParams{Anchor: paging.AnchorNext}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidArgument(err))

	f.events.EXPECT().FetchPage(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))
	_, err = f.svc.ListEvents(context.Background(), ListEventsRequest{WorkspaceID: "ws"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list events")

	fetches := f.recorder.Named("page.fetch")
	require.Len(t, fetches, 2)
	assert.Equal(t, "error", fetches[0].Tags["result"])
	assert.Equal(t, "app_invalid_argument", fetches[0].Tags["error_class"])
	assert.Empty(t, f.recorder.Named("page.fetch.rows"))
}

func TestPagerService_RequiresScope(t *testing.T) {
	f := newPagerFixture(t, DefaultPagerServiceConfig())

	_, err := f.svc.ListEvents(context.Background(), ListEventsRequest{})
	assert.True(t, apperrors.IsValidation(err))
	_, err = f.svc.ListCustomers(context.Background(), ListCustomersRequest{WorkspaceID: " "})
	assert.True(t, apperrors.IsValidation(err))
	_, err = f.svc.ListEnrollments(context.Background(), ListEnrollmentsRequest{})
	assert.True(t, apperrors.IsValidation(err))
}

func TestPagerService_ListEnrollments_LastPage(t *testing.T) {
	f := newPagerFixture(t, PagerServiceConfig{DefaultPageSize: 2, MaxPageSize: 10})
	rows := []model.Enrollment{{JourneyID: "j", CustomerID: "c9"}, {JourneyID: "j", CustomerID: "c8"}, {JourneyID: "j", CustomerID: "c7"}}

	f.enrollments.EXPECT().
		FetchPage(gomock.Any(), model.EnrollmentPageQuery{
			JourneyID: "j",
			PageQuery: model.PageQuery{Anchor: paging.AnchorLastPage, Limit: 3},
		}).
		Return(rows, nil)
	f.enrollments.EXPECT().CursorKey(gomock.Any()).
		Return(func(e model.Enrollment) (string, error) { return e.CustomerID, nil })

	res, err := f.svc.ListEnrollments(context.Background(), ListEnrollmentsRequest{
		JourneyID: "j",
		Page:      PageRequest{Fetch: paging.FetchParams{Anchor: paging.AnchorLastPage}},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "c8", res.Items[0].CustomerID)
	assert.Equal(t, "c9", res.Items[1].CustomerID)
	assert.True(t, res.State.HasPrev)
	assert.False(t, res.State.HasNext)
	assert.Equal(t, "c8", *res.Links[paging.GoPrev].CursorID)
}
