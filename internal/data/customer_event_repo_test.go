package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/engage-api/internal/domain/model"
	"github.com/target/engage-api/internal/domain/paging"
	apperrors "github.com/target/engage-api/internal/errors"
	"github.com/target/engage-api/internal/testutil"
)

// fetchEventPage runs one pager step against the repository.
func fetchEventPage(
	t *testing.T,
	repo *CustomerEventRepo,
	q model.EventPageQuery,
	params paging.FetchParams,
	pageSize int,
) paging.Page[model.CustomerEvent] {
	t.Helper()
	q.Anchor = params.Anchor
	q.Cursor = params.CursorID
	q.Limit = pageSize + 1

	rows, err := repo.FetchPage(context.Background(), q)
	require.NoError(t, err)
	page, err := paging.ApplyFetchResult(rows, params.Anchor, pageSize, repo.CursorKey(q))
	require.NoError(t, err)
	return page
}

func eventIDs(events []model.CustomerEvent) []string {
	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	return ids
}

func seedEvents(t *testing.T, db *sql.DB, n int) (string, string, []string) {
	t.Helper()
	fx := testutil.NewFixtures(t, db)
	ws := fx.Workspace("paging")
	cust := fx.Customer(ws, "walker@example.com", testutil.TestTime())

	ids := make([]string, n)
	for i := range n {
		// two events share each timestamp so the id tiebreaker is exercised
		at := testutil.TestTime().Add(time.Duration(i/2) * time.Minute)
		ids[i] = fx.Event(ws, cust, "page_view", at)
	}
	return ws, cust, ids
}

func TestCustomerEventRepo_WalkForwardAndBack(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ws, _, _ := seedEvents(t, db, 7)
		repo := NewCustomerEventRepo(db)
		q := model.EventPageQuery{WorkspaceID: ws, PageQuery: model.PageQuery{Sort: model.EventSortOccurredAt, Dir: model.SortAsc}}

		first := fetchEventPage(t, repo, q, paging.FetchParams{Anchor: paging.AnchorFirstPage}, 3)
		require.Len(t, first.Items, 3)
		assert.False(t, first.State.HasPrev)
		assert.True(t, first.State.HasNext)

		var seen []string
		seen = append(seen, eventIDs(first.Items)...)

		state := first.State
		var pages []paging.Page[model.CustomerEvent]
		for {
			params, ok := paging.ComputeNextRequest(state, paging.GoNext)
			if !ok {
				break
			}
			page := fetchEventPage(t, repo, q, params, 3)
			pages = append(pages, page)
			seen = append(seen, eventIDs(page.Items)...)
			state = page.State
		}
		require.Len(t, pages, 2)
		assert.Len(t, seen, 7)
		assert.False(t, state.HasNext)
		assert.Len(t, pages[1].Items, 1)

		// step back from the tail page to the middle page
		params, ok := paging.ComputeNextRequest(state, paging.GoPrev)
		require.True(t, ok)
		back := fetchEventPage(t, repo, q, params, 3)
		assert.Equal(t, eventIDs(pages[0].Items), eventIDs(back.Items))
		assert.True(t, back.State.HasPrev)
		assert.True(t, back.State.HasNext)

		// the ordering is strictly increasing by (occurred_at, id)
		for i := 1; i < len(first.Items); i++ {
			prev, cur := first.Items[i-1], first.Items[i]
			assert.True(t, prev.OccurredAt.Before(cur.OccurredAt) ||
				(prev.OccurredAt.Equal(cur.OccurredAt) && prev.ID < cur.ID))
		}
	})
}

func TestCustomerEventRepo_LastPage(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ws, _, _ := seedEvents(t, db, 5)
		repo := NewCustomerEventRepo(db)
		q := model.EventPageQuery{WorkspaceID: ws, PageQuery: model.PageQuery{Dir: model.SortDesc}}

		first := fetchEventPage(t, repo, q, paging.FetchParams{Anchor: paging.AnchorFirstPage}, 2)
		last := fetchEventPage(t, repo, q, paging.FetchParams{Anchor: paging.AnchorLastPage}, 2)

		require.Len(t, last.Items, 2)
		assert.True(t, last.State.HasPrev)
		assert.False(t, last.State.HasNext)
		assert.False(t, last.State.HasLast)
		assert.Nil(t, last.State.NextCursor)
		// newest first, so the last page holds the two oldest events
		assert.True(t, last.Items[0].OccurredAt.After(last.Items[1].OccurredAt) ||
			last.Items[0].OccurredAt.Equal(last.Items[1].OccurredAt))
		assert.NotContains(t, eventIDs(first.Items), last.Items[1].ID)
	})
}

func TestCustomerEventRepo_StaleCursorSeeksNeighbour(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ws, _, _ := seedEvents(t, db, 6)
		repo := NewCustomerEventRepo(db)
		q := model.EventPageQuery{WorkspaceID: ws, PageQuery: model.PageQuery{Dir: model.SortAsc}}

		first := fetchEventPage(t, repo, q, paging.FetchParams{Anchor: paging.AnchorFirstPage}, 3)
		boundary := first.Items[2].ID
		_, err := db.ExecContext(context.Background(), `DELETE FROM customer_events WHERE id = $1`, boundary)
		require.NoError(t, err)

		params, ok := paging.ComputeNextRequest(first.State, paging.GoNext)
		require.True(t, ok)
		next := fetchEventPage(t, repo, q, params, 3)
		require.Len(t, next.Items, 3)
		assert.NotContains(t, eventIDs(next.Items), boundary)
		assert.False(t, next.State.HasNext)
	})
}

func TestCustomerEventRepo_CursorBoundToFilters(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ws, cust, _ := seedEvents(t, db, 4)
		repo := NewCustomerEventRepo(db)
		q := model.EventPageQuery{WorkspaceID: ws, PageQuery: model.PageQuery{Dir: model.SortAsc}}
		first := fetchEventPage(t, repo, q, paging.FetchParams{Anchor: paging.AnchorFirstPage}, 2)

		filtered := q
		filtered.CustomerID = &cust
		filtered.Anchor = paging.AnchorNext
		filtered.Cursor = first.State.NextCursor
		filtered.Limit = 3

		_, err := repo.FetchPage(context.Background(), filtered)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestCustomerEventRepo_InsertAndListOccurrences(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		fx := testutil.NewFixtures(t, db)
		ws := fx.Workspace("ingest")
		cust := fx.Customer(ws, "buyer@example.com", testutil.TestTime())
		repo := NewCustomerEventRepo(db)
		repo.Now = testutil.FixedTimeFunc(testutil.TestTime().Add(2 * time.Hour))

		at := testutil.TestTime().Add(time.Hour)
		n, err := repo.Insert(context.Background(), model.IngestEventsRequest{
			WorkspaceID: ws,
			Events: []model.IngestEvent{
				{CustomerID: cust, EventName: "signup", OccurredAt: &at, Payload: json.RawMessage(`{"plan":"pro"}`)},
				{CustomerID: cust, EventName: "purchase"},
				{CustomerID: cust, EventName: "page_view", OccurredAt: &at},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		occ, err := repo.ListOccurrences(context.Background(), model.OccurrenceQuery{
			WorkspaceID: ws,
			CustomerID:  cust,
			Names:       []string{"signup", "purchase"},
			From:        testutil.TestTime(),
			To:          testutil.TestTime().Add(2 * time.Hour),
		})
		require.NoError(t, err)
		require.Len(t, occ, 2)
		assert.Equal(t, "signup", occ[0].Name)
		assert.True(t, occ[0].OccurredAt.Equal(at))
		assert.Equal(t, "purchase", occ[1].Name)

		none, err := repo.ListOccurrences(context.Background(), model.OccurrenceQuery{WorkspaceID: ws, CustomerID: cust})
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestCustomerEventRepo_InsertUnknownCustomer(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		fx := testutil.NewFixtures(t, db)
		ws := fx.Workspace("ingest")
		other := fx.Workspace("other")
		stranger := fx.Customer(other, "stranger@example.com", testutil.TestTime())

		_, err := NewCustomerEventRepo(db).Insert(context.Background(), model.IngestEventsRequest{
			WorkspaceID: ws,
			Events:      []model.IngestEvent{{CustomerID: stranger, EventName: "signup"}},
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsForeignKey(err))
	})
}
