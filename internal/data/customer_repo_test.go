package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/engage-api/internal/domain/model"
	"github.com/target/engage-api/internal/domain/paging"
	apperrors "github.com/target/engage-api/internal/errors"
	"github.com/target/engage-api/internal/testutil"
)

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
}

func TestCustomerRepo_CreateAndGet(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		ws, err := NewWorkspaceRepo(db).Create(ctx, model.CreateWorkspaceRequest{Name: "acme"})
		require.NoError(t, err)
		repo := NewCustomerRepo(db)

		c, err := repo.Create(ctx, model.CreateCustomerRequest{WorkspaceID: ws.ID, Email: " Ada@Example.com "})
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", c.Email)

		got, err := repo.GetByID(ctx, ws.ID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)

		_, err = repo.Create(ctx, model.CreateCustomerRequest{WorkspaceID: ws.ID, Email: "ada@example.com"})
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))

		other, err := NewWorkspaceRepo(db).Create(ctx, model.CreateWorkspaceRequest{Name: "globex"})
		require.NoError(t, err)
		_, err = repo.GetByID(ctx, other.ID, c.ID)
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestCustomerRepo_FetchPageByEmailPrefix(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		fx := testutil.NewFixtures(t, db)
		ws := fx.Workspace("customers")
		base := testutil.TestTime()
		for i, email := range []string{"bob@example.com", "bea@example.com", "al@example.com", "bo_b@example.com", "bill@example.com"} {
			fx.Customer(ws, email, base.Add(time.Duration(i)*time.Second))
		}

		repo := NewCustomerRepo(db)
		prefix := "b"
		q := model.CustomerPageQuery{
			WorkspaceID: ws,
			EmailPrefix: &prefix,
			PageQuery:   model.PageQuery{Sort: model.CustomerSortEmail, Dir: model.SortAsc, Anchor: paging.AnchorFirstPage, Limit: 3},
		}

		rows, err := repo.FetchPage(context.Background(), q)
		require.NoError(t, err)
		page, err := paging.ApplyFetchResult(rows, q.Anchor, 2, repo.CursorKey(q))
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "bea@example.com", page.Items[0].Email)
		assert.Equal(t, "bill@example.com", page.Items[1].Email)
		require.True(t, page.State.HasNext)

		q.Anchor, q.Cursor = paging.AnchorNext, page.State.NextCursor
		rows, err = repo.FetchPage(context.Background(), q)
		require.NoError(t, err)
		page, err = paging.ApplyFetchResult(rows, q.Anchor, 2, repo.CursorKey(q))
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "bo_b@example.com", page.Items[0].Email)
		assert.Equal(t, "bob@example.com", page.Items[1].Email)
		assert.False(t, page.State.HasNext)

		literal := "bo_"
		q = model.CustomerPageQuery{WorkspaceID: ws, EmailPrefix: &literal, PageQuery: model.PageQuery{Anchor: paging.AnchorFirstPage, Limit: 10}}
		rows, err = repo.FetchPage(context.Background(), q)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "bo_b@example.com", rows[0].Email)
	})
}

func TestCustomerRepo_FetchPageRejectsUnknownSort(t *testing.T) {
	repo := NewCustomerRepo(nil)
	_, err := repo.FetchPage(context.Background(), model.CustomerPageQuery{
		WorkspaceID: "ws",
		PageQuery:   model.PageQuery{Sort: "age", Limit: 5},
	})
	require.Error(t, err)
	assert.Equal(t, "sort", apperrors.GetField(err))
}
