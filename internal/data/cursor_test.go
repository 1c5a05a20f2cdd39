package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/engage-api/internal/domain/model"
	"github.com/target/engage-api/internal/domain/paging"
	apperrors "github.com/target/engage-api/internal/errors"
)

func TestEncodeDecodeCursor(t *testing.T) {
	value := "a@example.com"
	in := cursorPayload{
		Sort:   model.CustomerSortEmail,
		Dir:    model.SortDesc,
		Filter: filterFingerprint("customers", "ws-1", ""),
		Value:  &value,
		At:     time.Date(2024, 2, 3, 4, 5, 6, 7, time.UTC),
		ID:     "c-1",
	}

	token, err := encodeCursor(in)
	require.NoError(t, err)
	assert.NotContains(t, token, "=")

	out, err := decodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for name, token := range map[string]string{
		"not base64":    "%%%",
		"not json":      "bm90LWpzb24",
		"missing id":    mustEncode(t, cursorPayload{Sort: "created_at", Dir: "asc", At: time.Now()}),
		"bad direction": mustEncode(t, cursorPayload{Sort: "created_at", Dir: "up", At: time.Now(), ID: "x"}),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decodeCursor(token)
			assert.Error(t, err)
		})
	}
}

func mustEncode(t *testing.T, cur cursorPayload) string {
	t.Helper()
	token, err := encodeCursor(cur)
	require.NoError(t, err)
	return token
}

func TestFilterFingerprint(t *testing.T) {
	assert.Equal(t, filterFingerprint("events", "ws", ""), filterFingerprint("events", "ws", ""))
	assert.NotEqual(t, filterFingerprint("events", "ws", "a"), filterFingerprint("events", "wsa", ""))
	assert.NotEqual(t, filterFingerprint("events", "ws-1"), filterFingerprint("events", "ws-2"))
}

func TestResolveCursor(t *testing.T) {
	filter := filterFingerprint("events", "ws-1", "", "")
	token := mustEncode(t, cursorPayload{Sort: model.EventSortOccurredAt, Dir: model.SortAsc, Filter: filter, At: time.Now(), ID: "e-1"})

	t.Run("not needed for first page", func(t *testing.T) {
		cur, err := resolveCursor(model.PageQuery{Anchor: paging.AnchorFirstPage, Cursor: &token}, model.EventSortOccurredAt, model.SortAsc, filter)
		require.NoError(t, err)
		assert.Nil(t, cur)
	})

	t.Run("required for next", func(t *testing.T) {
		_, err := resolveCursor(model.PageQuery{Anchor: paging.AnchorNext}, model.EventSortOccurredAt, model.SortAsc, filter)
		require.Error(t, err)
		assert.True(t, apperrors.IsInvalidArgument(err))
	})

	t.Run("accepted for matching query", func(t *testing.T) {
		cur, err := resolveCursor(model.PageQuery{Anchor: paging.AnchorPrevious, Cursor: &token}, model.EventSortOccurredAt, model.SortAsc, filter)
		require.NoError(t, err)
		require.NotNil(t, cur)
		assert.Equal(t, "e-1", cur.ID)
	})

	t.Run("rejected for other direction", func(t *testing.T) {
		_, err := resolveCursor(model.PageQuery{Anchor: paging.AnchorNext, Cursor: &token}, model.EventSortOccurredAt, model.SortDesc, filter)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, "cursor", apperrors.GetField(err))
	})

	t.Run("rejected for other filters", func(t *testing.T) {
		other := filterFingerprint("events", "ws-1", "cust", "")
		_, err := resolveCursor(model.PageQuery{Anchor: paging.AnchorNext, Cursor: &token}, model.EventSortOccurredAt, model.SortAsc, other)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("garbage token", func(t *testing.T) {
		bad := "garbage!"
		_, err := resolveCursor(model.PageQuery{Anchor: paging.AnchorNext, Cursor: &bad}, model.EventSortOccurredAt, model.SortAsc, filter)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})
}
