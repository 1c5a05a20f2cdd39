// Package paging implements the pure state machine behind keyset pagination.
//
// A list view holds a PageState describing which page is on screen and which
// navigation actions are possible. ComputeNextRequest turns a user action into
// the FetchParams for the next query, and ApplyFetchResult turns the rows that
// query returned (fetched with a limit of pageSize+1) into the next PageState.
// Neither function performs I/O.
package paging

import (
	"slices"
	"strings"

	apperrors "github.com/target/engage-api/internal/errors"
)

// Anchor identifies which page was requested relative to the current one.
type Anchor string

const (
	// AnchorNone means nothing has been fetched yet.
	AnchorNone Anchor = ""
	// AnchorFirstPage requests the first page in display order.
	AnchorFirstPage Anchor = "first_page"
	// AnchorPrevious requests the page ending just before a cursor.
	AnchorPrevious Anchor = "previous"
	// AnchorNext requests the page starting just after a cursor.
	AnchorNext Anchor = "next"
	// AnchorLastPage requests the last page in display order.
	AnchorLastPage Anchor = "last_page"
)

// ParseAnchor resolves a wire value into an Anchor. The short forms used by
// query strings ("first", "prev", "before", "after", "last") are accepted.
func ParseAnchor(s string) (Anchor, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return AnchorNone, true
	case "first_page", "first":
		return AnchorFirstPage, true
	case "previous", "prev", "before":
		return AnchorPrevious, true
	case "next", "after":
		return AnchorNext, true
	case "last_page", "last":
		return AnchorLastPage, true
	default:
		return AnchorNone, false
	}
}

// Backward reports whether rows for this anchor are fetched in reverse
// display order (nearest the anchor point first).
func (a Anchor) Backward() bool {
	return a == AnchorPrevious || a == AnchorLastPage
}

// RequiresCursor reports whether the anchor is relative to a known row.
func (a Anchor) RequiresCursor() bool {
	return a == AnchorPrevious || a == AnchorNext
}

// Action is a navigation request made by the user.
type Action string

const (
	GoFirst Action = "first"
	GoPrev  Action = "prev"
	GoNext  Action = "next"
	GoLast  Action = "last"
)

// Actions lists every navigation action in display order.
func Actions() []Action {
	return []Action{GoFirst, GoPrev, GoNext, GoLast}
}

// PageState is the pager's view of the page currently on screen.
type PageState struct {
	CurrentAnchor Anchor  `json:"current_anchor"`
	HasNext       bool    `json:"has_next"`
	HasPrev       bool    `json:"has_prev"`
	HasLast       bool    `json:"has_last"`
	NextCursor    *string `json:"next_cursor,omitempty"`
	PrevCursor    *string `json:"prev_cursor,omitempty"`
}

// FetchParams describe the next page query.
type FetchParams struct {
	Anchor   Anchor  `json:"anchor"`
	CursorID *string `json:"cursor,omitempty"`
}

// KeyFunc returns the opaque cursor identifying a row.
type KeyFunc[T any] func(T) (string, error)

// Page is a page of rows in display order together with the resulting state.
type Page[T any] struct {
	Items []T
	State PageState
}

// ComputeNextRequest returns the fetch parameters for action given the
// current state. The second result is false when the action is not currently
// enabled; callers treat that as a silent no-op.
func ComputeNextRequest(state PageState, action Action) (FetchParams, bool) {
	switch action {
	case GoFirst:
		return FetchParams{Anchor: AnchorFirstPage}, true
	case GoPrev:
		if !state.HasPrev || state.PrevCursor == nil {
			return FetchParams{}, false
		}
		return FetchParams{Anchor: AnchorPrevious, CursorID: cloneString(state.PrevCursor)}, true
	case GoNext:
		if !state.HasNext || state.NextCursor == nil {
			return FetchParams{}, false
		}
		return FetchParams{Anchor: AnchorNext, CursorID: cloneString(state.NextCursor)}, true
	case GoLast:
		if !state.HasLast {
			return FetchParams{}, false
		}
		return FetchParams{Anchor: AnchorLastPage}, true
	default:
		return FetchParams{}, false
	}
}

// Links resolves every enabled action for state.
func Links(state PageState) map[Action]FetchParams {
	links := make(map[Action]FetchParams, len(Actions()))
	for _, action := range Actions() {
		if params, ok := ComputeNextRequest(state, action); ok {
			links[action] = params
		}
	}
	return links
}

// ApplyFetchResult folds the rows returned for requested into a page.
//
// rows must be in fetch order: display order for first_page and next, reverse
// display order for previous and last_page. At most pageSize rows are kept;
// a surplus row only signals that more rows exist beyond the page. The
// returned items are always in display order and rows is never modified.
func ApplyFetchResult[T any](rows []T, requested Anchor, pageSize int, key KeyFunc[T]) (Page[T], error) {
	if pageSize <= 0 {
		return Page[T]{}, apperrors.InvalidArgumentf("page size must be positive, got %d", pageSize)
	}
	if key == nil {
		return Page[T]{}, apperrors.InvalidArgument("cursor key function is required")
	}

	hasMore := len(rows) > pageSize
	n := min(len(rows), pageSize)
	items := slices.Clone(rows[:n])
	if requested.Backward() {
		slices.Reverse(items)
	}

	state := PageState{CurrentAnchor: requested}
	if len(items) == 0 {
		return Page[T]{Items: items, State: state}, nil
	}

	switch requested {
	case AnchorPrevious:
		state.HasPrev = hasMore
		state.HasNext = true
	case AnchorLastPage:
		state.HasPrev = hasMore
		state.HasNext = false
	case AnchorNext:
		state.HasPrev = true
		state.HasNext = hasMore
	default:
		state.HasPrev = false
		state.HasNext = hasMore
	}
	state.HasLast = state.HasNext

	if state.HasNext {
		c, err := key(items[len(items)-1])
		if err != nil {
			return Page[T]{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode next cursor")
		}
		state.NextCursor = &c
	}
	if state.HasPrev {
		c, err := key(items[0])
		if err != nil {
			return Page[T]{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode previous cursor")
		}
		state.PrevCursor = &c
	}

	return Page[T]{Items: items, State: state}, nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
