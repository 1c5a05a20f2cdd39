//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"strings"

	"github.com/target/engage-api/internal/domain/paging"
)

// Sort directions accepted by list queries.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// PageQuery carries the keyset paging parameters shared by every list query.
type PageQuery struct {
	// Sort names the ordering column; each resource defines its own set.
	Sort string
	// Dir is "asc" or "desc".
	Dir    string
	Anchor paging.Anchor
	// Cursor is the opaque token of the row the anchor is relative to.
	// Required for previous/next, ignored for first_page/last_page.
	Cursor *string
	// Limit is the number of rows to fetch, i.e. page size plus one lookahead row.
	Limit int
}

// NormalizeSortDir returns "asc" or "desc", or "" for anything else.
func NormalizeSortDir(dir string) string {
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", SortAsc:
		return SortAsc
	case SortDesc:
		return SortDesc
	default:
		return ""
	}
}
