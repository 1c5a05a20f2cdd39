package httpx

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/target/engage-api/internal/domain/paging"
	apperrors "github.com/target/engage-api/internal/errors"
	"github.com/target/engage-api/internal/service"
)

// pageRequestFromQuery reads sort, dir, anchor, cursor and page_size.
func pageRequestFromQuery(q url.Values) (service.PageRequest, error) {
	req := service.PageRequest{
		Sort: strings.TrimSpace(q.Get("sort")),
		Dir:  strings.TrimSpace(q.Get("dir")),
	}

	anchor, ok := paging.ParseAnchor(q.Get("anchor"))
	if !ok {
		return req, apperrors.ValidationField("anchor", "anchor must be one of: first_page, previous, next, last_page")
	}
	req.Fetch.Anchor = anchor
	if c := strings.TrimSpace(q.Get("cursor")); c != "" {
		req.Fetch.CursorID = &c
	}

	if v := strings.TrimSpace(q.Get("page_size")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, apperrors.ValidationField("page_size", "page_size must be an integer")
		}
		req.PageSize = n
	}
	return req, nil
}

// optionalQuery returns a pointer to the trimmed query value, or nil when empty.
func optionalQuery(q url.Values, key string) *string {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil
	}
	return &v
}

type pageMeta struct {
	PageSize int `json:"page_size"`
	paging.PageState
}

type pageResponse[T any] struct {
	Items []T               `json:"items"`
	Page  pageMeta          `json:"page"`
	Links map[string]string `json:"links"`
}

// newPageResponse renders a list result with a link per enabled navigation
// action. Links keep the request's filters and ordering.
func newPageResponse[T any](r *http.Request, res *service.ListResult[T]) pageResponse[T] {
	links := make(map[string]string, len(res.Links))
	for action, params := range res.Links {
		q := r.URL.Query()
		q.Set("anchor", string(params.Anchor))
		if params.CursorID != nil {
			q.Set("cursor", *params.CursorID)
		} else {
			q.Del("cursor")
		}
		q.Set("page_size", strconv.Itoa(res.PageSize))
		links[string(action)] = r.URL.Path + "?" + q.Encode()
	}
	return pageResponse[T]{
		Items: res.Items,
		Page:  pageMeta{PageSize: res.PageSize, PageState: res.State},
		Links: links,
	}
}
