package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/target/engage-api/internal/core"
	"github.com/target/engage-api/internal/domain/model"
	"github.com/target/engage-api/internal/domain/paging"
	apperrors "github.com/target/engage-api/internal/errors"
	"github.com/target/engage-api/internal/observability/metrics"
	"github.com/target/engage-api/internal/observability/statsd"
)

// PagerServiceConfig bounds the page sizes callers may request.
type PagerServiceConfig struct {
	DefaultPageSize int // Used when a request does not name a page size
	MaxPageSize     int // Larger requests are clamped to this size
}

// DefaultPagerServiceConfig returns sensible defaults for PagerService configuration.
func DefaultPagerServiceConfig() PagerServiceConfig {
	return PagerServiceConfig{DefaultPageSize: 20, MaxPageSize: 200}
}

// PagerRepositories groups the repositories that serve keyset pages.
type PagerRepositories struct {
	Events      core.CustomerEventRepository
	Customers   core.CustomerRepository
	Enrollments core.EnrollmentRepository
}

// PagerServiceOptions groups dependencies for PagerService.
type PagerServiceOptions struct {
	Repos   PagerRepositories  // Required: page sources
	Config  PagerServiceConfig // Required: page size bounds
	Metrics statsd.Sink        // Optional: page fetch metrics
	Logger  *slog.Logger       // Optional: structured logger
}

// PagerService serves keyset-paginated lists.
//
// Every list follows the same cycle: the requested anchor and cursor become a
// query for pageSize+1 rows, and the rows that come back are folded into a
// page with paging.ApplyFetchResult. The returned links are the fetch
// parameters of every navigation action the page allows.
type PagerService struct {
	repos   PagerRepositories
	config  PagerServiceConfig
	metrics statsd.Sink
	logger  *slog.Logger
}

// NewPagerService constructs a new PagerService.
func NewPagerService(opts PagerServiceOptions) (*PagerService, error) {
	if opts.Repos.Events == nil {
		return nil, errors.New("CustomerEventRepository is required")
	}
	if opts.Repos.Customers == nil {
		return nil, errors.New("CustomerRepository is required")
	}
	if opts.Repos.Enrollments == nil {
		return nil, errors.New("EnrollmentRepository is required")
	}
	if opts.Config.DefaultPageSize <= 0 || opts.Config.MaxPageSize <= 0 {
		return nil, errors.New("page sizes must be positive")
	}
	if opts.Config.DefaultPageSize > opts.Config.MaxPageSize {
		return nil, errors.New("DefaultPageSize cannot exceed MaxPageSize")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "pager_service")
		logger.Debug("PagerService initialized",
			"default_page_size", opts.Config.DefaultPageSize,
			"max_page_size", opts.Config.MaxPageSize)
	}

	return &PagerService{
		repos:   opts.Repos,
		config:  opts.Config,
		metrics: opts.Metrics,
		logger:  logger,
	}, nil
}

// MustNewPagerService constructs a new PagerService and panics on error.
func MustNewPagerService(opts PagerServiceOptions) *PagerService {
	svc, err := NewPagerService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast during startup wiring when configuration is invalid
		panic(fmt.Sprintf("failed to create PagerService: %v", err))
	}
	return svc
}

// PageRequest is the paging part of a list request.
type PageRequest struct {
	Sort string
	Dir  string
	// Fetch is the anchor and cursor to load; the zero value loads the first page.
	Fetch paging.FetchParams
	// PageSize of 0 selects the configured default.
	PageSize int
}

// ListResult is one page of a list in display order.
type ListResult[T any] struct {
	Items    []T                                  `json:"items"`
	State    paging.PageState                     `json:"state"`
	Links    map[paging.Action]paging.FetchParams `json:"links"`
	PageSize int                                  `json:"page_size"`
}

// ListEventsRequest lists a workspace's customer events.
type ListEventsRequest struct {
	WorkspaceID string
	CustomerID  *string
	EventName   *string
	Page        PageRequest
}

// ListCustomersRequest lists a workspace's customers.
type ListCustomersRequest struct {
	WorkspaceID string
	EmailPrefix *string
	Page        PageRequest
}

// ListEnrollmentsRequest lists a journey's enrollments.
type ListEnrollmentsRequest struct {
	JourneyID string
	Page      PageRequest
}

// ListEvents returns one page of customer events.
func (s *PagerService) ListEvents(
	ctx context.Context,
	req ListEventsRequest,
) (*ListResult[model.CustomerEvent], error) {
	if strings.TrimSpace(req.WorkspaceID) == "" {
		return nil, apperrors.ValidationField("workspace_id", "workspace_id is required")
	}
	query := func(pq model.PageQuery) model.EventPageQuery {
		return model.EventPageQuery{
			WorkspaceID: req.WorkspaceID,
			CustomerID:  req.CustomerID,
			EventName:   req.EventName,
			PageQuery:   pq,
		}
	}
	return runPage(ctx, s, req.Page, pageSource[model.CustomerEvent]{
		resource: "events",
		fetch: func(ctx context.Context, pq model.PageQuery) ([]model.CustomerEvent, error) {
			return s.repos.Events.FetchPage(ctx, query(pq))
		},
		key: func(pq model.PageQuery) paging.KeyFunc[model.CustomerEvent] {
			return s.repos.Events.CursorKey(query(pq))
		},
	})
}

// ListCustomers returns one page of customers.
func (s *PagerService) ListCustomers(
	ctx context.Context,
	req ListCustomersRequest,
) (*ListResult[model.Customer], error) {
	if strings.TrimSpace(req.WorkspaceID) == "" {
		return nil, apperrors.ValidationField("workspace_id", "workspace_id is required")
	}
	query := func(pq model.PageQuery) model.CustomerPageQuery {
		return model.CustomerPageQuery{WorkspaceID: req.WorkspaceID, EmailPrefix: req.EmailPrefix, PageQuery: pq}
	}
	return runPage(ctx, s, req.Page, pageSource[model.Customer]{
		resource: "customers",
		fetch: func(ctx context.Context, pq model.PageQuery) ([]model.Customer, error) {
			return s.repos.Customers.FetchPage(ctx, query(pq))
		},
		key: func(pq model.PageQuery) paging.KeyFunc[model.Customer] {
			return s.repos.Customers.CursorKey(query(pq))
		},
	})
}

// ListEnrollments returns one page of a journey's enrollments.
func (s *PagerService) ListEnrollments(
	ctx context.Context,
	req ListEnrollmentsRequest,
) (*ListResult[model.Enrollment], error) {
	if strings.TrimSpace(req.JourneyID) == "" {
		return nil, apperrors.ValidationField("journey_id", "journey_id is required")
	}
	query := func(pq model.PageQuery) model.EnrollmentPageQuery {
		return model.EnrollmentPageQuery{JourneyID: req.JourneyID, PageQuery: pq}
	}
	return runPage(ctx, s, req.Page, pageSource[model.Enrollment]{
		resource: "enrollments",
		fetch: func(ctx context.Context, pq model.PageQuery) ([]model.Enrollment, error) {
			return s.repos.Enrollments.FetchPage(ctx, query(pq))
		},
		key: func(pq model.PageQuery) paging.KeyFunc[model.Enrollment] {
			return s.repos.Enrollments.CursorKey(query(pq))
		},
	})
}

// resolvePageSize applies the default and the upper bound.
func (s *PagerService) resolvePageSize(requested int) (int, error) {
	switch {
	case requested < 0:
		return 0, apperrors.ValidationField("page_size", "page_size cannot be negative")
	case requested == 0:
		return s.config.DefaultPageSize, nil
	case requested > s.config.MaxPageSize:
		return s.config.MaxPageSize, nil
	default:
		return requested, nil
	}
}

type pageSource[T any] struct {
	resource string
	fetch    func(ctx context.Context, pq model.PageQuery) ([]T, error)
	key      func(pq model.PageQuery) paging.KeyFunc[T]
}

func runPage[T any](ctx context.Context, s *PagerService, req PageRequest, src pageSource[T]) (*ListResult[T], error) {
	size, err := s.resolvePageSize(req.PageSize)
	if err != nil {
		return nil, err
	}
	anchor := req.Fetch.Anchor
	if anchor == paging.AnchorNone {
		anchor = paging.AnchorFirstPage
	}
	pq := model.PageQuery{
		Sort:   req.Sort,
		Dir:    req.Dir,
		Anchor: anchor,
		Cursor: req.Fetch.CursorID,
		Limit:  size + 1,
	}

	start := time.Now()
	rows, err := src.fetch(ctx, pq)
	if err == nil {
		var page paging.Page[T]
		page, err = paging.ApplyFetchResult(rows, anchor, size, src.key(pq))
		if err == nil {
			s.emitPageFetch(src.resource, anchor, metrics.ResultSuccess, len(page.Items), time.Since(start), nil)
			if page.Items == nil {
				page.Items = []T{}
			}
			return &ListResult[T]{
				Items:    page.Items,
				State:    page.State,
				Links:    paging.Links(page.State),
				PageSize: size,
			}, nil
		}
	}

	s.emitPageFetch(src.resource, anchor, metrics.ResultError, 0, time.Since(start), err)
	if s.logger != nil && !isClientError(err) {
		s.logger.ErrorContext(ctx, "page fetch failed",
			"resource", src.resource, "anchor", string(anchor), "error", err)
	}
	return nil, fmt.Errorf("list %s: %w", src.resource, err)
}

func (s *PagerService) emitPageFetch(resource string, anchor paging.Anchor, result string, rows int, d time.Duration, err error) {
	metrics.EmitPageFetch(s.metrics, metrics.PageFetch{
		Resource: resource,
		Anchor:   string(anchor),
		Result:   result,
		Rows:     rows,
		Duration: d,
		Err:      err,
	})
}

// isClientError reports whether err was caused by the request rather than the backend.
func isClientError(err error) bool {
	return apperrors.IsValidation(err) || apperrors.IsInvalidArgument(err) || apperrors.IsNotFound(err)
}
