package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/target/engage-api/internal/core"
	"github.com/target/engage-api/internal/domain/model"
	apperrors "github.com/target/engage-api/internal/errors"
)

// EventServiceConfig groups configuration parameters for EventService.
type EventServiceConfig struct {
	MaxBatch int // Maximum events accepted per ingest request
}

// DefaultEventServiceConfig returns sensible defaults for EventService configuration.
func DefaultEventServiceConfig() EventServiceConfig {
	return EventServiceConfig{MaxBatch: 1000}
}

// EventServiceOptions groups dependencies for EventService.
type EventServiceOptions struct {
	Repo   core.CustomerEventRepository // Required: event repository
	Config EventServiceConfig           // Required: service configuration
	Logger *slog.Logger                 // Optional: structured logger
}

// EventService records customer events.
type EventService struct {
	repo   core.CustomerEventRepository
	config EventServiceConfig
	logger *slog.Logger
}

// NewEventService constructs a new EventService.
func NewEventService(opts EventServiceOptions) (*EventService, error) {
	if opts.Repo == nil {
		return nil, errors.New("CustomerEventRepository is required")
	}
	if opts.Config.MaxBatch <= 0 {
		return nil, errors.New("MaxBatch must be positive")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "event_service")
		logger.Debug("EventService initialized", "max_batch", opts.Config.MaxBatch)
	}

	return &EventService{
		repo:   opts.Repo,
		config: opts.Config,
		logger: logger,
	}, nil
}

// MustNewEventService constructs a new EventService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewEventService(opts EventServiceOptions) *EventService {
	svc, err := NewEventService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast during startup wiring when configuration is invalid
		panic(fmt.Sprintf("failed to create EventService: %v", err))
	}
	return svc
}

// Ingest validates and stores a batch of events. The batch is written
// atomically; an unknown customer fails the whole batch.
func (s *EventService) Ingest(ctx context.Context, req model.IngestEventsRequest) (int, error) {
	if strings.TrimSpace(req.WorkspaceID) == "" {
		return 0, apperrors.ValidationField("workspace_id", "workspace_id is required")
	}
	if err := req.Validate(s.config.MaxBatch); err != nil {
		return 0, err
	}

	count, err := s.repo.Insert(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("ingest events: %w", err)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "ingested events", "workspace_id", req.WorkspaceID, "count", count)
	}
	return count, nil
}
