package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/target/engage-api/internal/domain/conversion"
	"github.com/target/engage-api/internal/domain/model"
	"github.com/target/engage-api/internal/domain/paging"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// Services depend on these interfaces; internal/data provides the implementations.

// CustomerEventRepository serves customer events as keyset pages and as
// occurrences for conversion evaluation.
type CustomerEventRepository interface {
	// FetchPage returns up to q.Limit rows in fetch order for q.Anchor.
	FetchPage(ctx context.Context, q model.EventPageQuery) ([]model.CustomerEvent, error)
	// CursorKey returns the cursor encoder matching q's ordering and filters.
	CursorKey(q model.EventPageQuery) paging.KeyFunc[model.CustomerEvent]
	ListOccurrences(ctx context.Context, q model.OccurrenceQuery) ([]conversion.Occurrence, error)
	Insert(ctx context.Context, req model.IngestEventsRequest) (int, error)
}

// CustomerRepository stores customers.
type CustomerRepository interface {
	FetchPage(ctx context.Context, q model.CustomerPageQuery) ([]model.Customer, error)
	CursorKey(q model.CustomerPageQuery) paging.KeyFunc[model.Customer]
	Create(ctx context.Context, req model.CreateCustomerRequest) (*model.Customer, error)
	GetByID(ctx context.Context, workspaceID, id string) (*model.Customer, error)
}

// WorkspaceRepository stores workspaces.
type WorkspaceRepository interface {
	Create(ctx context.Context, req model.CreateWorkspaceRequest) (*model.Workspace, error)
	GetByID(ctx context.Context, id string) (*model.Workspace, error)
}

// JourneyRepository stores journeys and their settings documents.
type JourneyRepository interface {
	Create(ctx context.Context, req model.CreateJourneyRequest) (*model.Journey, error)
	GetByID(ctx context.Context, id string) (*model.Journey, error)
	GetSettings(ctx context.Context, id string) (*model.JourneySettings, error)
	// UpdateSettings replaces the settings document with fn's result under a row lock.
	UpdateSettings(ctx context.Context, id string, fn func(doc json.RawMessage) (json.RawMessage, error)) error
	// ListTrackingEnabled returns journeys with "enabled": true at keyPath in their settings.
	ListTrackingEnabled(ctx context.Context, keyPath []string) ([]string, error)
}

// EnrollmentRepository stores journey enrollments.
type EnrollmentRepository interface {
	Enroll(ctx context.Context, journeyID, customerID string, enteredAt time.Time) (*model.Enrollment, error)
	Get(ctx context.Context, journeyID, customerID string) (*model.Enrollment, error)
	FetchPage(ctx context.Context, q model.EnrollmentPageQuery) ([]model.Enrollment, error)
	CursorKey(q model.EnrollmentPageQuery) paging.KeyFunc[model.Enrollment]
}

// ConversionRepository persists conversion evaluations.
type ConversionRepository interface {
	UpsertResults(ctx context.Context, records []model.ConversionRecord) (int, error)
	Get(ctx context.Context, journeyID, customerID string) (*model.ConversionRecord, error)
}
