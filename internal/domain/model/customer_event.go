//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/target/engage-api/internal/errors"
)

// Customer event sort columns.
const (
	EventSortOccurredAt = "occurred_at"
	EventSortEventName  = "event_name"
)

// MaxEventNameLength bounds event names accepted on ingest.
const MaxEventNameLength = 200

// CustomerEvent is a single behavioural event recorded for a customer.
type CustomerEvent struct {
	ID          string          `json:"id"                db:"id"`
	WorkspaceID string          `json:"workspace_id"      db:"workspace_id"`
	CustomerID  string          `json:"customer_id"       db:"customer_id"`
	EventName   string          `json:"event_name"        db:"event_name"`
	Payload     json.RawMessage `json:"payload,omitempty" db:"payload"`
	OccurredAt  time.Time       `json:"occurred_at"       db:"occurred_at"`
}

// EventPageQuery lists events of a workspace.
type EventPageQuery struct {
	WorkspaceID string
	CustomerID  *string
	EventName   *string
	PageQuery
}

// OccurrenceQuery selects a customer's events with given names in [From, To].
type OccurrenceQuery struct {
	WorkspaceID string
	CustomerID  string
	Names       []string
	From        time.Time
	To          time.Time
}

// IngestEvent is one event in an ingest batch.
type IngestEvent struct {
	CustomerID string          `json:"customer_id"`
	EventName  string          `json:"event_name"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	// OccurredAt defaults to the ingest time when omitted.
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// IngestEventsRequest is a batch of events for one workspace.
type IngestEventsRequest struct {
	WorkspaceID string        `json:"-"`
	Events      []IngestEvent `json:"events"`
}

// Validate checks the batch against maxBatch and normalises event names.
func (r *IngestEventsRequest) Validate(maxBatch int) error {
	if len(r.Events) == 0 {
		return apperrors.ValidationField("events", "events is required and cannot be empty")
	}
	if maxBatch > 0 && len(r.Events) > maxBatch {
		return apperrors.ValidationField("events", fmt.Sprintf("events cannot exceed %d per request", maxBatch))
	}
	for i := range r.Events {
		ev := &r.Events[i]
		ev.EventName = strings.TrimSpace(ev.EventName)
		if ev.EventName == "" {
			return apperrors.ValidationField(fmt.Sprintf("events[%d].event_name", i), "event_name cannot be empty")
		}
		if len(ev.EventName) > MaxEventNameLength {
			return apperrors.ValidationField(fmt.Sprintf("events[%d].event_name", i),
				fmt.Sprintf("event_name cannot exceed %d characters", MaxEventNameLength))
		}
		if strings.TrimSpace(ev.CustomerID) == "" {
			return apperrors.ValidationField(fmt.Sprintf("events[%d].customer_id", i), "customer_id cannot be empty")
		}
		if len(ev.Payload) > 0 && !json.Valid(ev.Payload) {
			return apperrors.ValidationField(fmt.Sprintf("events[%d].payload", i), "payload must be valid JSON")
		}
	}
	return nil
}
