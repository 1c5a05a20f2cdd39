//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"encoding/json"
	"strings"
	"time"

	apperrors "github.com/target/engage-api/internal/errors"
)

// Journey is a marketing journey. Settings is the journey's free-form
// settings document; conversion tracking lives under one of its keys.
type Journey struct {
	ID          string          `json:"id"           db:"id"`
	WorkspaceID string          `json:"workspace_id" db:"workspace_id"`
	Name        string          `json:"name"         db:"name"`
	Settings    json.RawMessage `json:"settings"     db:"settings"`
	CreatedAt   time.Time       `json:"created_at"   db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"   db:"updated_at"`
}

// CreateJourneyRequest creates a journey.
type CreateJourneyRequest struct {
	WorkspaceID string          `json:"workspace_id"`
	Name        string          `json:"name"`
	Settings    json.RawMessage `json:"settings,omitempty"`
}

// Validate normalises and checks the request.
func (r *CreateJourneyRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return apperrors.ValidationField("name", "name is required and cannot be empty")
	}
	if strings.TrimSpace(r.WorkspaceID) == "" {
		return apperrors.ValidationField("workspace_id", "workspace_id is required and cannot be empty")
	}
	if len(r.Settings) == 0 {
		r.Settings = json.RawMessage(`{}`)
	}
	if !json.Valid(r.Settings) {
		return apperrors.ValidationField("settings", "settings must be valid JSON")
	}
	return nil
}

// JourneySettings is a journey's settings document with its workspace.
type JourneySettings struct {
	JourneyID   string          `db:"id"`
	WorkspaceID string          `db:"workspace_id"`
	Document    json.RawMessage `db:"settings"`
}
