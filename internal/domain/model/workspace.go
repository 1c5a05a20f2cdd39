//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"strings"
	"time"

	apperrors "github.com/target/engage-api/internal/errors"
)

// Workspace is the tenant boundary; every customer, event and journey
// belongs to exactly one.
type Workspace struct {
	ID        string    `json:"id"         db:"id"`
	Name      string    `json:"name"       db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CreateWorkspaceRequest creates a workspace.
type CreateWorkspaceRequest struct {
	Name string `json:"name"`
}

// Validate normalises and checks the request.
func (r *CreateWorkspaceRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return apperrors.ValidationField("name", "name is required and cannot be empty")
	}
	if len(r.Name) > 255 {
		return apperrors.ValidationField("name", "name cannot exceed 255 characters")
	}
	return nil
}
