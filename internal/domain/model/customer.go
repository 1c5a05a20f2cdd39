//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"net/mail"
	"strings"
	"time"

	apperrors "github.com/target/engage-api/internal/errors"
)

// Customer sort columns.
const (
	CustomerSortCreatedAt = "created_at"
	CustomerSortEmail     = "email"
)

// Customer is a tracked person within a workspace.
type Customer struct {
	ID          string    `json:"id"           db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	Email       string    `json:"email"        db:"email"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
}

// CustomerPageQuery lists customers of a workspace.
type CustomerPageQuery struct {
	WorkspaceID string
	// EmailPrefix restricts results to emails starting with the prefix (case-insensitive).
	EmailPrefix *string
	PageQuery
}

// CreateCustomerRequest creates a customer.
type CreateCustomerRequest struct {
	WorkspaceID string `json:"-"`
	Email       string `json:"email"`
}

// Validate normalises and checks the request.
func (r *CreateCustomerRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Email == "" {
		return apperrors.ValidationField("email", "email is required and cannot be empty")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return apperrors.ValidationField("email", "email must be a valid address")
	}
	return nil
}
