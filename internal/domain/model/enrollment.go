//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import "time"

// EnrollmentSortEnteredAt is the only ordering for enrollments.
const EnrollmentSortEnteredAt = "entered_at"

// Enrollment records when a customer entered a journey. EnteredAt anchors the
// conversion window.
type Enrollment struct {
	JourneyID  string    `json:"journey_id"  db:"journey_id"`
	CustomerID string    `json:"customer_id" db:"customer_id"`
	EnteredAt  time.Time `json:"entered_at"  db:"entered_at"`
}

// EnrollmentPageQuery lists a journey's enrollments.
type EnrollmentPageQuery struct {
	JourneyID string
	PageQuery
}

// EnrollRequest enrolls a customer; EnteredAt defaults to now.
type EnrollRequest struct {
	CustomerID string     `json:"customer_id"`
	EnteredAt  *time.Time `json:"entered_at,omitempty"`
}
