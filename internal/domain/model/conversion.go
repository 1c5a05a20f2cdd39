//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"time"

	"github.com/target/engage-api/internal/domain/conversion"
)

// ConversionRecord is a persisted evaluation.
type ConversionRecord struct {
	JourneyID   string     `json:"journey_id"             db:"journey_id"`
	CustomerID  string     `json:"customer_id"            db:"customer_id"`
	Converted   bool       `json:"converted"              db:"converted"`
	ConvertedAt *time.Time `json:"converted_at,omitempty" db:"converted_at"`
	DeadlineAt  time.Time  `json:"deadline_at"            db:"deadline_at"`
	EvaluatedAt time.Time  `json:"evaluated_at"           db:"evaluated_at"`
}

// ConversionOutcome is the evaluation of one enrolled customer.
type ConversionOutcome struct {
	JourneyID  string             `json:"journey_id"`
	CustomerID string             `json:"customer_id"`
	EnteredAt  time.Time          `json:"entered_at"`
	Result     conversion.Result  `json:"result"`
	Display    conversion.Display `json:"display"`
}

// Record converts the outcome into a row for persistence.
func (o ConversionOutcome) Record(evaluatedAt time.Time) ConversionRecord {
	return ConversionRecord{
		JourneyID:   o.JourneyID,
		CustomerID:  o.CustomerID,
		Converted:   o.Result.Converted,
		ConvertedAt: o.Result.ConvertedAt,
		DeadlineAt:  o.Result.DeadlineAt,
		EvaluatedAt: evaluatedAt,
	}
}

// BackfillStats summarises one backfill run.
type BackfillStats struct {
	JourneyID string `json:"journey_id"`
	Pages     int    `json:"pages"`
	Evaluated int    `json:"evaluated"`
	Converted int    `json:"converted"`
	// Skipped is true when another instance held the journey's backfill lock
	// or tracking is inactive.
	Skipped bool `json:"skipped"`
}
