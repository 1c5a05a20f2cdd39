package testutil

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Fixtures inserts rows directly so repository tests can arrange state
// without depending on the repositories under test.
type Fixtures struct {
	t  TestingTB
	db *sql.DB
}

// NewFixtures returns a fixture helper for db.
func NewFixtures(t TestingTB, db *sql.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

func (f *Fixtures) exec(query string, args ...any) {
	f.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := f.db.ExecContext(ctx, query, args...); err != nil {
		f.t.Fatalf("fixture insert failed: %v", err)
	}
}

// Workspace inserts a workspace and returns its id.
func (f *Fixtures) Workspace(name string) string {
	f.t.Helper()
	id := uuid.NewString()
	f.exec(`INSERT INTO workspaces (id, name) VALUES ($1, $2)`, id, name+"-"+id[:8])
	return id
}

// Customer inserts a customer and returns its id.
func (f *Fixtures) Customer(workspaceID, email string, createdAt time.Time) string {
	f.t.Helper()
	id := uuid.NewString()
	f.exec(`INSERT INTO customers (id, workspace_id, email, created_at) VALUES ($1, $2, $3, $4)`,
		id, workspaceID, email, createdAt)
	return id
}

// Event inserts a customer event and returns its id.
func (f *Fixtures) Event(workspaceID, customerID, name string, occurredAt time.Time) string {
	f.t.Helper()
	id := uuid.NewString()
	f.exec(`INSERT INTO customer_events (id, workspace_id, customer_id, event_name, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`, id, workspaceID, customerID, name, occurredAt)
	return id
}

// Journey inserts a journey with the given settings document and returns its id.
func (f *Fixtures) Journey(workspaceID, name string, settings any) string {
	f.t.Helper()
	doc, err := json.Marshal(settings)
	if err != nil {
		f.t.Fatalf("marshal journey settings: %v", err)
	}
	id := uuid.NewString()
	f.exec(`INSERT INTO journeys (id, workspace_id, name, settings) VALUES ($1, $2, $3, $4)`,
		id, workspaceID, name, doc)
	return id
}

// Enrollment enrolls a customer in a journey.
func (f *Fixtures) Enrollment(journeyID, customerID string, enteredAt time.Time) {
	f.t.Helper()
	f.exec(`INSERT INTO journey_enrollments (journey_id, customer_id, entered_at) VALUES ($1, $2, $3)`,
		journeyID, customerID, enteredAt)
}
