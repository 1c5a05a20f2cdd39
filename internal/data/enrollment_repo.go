package data

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/target/engage-api/internal/data/pgxutil"
	"github.com/target/engage-api/internal/domain/model"
	"github.com/target/engage-api/internal/domain/paging"
	apperrors "github.com/target/engage-api/internal/errors"
)

const enrollmentColumns = `journey_id, customer_id, entered_at`

var enrollmentOrder = keysetOrder{timeColumn: "entered_at", idColumn: "customer_id"} //nolint:gochecknoglobals // immutable

// EnrollmentRepo stores journey enrollments.
type EnrollmentRepo struct{ DB *sql.DB }

// NewEnrollmentRepo creates an EnrollmentRepo.
func NewEnrollmentRepo(db *sql.DB) *EnrollmentRepo {
	return &EnrollmentRepo{DB: db}
}

// Enroll records that customerID entered journeyID at enteredAt. The customer
// must belong to the journey's workspace. Enrolling twice keeps the first
// entry time.
func (r *EnrollmentRepo) Enroll(
	ctx context.Context,
	journeyID, customerID string,
	enteredAt time.Time,
) (*model.Enrollment, error) {
	var out model.Enrollment
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO journey_enrollments (journey_id, customer_id, entered_at)
			SELECT j.id, c.id, $3
			FROM journeys j
			JOIN customers c ON c.workspace_id = j.workspace_id AND c.id = $2
			WHERE j.id = $1
			ON CONFLICT (journey_id, customer_id) DO NOTHING
			RETURNING `+enrollmentColumns,
			journeyID, customerID, enteredAt.UTC())
		if err != nil {
			return err
		}
		out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Enrollment])
		return err
	})
	if err == nil {
		return &out, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapDBError(err)
	}

	existing, getErr := r.Get(ctx, journeyID, customerID)
	if apperrors.IsNotFound(getErr) {
		return nil, apperrors.NotFoundf("journey %s or customer %s not found in the same workspace", journeyID, customerID)
	}
	return existing, getErr
}

// Get returns one enrollment.
func (r *EnrollmentRepo) Get(ctx context.Context, journeyID, customerID string) (*model.Enrollment, error) {
	var out model.Enrollment
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+enrollmentColumns+`
			FROM journey_enrollments
			WHERE journey_id = $1 AND customer_id = $2`, journeyID, customerID)
		if err != nil {
			return err
		}
		out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Enrollment])
		return err
	})
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsNotFound(mapped) {
			return nil, apperrors.NotFoundf("customer %s is not enrolled in journey %s", customerID, journeyID)
		}
		return nil, mapped
	}
	return &out, nil
}

func enrollmentFingerprint(q model.EnrollmentPageQuery) string {
	return filterFingerprint("enrollments", q.JourneyID)
}

func enrollmentDir(q model.EnrollmentPageQuery) (string, error) {
	dir := model.NormalizeSortDir(q.Dir)
	if dir == "" {
		return "", apperrors.ValidationField("dir", "dir must be one of: asc, desc")
	}
	return dir, nil
}

// FetchPage returns up to q.Limit enrollments ordered by entry time.
func (r *EnrollmentRepo) FetchPage(ctx context.Context, q model.EnrollmentPageQuery) ([]model.Enrollment, error) {
	if err := checkPageLimit(q.Limit); err != nil {
		return nil, err
	}
	dir, err := enrollmentDir(q)
	if err != nil {
		return nil, err
	}
	cur, err := resolveCursor(q.PageQuery, model.EnrollmentSortEnteredAt, dir, enrollmentFingerprint(q))
	if err != nil {
		return nil, err
	}

	return fetchKeyset[model.Enrollment](ctx, r.DB, keysetQuery{
		selectFrom: `SELECT ` + enrollmentColumns + ` FROM journey_enrollments`,
		where:      ` WHERE journey_id = $1`,
		args:       []any{q.JourneyID},
		order:      enrollmentOrder,
		dir:        dir,
		anchor:     q.Anchor,
		cursor:     cur,
		limit:      q.Limit,
	})
}

// CursorKey returns the cursor encoder for pages of q.
func (r *EnrollmentRepo) CursorKey(q model.EnrollmentPageQuery) paging.KeyFunc[model.Enrollment] {
	dir, err := enrollmentDir(q)
	filter := enrollmentFingerprint(q)
	return func(e model.Enrollment) (string, error) {
		if err != nil {
			return "", err
		}
		return encodeCursor(cursorPayload{
			Sort:   model.EnrollmentSortEnteredAt,
			Dir:    dir,
			Filter: filter,
			At:     e.EnteredAt,
			ID:     e.CustomerID,
		})
	}
}
