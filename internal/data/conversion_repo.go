package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/target/engage-api/internal/data/pgxutil"
	"github.com/target/engage-api/internal/domain/model"
	apperrors "github.com/target/engage-api/internal/errors"
)

const conversionColumns = `journey_id, customer_id, converted, converted_at, deadline_at, evaluated_at`

// ConversionRepo persists conversion evaluations.
type ConversionRepo struct{ DB *sql.DB }

// NewConversionRepo creates a ConversionRepo.
func NewConversionRepo(db *sql.DB) *ConversionRepo {
	return &ConversionRepo{DB: db}
}

// UpsertResults copies records into a temporary table and merges them into
// journey_conversions in one transaction. Returns the number of rows written.
func (r *ConversionRepo) UpsertResults(ctx context.Context, records []model.ConversionRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var written int
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `
				CREATE TEMP TABLE tmp_journey_conversions
				(LIKE journey_conversions INCLUDING DEFAULTS)
				ON COMMIT DROP`); err != nil {
				return fmt.Errorf("create temp table: %w", err)
			}

			src := pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
				rec := records[i]
				return []any{
					rec.JourneyID,
					rec.CustomerID,
					rec.Converted,
					rec.ConvertedAt,
					rec.DeadlineAt,
					rec.EvaluatedAt,
				}, nil
			})
			if _, err := tx.CopyFrom(ctx,
				pgx.Identifier{"tmp_journey_conversions"},
				[]string{"journey_id", "customer_id", "converted", "converted_at", "deadline_at", "evaluated_at"},
				src,
			); err != nil {
				return fmt.Errorf("copy conversions: %w", err)
			}

			tag, err := tx.Exec(ctx, `
				INSERT INTO journey_conversions (`+conversionColumns+`)
				SELECT DISTINCT ON (journey_id, customer_id) `+conversionColumns+`
				FROM tmp_journey_conversions
				ORDER BY journey_id, customer_id, evaluated_at DESC
				ON CONFLICT (journey_id, customer_id) DO UPDATE
				SET converted = EXCLUDED.converted,
				    converted_at = EXCLUDED.converted_at,
				    deadline_at = EXCLUDED.deadline_at,
				    evaluated_at = EXCLUDED.evaluated_at`)
			if err != nil {
				return fmt.Errorf("merge conversions: %w", err)
			}
			written = int(tag.RowsAffected())
			return nil
		},
	})
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	return written, nil
}

// Get returns the stored evaluation for one enrollment.
func (r *ConversionRepo) Get(ctx context.Context, journeyID, customerID string) (*model.ConversionRecord, error) {
	var out model.ConversionRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+conversionColumns+`
			FROM journey_conversions
			WHERE journey_id = $1 AND customer_id = $2`, journeyID, customerID)
		if err != nil {
			return err
		}
		out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.ConversionRecord])
		return err
	})
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsNotFound(mapped) {
			return nil, apperrors.NotFoundf("no conversion recorded for customer %s in journey %s", customerID, journeyID)
		}
		return nil, mapped
	}
	return &out, nil
}
