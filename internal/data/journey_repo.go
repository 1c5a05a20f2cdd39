package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/target/engage-api/internal/data/pgxutil"
	"github.com/target/engage-api/internal/domain/model"
	apperrors "github.com/target/engage-api/internal/errors"
)

const journeyColumns = `id, workspace_id, name, settings, created_at, updated_at`

// JourneyRepo stores journeys and their settings documents.
type JourneyRepo struct{ DB *sql.DB }

// NewJourneyRepo creates a JourneyRepo.
func NewJourneyRepo(db *sql.DB) *JourneyRepo {
	return &JourneyRepo{DB: db}
}

func journeyNotFound(err error, id string) error {
	mapped := apperrors.MapDBError(err)
	if apperrors.IsNotFound(mapped) {
		return apperrors.NotFoundf("journey %s not found", id)
	}
	return mapped
}

// Create inserts a journey.
func (r *JourneyRepo) Create(ctx context.Context, req model.CreateJourneyRequest) (*model.Journey, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out model.Journey
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO journeys (id, workspace_id, name, settings)
			VALUES ($1, $2, $3, $4)
			RETURNING `+journeyColumns,
			uuid.NewString(), req.WorkspaceID, req.Name, req.Settings)
		if err != nil {
			return err
		}
		out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Journey])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// GetByID returns a journey.
func (r *JourneyRepo) GetByID(ctx context.Context, id string) (*model.Journey, error) {
	var out model.Journey
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+journeyColumns+` FROM journeys WHERE id = $1`, id)
		if err != nil {
			return err
		}
		out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Journey])
		return err
	})
	if err != nil {
		return nil, journeyNotFound(err, id)
	}
	return &out, nil
}

// GetSettings returns the journey's settings document.
func (r *JourneyRepo) GetSettings(ctx context.Context, id string) (*model.JourneySettings, error) {
	var out model.JourneySettings
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT id, workspace_id, settings FROM journeys WHERE id = $1`, id)
		if err != nil {
			return err
		}
		out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.JourneySettings])
		return err
	})
	if err != nil {
		return nil, journeyNotFound(err, id)
	}
	return &out, nil
}

// UpdateSettings rewrites the settings document with fn while holding the
// journey's row lock, so concurrent edits of other keys are not lost.
func (r *JourneyRepo) UpdateSettings(
	ctx context.Context,
	id string,
	fn func(doc json.RawMessage) (json.RawMessage, error),
) error {
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx pgx.Tx) error {
			var doc json.RawMessage
			if err := tx.QueryRow(ctx, `SELECT settings FROM journeys WHERE id = $1 FOR UPDATE`, id).Scan(&doc); err != nil {
				return err
			}
			next, err := fn(doc)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `UPDATE journeys SET settings = $2, updated_at = now() WHERE id = $1`, id, next); err != nil {
				return fmt.Errorf("update settings: %w", err)
			}
			return nil
		},
	})
	if err != nil {
		return journeyNotFound(err, id)
	}
	return nil
}

// ListTrackingEnabled returns the ids of journeys whose settings document has
// "enabled": true at the given key path.
func (r *JourneyRepo) ListTrackingEnabled(ctx context.Context, keyPath []string) ([]string, error) {
	var ids []string
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id::text
			FROM journeys
			WHERE (settings #> $1::text[]) ->> 'enabled' = 'true'
			ORDER BY id`, keyPath)
		if err != nil {
			return err
		}
		ids, err = pgx.CollectRows(rows, pgx.RowTo[string])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list tracking journeys: %w", err))
	}
	return ids, nil
}
