package data

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"

	"github.com/target/engage-api/internal/data/pgxutil"
	"github.com/target/engage-api/internal/domain/model"
	apperrors "github.com/target/engage-api/internal/errors"
)

// WorkspaceRepo stores workspaces.
type WorkspaceRepo struct{ DB *sql.DB }

// NewWorkspaceRepo creates a WorkspaceRepo.
func NewWorkspaceRepo(db *sql.DB) *WorkspaceRepo {
	return &WorkspaceRepo{DB: db}
}

// Create inserts a workspace. Names are unique.
func (r *WorkspaceRepo) Create(ctx context.Context, req model.CreateWorkspaceRequest) (*model.Workspace, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out model.Workspace
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`INSERT INTO workspaces (name) VALUES ($1) RETURNING id, name, created_at`, req.Name)
		if err != nil {
			return err
		}
		out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Workspace])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// GetByID returns a workspace.
func (r *WorkspaceRepo) GetByID(ctx context.Context, id string) (*model.Workspace, error) {
	var out model.Workspace
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT id, name, created_at FROM workspaces WHERE id = $1`, id)
		if err != nil {
			return err
		}
		out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Workspace])
		return err
	})
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsNotFound(mapped) {
			return nil, apperrors.NotFoundf("workspace %s not found", id)
		}
		return nil, mapped
	}
	return &out, nil
}
