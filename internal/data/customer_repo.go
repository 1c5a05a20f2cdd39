package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/target/engage-api/internal/data/pgxutil"
	"github.com/target/engage-api/internal/domain/model"
	"github.com/target/engage-api/internal/domain/paging"
	apperrors "github.com/target/engage-api/internal/errors"
)

const customerColumns = `id, workspace_id, email, created_at`

// CustomerRepo provides database operations for customers.
type CustomerRepo struct{ DB *sql.DB }

// NewCustomerRepo creates a CustomerRepo.
func NewCustomerRepo(db *sql.DB) *CustomerRepo {
	return &CustomerRepo{DB: db}
}

func customerOrder(sort string) keysetOrder {
	o := keysetOrder{timeColumn: "created_at", idColumn: "id"}
	if sort == model.CustomerSortEmail {
		o.valueColumn = "email"
	}
	return o
}

func resolveCustomerSort(sort, dir string) (string, string, error) {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "", model.CustomerSortCreatedAt:
		sort = model.CustomerSortCreatedAt
	case model.CustomerSortEmail:
		sort = model.CustomerSortEmail
	default:
		return "", "", apperrors.ValidationField("sort", "sort must be one of: created_at, email")
	}
	if dir = model.NormalizeSortDir(dir); dir == "" {
		return "", "", apperrors.ValidationField("dir", "dir must be one of: asc, desc")
	}
	return sort, dir, nil
}

func customerFingerprint(q model.CustomerPageQuery) string {
	return filterFingerprint("customers", q.WorkspaceID, strings.ToLower(optional(q.EmailPrefix)))
}

// escapeLike escapes LIKE metacharacters so a user prefix matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// FetchPage returns up to q.Limit customers in fetch order for q.Anchor.
func (r *CustomerRepo) FetchPage(ctx context.Context, q model.CustomerPageQuery) ([]model.Customer, error) {
	if err := checkPageLimit(q.Limit); err != nil {
		return nil, err
	}
	sort, dir, err := resolveCustomerSort(q.Sort, q.Dir)
	if err != nil {
		return nil, err
	}
	cur, err := resolveCursor(q.PageQuery, sort, dir, customerFingerprint(q))
	if err != nil {
		return nil, err
	}

	where := ` WHERE workspace_id = $1`
	args := []any{q.WorkspaceID}
	if prefix := strings.ToLower(optional(q.EmailPrefix)); prefix != "" {
		args = append(args, escapeLike(prefix)+"%")
		where += fmt.Sprintf(` AND email LIKE $%d`, len(args))
	}

	return fetchKeyset[model.Customer](ctx, r.DB, keysetQuery{
		selectFrom: `SELECT ` + customerColumns + ` FROM customers`,
		where:      where,
		args:       args,
		order:      customerOrder(sort),
		dir:        dir,
		anchor:     q.Anchor,
		cursor:     cur,
		limit:      q.Limit,
	})
}

// CursorKey returns the cursor encoder for pages of q.
func (r *CustomerRepo) CursorKey(q model.CustomerPageQuery) paging.KeyFunc[model.Customer] {
	sort, dir, err := resolveCustomerSort(q.Sort, q.Dir)
	filter := customerFingerprint(q)
	return func(c model.Customer) (string, error) {
		if err != nil {
			return "", err
		}
		cur := cursorPayload{Sort: sort, Dir: dir, Filter: filter, At: c.CreatedAt, ID: c.ID}
		if sort == model.CustomerSortEmail {
			email := c.Email
			cur.Value = &email
		}
		return encodeCursor(cur)
	}
}

// Create inserts a customer.
func (r *CustomerRepo) Create(ctx context.Context, req model.CreateCustomerRequest) (*model.Customer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out model.Customer
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO customers (id, workspace_id, email)
			VALUES ($1, $2, $3)
			RETURNING `+customerColumns,
			uuid.NewString(), req.WorkspaceID, req.Email)
		if err != nil {
			return err
		}
		out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Customer])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// GetByID returns a customer of the workspace.
func (r *CustomerRepo) GetByID(ctx context.Context, workspaceID, id string) (*model.Customer, error) {
	var out model.Customer
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+customerColumns+` FROM customers WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
		if err != nil {
			return err
		}
		out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Customer])
		return err
	})
	if err != nil {
		if mapped := apperrors.MapDBError(err); apperrors.IsNotFound(mapped) {
			return nil, apperrors.NotFoundf("customer %s not found", id)
		}
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}
