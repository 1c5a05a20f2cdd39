package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/target/engage-api/internal/data/pgxutil"
	"github.com/target/engage-api/internal/domain/model"
	"github.com/target/engage-api/internal/domain/paging"
	apperrors "github.com/target/engage-api/internal/errors"
)

// keysetOrder describes the total order a resource is paged by:
// (valueColumn, timeColumn, idColumn), with valueColumn optional.
type keysetOrder struct {
	valueColumn string
	timeColumn  string
	idColumn    string
}

func (o keysetOrder) columns() []string {
	if o.valueColumn != "" {
		return []string{o.valueColumn, o.timeColumn, o.idColumn}
	}
	return []string{o.timeColumn, o.idColumn}
}

func (o keysetOrder) orderClause(dir string) string {
	cols := o.columns()
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c + " " + strings.ToUpper(dir)
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func (o keysetOrder) cursorArgs(cur *cursorPayload) []any {
	args := make([]any, 0, 3)
	if o.valueColumn != "" {
		args = append(args, optional(cur.Value))
	}
	return append(args, cur.At, cur.ID)
}

// keysetQuery builds one page query. Rows come back in fetch order: display
// order for first_page/next, reverse display order for previous/last_page.
type keysetQuery struct {
	selectFrom string // "SELECT ... FROM table"
	where      string // " WHERE ..." using $1..$len(args)
	args       []any
	order      keysetOrder
	dir        string
	anchor     paging.Anchor
	cursor     *cursorPayload
	limit      int
}

func (q keysetQuery) build() (string, []any) {
	comparator := ">"
	if q.dir == model.SortDesc {
		comparator = "<"
	}
	orderDir := q.dir
	if q.anchor.Backward() {
		comparator = invertComparator(comparator)
		orderDir = invertSortDir(q.dir)
	}

	args := append([]any{}, q.args...)
	where := q.where
	if q.cursor != nil {
		cols := q.order.columns()
		where += fmt.Sprintf(" AND (%s) %s (%s)",
			strings.Join(cols, ", "), comparator, placeholderList(len(args)+1, len(cols)))
		args = append(args, q.order.cursorArgs(q.cursor)...)
	}

	args = append(args, q.limit)
	query := q.selectFrom + where + q.order.orderClause(orderDir) + fmt.Sprintf(" LIMIT $%d", len(args))
	return query, args
}

func placeholderList(start, count int) string {
	placeholders := make([]string, count)
	for i := range count {
		placeholders[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(placeholders, ", ")
}

func invertComparator(op string) string {
	if op == "<" {
		return ">"
	}
	return "<"
}

func invertSortDir(dir string) string {
	if dir == model.SortDesc {
		return model.SortAsc
	}
	return model.SortDesc
}

func checkPageLimit(limit int) error {
	if limit <= 0 {
		return apperrors.InvalidArgumentf("fetch limit must be positive, got %d", limit)
	}
	return nil
}

// fetchKeyset runs a page query and collects rows by column name.
func fetchKeyset[T any](ctx context.Context, db *sql.DB, q keysetQuery) ([]T, error) {
	query, args := q.build()

	var out []T
	err := pgxutil.WithPgxConn(ctx, db, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[T])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("fetch page: %w", err))
	}
	return out, nil
}
