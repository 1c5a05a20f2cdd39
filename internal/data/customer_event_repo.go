// Package data provides the Postgres and Redis repositories behind the core ports.
package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/target/engage-api/internal/data/pgxutil"
	"github.com/target/engage-api/internal/domain/conversion"
	"github.com/target/engage-api/internal/domain/model"
	"github.com/target/engage-api/internal/domain/paging"
	apperrors "github.com/target/engage-api/internal/errors"
)

const customerEventColumns = `id, workspace_id, customer_id, event_name, payload, occurred_at`

// CustomerEventRepo stores customer events and serves them as keyset pages
// and as occurrences for conversion evaluation.
type CustomerEventRepo struct {
	DB *sql.DB
	// Now stamps events ingested without a timestamp; defaults to time.Now.
	Now func() time.Time
}

// NewCustomerEventRepo creates a CustomerEventRepo.
func NewCustomerEventRepo(db *sql.DB) *CustomerEventRepo {
	return &CustomerEventRepo{DB: db, Now: time.Now}
}

func eventOrder(sort string) keysetOrder {
	o := keysetOrder{timeColumn: "occurred_at", idColumn: "id"}
	if sort == model.EventSortEventName {
		o.valueColumn = "event_name"
	}
	return o
}

func resolveEventSort(sort, dir string) (string, string, error) {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "", model.EventSortOccurredAt, "timestamp":
		sort = model.EventSortOccurredAt
	case model.EventSortEventName:
		sort = model.EventSortEventName
	default:
		return "", "", apperrors.ValidationField("sort", "sort must be one of: occurred_at, event_name")
	}
	if dir = model.NormalizeSortDir(dir); dir == "" {
		return "", "", apperrors.ValidationField("dir", "dir must be one of: asc, desc")
	}
	return sort, dir, nil
}

func eventFingerprint(q model.EventPageQuery) string {
	return filterFingerprint("events", q.WorkspaceID, optional(q.CustomerID), optional(q.EventName))
}

func eventFilters(q model.EventPageQuery) (string, []any) {
	where := ` WHERE workspace_id = $1`
	args := []any{q.WorkspaceID}
	if q.CustomerID != nil && *q.CustomerID != "" {
		args = append(args, *q.CustomerID)
		where += fmt.Sprintf(` AND customer_id = $%d`, len(args))
	}
	if q.EventName != nil && *q.EventName != "" {
		args = append(args, *q.EventName)
		where += fmt.Sprintf(` AND event_name = $%d`, len(args))
	}
	return where, args
}

// FetchPage returns up to q.Limit events in fetch order for q.Anchor.
func (r *CustomerEventRepo) FetchPage(ctx context.Context, q model.EventPageQuery) ([]model.CustomerEvent, error) {
	if err := checkPageLimit(q.Limit); err != nil {
		return nil, err
	}
	sort, dir, err := resolveEventSort(q.Sort, q.Dir)
	if err != nil {
		return nil, err
	}
	cur, err := resolveCursor(q.PageQuery, sort, dir, eventFingerprint(q))
	if err != nil {
		return nil, err
	}

	where, args := eventFilters(q)
	return fetchKeyset[model.CustomerEvent](ctx, r.DB, keysetQuery{
		selectFrom: `SELECT ` + customerEventColumns + ` FROM customer_events`,
		where:      where,
		args:       args,
		order:      eventOrder(sort),
		dir:        dir,
		anchor:     q.Anchor,
		cursor:     cur,
		limit:      q.Limit,
	})
}

// CursorKey returns the cursor encoder for pages of q.
func (r *CustomerEventRepo) CursorKey(q model.EventPageQuery) paging.KeyFunc[model.CustomerEvent] {
	sort, dir, err := resolveEventSort(q.Sort, q.Dir)
	filter := eventFingerprint(q)
	return func(ev model.CustomerEvent) (string, error) {
		if err != nil {
			return "", err
		}
		cur := cursorPayload{Sort: sort, Dir: dir, Filter: filter, At: ev.OccurredAt, ID: ev.ID}
		if sort == model.EventSortEventName {
			name := ev.EventName
			cur.Value = &name
		}
		return encodeCursor(cur)
	}
}

// ListOccurrences returns the customer's events named in q.Names within
// [q.From, q.To], oldest first.
func (r *CustomerEventRepo) ListOccurrences(ctx context.Context, q model.OccurrenceQuery) ([]conversion.Occurrence, error) {
	if len(q.Names) == 0 {
		return nil, nil
	}

	const query = `
		SELECT event_name, occurred_at
		FROM customer_events
		WHERE workspace_id = $1
		  AND customer_id = $2
		  AND event_name = ANY($3)
		  AND occurred_at BETWEEN $4 AND $5
		ORDER BY occurred_at, id`

	var out []conversion.Occurrence
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, q.WorkspaceID, q.CustomerID, q.Names, q.From, q.To)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (conversion.Occurrence, error) {
			var o conversion.Occurrence
			err := row.Scan(&o.Name, &o.OccurredAt)
			return o, err
		})
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list occurrences: %w", err))
	}
	return out, nil
}

// Insert stores an ingest batch in one transaction using pgx batching.
func (r *CustomerEventRepo) Insert(ctx context.Context, req model.IngestEventsRequest) (int, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	ingestedAt := now().UTC()

	batch := &pgx.Batch{}
	for _, ev := range req.Events {
		occurredAt := ingestedAt
		if ev.OccurredAt != nil {
			occurredAt = ev.OccurredAt.UTC()
		}
		payload := ev.Payload
		if len(payload) == 0 {
			payload = json.RawMessage(`{}`)
		}
		batch.Queue(`
			INSERT INTO customer_events (id, workspace_id, customer_id, event_name, payload, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(), req.WorkspaceID, ev.CustomerID, ev.EventName, payload, occurredAt)
	}

	created := 0
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx pgx.Tx) error {
			br := tx.SendBatch(ctx, batch)
			for i := range req.Events {
				if _, err := br.Exec(); err != nil {
					_ = br.Close()
					return fmt.Errorf("insert event %d: %w", i, err)
				}
				created++
			}
			return br.Close()
		},
	})
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	return created, nil
}
