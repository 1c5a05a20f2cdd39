package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/target/engage-api/internal/bootstrap"
	"github.com/target/engage-api/internal/domain/model"
	"github.com/target/engage-api/internal/domain/paging"
	"github.com/target/engage-api/internal/migrate"
	"github.com/target/engage-api/internal/service"
)

// MigrateCommand applies or lists schema migrations.
type MigrateCommand struct {
	Status bool `long:"status" description:"List migrations and whether they are applied"`

	app *app
}

// BackfillCommand re-evaluates and stores conversions.
type BackfillCommand struct {
	Journey string `long:"journey" description:"Journey ID; every tracked journey when omitted"`

	app *app
}

// PageCommand walks a keyset-paged listing.
type PageCommand struct {
	Resource    string `long:"resource"     description:"Listing to page"                      choice:"events" choice:"customers" choice:"enrollments" required:"true"`
	Workspace   string `long:"workspace"    description:"Workspace ID (events, customers)"`
	Journey     string `long:"journey"      description:"Journey ID (enrollments)"`
	Customer    string `long:"customer"     description:"Only events of this customer"`
	Event       string `long:"event"        description:"Only events with this name"`
	EmailPrefix string `long:"email-prefix" description:"Only customers whose email starts with this prefix"`
	Sort        string `long:"sort"         description:"Sort column"`
	Dir         string `long:"dir"          description:"Sort direction"                       choice:"asc" choice:"desc"`
	PageSize    int    `long:"page-size"    description:"Rows per page; server default when 0"`
	Anchor      string `long:"anchor"       description:"Starting anchor"                      choice:"first_page" choice:"previous" choice:"next" choice:"last_page" default:"first_page"`
	Cursor      string `long:"cursor"       description:"Cursor for previous/next anchors"`
	Pages       int    `long:"pages"        description:"Maximum pages to walk"                default:"1"`
	Backward    bool   `long:"backward"     description:"Walk towards earlier pages instead of later ones"`

	app *app
}

// EvaluateCommand evaluates conversions for customers of a journey.
type EvaluateCommand struct {
	Journey   string   `long:"journey"  description:"Journey ID"                                required:"true"`
	Customers []string `long:"customer" description:"Customer ID (repeatable)"                  required:"true"`
	Stored    bool     `long:"stored"   description:"Show stored results instead of evaluating"`

	app *app
}

// withRuntime connects, runs fn with a signal-aware context and closes the
// runtime afterwards.
func (a *app) withRuntime(wantRedis bool, fn func(ctx context.Context, rt *runtime) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := a.open(ctx, wantRedis)
	if err != nil {
		return err
	}
	runErr := fn(ctx, rt)
	if rt.Close != nil {
		if cerr := rt.Close(); cerr != nil {
			runErr = errors.Join(runErr, cerr)
		}
	}
	return runErr
}

// emit writes v as JSON when --json is set, otherwise renders a table.
func (a *app) emit(v any, table func(w *tabwriter.Writer)) error {
	if a.globals.JSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	table(w)
	return w.Flush()
}

// Execute implements the go-flags Commander interface for MigrateCommand.
func (c *MigrateCommand) Execute(_ []string) error {
	return c.app.withRuntime(false, func(ctx context.Context, rt *runtime) error {
		if !c.Status {
			return bootstrap.RunMigrations(ctx, rt.DB, c.app.logger)
		}
		migrations, err := migrate.Status(ctx, rt.DB)
		if err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		return c.app.emit(migrations, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "VERSION\tAPPLIED AT")
			for _, m := range migrations {
				applied := "pending"
				if m.AppliedAt != nil {
					applied = m.AppliedAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\n", m.Version, applied)
			}
		})
	})
}

// Execute implements the go-flags Commander interface for BackfillCommand.
func (c *BackfillCommand) Execute(_ []string) error {
	return c.app.withRuntime(true, func(ctx context.Context, rt *runtime) error {
		var (
			stats []model.BackfillStats
			err   error
		)
		if journey := strings.TrimSpace(c.Journey); journey != "" {
			var one *model.BackfillStats
			if one, err = rt.Services.Conversions.Backfill(ctx, journey); one != nil {
				stats = append(stats, *one)
			}
		} else {
			stats, err = rt.Services.Conversions.BackfillAll(ctx)
		}

		if emitErr := c.app.emit(stats, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "JOURNEY\tPAGES\tEVALUATED\tCONVERTED\tSKIPPED")
			for _, s := range stats {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%t\n", s.JourneyID, s.Pages, s.Evaluated, s.Converted, s.Skipped)
			}
		}); emitErr != nil {
			return errors.Join(err, emitErr)
		}
		return err
	})
}

// Execute implements the go-flags Commander interface for PageCommand.
func (c *PageCommand) Execute(_ []string) error {
	anchor, ok := paging.ParseAnchor(c.Anchor)
	if !ok {
		return fmt.Errorf("unknown anchor %q", c.Anchor)
	}
	if c.Pages < 1 {
		return errors.New("--pages must be at least 1")
	}
	start := service.PageRequest{
		Sort:     c.Sort,
		Dir:      c.Dir,
		PageSize: c.PageSize,
		Fetch:    paging.FetchParams{Anchor: anchor, CursorID: optional(c.Cursor)},
	}

	return c.app.withRuntime(false, func(ctx context.Context, rt *runtime) error {
		pager := rt.Services.Pager
		switch c.Resource {
		case "events":
			return walkPages(ctx, c, start, func(ctx context.Context, p service.PageRequest) (*service.ListResult[model.CustomerEvent], error) {
				return pager.ListEvents(ctx, service.ListEventsRequest{
					WorkspaceID: c.Workspace,
					CustomerID:  optional(c.Customer),
					EventName:   optional(c.Event),
					Page:        p,
				})
			}, eventRow, "ID\tCUSTOMER\tEVENT\tOCCURRED AT")
		case "customers":
			return walkPages(ctx, c, start, func(ctx context.Context, p service.PageRequest) (*service.ListResult[model.Customer], error) {
				return pager.ListCustomers(ctx, service.ListCustomersRequest{
					WorkspaceID: c.Workspace,
					EmailPrefix: optional(c.EmailPrefix),
					Page:        p,
				})
			}, customerRow, "ID\tEMAIL\tCREATED AT")
		case "enrollments":
			return walkPages(ctx, c, start, func(ctx context.Context, p service.PageRequest) (*service.ListResult[model.Enrollment], error) {
				return pager.ListEnrollments(ctx, service.ListEnrollmentsRequest{JourneyID: c.Journey, Page: p})
			}, enrollmentRow, "JOURNEY\tCUSTOMER\tENTERED AT")
		default:
			return fmt.Errorf("unknown resource %q", c.Resource)
		}
	})
}

// walkPages fetches up to c.Pages pages, following the next (or previous)
// link of each page until it is disabled.
func walkPages[T any](
	ctx context.Context,
	c *PageCommand,
	req service.PageRequest,
	fetch func(ctx context.Context, p service.PageRequest) (*service.ListResult[T], error),
	row func(T) string,
	header string,
) error {
	action := paging.GoNext
	if c.Backward {
		action = paging.GoPrev
	}

	for n := 1; n <= c.Pages; n++ {
		res, err := fetch(ctx, req)
		if err != nil {
			return err
		}
		if err := c.app.emit(res, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "# page %d (%s, %d rows)\n", n, res.State.CurrentAnchor, len(res.Items))
			fmt.Fprintln(w, header)
			for _, item := range res.Items {
				fmt.Fprintln(w, row(item))
			}
		}); err != nil {
			return err
		}

		next, ok := paging.ComputeNextRequest(res.State, action)
		if !ok {
			return nil
		}
		req.Fetch = next
		req.PageSize = res.PageSize
	}
	return nil
}

func eventRow(e model.CustomerEvent) string {
	return strings.Join([]string{e.ID, e.CustomerID, e.EventName, e.OccurredAt.UTC().Format(time.RFC3339)}, "\t")
}

func customerRow(c model.Customer) string {
	return strings.Join([]string{c.ID, c.Email, c.CreatedAt.UTC().Format(time.RFC3339)}, "\t")
}

func enrollmentRow(e model.Enrollment) string {
	return strings.Join([]string{e.JourneyID, e.CustomerID, e.EnteredAt.UTC().Format(time.RFC3339)}, "\t")
}

// Execute implements the go-flags Commander interface for EvaluateCommand.
func (c *EvaluateCommand) Execute(_ []string) error {
	return c.app.withRuntime(false, func(ctx context.Context, rt *runtime) error {
		conversions := rt.Services.Conversions
		if c.Stored {
			records := make([]model.ConversionRecord, 0, len(c.Customers))
			for _, id := range c.Customers {
				rec, err := conversions.StoredResult(ctx, c.Journey, id)
				if err != nil {
					return fmt.Errorf("customer %s: %w", id, err)
				}
				records = append(records, *rec)
			}
			return c.app.emit(records, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "CUSTOMER\tCONVERTED\tCONVERTED AT\tDEADLINE\tEVALUATED AT")
				for _, r := range records {
					fmt.Fprintf(w, "%s\t%t\t%s\t%s\t%s\n", r.CustomerID, r.Converted, formatTime(r.ConvertedAt),
						r.DeadlineAt.UTC().Format(time.RFC3339), r.EvaluatedAt.UTC().Format(time.RFC3339))
				}
			})
		}

		outcomes, err := conversions.EvaluateBatch(ctx, c.Journey, c.Customers)
		if err != nil {
			return err
		}
		return c.app.emit(outcomes, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "CUSTOMER\tCONVERTED\tCONVERTED AT\tDEADLINE\tMESSAGE")
			for _, o := range outcomes {
				fmt.Fprintf(w, "%s\t%t\t%s\t%s\t%s\n", o.CustomerID, o.Result.Converted, formatTime(o.Result.ConvertedAt),
					o.Result.DeadlineAt.UTC().Format(time.RFC3339), strconv.Quote(o.Display.Message))
			}
		})
	})
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}
