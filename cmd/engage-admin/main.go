// Command engage-admin runs operator tasks against the engage database:
// migrations, conversion backfills, page walks and ad-hoc evaluations.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	goflags "github.com/jessevdk/go-flags"

	"github.com/target/engage-api/internal/bootstrap"
)

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	JSON bool `long:"json" description:"Output in JSON format"`
}

// app carries what every command needs at execution time.
type app struct {
	globals *GlobalFlags
	out     io.Writer
	logger  *slog.Logger
	open    opener
}

type commands struct {
	Migrate  *MigrateCommand
	Backfill *BackfillCommand
	Page     *PageCommand
	Evaluate *EvaluateCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(a *app) (*goflags.Parser, *commands) {
	parser := goflags.NewParser(a.globals, goflags.Default)
	parser.Name = "engage-admin"
	parser.LongDescription = "Operator tooling for the engage API."

	cmds := &commands{
		Migrate:  &MigrateCommand{app: a},
		Backfill: &BackfillCommand{app: a},
		Page:     &PageCommand{app: a},
		Evaluate: &EvaluateCommand{app: a},
	}

	mustAdd(parser, "migrate", "Run database migrations",
		"Apply pending schema migrations, or list them with --status.", cmds.Migrate)
	mustAdd(parser, "backfill", "Re-evaluate conversions",
		"Evaluate and persist conversions for one journey, or for every journey with tracking enabled.", cmds.Backfill)
	mustAdd(parser, "page", "Walk a paged listing",
		"Fetch pages of events, customers or enrollments using keyset cursors.", cmds.Page)
	mustAdd(parser, "evaluate", "Evaluate customers' conversions",
		"Evaluate conversions for customers of a journey, or show stored results with --stored.", cmds.Evaluate)

	return parser, cmds
}

func mustAdd(parser *goflags.Parser, name, short, long string, data any) {
	if _, err := parser.AddCommand(name, short, long, data); err != nil {
		//nolint:forbidigo // command registration only fails on programmer error
		panic(err)
	}
}

// runWithArgs parses args and executes the matched subcommand.
func runWithArgs(a *app, args []string) error {
	parser, _ := buildParser(a)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *goflags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == goflags.ErrHelp {
			return nil
		}
		return err
	}
	return nil
}

func main() {
	logger := bootstrap.InitLogger(false)

	a := &app{
		globals: &GlobalFlags{},
		out:     os.Stdout,
		logger:  logger,
		open:    connectRuntime(logger),
	}
	if err := runWithArgs(a, os.Args[1:]); err != nil {
		var flagsErr *goflags.Error
		if !errors.As(err, &flagsErr) {
			logger.ErrorContext(context.Background(), "command failed", "error", err)
		}
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}
