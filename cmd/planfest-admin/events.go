package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/planfest/planfest/internal/bootstrap"
	"github.com/planfest/planfest/internal/data"
	"github.com/planfest/planfest/internal/domain/model"
	"github.com/planfest/planfest/internal/service"
)

// adminServices bundles the service layer the administrative commands run
// against. The CLI operates inside the provisioning trust boundary: it talks
// to the data store directly and performs no session-based authorization.
type adminServices struct {
	Events      *service.EventService
	Passphrases *service.PassphraseService
}

func newAdminServices(cmdCtx *commandContext, db *sql.DB) adminServices {
	enc := bootstrap.CreateEncryptor(cmdCtx.Config.SecretsEncryptionKey, cmdCtx.Logger)
	catalog := data.NewPassphraseRepo(db, enc)
	return adminServices{
		Events: service.NewEventService(data.NewEventRepo(db)),
		Passphrases: service.NewPassphraseService(service.PassphraseServiceOptions{
			Catalog: catalog,
		}),
	}
}

type createEventOptions struct {
	Title string
	Begin time.Time
	End   time.Time
}

func parseCreateEventFlags(args []string) (createEventOptions, error) {
	fs := flag.NewFlagSet("create-event", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts createEventOptions
	var begin, end string
	fs.StringVar(&opts.Title, "title", "", "Event title (required)")
	fs.StringVar(&begin, "begin", "", "Event begin date, YYYY-MM-DD or RFC3339 (required)")
	fs.StringVar(&end, "end", "", "Event end date, YYYY-MM-DD or RFC3339 (required)")

	if err := fs.Parse(args); err != nil {
		return createEventOptions{}, err
	}

	opts.Title = strings.TrimSpace(opts.Title)
	if opts.Title == "" {
		return createEventOptions{}, errors.New("--title is required")
	}

	var err error
	if opts.Begin, err = parseTimeFlag(begin); err != nil {
		return createEventOptions{}, fmt.Errorf("--begin: %w", err)
	}
	if opts.End, err = parseTimeFlag(end); err != nil {
		return createEventOptions{}, fmt.Errorf("--end: %w", err)
	}
	if opts.Begin.IsZero() || opts.End.IsZero() {
		return createEventOptions{}, errors.New("--begin and --end are required")
	}

	return opts, nil
}

func runCreateEvent(cmdCtx *commandContext, args []string) error {
	opts, err := parseCreateEventFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		svcs := newAdminServices(cmdCtx, db)
		ev, createErr := svcs.Events.Create(ctx, model.CreateEventRequest{
			Title:     opts.Title,
			BeginDate: opts.Begin,
			EndDate:   opts.End,
		})
		if createErr != nil {
			return fmt.Errorf("create event: %w", createErr)
		}
		return writef(os.Stdout, "Created event %d: %s (%s to %s)\n",
			ev.ID, ev.Title, formatDate(ev.BeginDate), formatDate(ev.EndDate))
	})
}

func runListEvents(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("list-events", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		svcs := newAdminServices(cmdCtx, db)
		events, listErr := svcs.Events.List(ctx)
		if listErr != nil {
			return fmt.Errorf("list events: %w", listErr)
		}
		if len(events) == 0 {
			return writeln(os.Stdout, "(no events)")
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		if err := writef(tw, "ID\tTITLE\tBEGIN\tEND\n"); err != nil {
			return err
		}
		for _, ev := range events {
			if err := writef(tw, "%d\t%s\t%s\t%s\n",
				ev.ID, ev.Title, formatDate(ev.BeginDate), formatDate(ev.EndDate)); err != nil {
				return err
			}
		}
		return tw.Flush()
	})
}

// parseTimeFlag accepts a date (interpreted as midnight UTC) or a full
// RFC3339 timestamp.
func parseTimeFlag(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC3339, got %q", value)
	}
	return t, nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
