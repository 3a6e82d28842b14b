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

	domainauth "github.com/planfest/planfest/internal/domain/auth"
	"github.com/planfest/planfest/internal/domain/model"
	"github.com/planfest/planfest/internal/service"
)

type passphraseRefOptions struct {
	EventID      int64
	PassphraseID int64
}

func parsePassphraseRefFlags(name string, args []string) (passphraseRefOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts passphraseRefOptions
	fs.Int64Var(&opts.EventID, "event", 0, "Event id (required)")
	fs.Int64Var(&opts.PassphraseID, "id", 0, "Passphrase id (required)")

	if err := fs.Parse(args); err != nil {
		return passphraseRefOptions{}, err
	}
	if opts.EventID <= 0 {
		return passphraseRefOptions{}, errors.New("--event is required")
	}
	if opts.PassphraseID <= 0 {
		return passphraseRefOptions{}, errors.New("--id is required")
	}
	return opts, nil
}

func runListPassphrases(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("list-passphrases", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var eventID int64
	fs.Int64Var(&eventID, "event", 0, "Event id (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if eventID <= 0 {
		return errors.New("--event is required")
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		svcs := newAdminServices(cmdCtx, db)
		records, listErr := svcs.Passphrases.List(ctx, eventID)
		if listErr != nil {
			return fmt.Errorf("list passphrases: %w", listErr)
		}
		if len(records) == 0 {
			return writeln(os.Stdout, "(no passphrases)")
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		if err := writef(tw, "ID\tROLE\tSECRET\tDERIVED-FROM\tVALID-FROM\tVALID-UNTIL\tCOMMENT\n"); err != nil {
			return err
		}
		for _, p := range records {
			if err := writef(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				p.ID,
				string(p.Role),
				stringOrDash(p.Secret),
				int64OrDash(p.DerivableFromPassphrase),
				timeOrDash(p.ValidFrom),
				timeOrDash(p.ValidUntil),
				p.Comment,
			); err != nil {
				return err
			}
		}
		return tw.Flush()
	})
}

type newPassphraseOptions struct {
	EventID    int64
	Secret     string
	Role       domainauth.Role
	Comment    string
	ValidFrom  *time.Time
	ValidUntil *time.Time
}

func parseNewPassphraseFlags(args []string) (newPassphraseOptions, error) {
	fs := flag.NewFlagSet("new-passphrase", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts newPassphraseOptions
	var role, validFrom, validUntil string
	fs.Int64Var(&opts.EventID, "event", 0, "Event id (required)")
	fs.StringVar(&opts.Secret, "secret", "", "Clear passphrase secret (required)")
	fs.StringVar(&role, "role", "", "Granted role: participant, orga, or admin (required)")
	fs.StringVar(&opts.Comment, "comment", "", "Administrative comment")
	fs.StringVar(&validFrom, "valid-from", "", "Validity window start, YYYY-MM-DD or RFC3339")
	fs.StringVar(&validUntil, "valid-until", "", "Validity window end, YYYY-MM-DD or RFC3339")

	if err := fs.Parse(args); err != nil {
		return newPassphraseOptions{}, err
	}
	if opts.EventID <= 0 {
		return newPassphraseOptions{}, errors.New("--event is required")
	}
	if opts.Secret == "" {
		return newPassphraseOptions{}, errors.New("--secret is required")
	}

	parsed, err := domainauth.ParseRole(strings.TrimSpace(role))
	if err != nil {
		return newPassphraseOptions{}, fmt.Errorf("--role: %w", err)
	}
	if parsed.IsSharable() {
		return newPassphraseOptions{}, errors.New("sharable roles are created with new-link-passphrase, not directly")
	}
	opts.Role = parsed

	if opts.ValidFrom, err = optionalTimeFlag(validFrom); err != nil {
		return newPassphraseOptions{}, fmt.Errorf("--valid-from: %w", err)
	}
	if opts.ValidUntil, err = optionalTimeFlag(validUntil); err != nil {
		return newPassphraseOptions{}, fmt.Errorf("--valid-until: %w", err)
	}

	return opts, nil
}

func runNewPassphrase(cmdCtx *commandContext, args []string) error {
	opts, err := parseNewPassphraseFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		svcs := newAdminServices(cmdCtx, db)
		created, createErr := svcs.Passphrases.Create(ctx, model.CreatePassphraseRequest{
			EventID:    opts.EventID,
			Secret:     &opts.Secret,
			Role:       opts.Role,
			Comment:    opts.Comment,
			ValidFrom:  opts.ValidFrom,
			ValidUntil: opts.ValidUntil,
		})
		if createErr != nil {
			return fmt.Errorf("create passphrase: %w", createErr)
		}
		return writef(os.Stdout, "Created passphrase %d (%s) for event %d\n",
			created.ID, string(created.Role), created.EventID)
	})
}

type newLinkPassphraseOptions struct {
	EventID    int64
	ParentID   int64
	Role       domainauth.Role
	Comment    string
	ValidFrom  *time.Time
	ValidUntil *time.Time
}

func parseNewLinkPassphraseFlags(args []string) (newLinkPassphraseOptions, error) {
	fs := flag.NewFlagSet("new-link-passphrase", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts newLinkPassphraseOptions
	var role, validFrom, validUntil string
	fs.Int64Var(&opts.EventID, "event", 0, "Event id (required)")
	fs.Int64Var(&opts.ParentID, "parent", 0, "Parent passphrase id (required)")
	fs.StringVar(&role, "role", "", "Requested role; must be the sharable counterpart of the parent's role (required)")
	fs.StringVar(&opts.Comment, "comment", "", "Administrative comment")
	fs.StringVar(&validFrom, "valid-from", "", "Validity window start, YYYY-MM-DD or RFC3339")
	fs.StringVar(&validUntil, "valid-until", "", "Validity window end, YYYY-MM-DD or RFC3339")

	if err := fs.Parse(args); err != nil {
		return newLinkPassphraseOptions{}, err
	}
	if opts.EventID <= 0 {
		return newLinkPassphraseOptions{}, errors.New("--event is required")
	}
	if opts.ParentID <= 0 {
		return newLinkPassphraseOptions{}, errors.New("--parent is required")
	}

	parsed, err := domainauth.ParseRole(strings.TrimSpace(role))
	if err != nil {
		return newLinkPassphraseOptions{}, fmt.Errorf("--role: %w", err)
	}
	opts.Role = parsed

	if opts.ValidFrom, err = optionalTimeFlag(validFrom); err != nil {
		return newLinkPassphraseOptions{}, fmt.Errorf("--valid-from: %w", err)
	}
	if opts.ValidUntil, err = optionalTimeFlag(validUntil); err != nil {
		return newLinkPassphraseOptions{}, fmt.Errorf("--valid-until: %w", err)
	}

	return opts, nil
}

func runNewLinkPassphrase(cmdCtx *commandContext, args []string) error {
	opts, err := parseNewLinkPassphraseFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		svcs := newAdminServices(cmdCtx, db)
		derived, deriveErr := svcs.Passphrases.DeriveLinkPassphrase(
			ctx, opts.EventID, opts.ParentID, opts.Role,
			service.DeriveOptions{
				Comment:    opts.Comment,
				ValidFrom:  opts.ValidFrom,
				ValidUntil: opts.ValidUntil,
			})
		if deriveErr != nil {
			return fmt.Errorf("derive link passphrase: %w", deriveErr)
		}

		// The generated secret is printed exactly once; listings only ever
		// show it obfuscated.
		if err := writef(os.Stdout, "Created link passphrase %d (%s) for event %d, derived from %d\n",
			derived.ID, string(derived.Role), derived.EventID, opts.ParentID); err != nil {
			return err
		}
		return writef(os.Stdout, "Secret: %s\n", stringOrDash(derived.Secret))
	})
}

func runInvalidatePassphrase(cmdCtx *commandContext, args []string) error {
	opts, err := parsePassphraseRefFlags("invalidate-passphrase", args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		svcs := newAdminServices(cmdCtx, db)
		if invErr := svcs.Passphrases.Invalidate(ctx, opts.EventID, opts.PassphraseID); invErr != nil {
			return fmt.Errorf("invalidate passphrase: %w", invErr)
		}
		return writef(os.Stdout, "Invalidated passphrase %d for event %d\n", opts.PassphraseID, opts.EventID)
	})
}

func runDeletePassphrase(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("delete-passphrase", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts passphraseRefOptions
	var yes bool
	fs.Int64Var(&opts.EventID, "event", 0, "Event id (required)")
	fs.Int64Var(&opts.PassphraseID, "id", 0, "Passphrase id (required)")
	fs.BoolVar(&yes, "yes", false, "Skip confirmation prompt")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.EventID <= 0 {
		return errors.New("--event is required")
	}
	if opts.PassphraseID <= 0 {
		return errors.New("--id is required")
	}

	confirmOpts := deletePassphraseConfirmOptions{
		yes:    yes,
		target: fmt.Sprintf("passphrase %d of event %d", opts.PassphraseID, opts.EventID),
	}
	if err := confirmAction(confirmOpts, "hard-delete"); err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		svcs := newAdminServices(cmdCtx, db)
		if delErr := svcs.Passphrases.Remove(ctx, opts.EventID, opts.PassphraseID); delErr != nil {
			return fmt.Errorf("delete passphrase: %w", delErr)
		}
		return writef(os.Stdout, "Deleted passphrase %d from event %d\n", opts.PassphraseID, opts.EventID)
	})
}

type deletePassphraseConfirmOptions struct {
	yes    bool
	target string
}

func (d deletePassphraseConfirmOptions) IsDryRun() bool { return false }
func (d deletePassphraseConfirmOptions) IsYes() bool    { return d.yes }
func (d deletePassphraseConfirmOptions) GetWarning() string {
	return "WARNING: this permanently removes the passphrase record; its id will not be reused."
}
func (d deletePassphraseConfirmOptions) GetTarget() string { return d.target }

func optionalTimeFlag(value string) (*time.Time, error) {
	t, err := parseTimeFlag(value)
	if err != nil {
		return nil, err
	}
	if t.IsZero() {
		return nil, nil
	}
	return &t, nil
}

func stringOrDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func int64OrDash(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func timeOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
