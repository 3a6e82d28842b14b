package devseed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/planfest/planfest/internal/data"
	"github.com/planfest/planfest/internal/data/cryptoutil"
	domainauth "github.com/planfest/planfest/internal/domain/auth"
	"github.com/planfest/planfest/internal/domain/model"
	apperrors "github.com/planfest/planfest/internal/errors"
	"github.com/planfest/planfest/internal/service"
)

// devEventTitle names the event the seed creates. Seeding is keyed on it, so
// re-running against a seeded database is a no-op.
const devEventTitle = "Planfest Dev Event"

// Services bundles the dependencies needed for development seeding.
type Services struct {
	DB          *sql.DB
	events      *service.EventService
	passphrases *service.PassphraseService
}

// NewServices constructs all required services for seeding using the provided DB.
func NewServices(db *sql.DB) Services {
	encryptor := &cryptoutil.NoopEncryptor{} // Use noop for dev
	catalog := data.NewPassphraseRepo(db, encryptor)
	return Services{
		DB:     db,
		events: service.NewEventService(data.NewEventRepo(db)),
		passphrases: service.NewPassphraseService(service.PassphraseServiceOptions{
			Catalog: catalog,
		}),
	}
}

// Run executes the development seeding workflow against the provided DB. It
// creates one event with a known root passphrase per base role, so a fresh
// checkout can authorize as participant, orga, or admin immediately.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) error {
	eventID, created, err := ensureDevEvent(ctx, svcs, logger)
	if err != nil {
		return err
	}
	if !created {
		if logger != nil {
			logger.InfoContext(ctx, "dev event already seeded", "event_id", eventID)
		}
		return nil
	}

	failures := seedPassphrases(ctx, svcs.passphrases, eventID, logger)
	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

func ensureDevEvent(ctx context.Context, svcs Services, logger *slog.Logger) (int64, bool, error) {
	existing, err := svcs.events.List(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("list events: %w", err)
	}
	for _, ev := range existing {
		if ev.Title == devEventTitle {
			return ev.ID, false, nil
		}
	}

	begin := time.Now().Truncate(24 * time.Hour)
	ev, err := svcs.events.Create(ctx, model.CreateEventRequest{
		Title:     devEventTitle,
		BeginDate: begin,
		EndDate:   begin.Add(3 * 24 * time.Hour),
	})
	if err != nil {
		return 0, false, fmt.Errorf("create dev event: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "created dev event", "event_id", ev.ID, "title", ev.Title)
	}
	return ev.ID, true, nil
}

func seedPassphrases(ctx context.Context, svc *service.PassphraseService, eventID int64, logger *slog.Logger) int {
	seeds := []struct {
		secret  string
		role    domainauth.Role
		comment string
	}{
		{secret: "user", role: domainauth.RoleParticipant, comment: "dev participant passphrase"},
		{secret: "orga", role: domainauth.RoleOrga, comment: "dev orga passphrase"},
		{secret: "admin", role: domainauth.RoleAdmin, comment: "dev admin passphrase"},
	}

	failures := 0
	for _, seed := range seeds {
		secret := seed.secret
		created, err := svc.Create(ctx, model.CreatePassphraseRequest{
			EventID: eventID,
			Secret:  &secret,
			Role:    seed.role,
			Comment: seed.comment,
		})
		if err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && appErr.Code == apperrors.ErrCodeDuplicateSecret {
				if logger != nil {
					logger.InfoContext(ctx, "passphrase already exists", "role", string(seed.role))
				}
				continue
			}
			if logger != nil {
				logger.ErrorContext(ctx, "failed to create passphrase", "role", string(seed.role), "error", err)
			}
			failures++
			continue
		}
		if logger != nil {
			logger.InfoContext(ctx, "created passphrase",
				"event_id", eventID, "passphrase_id", created.ID, "role", string(seed.role))
		}
	}
	return failures
}
