package service

import (
	"context"
	"errors"
	"time"

	"github.com/planfest/planfest/internal/data"
	"github.com/planfest/planfest/internal/data/cryptoutil"
	domainauth "github.com/planfest/planfest/internal/domain/auth"
	"github.com/planfest/planfest/internal/domain/model"
	apperrors "github.com/planfest/planfest/internal/errors"
	"github.com/planfest/planfest/internal/ports"
)

// PassphraseServiceOptions groups dependencies for PassphraseService.
type PassphraseServiceOptions struct {
	Catalog ports.PassphraseCatalog
	// Clock defaults to real time when nil.
	Clock data.TimeProvider
	// GenerateSecret defaults to a crypto/rand URL-safe token when nil.
	GenerateSecret func() (string, error)
}

// PassphraseService is the administrative surface over the passphrase
// catalog: creation, obfuscated listing, revocation, and derivation of
// link-shareable passphrases. It runs under the provisioning trust boundary
// (CLI with direct data-store access); web-facing callers must pass
// AuthService.Require first.
type PassphraseService struct {
	catalog        ports.PassphraseCatalog
	clock          data.TimeProvider
	generateSecret func() (string, error)
}

// NewPassphraseService constructs a new PassphraseService.
func NewPassphraseService(opts PassphraseServiceOptions) *PassphraseService {
	clock := opts.Clock
	if clock == nil {
		clock = &data.RealTimeProvider{}
	}
	gen := opts.GenerateSecret
	if gen == nil {
		gen = cryptoutil.NewLinkSecret
	}
	return &PassphraseService{
		catalog:        opts.Catalog,
		clock:          clock,
		generateSecret: gen,
	}
}

// Create inserts a new root passphrase into the event's catalog.
func (s *PassphraseService) Create(ctx context.Context, req model.CreatePassphraseRequest) (model.Passphrase, error) {
	p, err := s.catalog.Add(ctx, req)
	if err != nil {
		return model.Passphrase{}, mapCatalogError(err)
	}
	return p, nil
}

// List returns the event's passphrases in display form, ordered by id.
// Secrets are obfuscated; the clear values never leave the catalog.
func (s *PassphraseService) List(ctx context.Context, eventID int64) ([]model.DisplayPassphrase, error) {
	records, err := s.catalog.List(ctx, eventID)
	if err != nil {
		return nil, mapCatalogError(err)
	}
	out := make([]model.DisplayPassphrase, 0, len(records))
	for _, p := range records {
		out = append(out, model.FormatForListing(p))
	}
	return out, nil
}

// Remove hard-deletes a passphrase. Children derived from it are unaffected.
func (s *PassphraseService) Remove(ctx context.Context, eventID, passphraseID int64) error {
	if err := s.catalog.Remove(ctx, eventID, passphraseID); err != nil {
		return mapCatalogError(err)
	}
	return nil
}

// Invalidate soft-revokes a passphrase by capping its validity at the
// current time, preserving the record for history.
func (s *PassphraseService) Invalidate(ctx context.Context, eventID, passphraseID int64) error {
	if err := s.catalog.Invalidate(ctx, eventID, passphraseID, s.clock.Now()); err != nil {
		return mapCatalogError(err)
	}
	return nil
}

// DeriveOptions carries the optional attributes of a derived passphrase.
type DeriveOptions struct {
	Comment    string
	ValidFrom  *time.Time
	ValidUntil *time.Time
}

// DeriveLinkPassphrase mints a secondary, independently revocable credential
// from a usable parent passphrase. The requested role must be the sharable
// counterpart of the parent's role, so derivation can never elevate
// privilege. The generated secret is fresh randomness, unrelated to the
// parent's secret; knowing it reveals nothing about the parent.
func (s *PassphraseService) DeriveLinkPassphrase(ctx context.Context, eventID, parentID int64, requestedRole domainauth.Role, opts DeriveOptions) (model.Passphrase, error) {
	parent, err := s.catalog.Get(ctx, eventID, parentID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return model.Passphrase{}, apperrors.ParentNotUsable("Parent passphrase does not exist.")
		}
		return model.Passphrase{}, mapCatalogError(err)
	}
	if !parent.UsableAt(s.clock.Now()) {
		return model.Passphrase{}, apperrors.ParentNotUsable("Parent passphrase is expired or not yet valid.")
	}

	counterpart, ok := parent.Role.SharableCounterpart()
	if !ok || requestedRole != counterpart {
		return model.Passphrase{}, apperrors.InvalidRoleDerivation(
			"Requested role must be the sharable counterpart of the parent passphrase's role.")
	}

	secret, err := s.generateSecret()
	if err != nil {
		return model.Passphrase{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "generate link secret")
	}

	derived, err := s.catalog.Add(ctx, model.CreatePassphraseRequest{
		EventID:                 eventID,
		Secret:                  &secret,
		Role:                    requestedRole,
		DerivableFromPassphrase: &parentID,
		Comment:                 opts.Comment,
		ValidFrom:               opts.ValidFrom,
		ValidUntil:              opts.ValidUntil,
	})
	if err != nil {
		return model.Passphrase{}, mapCatalogError(err)
	}
	return derived, nil
}

// mapCatalogError translates catalog sentinel errors into AppError values;
// anything unrecognized is passed through MapDBError so storage faults keep
// their infrastructure classification.
func mapCatalogError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ports.ErrNotFound):
		return apperrors.NotFound("Passphrase does not exist.")
	case errors.Is(err, ports.ErrDuplicateSecret):
		return apperrors.DuplicateSecret("Another usable passphrase in this event already uses this secret.")
	default:
		return apperrors.MapDBError(err)
	}
}
