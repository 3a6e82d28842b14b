package ports

// Package ports defines interfaces (hexagonal ports) for the authorization
// core. Implementations live in internal/adapters and internal/data;
// orchestration in internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/planfest/planfest/internal/domain/auth"
	"github.com/planfest/planfest/internal/domain/model"
)

var (
	// ErrInvalidToken is returned by SessionStore operations when the
	// supplied token corresponds to no live session (unknown, malformed, or
	// invalidated by rotation/logout).
	ErrInvalidToken = errors.New("session token is not valid")

	// ErrGrantNotHeld is returned by SessionStore.RemoveGrant when the
	// session does not hold the grant being removed.
	ErrGrantNotHeld = errors.New("grant not held by session")

	// ErrNotFound is returned by catalog and event stores for missing records.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateSecret is returned by PassphraseCatalog.Add when another
	// currently usable passphrase in the same event holds the same secret.
	ErrDuplicateSecret = errors.New("secret already in use by a usable passphrase")
)

// SessionStore persists and retrieves grant sessions keyed by opaque tokens.
// Mutations for one token are linearizable with respect to each other;
// mutations on different tokens do not contend.
type SessionStore interface {
	// Get returns the session addressed by token. Unknown or malformed
	// tokens yield ErrInvalidToken, never a fault.
	Get(ctx context.Context, token string) (domainauth.Session, error)

	// AddGrant records g in the session addressed by token. An empty token
	// mints a new session; a supplied but unknown token yields
	// ErrInvalidToken. Adding an already-held grant is a no-op.
	AddGrant(ctx context.Context, token string, g domainauth.Grant) (domainauth.Session, error)

	// RemoveGrant removes exactly one grant and always rotates the token;
	// the old token is strictly invalid afterwards. When the removal leaves
	// the grant set empty the session ends and the returned session carries
	// an empty token.
	RemoveGrant(ctx context.Context, token string, g domainauth.Grant) (domainauth.Session, error)

	// DropAll ends the session; the token is permanently invalid afterwards.
	DropAll(ctx context.Context, token string) error
}

// PassphraseCatalog is the per-event collection of passphrase records.
// Add is an atomic check-and-insert with respect to the duplicate-secret
// invariant: no two concurrent Add calls may both succeed with the same
// live secret in one event.
type PassphraseCatalog interface {
	// Add inserts a new record and assigns its per-event monotonic id.
	Add(ctx context.Context, req model.CreatePassphraseRequest) (model.Passphrase, error)

	// List returns the event's records ordered by id.
	List(ctx context.Context, eventID int64) ([]model.Passphrase, error)

	// Get returns one record, or ErrNotFound.
	Get(ctx context.Context, eventID, passphraseID int64) (model.Passphrase, error)

	// Remove hard-deletes a record. The id is never reused.
	Remove(ctx context.Context, eventID, passphraseID int64) error

	// Invalidate soft-revokes a record by capping its validity at now,
	// preserving history.
	Invalidate(ctx context.Context, eventID, passphraseID int64, now time.Time) error
}

// EventStore manages the tenant records passphrases are scoped to.
type EventStore interface {
	Create(ctx context.Context, req model.CreateEventRequest) (model.Event, error)
	Get(ctx context.Context, id int64) (model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
}
