package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	domainauth "github.com/planfest/planfest/internal/domain/auth"
)

const maxPassphraseLen = 255

// Passphrase is a shared secret scoped to one event, bound to a role and an
// optional validity window. Secret is decrypted when fetched via repo Get*
// methods; it is nil for pure link slots that never carried a secret of
// their own.
type Passphrase struct {
	ID      int64  `json:"id"       db:"id"`
	EventID int64  `json:"event_id" db:"event_id"`
	Secret  *string `json:"secret,omitempty" db:"secret"`

	Role domainauth.Role `json:"role" db:"role"`

	// DerivableFromPassphrase references the parent passphrase for derived
	// (link-shareable) credentials. Provenance only: deleting the parent
	// does not cascade.
	DerivableFromPassphrase *int64 `json:"derivable_from_passphrase,omitempty" db:"derivable_from_passphrase"`

	Comment string `json:"comment" db:"comment"`

	ValidFrom  *time.Time `json:"valid_from,omitempty"  db:"valid_from"`
	ValidUntil *time.Time `json:"valid_until,omitempty" db:"valid_until"`
}

// UsableAt reports whether the passphrase may authorize at time t: inside
// the validity window, with absent bounds meaning unbounded.
func (p Passphrase) UsableAt(t time.Time) bool {
	if p.ValidFrom != nil && t.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && t.After(*p.ValidUntil) {
		return false
	}
	return true
}

// MatchesSecret reports whether candidate equals the stored secret exactly,
// byte for byte. Passphrases without a secret never match.
func (p Passphrase) MatchesSecret(candidate string) bool {
	return p.Secret != nil && *p.Secret == candidate
}

// CreatePassphraseRequest contains fields to create a new passphrase.
// ID assignment is owned by the catalog.
type CreatePassphraseRequest struct {
	EventID int64           `json:"event_id"`
	Secret  *string         `json:"secret,omitempty"`
	Role    domainauth.Role `json:"role"`

	DerivableFromPassphrase *int64 `json:"derivable_from_passphrase,omitempty"`

	Comment string `json:"comment"`

	ValidFrom  *time.Time `json:"valid_from,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

func (r *CreatePassphraseRequest) Validate() error {
	if r.EventID <= 0 {
		return errors.New("event_id is required")
	}
	if !r.Role.Valid() {
		return errors.New("role is not a known access role")
	}
	if r.Role.IsSharable() && r.DerivableFromPassphrase == nil {
		return errors.New("sharable roles are only created via derivation from a parent passphrase")
	}
	if r.Secret != nil {
		if err := validateSecret(*r.Secret); err != nil {
			return err
		}
	} else if r.DerivableFromPassphrase == nil {
		return errors.New("secret is required for root passphrases")
	}
	if r.ValidFrom != nil && r.ValidUntil != nil && r.ValidUntil.Before(*r.ValidFrom) {
		return errors.New("valid_until must not precede valid_from")
	}
	return nil
}

func validateSecret(secret string) error {
	if secret == "" {
		return errors.New("secret cannot be empty")
	}
	if strings.TrimSpace(secret) == "" {
		return errors.New("secret cannot be whitespace-only")
	}
	if utf8.RuneCountInString(secret) > maxPassphraseLen {
		return errors.New("secret cannot exceed 255 characters")
	}
	return nil
}
