package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/planfest/planfest/internal/domain/model"
	"github.com/planfest/planfest/internal/ports"
)

// ErrNoMatch is returned by Matcher.Match when no currently usable
// passphrase in the event carries the candidate secret. It is returned
// uniformly for wrong, expired, and not-yet-valid secrets so that callers
// cannot probe the validity windows of secrets they did not present.
var ErrNoMatch = errors.New("no usable passphrase matches")

// Matcher finds the catalog record a candidate secret authenticates as.
type Matcher struct {
	catalog ports.PassphraseCatalog
}

// NewMatcher constructs a Matcher over the given catalog.
func NewMatcher(catalog ports.PassphraseCatalog) *Matcher {
	return &Matcher{catalog: catalog}
}

// Match scans the event's catalog for a record whose secret equals
// candidate exactly (byte for byte, no normalization) and which is usable
// at now. The catalog's duplicate-secret invariant guarantees at most one
// usable match.
func (m *Matcher) Match(ctx context.Context, eventID int64, candidate string, now time.Time) (model.Passphrase, error) {
	if candidate == "" {
		return model.Passphrase{}, ErrNoMatch
	}

	records, err := m.catalog.List(ctx, eventID)
	if err != nil {
		return model.Passphrase{}, fmt.Errorf("list passphrases: %w", err)
	}

	for _, p := range records {
		if p.MatchesSecret(candidate) && p.UsableAt(now) {
			return p, nil
		}
	}
	return model.Passphrase{}, ErrNoMatch
}
