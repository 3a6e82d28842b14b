package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/planfest/planfest/internal/data"
	domainauth "github.com/planfest/planfest/internal/domain/auth"
	apperrors "github.com/planfest/planfest/internal/errors"
	"github.com/planfest/planfest/internal/ports"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Sessions ports.SessionStore
	Catalog  ports.PassphraseCatalog
	// Clock defaults to real time when nil.
	Clock data.TimeProvider
}

// AuthService is the public-facing authorization core. It orchestrates the
// credential matcher and the session store: passphrase authorization, grant
// inspection, role drops, and minimum-role enforcement for protected
// operations.
type AuthService struct {
	sessions ports.SessionStore
	matcher  *Matcher
	clock    data.TimeProvider
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	clock := opts.Clock
	if clock == nil {
		clock = &data.RealTimeProvider{}
	}
	return &AuthService{
		sessions: opts.Sessions,
		matcher:  NewMatcher(opts.Catalog),
		clock:    clock,
	}
}

// AuthorizeResult contains the outcome of a successful authorization: the
// (possibly newly minted) session token and the event's current grant view.
type AuthorizeResult struct {
	Token string
	Info  domainauth.AuthorizationInfo
}

// Authorize authenticates the candidate secret against the event's catalog
// and, on success, adds the granted role to the session addressed by token.
// An empty token creates a new session. Failed authentication surfaces as
// InvalidCredential with no distinction between wrong and expired secrets.
func (s *AuthService) Authorize(ctx context.Context, token string, eventID int64, candidateSecret string) (*AuthorizeResult, error) {
	matched, err := s.matcher.Match(ctx, eventID, candidateSecret, s.clock.Now())
	if err != nil {
		if errors.Is(err, ErrNoMatch) {
			return nil, apperrors.InvalidCredential("Invalid passphrase.")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "match passphrase")
	}

	sess, err := s.sessions.AddGrant(ctx, token, domainauth.Grant{EventID: eventID, Role: matched.Role})
	if err != nil {
		if errors.Is(err, ports.ErrInvalidToken) {
			return nil, apperrors.InvalidSessionToken("Session data could not be loaded; please re-authenticate.")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "record grant")
	}

	return &AuthorizeResult{
		Token: sess.Token,
		Info:  infoForEvent(sess, eventID),
	}, nil
}

// CheckAuthorization returns the session's grants for one event. No token
// yields an empty grant set: "not authenticated" and "authenticated with no
// roles" are observably identical here. A supplied but unknown token yields
// InvalidSessionToken so the boundary can prompt the client to clear
// corrupted session state.
func (s *AuthService) CheckAuthorization(ctx context.Context, token string, eventID int64) (domainauth.AuthorizationInfo, error) {
	if token == "" {
		return domainauth.AuthorizationInfo{EventID: eventID}, nil
	}

	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ports.ErrInvalidToken) {
			return domainauth.AuthorizationInfo{}, apperrors.InvalidSessionToken("Session data could not be loaded; please re-authenticate.")
		}
		return domainauth.AuthorizationInfo{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "load session")
	}
	return infoForEvent(sess, eventID), nil
}

// CheckAllEventsAuthorization returns the session's grants for every event
// it holds at least one grant for, keyed by event id. Read semantics match
// CheckAuthorization.
func (s *AuthService) CheckAllEventsAuthorization(ctx context.Context, token string) (map[int64]domainauth.AuthorizationInfo, error) {
	if token == "" {
		return map[int64]domainauth.AuthorizationInfo{}, nil
	}

	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ports.ErrInvalidToken) {
			return nil, apperrors.InvalidSessionToken("Session data could not be loaded; please re-authenticate.")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "load session")
	}

	infos := make(map[int64]domainauth.AuthorizationInfo)
	for _, eventID := range sess.EventIDs() {
		infos[eventID] = infoForEvent(sess, eventID)
	}
	return infos, nil
}

// DropAccessRole removes exactly one (event, role) grant from the session.
// The token always rotates; the old token is invalid afterwards. When the
// last grant is dropped the session ends and the returned token is empty.
func (s *AuthService) DropAccessRole(ctx context.Context, token string, eventID int64, role domainauth.Role) (*AuthorizeResult, error) {
	sess, err := s.sessions.RemoveGrant(ctx, token, domainauth.Grant{EventID: eventID, Role: role})
	if err != nil {
		switch {
		case errors.Is(err, ports.ErrGrantNotHeld):
			return nil, apperrors.GrantNotHeld(fmt.Sprintf("Session holds no %s role for this event.", role.DisplayName()))
		case errors.Is(err, ports.ErrInvalidToken):
			return nil, apperrors.InvalidSessionToken("Session data could not be loaded; please re-authenticate.")
		default:
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "remove grant")
		}
	}

	return &AuthorizeResult{
		Token: sess.Token,
		Info:  infoForEvent(sess, eventID),
	}, nil
}

// Logout ends the session entirely; the token is permanently invalid.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.DropAll(ctx, token); err != nil {
		if errors.Is(err, ports.ErrInvalidToken) {
			return apperrors.InvalidSessionToken("Session data could not be loaded; please re-authenticate.")
		}
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "drop session")
	}
	return nil
}

// Require enforces a minimum role for a protected operation. The returned
// Forbidden error distinguishes a missing session ("not authorized") from an
// authenticated session whose privilege is insufficient.
func (s *AuthService) Require(ctx context.Context, token string, eventID int64, minimum domainauth.Role) error {
	insufficient := apperrors.Forbiddenf("Authentication as %s is required.", minimum.DisplayName())

	if token == "" {
		return apperrors.Forbidden("not authorized")
	}

	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ports.ErrInvalidToken) {
			return apperrors.Forbidden("not authorized")
		}
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "load session")
	}
	if len(sess.Grants) == 0 {
		return apperrors.Forbidden("not authorized")
	}
	if sess.MaxPrivilege(eventID) < minimum.Privilege() {
		return insufficient
	}
	return nil
}

func infoForEvent(sess domainauth.Session, eventID int64) domainauth.AuthorizationInfo {
	return domainauth.AuthorizationInfo{
		EventID: eventID,
		Roles:   sess.RolesForEvent(eventID),
	}
}
