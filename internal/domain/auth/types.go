package auth

// Package auth contains domain-level types for passphrase authentication and
// sessions. It is pure and free of framework/adapter concerns.

import (
	"fmt"
	"sort"
)

// Role represents an event-scoped authorization role granted by a passphrase.
// Keep string form for easy persistence and JSON payloads.
// Valid values are defined as constants below.
type Role string

const (
	RoleParticipant         Role = "participant"
	RoleParticipantSharable Role = "participant-sharable"
	RoleOrga                Role = "orga"
	RoleOrgaSharable        Role = "orga-sharable"
	RoleAdmin               Role = "admin"
	RoleAdminSharable       Role = "admin-sharable"
)

// rolePrivileges is the total privilege order. Sharable variants carry the
// same ordinal privilege as their base role; they differ only in being
// earmarked for link distribution.
var rolePrivileges = map[Role]int{
	RoleParticipant:         1,
	RoleParticipantSharable: 1,
	RoleOrga:                2,
	RoleOrgaSharable:        2,
	RoleAdmin:               3,
	RoleAdminSharable:       3,
}

var sharableCounterparts = map[Role]Role{
	RoleParticipant: RoleParticipantSharable,
	RoleOrga:        RoleOrgaSharable,
	RoleAdmin:       RoleAdminSharable,
}

// AllRoles lists every valid role in ascending privilege order, base role
// before its sharable variant.
func AllRoles() []Role {
	return []Role{
		RoleParticipant, RoleParticipantSharable,
		RoleOrga, RoleOrgaSharable,
		RoleAdmin, RoleAdminSharable,
	}
}

// ParseRole converts a string into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := rolePrivileges[r]
	return ok
}

// Privilege returns the ordinal privilege level of r (participant=1,
// orga=2, admin=3). Sharable variants map to their base role's level.
// Unknown roles carry no privilege.
func (r Role) Privilege() int {
	return rolePrivileges[r]
}

// IsSharable reports whether r is a link-sharable variant.
func (r Role) IsSharable() bool {
	switch r {
	case RoleParticipantSharable, RoleOrgaSharable, RoleAdminSharable:
		return true
	default:
		return false
	}
}

// Base returns the base role carrying r's privilege. For base roles it
// returns r itself.
func (r Role) Base() Role {
	switch r {
	case RoleParticipantSharable:
		return RoleParticipant
	case RoleOrgaSharable:
		return RoleOrga
	case RoleAdminSharable:
		return RoleAdmin
	default:
		return r
	}
}

// SharableCounterpart returns the sharable variant of a base role.
// The second return value is false for sharable and unknown roles.
func (r Role) SharableCounterpart() (Role, bool) {
	c, ok := sharableCounterparts[r]
	return c, ok
}

// DisplayName returns the human-readable name of the role, used in
// authorization-failure messages and administrative listings.
func (r Role) DisplayName() string {
	switch r {
	case RoleParticipant:
		return "Participant"
	case RoleParticipantSharable:
		return "Participant (sharable link)"
	case RoleOrga:
		return "Orga"
	case RoleOrgaSharable:
		return "Orga (sharable link)"
	case RoleAdmin:
		return "Admin"
	case RoleAdminSharable:
		return "Admin (sharable link)"
	default:
		return string(r)
	}
}

// AtLeast reports whether r grants at least the privilege of minimum.
func (r Role) AtLeast(minimum Role) bool {
	return r.Valid() && minimum.Valid() && r.Privilege() >= minimum.Privilege()
}

// Grant pairs an event with a role held by a session.
type Grant struct {
	EventID int64 `json:"event_id"`
	Role    Role  `json:"role"`
}

// Session is the server-side record we persist for an authenticated client.
// Token is an opaque identifier (e.g. random URL-safe string); Grants is the
// set of (event, role) pairs accumulated across authorizations.
type Session struct {
	Token  string  `json:"token"`
	Grants []Grant `json:"grants"`
}

// HasGrant reports whether the session holds the exact grant g.
func (s Session) HasGrant(g Grant) bool {
	for _, held := range s.Grants {
		if held == g {
			return true
		}
	}
	return false
}

// AddGrant records g in the session. Duplicates collapse, so authorizing
// twice for the same role is idempotent.
func (s *Session) AddGrant(g Grant) {
	if s.HasGrant(g) {
		return
	}
	s.Grants = append(s.Grants, g)
}

// RemoveGrant deletes the exact grant g and reports whether it was held.
func (s *Session) RemoveGrant(g Grant) bool {
	for i, held := range s.Grants {
		if held == g {
			s.Grants = append(s.Grants[:i], s.Grants[i+1:]...)
			return true
		}
	}
	return false
}

// RolesForEvent returns the roles held for one event, deduplicated and
// sorted by ascending privilege.
func (s Session) RolesForEvent(eventID int64) []Role {
	seen := make(map[Role]struct{})
	var roles []Role
	for _, g := range s.Grants {
		if g.EventID != eventID {
			continue
		}
		if _, ok := seen[g.Role]; ok {
			continue
		}
		seen[g.Role] = struct{}{}
		roles = append(roles, g.Role)
	}
	sortRoles(roles)
	return roles
}

// EventIDs returns the distinct events for which the session holds at least
// one grant, in ascending order.
func (s Session) EventIDs() []int64 {
	seen := make(map[int64]struct{}, len(s.Grants))
	var ids []int64
	for _, g := range s.Grants {
		if _, ok := seen[g.EventID]; ok {
			continue
		}
		seen[g.EventID] = struct{}{}
		ids = append(ids, g.EventID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MaxPrivilege returns the highest privilege level held for the event, or 0
// if the session holds no grant there.
func (s Session) MaxPrivilege(eventID int64) int {
	maxPriv := 0
	for _, g := range s.Grants {
		if g.EventID == eventID && g.Role.Privilege() > maxPriv {
			maxPriv = g.Role.Privilege()
		}
	}
	return maxPriv
}

// AuthorizationInfo is the read view of a session's grants for one event.
// It is derived from the session and never persisted.
type AuthorizationInfo struct {
	EventID int64  `json:"event_id"`
	Roles   []Role `json:"roles"`
}

func sortRoles(roles []Role) {
	sort.Slice(roles, func(i, j int) bool {
		if roles[i].Privilege() != roles[j].Privilege() {
			return roles[i].Privilege() < roles[j].Privilege()
		}
		return roles[i] < roles[j]
	})
}
