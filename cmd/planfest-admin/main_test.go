package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainauth "github.com/planfest/planfest/internal/domain/auth"
)

func TestParseTimeFlag(t *testing.T) {
	got, err := parseTimeFlag("2026-07-01")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = parseTimeFlag("2026-07-01T18:30:00Z")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 7, 1, 18, 30, 0, 0, time.UTC), got)

	got, err = parseTimeFlag("   ")
	require.NoError(t, err)
	require.True(t, got.IsZero())

	_, err = parseTimeFlag("July 1st")
	require.Error(t, err)
}

func TestParseNewPassphraseFlags(t *testing.T) {
	opts, err := parseNewPassphraseFlags([]string{
		"--event", "1", "--secret", "user", "--role", "participant",
		"--valid-until", "2026-09-01",
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), opts.EventID)
	require.Equal(t, "user", opts.Secret)
	require.Equal(t, domainauth.RoleParticipant, opts.Role)
	require.Nil(t, opts.ValidFrom)
	require.NotNil(t, opts.ValidUntil)

	_, err = parseNewPassphraseFlags([]string{"--secret", "user", "--role", "participant"})
	require.ErrorContains(t, err, "--event is required")

	_, err = parseNewPassphraseFlags([]string{"--event", "1", "--role", "participant"})
	require.ErrorContains(t, err, "--secret is required")

	_, err = parseNewPassphraseFlags([]string{"--event", "1", "--secret", "x", "--role", "superuser"})
	require.ErrorContains(t, err, "unknown role")

	_, err = parseNewPassphraseFlags([]string{"--event", "1", "--secret", "x", "--role", "participant-sharable"})
	require.ErrorContains(t, err, "new-link-passphrase")
}

func TestParseNewLinkPassphraseFlags(t *testing.T) {
	opts, err := parseNewLinkPassphraseFlags([]string{
		"--event", "2", "--parent", "5", "--role", "orga-sharable",
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), opts.EventID)
	require.Equal(t, int64(5), opts.ParentID)
	require.Equal(t, domainauth.RoleOrgaSharable, opts.Role)

	_, err = parseNewLinkPassphraseFlags([]string{"--event", "2", "--role", "orga-sharable"})
	require.ErrorContains(t, err, "--parent is required")
}

func TestListingValueFormatting(t *testing.T) {
	parent := int64(1)
	require.Equal(t, "1", int64OrDash(&parent))
	require.Equal(t, "-", int64OrDash(nil))

	secret := "****r"
	require.Equal(t, "****r", stringOrDash(&secret))
	require.Equal(t, "-", stringOrDash(nil))

	until := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "2026-09-01T00:00:00Z", timeOrDash(&until))
	require.Equal(t, "-", timeOrDash(nil))
}

func TestIsLikelyRemoteHost(t *testing.T) {
	require.False(t, isLikelyRemoteHost("localhost"))
	require.False(t, isLikelyRemoteHost("127.0.0.1"))
	require.False(t, isLikelyRemoteHost("::1"))
	require.False(t, isLikelyRemoteHost("dev-box.local"))
	require.False(t, isLikelyRemoteHost(""))
	require.True(t, isLikelyRemoteHost("db.prod.example.com"))
	require.True(t, isLikelyRemoteHost("10.1.2.3"))
}
