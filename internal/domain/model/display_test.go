package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/planfest/planfest/internal/domain/auth"
)

func TestObfuscateSecret(t *testing.T) {
	assert.Equal(t, "****r", ObfuscateSecret("user"))
	assert.Equal(t, "****n", ObfuscateSecret("admin"))
	assert.Equal(t, "****x", ObfuscateSecret("x"))
	assert.Equal(t, "****", ObfuscateSecret(""))

	// Final rune, not final byte.
	assert.Equal(t, "****ü", ObfuscateSecret("Frühlingsmenü"))
}

func TestFormatForListing(t *testing.T) {
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	secret := "user"

	p := Passphrase{
		ID:                      3,
		EventID:                 1,
		Secret:                  &secret,
		Role:                    domainauth.RoleParticipant,
		DerivableFromPassphrase: int64Ptr(1),
		Comment:                 "front desk",
		ValidFrom:               &from,
		ValidUntil:              &until,
	}

	d := FormatForListing(p)
	assert.Equal(t, int64(3), d.ID)
	assert.Equal(t, int64(1), d.EventID)
	require.NotNil(t, d.Secret)
	assert.Equal(t, "****r", *d.Secret)
	assert.Equal(t, "participant", d.Role)
	require.NotNil(t, d.DerivableFromPassphrase)
	assert.Equal(t, int64(1), *d.DerivableFromPassphrase)
	assert.Equal(t, "front desk", d.Comment)
	assert.Equal(t, &from, d.ValidFrom)
	assert.Equal(t, &until, d.ValidUntil)

	// The source record keeps its clear secret.
	assert.Equal(t, "user", *p.Secret)
}

func TestFormatForListingNilSecret(t *testing.T) {
	d := FormatForListing(Passphrase{ID: 5, EventID: 2, Role: domainauth.RoleOrgaSharable})
	assert.Nil(t, d.Secret)
}
