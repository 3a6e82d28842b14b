package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planfest/planfest/internal/data"
	domainauth "github.com/planfest/planfest/internal/domain/auth"
	"github.com/planfest/planfest/internal/domain/model"
	apperrors "github.com/planfest/planfest/internal/errors"
	mockauth "github.com/planfest/planfest/internal/mocks/auth"
	"github.com/planfest/planfest/internal/testutil"
)

type passphraseFixture struct {
	svc     *PassphraseService
	catalog *mockauth.MemoryCatalog
	clock   *data.FixedTimeProvider
}

func newPassphraseFixture(t *testing.T, gen func() (string, error)) *passphraseFixture {
	t.Helper()

	clock := data.NewFixedTimeProvider(testutil.TestTime())
	catalog := mockauth.NewMemoryCatalog()
	catalog.Now = clock.Now

	svc := NewPassphraseService(PassphraseServiceOptions{
		Catalog:        catalog,
		Clock:          clock,
		GenerateSecret: gen,
	})
	return &passphraseFixture{svc: svc, catalog: catalog, clock: clock}
}

func (f *passphraseFixture) create(t *testing.T, secret string, role domainauth.Role) model.Passphrase {
	t.Helper()
	p, err := f.svc.Create(context.Background(), model.CreatePassphraseRequest{
		EventID: 1,
		Secret:  &secret,
		Role:    role,
	})
	require.NoError(t, err)
	return p
}

func TestPassphraseCreate(t *testing.T) {
	f := newPassphraseFixture(t, nil)

	p := f.create(t, "user", domainauth.RoleParticipant)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, int64(1), p.EventID)
	require.NotNil(t, p.Secret)
	assert.Equal(t, "user", *p.Secret)

	// Ids are assigned monotonically per event.
	p2 := f.create(t, "orga", domainauth.RoleOrga)
	assert.Equal(t, int64(2), p2.ID)
}

func TestPassphraseCreateDuplicateSecret(t *testing.T) {
	f := newPassphraseFixture(t, nil)
	ctx := context.Background()

	f.create(t, "user", domainauth.RoleParticipant)

	secret := "user"
	_, err := f.svc.Create(ctx, model.CreatePassphraseRequest{
		EventID: 1,
		Secret:  &secret,
		Role:    domainauth.RoleOrga,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsDuplicateSecret(err))

	// The same secret is fine in another event.
	_, err = f.svc.Create(ctx, model.CreatePassphraseRequest{
		EventID: 2,
		Secret:  &secret,
		Role:    domainauth.RoleOrga,
	})
	assert.NoError(t, err)
}

func TestPassphraseCreateReusesRetiredSecret(t *testing.T) {
	f := newPassphraseFixture(t, nil)
	ctx := context.Background()

	old := f.create(t, "user", domainauth.RoleParticipant)
	require.NoError(t, f.svc.Invalidate(ctx, 1, old.ID))

	// Uniqueness only binds among currently usable passphrases; advancing
	// past the invalidation point frees the secret for reuse.
	f.clock.AddTime(time.Minute)
	secret := "user"
	replacement, err := f.svc.Create(ctx, model.CreatePassphraseRequest{
		EventID: 1,
		Secret:  &secret,
		Role:    domainauth.RoleParticipant,
	})
	require.NoError(t, err)
	assert.Greater(t, replacement.ID, old.ID)
}

func TestPassphraseList(t *testing.T) {
	f := newPassphraseFixture(t, nil)
	ctx := context.Background()

	f.create(t, "user", domainauth.RoleParticipant)
	f.create(t, "admin", domainauth.RoleAdmin)

	listed, err := f.svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	// Secrets only ever leave the catalog obfuscated.
	require.NotNil(t, listed[0].Secret)
	assert.Equal(t, "****r", *listed[0].Secret)
	require.NotNil(t, listed[1].Secret)
	assert.Equal(t, "****n", *listed[1].Secret)

	empty, err := f.svc.List(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPassphraseRemove(t *testing.T) {
	f := newPassphraseFixture(t, nil)
	ctx := context.Background()

	p := f.create(t, "user", domainauth.RoleParticipant)
	require.NoError(t, f.svc.Remove(ctx, 1, p.ID))

	err := f.svc.Remove(ctx, 1, p.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestPassphraseInvalidate(t *testing.T) {
	f := newPassphraseFixture(t, nil)
	ctx := context.Background()

	p := f.create(t, "user", domainauth.RoleParticipant)
	require.NoError(t, f.svc.Invalidate(ctx, 1, p.ID))

	// The record survives, capped at the invalidation time.
	got, err := f.catalog.Get(ctx, 1, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ValidUntil)
	assert.True(t, got.ValidUntil.Equal(f.clock.Now()))
	assert.False(t, got.UsableAt(f.clock.Now().Add(time.Second)))

	err = f.svc.Invalidate(ctx, 1, 999)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeriveLinkPassphrase(t *testing.T) {
	gen := func() (string, error) { return "generated-link-secret", nil }
	f := newPassphraseFixture(t, gen)
	ctx := context.Background()

	parent := f.create(t, "orga", domainauth.RoleOrga)

	derived, err := f.svc.DeriveLinkPassphrase(ctx, 1, parent.ID, domainauth.RoleOrgaSharable, DeriveOptions{
		Comment: "link for the bar crew",
	})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleOrgaSharable, derived.Role)
	require.NotNil(t, derived.Secret)
	assert.Equal(t, "generated-link-secret", *derived.Secret)
	require.NotNil(t, derived.DerivableFromPassphrase)
	assert.Equal(t, parent.ID, *derived.DerivableFromPassphrase)
	assert.Equal(t, "link for the bar crew", derived.Comment)
	assert.Greater(t, derived.ID, parent.ID)
}

func TestDeriveLinkPassphraseRoleMustBeCounterpart(t *testing.T) {
	f := newPassphraseFixture(t, nil)
	ctx := context.Background()

	parent := f.create(t, "orga", domainauth.RoleOrga)

	for _, role := range []domainauth.Role{
		domainauth.RoleAdminSharable,       // higher privilege
		domainauth.RoleParticipantSharable, // lower privilege
		domainauth.RoleOrga,                // not sharable
	} {
		_, err := f.svc.DeriveLinkPassphrase(ctx, 1, parent.ID, role, DeriveOptions{})
		require.Error(t, err, "role %s", role)
		assert.Equal(t, apperrors.ErrCodeInvalidRoleDerivation, apperrors.GetCode(err))
	}
}

func TestDeriveLinkPassphraseFromSharableParent(t *testing.T) {
	gen := func() (string, error) { return "first-link", nil }
	f := newPassphraseFixture(t, gen)
	ctx := context.Background()

	parent := f.create(t, "orga", domainauth.RoleOrga)
	link, err := f.svc.DeriveLinkPassphrase(ctx, 1, parent.ID, domainauth.RoleOrgaSharable, DeriveOptions{})
	require.NoError(t, err)

	// Sharable roles have no counterpart of their own; chains stop here.
	_, err = f.svc.DeriveLinkPassphrase(ctx, 1, link.ID, domainauth.RoleOrgaSharable, DeriveOptions{})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidRoleDerivation, apperrors.GetCode(err))
}

func TestDeriveLinkPassphraseParentNotUsable(t *testing.T) {
	f := newPassphraseFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.DeriveLinkPassphrase(ctx, 1, 42, domainauth.RoleOrgaSharable, DeriveOptions{})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeParentNotUsable, apperrors.GetCode(err))

	parent := f.create(t, "orga", domainauth.RoleOrga)
	require.NoError(t, f.svc.Invalidate(ctx, 1, parent.ID))
	f.clock.AddTime(time.Minute)

	_, err = f.svc.DeriveLinkPassphrase(ctx, 1, parent.ID, domainauth.RoleOrgaSharable, DeriveOptions{})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeParentNotUsable, apperrors.GetCode(err))
}

func TestDeriveLinkPassphraseSurvivesParentRevocation(t *testing.T) {
	gen := func() (string, error) { return "independent-link", nil }
	f := newPassphraseFixture(t, gen)
	ctx := context.Background()

	parent := f.create(t, "orga", domainauth.RoleOrga)
	link, err := f.svc.DeriveLinkPassphrase(ctx, 1, parent.ID, domainauth.RoleOrgaSharable, DeriveOptions{})
	require.NoError(t, err)

	// Revoking or even deleting the parent leaves the derived credential
	// untouched; the reference is provenance only.
	require.NoError(t, f.svc.Remove(ctx, 1, parent.ID))

	got, err := f.catalog.Get(ctx, 1, link.ID)
	require.NoError(t, err)
	assert.True(t, got.UsableAt(f.clock.Now()))
	require.NotNil(t, got.DerivableFromPassphrase)
	assert.Equal(t, parent.ID, *got.DerivableFromPassphrase)
}

func TestDeriveLinkPassphraseValidityWindow(t *testing.T) {
	gen := func() (string, error) { return "windowed-link", nil }
	f := newPassphraseFixture(t, gen)
	ctx := context.Background()

	parent := f.create(t, "orga", domainauth.RoleOrga)

	until := f.clock.Now().Add(48 * time.Hour)
	link, err := f.svc.DeriveLinkPassphrase(ctx, 1, parent.ID, domainauth.RoleOrgaSharable, DeriveOptions{
		ValidUntil: &until,
	})
	require.NoError(t, err)
	require.NotNil(t, link.ValidUntil)
	assert.True(t, link.ValidUntil.Equal(until))
	assert.False(t, link.UsableAt(until.Add(time.Second)))
}
