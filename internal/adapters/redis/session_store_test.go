package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/planfest/planfest/internal/domain/auth"
	"github.com/planfest/planfest/internal/ports"
	"github.com/planfest/planfest/internal/testutil"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("close redis client: %v", err)
		}
	})
	return NewSessionStoreWithPrefix(client, "test:session:", time.Hour)
}

func TestSessionStoreAddGrantNewSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	g := domainauth.Grant{EventID: 1, Role: domainauth.RoleParticipant}
	sess, err := store.AddGrant(ctx, "", g)
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	assert.True(t, sess.HasGrant(g))

	loaded, err := store.Get(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.Token, loaded.Token)
	assert.Equal(t, sess.Grants, loaded.Grants)
}

func TestSessionStoreAddGrantExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.AddGrant(ctx, "", domainauth.Grant{EventID: 1, Role: domainauth.RoleParticipant})
	require.NoError(t, err)

	updated, err := store.AddGrant(ctx, sess.Token, domainauth.Grant{EventID: 1, Role: domainauth.RoleAdmin})
	require.NoError(t, err)
	// Adding a grant keeps the token.
	assert.Equal(t, sess.Token, updated.Token)
	assert.Len(t, updated.Grants, 2)

	// Duplicate grants collapse.
	again, err := store.AddGrant(ctx, sess.Token, domainauth.Grant{EventID: 1, Role: domainauth.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, again.Grants, 2)
}

func TestSessionStoreAddGrantUnknownToken(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddGrant(context.Background(), "no-such-token", domainauth.Grant{EventID: 1, Role: domainauth.RoleParticipant})
	assert.ErrorIs(t, err, ports.ErrInvalidToken)
}

func TestSessionStoreGetInvalid(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "")
	assert.ErrorIs(t, err, ports.ErrInvalidToken)

	_, err = store.Get(ctx, "no-such-token")
	assert.ErrorIs(t, err, ports.ErrInvalidToken)
}

func TestSessionStoreGetCorruptPayload(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("close redis client: %v", err)
		}
	})
	store := NewSessionStoreWithPrefix(client, "test:session:", time.Hour)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "test:session:broken", "{not json", time.Hour).Err())

	_, err := store.Get(ctx, "broken")
	assert.ErrorIs(t, err, ports.ErrInvalidToken)
}

func TestSessionStoreRemoveGrantRotates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.AddGrant(ctx, "", domainauth.Grant{EventID: 1, Role: domainauth.RoleParticipant})
	require.NoError(t, err)
	sess, err = store.AddGrant(ctx, sess.Token, domainauth.Grant{EventID: 1, Role: domainauth.RoleAdmin})
	require.NoError(t, err)
	oldToken := sess.Token

	rotated, err := store.RemoveGrant(ctx, oldToken, domainauth.Grant{EventID: 1, Role: domainauth.RoleAdmin})
	require.NoError(t, err)
	require.NotEmpty(t, rotated.Token)
	assert.NotEqual(t, oldToken, rotated.Token)
	assert.Equal(t, []domainauth.Grant{{EventID: 1, Role: domainauth.RoleParticipant}}, rotated.Grants)

	// The old token must be strictly invalid after rotation.
	_, err = store.Get(ctx, oldToken)
	assert.ErrorIs(t, err, ports.ErrInvalidToken)

	loaded, err := store.Get(ctx, rotated.Token)
	require.NoError(t, err)
	assert.Equal(t, rotated.Grants, loaded.Grants)
}

func TestSessionStoreRemoveLastGrantEndsSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.AddGrant(ctx, "", domainauth.Grant{EventID: 1, Role: domainauth.RoleParticipant})
	require.NoError(t, err)

	ended, err := store.RemoveGrant(ctx, sess.Token, domainauth.Grant{EventID: 1, Role: domainauth.RoleParticipant})
	require.NoError(t, err)
	assert.Empty(t, ended.Token)
	assert.Empty(t, ended.Grants)

	_, err = store.Get(ctx, sess.Token)
	assert.ErrorIs(t, err, ports.ErrInvalidToken)
}

func TestSessionStoreRemoveGrantNotHeld(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.AddGrant(ctx, "", domainauth.Grant{EventID: 1, Role: domainauth.RoleParticipant})
	require.NoError(t, err)

	_, err = store.RemoveGrant(ctx, sess.Token, domainauth.Grant{EventID: 1, Role: domainauth.RoleAdmin})
	assert.ErrorIs(t, err, ports.ErrGrantNotHeld)

	// A failed remove does not rotate.
	loaded, err := store.Get(ctx, sess.Token)
	require.NoError(t, err)
	assert.True(t, loaded.HasGrant(domainauth.Grant{EventID: 1, Role: domainauth.RoleParticipant}))

	_, err = store.RemoveGrant(ctx, "no-such-token", domainauth.Grant{EventID: 1, Role: domainauth.RoleParticipant})
	assert.ErrorIs(t, err, ports.ErrInvalidToken)
}

func TestSessionStoreDropAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.AddGrant(ctx, "", domainauth.Grant{EventID: 1, Role: domainauth.RoleParticipant})
	require.NoError(t, err)

	require.NoError(t, store.DropAll(ctx, sess.Token))

	_, err = store.Get(ctx, sess.Token)
	assert.ErrorIs(t, err, ports.ErrInvalidToken)

	// Dropping again reports the token as already invalid.
	assert.ErrorIs(t, store.DropAll(ctx, sess.Token), ports.ErrInvalidToken)
	assert.ErrorIs(t, store.DropAll(ctx, ""), ports.ErrInvalidToken)
}

func TestSessionStoreTTL(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("close redis client: %v", err)
		}
	})
	store := NewSessionStoreWithPrefix(client, "test:session:", time.Hour)
	ctx := context.Background()

	sess, err := store.AddGrant(ctx, "", domainauth.Grant{EventID: 1, Role: domainauth.RoleParticipant})
	require.NoError(t, err)

	ttl, err := client.TTL(ctx, "test:session:"+sess.Token).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Hour)
}
