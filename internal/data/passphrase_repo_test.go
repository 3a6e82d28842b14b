package data

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planfest/planfest/internal/data/cryptoutil"
	domainauth "github.com/planfest/planfest/internal/domain/auth"
	"github.com/planfest/planfest/internal/domain/model"
	"github.com/planfest/planfest/internal/ports"
	"github.com/planfest/planfest/internal/testutil"
)

func createTestEvent(t *testing.T, db *sql.DB, title string) model.Event {
	t.Helper()
	begin := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	ev, err := NewEventRepo(db).Create(context.Background(), model.CreateEventRequest{
		Title:     title,
		BeginDate: begin,
		EndDate:   begin.AddDate(0, 0, 3),
	})
	require.NoError(t, err)
	return ev
}

func addPassphrase(t *testing.T, repo *PassphraseRepo, eventID int64, secret string, role domainauth.Role) model.Passphrase {
	t.Helper()
	p, err := repo.Add(context.Background(), model.CreatePassphraseRequest{
		EventID: eventID,
		Secret:  &secret,
		Role:    role,
	})
	require.NoError(t, err)
	return p
}

func TestPassphraseRepoAddListGet(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewPassphraseRepo(db, cryptoutil.NoopEncryptor{})
		ctx := context.Background()
		ev := createTestEvent(t, db, "Sommerfest")

		p1 := addPassphrase(t, repo, ev.ID, "user", domainauth.RoleParticipant)
		p2 := addPassphrase(t, repo, ev.ID, "orga", domainauth.RoleOrga)
		p3 := addPassphrase(t, repo, ev.ID, "admin", domainauth.RoleAdmin)

		// Ids count up from 1 within the event.
		assert.Equal(t, int64(1), p1.ID)
		assert.Equal(t, int64(2), p2.ID)
		assert.Equal(t, int64(3), p3.ID)

		// Secrets come back decrypted.
		require.NotNil(t, p1.Secret)
		assert.Equal(t, "user", *p1.Secret)

		listed, err := repo.List(ctx, ev.ID)
		require.NoError(t, err)
		require.Len(t, listed, 3)
		assert.Equal(t, int64(1), listed[0].ID)
		assert.Equal(t, "orga", *listed[1].Secret)

		got, err := repo.Get(ctx, ev.ID, p3.ID)
		require.NoError(t, err)
		assert.Equal(t, domainauth.RoleAdmin, got.Role)
		assert.Equal(t, "admin", *got.Secret)

		_, err = repo.Get(ctx, ev.ID, 999)
		assert.ErrorIs(t, err, ports.ErrNotFound)
	})
}

func TestPassphraseRepoAddUnknownEvent(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewPassphraseRepo(db, cryptoutil.NoopEncryptor{})

		_, err := repo.Add(context.Background(), model.CreatePassphraseRequest{
			EventID: 424242,
			Secret:  testutil.StringPtr("user"),
			Role:    domainauth.RoleParticipant,
		})
		assert.ErrorIs(t, err, ports.ErrNotFound)
	})
}

func TestPassphraseRepoDuplicateSecret(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewPassphraseRepo(db, cryptoutil.NoopEncryptor{})
		ctx := context.Background()
		ev := createTestEvent(t, db, "Sommerfest")
		other := createTestEvent(t, db, "Winterfest")

		addPassphrase(t, repo, ev.ID, "user", domainauth.RoleParticipant)

		_, err := repo.Add(ctx, model.CreatePassphraseRequest{
			EventID: ev.ID,
			Secret:  testutil.StringPtr("user"),
			Role:    domainauth.RoleOrga,
		})
		assert.ErrorIs(t, err, ports.ErrDuplicateSecret)

		// Uniqueness is scoped to the event.
		_, err = repo.Add(ctx, model.CreatePassphraseRequest{
			EventID: other.ID,
			Secret:  testutil.StringPtr("user"),
			Role:    domainauth.RoleOrga,
		})
		assert.NoError(t, err)
	})
}

func TestPassphraseRepoConcurrentAddSameSecret(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewPassphraseRepo(db, cryptoutil.NoopEncryptor{})
		ctx := context.Background()
		ev := createTestEvent(t, db, "Sommerfest")

		const workers = 8
		start := make(chan struct{})
		errs := make(chan error, workers)

		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := repo.Add(ctx, model.CreatePassphraseRequest{
					EventID: ev.ID,
					Secret:  testutil.StringPtr("user"),
					Role:    domainauth.RoleParticipant,
				})
				errs <- err
			}()
		}
		close(start)
		wg.Wait()
		close(errs)

		// The advisory lock serializes the check-and-insert, so exactly one
		// racer wins and every other sees the duplicate.
		var successes, duplicates int
		for err := range errs {
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ports.ErrDuplicateSecret):
				duplicates++
			default:
				t.Fatalf("unexpected add error: %v", err)
			}
		}
		assert.Equal(t, 1, successes)
		assert.Equal(t, workers-1, duplicates)

		listed, err := repo.List(ctx, ev.ID)
		require.NoError(t, err)
		assert.Len(t, listed, 1)
	})
}

func TestPassphraseRepoRetiredSecretReusable(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewPassphraseRepo(db, cryptoutil.NoopEncryptor{})
		ctx := context.Background()
		ev := createTestEvent(t, db, "Sommerfest")

		old := addPassphrase(t, repo, ev.ID, "user", domainauth.RoleParticipant)
		require.NoError(t, repo.Invalidate(ctx, ev.ID, old.ID, time.Now().Add(-time.Minute)))

		// The duplicate check only counts currently usable rows.
		replacement := addPassphrase(t, repo, ev.ID, "user", domainauth.RoleParticipant)
		assert.Greater(t, replacement.ID, old.ID)
	})
}

func TestPassphraseRepoIDsNeverReused(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewPassphraseRepo(db, cryptoutil.NoopEncryptor{})
		ctx := context.Background()
		ev := createTestEvent(t, db, "Sommerfest")

		addPassphrase(t, repo, ev.ID, "user", domainauth.RoleParticipant)
		second := addPassphrase(t, repo, ev.ID, "orga", domainauth.RoleOrga)

		require.NoError(t, repo.Remove(ctx, ev.ID, second.ID))

		// The counter keeps moving; deleted ids stay burned.
		third := addPassphrase(t, repo, ev.ID, "admin", domainauth.RoleAdmin)
		assert.Equal(t, second.ID+1, third.ID)
	})
}

func TestPassphraseRepoRemove(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewPassphraseRepo(db, cryptoutil.NoopEncryptor{})
		ctx := context.Background()
		ev := createTestEvent(t, db, "Sommerfest")

		p := addPassphrase(t, repo, ev.ID, "user", domainauth.RoleParticipant)
		require.NoError(t, repo.Remove(ctx, ev.ID, p.ID))

		assert.ErrorIs(t, repo.Remove(ctx, ev.ID, p.ID), ports.ErrNotFound)
		_, err := repo.Get(ctx, ev.ID, p.ID)
		assert.ErrorIs(t, err, ports.ErrNotFound)
	})
}

func TestPassphraseRepoInvalidate(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewPassphraseRepo(db, cryptoutil.NoopEncryptor{})
		ctx := context.Background()
		ev := createTestEvent(t, db, "Sommerfest")

		p := addPassphrase(t, repo, ev.ID, "user", domainauth.RoleParticipant)

		now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
		require.NoError(t, repo.Invalidate(ctx, ev.ID, p.ID, now))

		got, err := repo.Get(ctx, ev.ID, p.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ValidUntil)
		assert.True(t, got.ValidUntil.Equal(now))

		// A window that already closed earlier keeps its original end.
		require.NoError(t, repo.Invalidate(ctx, ev.ID, p.ID, now.Add(time.Hour)))
		got, err = repo.Get(ctx, ev.ID, p.ID)
		require.NoError(t, err)
		assert.True(t, got.ValidUntil.Equal(now))

		assert.ErrorIs(t, repo.Invalidate(ctx, ev.ID, 999, now), ports.ErrNotFound)
	})
}

func TestPassphraseRepoDerivedRecord(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewPassphraseRepo(db, cryptoutil.NoopEncryptor{})
		ctx := context.Background()
		ev := createTestEvent(t, db, "Sommerfest")

		parent := addPassphrase(t, repo, ev.ID, "orga", domainauth.RoleOrga)

		derived, err := repo.Add(ctx, model.CreatePassphraseRequest{
			EventID:                 ev.ID,
			Secret:                  testutil.StringPtr("generated-link-secret"),
			Role:                    domainauth.RoleOrgaSharable,
			DerivableFromPassphrase: testutil.Int64Ptr(parent.ID),
			Comment:                 "bar crew link",
		})
		require.NoError(t, err)
		require.NotNil(t, derived.DerivableFromPassphrase)
		assert.Equal(t, parent.ID, *derived.DerivableFromPassphrase)

		// Deleting the parent leaves the derived row intact; the reference
		// is provenance, not a foreign key with cascade.
		require.NoError(t, repo.Remove(ctx, ev.ID, parent.ID))
		got, err := repo.Get(ctx, ev.ID, derived.ID)
		require.NoError(t, err)
		assert.Equal(t, "bar crew link", got.Comment)
	})
}

func TestPassphraseRepoSecretEncryptedAtRest(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		enc, err := cryptoutil.NewAESGCMEncryptor(bytes.Repeat([]byte{0x42}, 32))
		require.NoError(t, err)
		repo := NewPassphraseRepo(db, enc)
		ctx := context.Background()
		ev := createTestEvent(t, db, "Sommerfest")

		p := addPassphrase(t, repo, ev.ID, "Sommerfest 2026", domainauth.RoleParticipant)
		assert.Equal(t, "Sommerfest 2026", *p.Secret)

		var stored string
		err = db.QueryRowContext(ctx, `
			SELECT secret FROM event_passphrases
			WHERE event_id = $1 AND id = $2`, ev.ID, p.ID).Scan(&stored)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(stored, "v1:"))
		assert.NotContains(t, stored, "Sommerfest")

		got, err := repo.Get(ctx, ev.ID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Sommerfest 2026", *got.Secret)
	})
}
