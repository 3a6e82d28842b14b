package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/planfest/planfest/internal/data/cryptoutil"
	"github.com/planfest/planfest/internal/data/pgxutil"
	"github.com/planfest/planfest/internal/domain/model"
	"github.com/planfest/planfest/internal/ports"
)

// passphraseLockClass namespaces the per-event advisory locks taken by Add so
// they cannot collide with other advisory-lock users of the same database.
const passphraseLockClass int32 = 7342

const passphraseColumns = `event_id, id, secret, role, derivable_from_passphrase, comment, valid_from, valid_until`

// PassphraseRepo implements ports.PassphraseCatalog on Postgres with at-rest
// encryption of secrets. Records live in event_passphrases, keyed by
// (event_id, id); ids come from a per-event counter on the events row, so they
// are monotonic within the event and never reused after deletion.
type PassphraseRepo struct {
	DB  *sql.DB
	Enc cryptoutil.Encryptor
}

// NewPassphraseRepo creates a new PassphraseRepo.
func NewPassphraseRepo(db *sql.DB, enc cryptoutil.Encryptor) *PassphraseRepo {
	return &PassphraseRepo{DB: db, Enc: enc}
}

var _ ports.PassphraseCatalog = (*PassphraseRepo)(nil)

func (r *PassphraseRepo) decryptSecret(p *model.Passphrase) error {
	if p == nil || p.Secret == nil {
		return nil
	}
	pt, err := r.Enc.Decrypt(*p.Secret)
	if err != nil {
		return fmt.Errorf("decrypt secret (event %d, passphrase %d): %w", p.EventID, p.ID, err)
	}
	plain := string(pt)
	p.Secret = &plain
	return nil
}

// Add inserts a new passphrase. It runs as one transaction holding a
// per-event advisory lock, so the duplicate-secret check and the insert are
// atomic: two concurrent Adds with the same live secret cannot both succeed.
func (r *PassphraseRepo) Add(ctx context.Context, req model.CreatePassphraseRequest) (model.Passphrase, error) {
	if err := req.Validate(); err != nil {
		return model.Passphrase{}, err
	}

	var cipher *string
	if req.Secret != nil {
		c, err := r.Enc.Encrypt([]byte(*req.Secret))
		if err != nil {
			return model.Passphrase{}, fmt.Errorf("encrypt secret: %w", err)
		}
		cipher = &c
	}

	var out model.Passphrase
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`,
			passphraseLockClass, int32(req.EventID)); err != nil {
			return fmt.Errorf("acquire event lock: %w", err)
		}

		if req.Secret != nil {
			dup, err := r.hasUsableSecret(ctx, tx, req.EventID, *req.Secret)
			if err != nil {
				return err
			}
			if dup {
				return ports.ErrDuplicateSecret
			}
		}

		var nextID int64
		err := tx.QueryRow(ctx, `
			UPDATE events SET passphrase_seq = passphrase_seq + 1
			WHERE id = $1
			RETURNING passphrase_seq`, req.EventID).Scan(&nextID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ports.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("allocate passphrase id: %w", err)
		}

		rows, err := tx.Query(ctx, `
			INSERT INTO event_passphrases (
				event_id, id, secret, role, derivable_from_passphrase,
				comment, valid_from, valid_until
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING `+passphraseColumns,
			req.EventID, nextID, cipher, string(req.Role), req.DerivableFromPassphrase,
			req.Comment, req.ValidFrom, req.ValidUntil)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Passphrase])
		return err
	}})
	if err != nil {
		return model.Passphrase{}, err
	}

	if err := r.decryptSecret(&out); err != nil {
		return model.Passphrase{}, err
	}
	return out, nil
}

// hasUsableSecret reports whether any currently usable passphrase of the
// event carries the given clear secret. Ciphertexts use random nonces, so
// equality cannot be checked in SQL; the usable rows are decrypted and
// compared here while the advisory lock is held.
func (r *PassphraseRepo) hasUsableSecret(ctx context.Context, tx pgx.Tx, eventID int64, secret string) (bool, error) {
	rows, err := tx.Query(ctx, `
		SELECT secret FROM event_passphrases
		WHERE event_id = $1
		  AND secret IS NOT NULL
		  AND (valid_from IS NULL OR valid_from <= now())
		  AND (valid_until IS NULL OR valid_until >= now())`, eventID)
	if err != nil {
		return false, fmt.Errorf("list usable secrets: %w", err)
	}
	defer rows.Close()

	ciphers, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return false, fmt.Errorf("collect usable secrets: %w", err)
	}
	for _, c := range ciphers {
		pt, err := r.Enc.Decrypt(c)
		if err != nil {
			return false, fmt.Errorf("decrypt stored secret: %w", err)
		}
		if string(pt) == secret {
			return true, nil
		}
	}
	return false, nil
}

// List returns the event's passphrases ordered by id, secrets decrypted.
func (r *PassphraseRepo) List(ctx context.Context, eventID int64) ([]model.Passphrase, error) {
	var records []model.Passphrase
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+passphraseColumns+`
			FROM event_passphrases
			WHERE event_id = $1
			ORDER BY id`, eventID)
		if err != nil {
			return err
		}
		defer rows.Close()
		records, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Passphrase])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list passphrases: %w", err)
	}

	for i := range records {
		if err := r.decryptSecret(&records[i]); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// Get returns one passphrase with its secret decrypted, or ports.ErrNotFound.
func (r *PassphraseRepo) Get(ctx context.Context, eventID, passphraseID int64) (model.Passphrase, error) {
	var out model.Passphrase
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+passphraseColumns+`
			FROM event_passphrases
			WHERE event_id = $1 AND id = $2`, eventID, passphraseID)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Passphrase])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Passphrase{}, ports.ErrNotFound
	}
	if err != nil {
		return model.Passphrase{}, fmt.Errorf("get passphrase: %w", err)
	}

	if err := r.decryptSecret(&out); err != nil {
		return model.Passphrase{}, err
	}
	return out, nil
}

// Remove hard-deletes a passphrase. The per-event counter is untouched, so
// the id stays burned.
func (r *PassphraseRepo) Remove(ctx context.Context, eventID, passphraseID int64) error {
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `
			DELETE FROM event_passphrases
			WHERE event_id = $1 AND id = $2`, eventID, passphraseID)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete passphrase: %w", err)
	}
	if affected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// Invalidate caps the passphrase's validity at now. A record whose window
// already closed earlier keeps its original end.
func (r *PassphraseRepo) Invalidate(ctx context.Context, eventID, passphraseID int64, now time.Time) error {
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `
			UPDATE event_passphrases
			SET valid_until = LEAST(COALESCE(valid_until, $3), $3)
			WHERE event_id = $1 AND id = $2`, eventID, passphraseID, now)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate passphrase: %w", err)
	}
	if affected == 0 {
		return ports.ErrNotFound
	}
	return nil
}
