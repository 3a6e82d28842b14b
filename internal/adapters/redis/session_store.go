package redis

// Package redis provides Redis-based adapters for the planfest system.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	domainauth "github.com/planfest/planfest/internal/domain/auth"
	"github.com/planfest/planfest/internal/ports"
)

// maxTxRetries bounds the optimistic-concurrency loop on WATCH conflicts.
const maxTxRetries = 3

// SessionStore is a Redis-based grant-session store for production use.
// Each session is a JSON payload under prefix+token. Mutations on one token
// are serialized through WATCH-based transactions; a rotate is SET-new plus
// DEL-old in one transaction, so the old token is never observable as valid
// after rotation.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewSessionStore creates a new Redis-based session store. A zero ttl means
// sessions do not expire in Redis; absolute session lifetime is owned by the
// transport layer (cookie expiry), not by this store.
func NewSessionStore(client redis.UniversalClient, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, prefix: "session:", ttl: ttl}
}

// NewSessionStoreWithPrefix creates a Redis session store with a custom key prefix.
func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context, token string) (domainauth.Session, error) {
	if token == "" {
		return domainauth.Session{}, ports.ErrInvalidToken
	}

	data, err := s.client.Get(ctx, s.prefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Session{}, ports.ErrInvalidToken
		}
		return domainauth.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.Session
	if unmarshalErr := json.Unmarshal([]byte(data), &sess); unmarshalErr != nil {
		// Corrupt payloads are indistinguishable from malformed tokens for
		// the caller; the session cannot be loaded either way.
		return domainauth.Session{}, ports.ErrInvalidToken
	}
	return sess, nil
}

func (s *SessionStore) AddGrant(ctx context.Context, token string, g domainauth.Grant) (domainauth.Session, error) {
	if token == "" {
		sess := domainauth.Session{Token: newToken()}
		sess.AddGrant(g)
		if err := s.save(ctx, s.client, sess); err != nil {
			return domainauth.Session{}, err
		}
		return sess, nil
	}

	var result domainauth.Session
	err := s.withSessionTx(ctx, token, func(pipe redis.Pipeliner, sess domainauth.Session) error {
		sess.AddGrant(g)
		result = sess
		return s.save(ctx, pipe, sess)
	})
	if err != nil {
		return domainauth.Session{}, err
	}
	return result, nil
}

func (s *SessionStore) RemoveGrant(ctx context.Context, token string, g domainauth.Grant) (domainauth.Session, error) {
	var result domainauth.Session
	err := s.withSessionTx(ctx, token, func(pipe redis.Pipeliner, sess domainauth.Session) error {
		if !sess.RemoveGrant(g) {
			return ports.ErrGrantNotHeld
		}

		// Rotation: the old token must be strictly invalid afterwards.
		pipe.Del(ctx, s.prefix+token)
		if len(sess.Grants) == 0 {
			result = domainauth.Session{}
			return nil
		}
		sess.Token = newToken()
		result = sess
		return s.save(ctx, pipe, sess)
	})
	if err != nil {
		return domainauth.Session{}, err
	}
	return result, nil
}

func (s *SessionStore) DropAll(ctx context.Context, token string) error {
	if token == "" {
		return ports.ErrInvalidToken
	}
	deleted, err := s.client.Del(ctx, s.prefix+token).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if deleted == 0 {
		return ports.ErrInvalidToken
	}
	return nil
}

// withSessionTx runs fn inside a WATCH transaction on the session's key,
// retrying on concurrent modification. fn receives the current session and
// queues its writes on the transactional pipeline.
func (s *SessionStore) withSessionTx(ctx context.Context, token string, fn func(redis.Pipeliner, domainauth.Session) error) error {
	if token == "" {
		return ports.ErrInvalidToken
	}
	key := s.prefix + token

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ports.ErrInvalidToken
			}
			return fmt.Errorf("redis get: %w", err)
		}
		var sess domainauth.Session
		if unmarshalErr := json.Unmarshal([]byte(data), &sess); unmarshalErr != nil {
			return ports.ErrInvalidToken
		}

		_, pipeErr := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return fn(pipe, sess)
		})
		return pipeErr
	}

	var err error
	for range maxTxRetries {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("session transaction conflicted: %w", err)
}

// save queues a SET of the marshalled session. cmd may be the client itself
// or a transactional pipeline.
func (s *SessionStore) save(ctx context.Context, cmd redis.Cmdable, sess domainauth.Session) error {
	if sess.Token == "" {
		return errors.New("session token cannot be empty")
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return cmd.Set(ctx, s.prefix+sess.Token, data, s.ttl).Err()
}

// newToken creates a cryptographically secure random session token.
// UUIDs are URL-safe and carry sufficient entropy for an unguessable,
// opaque identifier.
func newToken() string {
	return uuid.NewString()
}
