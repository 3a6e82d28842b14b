package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen; the
// in-memory implementations honor the same invariants as the production
// adapters (atomic duplicate-secret check, token rotation, monotonic ids).

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/planfest/planfest/internal/domain/auth"
	"github.com/planfest/planfest/internal/domain/model"
	"github.com/planfest/planfest/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.SessionStore      = (*MemorySessionStore)(nil)
	_ ports.PassphraseCatalog = (*MemoryCatalog)(nil)
	_ ports.EventStore        = (*MemoryEventStore)(nil)
)

// MemorySessionStore is an in-memory ports.SessionStore. Mutations on one
// token are serialized by a single mutex; sufficient for tests and dev.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainauth.Session)}
}

func (m *MemorySessionStore) Get(_ context.Context, token string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[token]
	if token == "" || !ok {
		return domainauth.Session{}, ports.ErrInvalidToken
	}
	return cloneSession(sess), nil
}

func (m *MemorySessionStore) AddGrant(_ context.Context, token string, g domainauth.Grant) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if token == "" {
		sess := domainauth.Session{Token: uuid.NewString()}
		sess.AddGrant(g)
		m.sessions[sess.Token] = sess
		return cloneSession(sess), nil
	}

	sess, ok := m.sessions[token]
	if !ok {
		return domainauth.Session{}, ports.ErrInvalidToken
	}
	sess = cloneSession(sess)
	sess.AddGrant(g)
	m.sessions[token] = sess
	return cloneSession(sess), nil
}

func (m *MemorySessionStore) RemoveGrant(_ context.Context, token string, g domainauth.Grant) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[token]
	if token == "" || !ok {
		return domainauth.Session{}, ports.ErrInvalidToken
	}
	sess = cloneSession(sess)
	if !sess.RemoveGrant(g) {
		return domainauth.Session{}, ports.ErrGrantNotHeld
	}

	delete(m.sessions, token)
	if len(sess.Grants) == 0 {
		return domainauth.Session{}, nil
	}
	sess.Token = uuid.NewString()
	m.sessions[sess.Token] = sess
	return cloneSession(sess), nil
}

func (m *MemorySessionStore) DropAll(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[token]; token == "" || !ok {
		return ports.ErrInvalidToken
	}
	delete(m.sessions, token)
	return nil
}

func cloneSession(sess domainauth.Session) domainauth.Session {
	out := domainauth.Session{Token: sess.Token}
	out.Grants = append([]domainauth.Grant(nil), sess.Grants...)
	return out
}

// MemoryCatalog is an in-memory ports.PassphraseCatalog. Each event gets its
// own bucket and lock, so catalog operations for different events never
// block on each other.
type MemoryCatalog struct {
	// Now is the clock used for the duplicate-secret usability check.
	// Defaults to time.Now; tests may pin it.
	Now func() time.Time

	mu      sync.RWMutex
	buckets map[int64]*catalogBucket
}

type catalogBucket struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]model.Passphrase
}

// NewMemoryCatalog creates an empty in-memory passphrase catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		Now:     time.Now,
		buckets: make(map[int64]*catalogBucket),
	}
}

func (c *MemoryCatalog) bucket(eventID int64) *catalogBucket {
	c.mu.RLock()
	b, ok := c.buckets[eventID]
	c.mu.RUnlock()
	if ok {
		return b
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok = c.buckets[eventID]; !ok {
		b = &catalogBucket{records: make(map[int64]model.Passphrase)}
		c.buckets[eventID] = b
	}
	return b
}

func (c *MemoryCatalog) Add(_ context.Context, req model.CreatePassphraseRequest) (model.Passphrase, error) {
	if err := req.Validate(); err != nil {
		return model.Passphrase{}, err
	}

	b := c.bucket(req.EventID)
	b.mu.Lock()
	defer b.mu.Unlock()

	if req.Secret != nil {
		now := c.Now()
		for _, existing := range b.records {
			if existing.MatchesSecret(*req.Secret) && existing.UsableAt(now) {
				return model.Passphrase{}, ports.ErrDuplicateSecret
			}
		}
	}

	b.nextID++
	p := model.Passphrase{
		ID:                      b.nextID,
		EventID:                 req.EventID,
		Secret:                  cloneStringPtr(req.Secret),
		Role:                    req.Role,
		DerivableFromPassphrase: cloneInt64Ptr(req.DerivableFromPassphrase),
		Comment:                 req.Comment,
		ValidFrom:               cloneTimePtr(req.ValidFrom),
		ValidUntil:              cloneTimePtr(req.ValidUntil),
	}
	b.records[p.ID] = p
	return clonePassphrase(p), nil
}

func (c *MemoryCatalog) List(_ context.Context, eventID int64) ([]model.Passphrase, error) {
	b := c.bucket(eventID)
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]model.Passphrase, 0, len(b.records))
	for _, p := range b.records {
		out = append(out, clonePassphrase(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *MemoryCatalog) Get(_ context.Context, eventID, passphraseID int64) (model.Passphrase, error) {
	b := c.bucket(eventID)
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.records[passphraseID]
	if !ok {
		return model.Passphrase{}, ports.ErrNotFound
	}
	return clonePassphrase(p), nil
}

func (c *MemoryCatalog) Remove(_ context.Context, eventID, passphraseID int64) error {
	b := c.bucket(eventID)
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.records[passphraseID]; !ok {
		return ports.ErrNotFound
	}
	delete(b.records, passphraseID)
	return nil
}

func (c *MemoryCatalog) Invalidate(_ context.Context, eventID, passphraseID int64, now time.Time) error {
	b := c.bucket(eventID)
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.records[passphraseID]
	if !ok {
		return ports.ErrNotFound
	}
	capped := now
	p.ValidUntil = &capped
	b.records[passphraseID] = p
	return nil
}

func clonePassphrase(p model.Passphrase) model.Passphrase {
	p.Secret = cloneStringPtr(p.Secret)
	p.DerivableFromPassphrase = cloneInt64Ptr(p.DerivableFromPassphrase)
	p.ValidFrom = cloneTimePtr(p.ValidFrom)
	p.ValidUntil = cloneTimePtr(p.ValidUntil)
	return p
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt64Ptr(i *int64) *int64 {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// MemoryEventStore is an in-memory ports.EventStore.
type MemoryEventStore struct {
	mu     sync.Mutex
	nextID int64
	events map[int64]model.Event
}

// NewMemoryEventStore creates an empty in-memory event store.
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{events: make(map[int64]model.Event)}
}

func (m *MemoryEventStore) Create(_ context.Context, req model.CreateEventRequest) (model.Event, error) {
	if err := req.Validate(); err != nil {
		return model.Event{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	ev := model.Event{
		ID:        m.nextID,
		Title:     req.Title,
		BeginDate: req.BeginDate,
		EndDate:   req.EndDate,
	}
	m.events[ev.ID] = ev
	return ev, nil
}

func (m *MemoryEventStore) Get(_ context.Context, id int64) (model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev, ok := m.events[id]
	if !ok {
		return model.Event{}, ports.ErrNotFound
	}
	return ev, nil
}

func (m *MemoryEventStore) List(_ context.Context) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Event, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
