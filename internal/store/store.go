// Package store provides storage backends for LinkedinChat sessions and
// OAuth handshakes.
//
// The default backend is in-memory and volatile, matching the reference
// deployment. SQLite and PostgreSQL backends implement the same interface so
// a durable store can be swapped in without touching the transition logic.
package store

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/soggo/LinkedinChat/internal/models"
)

// Store abstracts session and handshake persistence.
//
// Implementations must be safe for concurrent use from multiple inbound
// events. Ordering guarantees for events on the same identity are provided
// by the dispatcher, not the store.
type Store interface {
	// GetSession retrieves the session for an identity, or nil if absent.
	GetSession(identity string) (*models.Session, error)

	// SaveSession creates or replaces the session for its identity.
	SaveSession(s models.Session) error

	// DeleteSession removes the session for an identity. Idempotent.
	DeleteSession(identity string) error

	// SaveHandshake records a single-use OAuth handshake.
	SaveHandshake(h models.Handshake) error

	// ConsumeHandshake removes and returns the handshake for a state token,
	// atomically with the lookup. Returns nil if the token is unknown or
	// already consumed.
	ConsumeHandshake(stateToken string) (*models.Handshake, error)

	// Close releases any underlying resources.
	Close() error
}

// Opts holds configuration for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN sets a SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets a PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres", "sqlite", or "" (no DSN).
func DetectDSNType(dsn string) string {
	if dsn == "" {
		return ""
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// InMemoryStore keeps sessions and handshakes in process memory.
// Entries persist for the process lifetime; there is no eviction.
type InMemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string]models.Session
	handshakes map[string]models.Handshake
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	slog.Debug("InMemoryStore created")
	return &InMemoryStore{
		sessions:   make(map[string]models.Session),
		handshakes: make(map[string]models.Handshake),
	}
}

// GetSession retrieves the session for an identity, or nil if absent.
func (s *InMemoryStore) GetSession(identity string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[identity]
	if !ok {
		return nil, nil
	}
	// Return a copy so callers cannot mutate stored state in place.
	sess.History = append([]models.Turn(nil), sess.History...)
	if sess.Authorization != nil {
		auth := *sess.Authorization
		sess.Authorization = &auth
	}
	return &sess, nil
}

// SaveSession creates or replaces the session for its identity.
func (s *InMemoryStore) SaveSession(sess models.Session) error {
	if sess.Identity == "" {
		return models.ErrEmptyIdentity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.History = append([]models.Turn(nil), sess.History...)
	s.sessions[sess.Identity] = sess
	return nil
}

// DeleteSession removes the session for an identity.
func (s *InMemoryStore) DeleteSession(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, identity)
	return nil
}

// SaveHandshake records a single-use OAuth handshake.
func (s *InMemoryStore) SaveHandshake(h models.Handshake) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handshakes[h.StateToken] = h
	return nil
}

// ConsumeHandshake removes and returns the handshake for a state token.
func (s *InMemoryStore) ConsumeHandshake(stateToken string) (*models.Handshake, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handshakes[stateToken]
	if !ok {
		return nil, nil
	}
	delete(s.handshakes, stateToken)
	return &h, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
