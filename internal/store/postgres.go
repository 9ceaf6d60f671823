// Package store provides storage backends for LinkedinChat.
//
// This file implements a PostgreSQL-backed store for sessions and handshakes.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/soggo/LinkedinChat/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool.
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused.
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists sessions and handshakes in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("PostgresStore failed to open connection", "error", err)
		return nil, err
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("PostgresStore ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("PostgresStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore migrations applied")

	return &PostgresStore{db: db}, nil
}

// GetSession retrieves the session for an identity, or nil if absent.
func (s *PostgresStore) GetSession(identity string) (*models.Session, error) {
	row := s.db.QueryRow(`SELECT identity, phase, history, pending_draft, authorization_data, created_at, updated_at FROM sessions WHERE identity = $1`, identity)
	return scanSessionRow(row)
}

// SaveSession creates or replaces the session for its identity.
func (s *PostgresStore) SaveSession(sess models.Session) error {
	if sess.Identity == "" {
		return models.ErrEmptyIdentity
	}
	historyJSON, authJSON, err := marshalSessionColumns(sess)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO sessions (identity, phase, history, pending_draft, authorization_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (identity) DO UPDATE SET
			phase = EXCLUDED.phase,
			history = EXCLUDED.history,
			pending_draft = EXCLUDED.pending_draft,
			authorization_data = EXCLUDED.authorization_data,
			updated_at = EXCLUDED.updated_at`,
		sess.Identity, string(sess.Phase), nilIfEmpty(historyJSON), nilIfEmpty(sess.PendingDraft), nilIfEmpty(authJSON), sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save session failed: %w", err)
	}
	return nil
}

// DeleteSession removes the session for an identity.
func (s *PostgresStore) DeleteSession(identity string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE identity = $1`, identity); err != nil {
		return fmt.Errorf("delete session failed: %w", err)
	}
	return nil
}

// SaveHandshake records a single-use OAuth handshake.
func (s *PostgresStore) SaveHandshake(h models.Handshake) error {
	_, err := s.db.Exec(`INSERT INTO handshakes (state_token, identity, created_at) VALUES ($1, $2, $3)`,
		h.StateToken, h.Identity, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("save handshake failed: %w", err)
	}
	return nil
}

// ConsumeHandshake removes and returns the handshake for a state token.
// DELETE ... RETURNING makes the lookup and removal a single atomic statement.
func (s *PostgresStore) ConsumeHandshake(stateToken string) (*models.Handshake, error) {
	var h models.Handshake
	err := s.db.QueryRow(`DELETE FROM handshakes WHERE state_token = $1 RETURNING state_token, identity, created_at`, stateToken).
		Scan(&h.StateToken, &h.Identity, &h.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("consume handshake failed: %w", err)
	}
	return &h, nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
