// Package store provides storage backends for LinkedinChat.
//
// This file implements a SQLite-backed store for sessions and handshakes.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/soggo/LinkedinChat/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists sessions and handshakes in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("SQLiteStore failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("SQLiteStore failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLiteStore ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("SQLiteStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore migrations applied", "path", dsn)

	return &SQLiteStore{db: db}, nil
}

// GetSession retrieves the session for an identity, or nil if absent.
func (s *SQLiteStore) GetSession(identity string) (*models.Session, error) {
	row := s.db.QueryRow(`SELECT identity, phase, history, pending_draft, authorization_data, created_at, updated_at FROM sessions WHERE identity = ?`, identity)
	return scanSessionRow(row)
}

// SaveSession creates or replaces the session for its identity.
func (s *SQLiteStore) SaveSession(sess models.Session) error {
	if sess.Identity == "" {
		return models.ErrEmptyIdentity
	}
	historyJSON, authJSON, err := marshalSessionColumns(sess)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO sessions (identity, phase, history, pending_draft, authorization_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			phase = excluded.phase,
			history = excluded.history,
			pending_draft = excluded.pending_draft,
			authorization_data = excluded.authorization_data,
			updated_at = excluded.updated_at`,
		sess.Identity, string(sess.Phase), nilIfEmpty(historyJSON), nilIfEmpty(sess.PendingDraft), nilIfEmpty(authJSON), sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save session failed: %w", err)
	}
	return nil
}

// DeleteSession removes the session for an identity.
func (s *SQLiteStore) DeleteSession(identity string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE identity = ?`, identity); err != nil {
		return fmt.Errorf("delete session failed: %w", err)
	}
	return nil
}

// SaveHandshake records a single-use OAuth handshake.
func (s *SQLiteStore) SaveHandshake(h models.Handshake) error {
	_, err := s.db.Exec(`INSERT INTO handshakes (state_token, identity, created_at) VALUES (?, ?, ?)`,
		h.StateToken, h.Identity, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("save handshake failed: %w", err)
	}
	return nil
}

// ConsumeHandshake removes and returns the handshake for a state token.
// The lookup and delete run in a single transaction so the token is
// single-use even under concurrent redirects.
func (s *SQLiteStore) ConsumeHandshake(stateToken string) (*models.Handshake, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("consume handshake begin failed: %w", err)
	}
	defer tx.Rollback()

	var h models.Handshake
	err = tx.QueryRow(`SELECT state_token, identity, created_at FROM handshakes WHERE state_token = ?`, stateToken).
		Scan(&h.StateToken, &h.Identity, &h.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("consume handshake lookup failed: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM handshakes WHERE state_token = ?`, stateToken); err != nil {
		return nil, fmt.Errorf("consume handshake delete failed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("consume handshake commit failed: %w", err)
	}
	return &h, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
