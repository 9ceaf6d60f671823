// Package auth manages single-use OAuth handshake records.
//
// A handshake maps the opaque state token embedded in an authorization URL
// back to the identity that requested it. Tokens are consumed exactly once;
// a second consume for the same token is rejected as a replay.
package auth

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/soggo/LinkedinChat/internal/models"
	"github.com/soggo/LinkedinChat/internal/store"
)

// Manager issues and consumes handshake records against a Store.
type Manager struct {
	store store.Store
}

// NewManager creates a handshake manager backed by the given store.
func NewManager(st store.Store) *Manager {
	return &Manager{store: st}
}

// Issue generates an unpredictable state token for an identity and records
// the mapping. UUIDv4 tokens are drawn from crypto/rand.
func (m *Manager) Issue(identity string) (string, error) {
	if identity == "" {
		return "", models.ErrEmptyIdentity
	}
	token := uuid.NewString()
	h := models.Handshake{
		StateToken: token,
		Identity:   identity,
		CreatedAt:  time.Now(),
	}
	if err := m.store.SaveHandshake(h); err != nil {
		slog.Error("Manager.Issue: failed to save handshake", "error", err, "identity", identity)
		return "", fmt.Errorf("issue handshake: %w", err)
	}
	slog.Debug("Manager.Issue: handshake issued", "identity", identity)
	return token, nil
}

// Consume resolves a state token to the identity that initiated the flow and
// removes the record. An unknown or already-consumed token returns
// models.ErrHandshakeNotFound.
func (m *Manager) Consume(stateToken string) (string, error) {
	h, err := m.store.ConsumeHandshake(stateToken)
	if err != nil {
		slog.Error("Manager.Consume: store error", "error", err)
		return "", fmt.Errorf("consume handshake: %w", err)
	}
	if h == nil {
		slog.Warn("Manager.Consume: unknown or replayed state token")
		return "", models.ErrHandshakeNotFound
	}
	slog.Debug("Manager.Consume: handshake consumed", "identity", h.Identity)
	return h.Identity, nil
}
