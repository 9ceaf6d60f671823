// Package models defines session state structures for LinkedinChat conversations.
package models

import "time"

// Phase is the session's position in the linear conversation state machine.
type Phase string

const (
	// PhaseIdle is the default phase: commands are parsed and free text starts a generation.
	PhaseIdle Phase = "idle"
	// PhaseAwaitingEdit captures the next text message as a full draft replacement.
	PhaseAwaitingEdit Phase = "awaiting_edit"
	// PhaseAwaitingRegenPrompt captures the next text message as regeneration considerations.
	PhaseAwaitingRegenPrompt Phase = "awaiting_regeneration_prompt"
)

// IsValidPhase checks if the given phase is one of the defined values.
func IsValidPhase(p Phase) bool {
	switch p {
	case PhaseIdle, PhaseAwaitingEdit, PhaseAwaitingRegenPrompt:
		return true
	default:
		return false
	}
}

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser marks a turn supplied by the user.
	RoleUser Role = "user"
	// RoleAssistant marks a turn produced by the content generator.
	RoleAssistant Role = "assistant"
)

// Turn is a single entry in a session's conversation history.
// Insertion order is significant: the history forms the generation context.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Authorization holds a user's LinkedIn posting credentials.
type Authorization struct {
	AccessToken    string    `json:"access_token"`
	ExpiresAt      time.Time `json:"expires_at"`
	ExternalUserID string    `json:"external_user_id"` // OIDC "sub" claim
}

// Expired reports whether the authorization is past its expiry at the given time.
func (a Authorization) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// Session is the per-identity conversation state.
type Session struct {
	Identity      string         `json:"identity"`
	Phase         Phase          `json:"phase"`
	History       []Turn         `json:"history,omitempty"`
	PendingDraft  string         `json:"pending_draft,omitempty"` // empty means no draft awaiting approval
	Authorization *Authorization `json:"authorization,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NewSession creates a default session for the given identity.
func NewSession(identity string) Session {
	now := time.Now()
	return Session{
		Identity:  identity,
		Phase:     PhaseIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasPendingDraft reports whether a draft is awaiting approval.
func (s Session) HasPendingDraft() bool {
	return s.PendingDraft != ""
}

// LastTurnIsAssistant reports whether the most recent history entry was generated.
func (s Session) LastTurnIsAssistant() bool {
	return len(s.History) > 0 && s.History[len(s.History)-1].Role == RoleAssistant
}

// Handshake is a single-use mapping from an OAuth state token back to the
// identity that initiated the authorization flow.
type Handshake struct {
	StateToken string    `json:"state_token"`
	Identity   string    `json:"identity"`
	CreatedAt  time.Time `json:"created_at"`
}
