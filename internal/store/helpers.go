package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/soggo/LinkedinChat/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// marshalSessionColumns serializes the history and authorization fields for storage.
func marshalSessionColumns(s models.Session) (historyJSON, authJSON string, err error) {
	if len(s.History) > 0 {
		b, err := json.Marshal(s.History)
		if err != nil {
			return "", "", fmt.Errorf("marshal session history: %w", err)
		}
		historyJSON = string(b)
	}
	if s.Authorization != nil {
		b, err := json.Marshal(s.Authorization)
		if err != nil {
			return "", "", fmt.Errorf("marshal session authorization: %w", err)
		}
		authJSON = string(b)
	}
	return historyJSON, authJSON, nil
}

// scanSessionRow scans a session from a single sql.Row.
func scanSessionRow(row *sql.Row) (*models.Session, error) {
	var s models.Session
	var phase string
	var historyJSON, pendingDraft, authJSON sql.NullString
	err := row.Scan(&s.Identity, &phase, &historyJSON, &pendingDraft, &authJSON, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session failed: %w", err)
	}
	s.Phase = models.Phase(phase)
	s.PendingDraft = pendingDraft.String
	if historyJSON.Valid && historyJSON.String != "" {
		if err := json.Unmarshal([]byte(historyJSON.String), &s.History); err != nil {
			return nil, fmt.Errorf("unmarshal session history: %w", err)
		}
	}
	if authJSON.Valid && authJSON.String != "" {
		var auth models.Authorization
		if err := json.Unmarshal([]byte(authJSON.String), &auth); err != nil {
			return nil, fmt.Errorf("unmarshal session authorization: %w", err)
		}
		s.Authorization = &auth
	}
	return &s, nil
}
