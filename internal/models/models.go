// Package models defines the core data structures for LinkedinChat.
//
// It includes conversation sessions, inbound events, and the JSON envelope
// shared by the HTTP handlers.
package models

import (
	"errors"
)

// ButtonID identifies an interactive reply button presented to the user.
type ButtonID string

const (
	// ButtonApprove approves the pending draft and publishes it.
	ButtonApprove ButtonID = "approve"
	// ButtonRegenerate discards the last generated draft and asks for new considerations.
	ButtonRegenerate ButtonID = "regenerate"
	// ButtonEdit asks the user for a full replacement of the pending draft.
	ButtonEdit ButtonID = "edit"
	// ButtonCancel abandons the pending draft.
	ButtonCancel ButtonID = "cancel"
)

// IsValidButtonID checks if the given button identifier is one we present.
func IsValidButtonID(id ButtonID) bool {
	switch id {
	case ButtonApprove, ButtonRegenerate, ButtonEdit, ButtonCancel:
		return true
	default:
		return false
	}
}

// Event is an inbound conversational event for a single identity.
// It is either a TextMessage or a ButtonClick.
type Event interface {
	isEvent()
}

// TextMessage is a plain text message typed by the user.
type TextMessage struct {
	Body string
}

func (TextMessage) isEvent() {}

// ButtonClick is a tap on an interactive reply button.
type ButtonClick struct {
	Button ButtonID
}

func (ButtonClick) isEvent() {}

// ChoiceOption is a single selectable option offered to the user.
type ChoiceOption struct {
	ID    ButtonID `json:"id"`
	Label string   `json:"label"`
}

// Validation limits for drafts and choice prompts.
const (
	// MaxDraftLength is LinkedIn's character limit for a post.
	MaxDraftLength = 3000
)

// Error variables for better error handling and testability.
var (
	ErrEmptyIdentity        = errors.New("identity cannot be empty")
	ErrNoPendingDraft       = errors.New("no pending draft")
	ErrEmptyHistory         = errors.New("no conversation history")
	ErrNotAuthorized        = errors.New("linkedin authorization missing")
	ErrAuthorizationExpired = errors.New("linkedin authorization expired")
	ErrHandshakeNotFound    = errors.New("handshake state token not found")
	ErrGeneratorUnavailable = errors.New("content generator not configured")
	ErrPublisherUnavailable = errors.New("publisher not configured")
)

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates a successful operation.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates a failed operation.
	APIStatusError APIStatus = "error"
)

// APIResponse is the JSON envelope returned by HTTP handlers.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
