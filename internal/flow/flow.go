// Package flow implements the conversation state machine for LinkedinChat.
//
// Decide is a pure function from (session, event) to a new session plus an
// ordered list of outbound actions; it performs no I/O. The dispatcher in
// internal/bot executes the actions and folds collaborator results back
// through the Apply* helpers, which are also pure.
//
// Dispatch is phase-first: a session in a capture phase (awaiting an edit or
// regeneration considerations) treats the next text message as literal
// content, even when it spells a command word like "auth". This keeps the
// conversational flow linear and unambiguous.
package flow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/soggo/LinkedinChat/internal/models"
)

// Decision is the outcome of interpreting one event against a session.
type Decision struct {
	Session models.Session
	Actions []Action
}

// Decide interprets an inbound event against the current session state.
func Decide(s models.Session, ev models.Event) Decision {
	switch e := ev.(type) {
	case models.TextMessage:
		return decideText(s, e.Body)
	case models.ButtonClick:
		return decideButton(s, e.Button)
	default:
		return Decision{Session: s}
	}
}

func decideText(s models.Session, body string) Decision {
	// Capture phases take priority over command parsing.
	if s.Phase == models.PhaseAwaitingEdit && s.HasPendingDraft() {
		s.PendingDraft = body
		s.Phase = models.PhaseIdle
		return Decision{Session: s, Actions: []Action{
			NotifyChoice{Prompt: editedDraftMessage(body), Options: EditReviewChoices()},
		}}
	}
	if s.Phase == models.PhaseAwaitingRegenPrompt {
		s.History = append(s.History, models.Turn{
			Role:    models.RoleUser,
			Content: fmt.Sprintf("Please regenerate based on the previous idea, but with these considerations: %s", body),
		})
		s.Phase = models.PhaseIdle
		return Decision{Session: s, Actions: []Action{
			NotifyText{Body: regeneratingMessage},
			GeneratePost{},
		}}
	}

	switch strings.ToLower(strings.TrimSpace(body)) {
	case "start", "help":
		return Decision{Session: s, Actions: []Action{NotifyText{Body: welcomeMessage}}}
	case "auth":
		return Decision{Session: s, Actions: []Action{IssueAuthLink{}}}
	case "cancel":
		s.PendingDraft = ""
		s.Phase = models.PhaseIdle
		return Decision{Session: s, Actions: []Action{NotifyText{Body: cancelledMessage}}}
	case "regenerate":
		return decideRegenerate(s)
	case "edit":
		return decideEdit(s)
	default:
		s.History = append(s.History, models.Turn{Role: models.RoleUser, Content: body})
		return Decision{Session: s, Actions: []Action{
			NotifyText{Body: generatingMessage},
			GeneratePost{},
		}}
	}
}

func decideButton(s models.Session, id models.ButtonID) Decision {
	switch id {
	case models.ButtonApprove:
		if !s.HasPendingDraft() {
			return Decision{Session: s, Actions: []Action{NotifyText{Body: noDraftToApproveMessage}}}
		}
		return Decision{Session: s, Actions: []Action{
			NotifyText{Body: publishingMessage(s.PendingDraft)},
			PublishDraft{Content: s.PendingDraft},
		}}
	case models.ButtonRegenerate:
		return decideRegenerate(s)
	case models.ButtonEdit:
		return decideEdit(s)
	case models.ButtonCancel:
		s.PendingDraft = ""
		s.Phase = models.PhaseIdle
		return Decision{Session: s, Actions: []Action{NotifyText{Body: postCancelledMessage}}}
	default:
		return Decision{Session: s}
	}
}

func decideRegenerate(s models.Session) Decision {
	if len(s.History) == 0 {
		return Decision{Session: s, Actions: []Action{NotifyText{Body: noHistoryMessage}}}
	}
	if s.LastTurnIsAssistant() {
		s.History = s.History[:len(s.History)-1]
	}
	s.Phase = models.PhaseAwaitingRegenPrompt
	return Decision{Session: s, Actions: []Action{NotifyText{Body: regeneratePromptMessage}}}
}

func decideEdit(s models.Session) Decision {
	if !s.HasPendingDraft() {
		return Decision{Session: s, Actions: []Action{NotifyText{Body: noDraftToEditMessage}}}
	}
	s.Phase = models.PhaseAwaitingEdit
	return Decision{Session: s, Actions: []Action{NotifyText{Body: editInstructionsMessage(s.PendingDraft)}}}
}

// ApplyGeneration folds a successful generation back into the session:
// the output becomes the assistant turn and the pending draft, and the user
// is shown the draft with the review choices.
func ApplyGeneration(s models.Session, output string) (models.Session, []Action) {
	s.History = append(s.History, models.Turn{Role: models.RoleAssistant, Content: output})
	s.PendingDraft = output
	s.Phase = models.PhaseIdle
	return s, []Action{
		NotifyText{Body: draftMessage(output)},
		NotifyChoice{Prompt: choicePrompt, Options: ReviewChoices()},
	}
}

// GenerationFailed produces the apology for a failed generation call.
// The session is left untouched so the user can retry the same command.
func GenerationFailed(err error) []Action {
	if errors.Is(err, models.ErrGeneratorUnavailable) || errors.Is(err, models.ErrEmptyHistory) {
		return []Action{NotifyText{Body: generatorMissingMessage}}
	}
	return []Action{NotifyText{Body: generationFailedMessage}}
}

// ApplyPublishSuccess clears the pending draft after a successful publish.
func ApplyPublishSuccess(s models.Session, content string) (models.Session, []Action) {
	s.PendingDraft = ""
	return s, []Action{NotifyText{Body: publishedMessage(content)}}
}

// PublishFailed keeps the draft and sends it back in full so the user can
// post manually.
func PublishFailed(content string, err error) []Action {
	return []Action{NotifyText{Body: publishFailedMessage(publishFailureReason(err), content)}}
}

func publishFailureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrNotAuthorized):
		return notAuthorizedMessage
	case errors.Is(err, models.ErrAuthorizationExpired):
		return authorizationExpiredLine
	default:
		return err.Error()
	}
}

// AuthLinkNotification carries the authorization URL to the user.
func AuthLinkNotification(url string) Action {
	return NotifyText{Body: authLinkMessage(url)}
}

// PublisherUnconfiguredNotification tells the user LinkedIn is not set up.
func PublisherUnconfiguredNotification() Action {
	return NotifyText{Body: publisherMissingMessage}
}

// AuthorizedNotification confirms a completed LinkedIn connection.
func AuthorizedNotification() Action {
	return NotifyText{Body: authorizedMessage}
}

// AuthPartialNotification reports a token exchange that could not resolve the
// LinkedIn user ID.
func AuthPartialNotification() Action {
	return NotifyText{Body: authPartialMessage}
}

// AuthExchangeFailedNotification reports a failed code-for-token exchange.
func AuthExchangeFailedNotification() Action {
	return NotifyText{Body: authExchangeFailedMessage}
}

// InternalErrorNotification is the generic apology for infrastructure
// failures (e.g. a store write failing while issuing an auth link).
func InternalErrorNotification() Action {
	return NotifyText{Body: internalErrorMessage}
}

// ContinuationPrompt labels follow-up messages when a choice set is split
// across the channel's per-message option limit.
func ContinuationPrompt() string {
	return choiceContinuationPrompt
}
