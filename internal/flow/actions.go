package flow

import "github.com/soggo/LinkedinChat/internal/models"

// Action is an outbound effect emitted by a decision. Actions are executed
// in order by the dispatcher; the decision step itself performs no I/O.
type Action interface {
	isAction()
}

// NotifyText sends a plain text message to the session's identity.
type NotifyText struct {
	Body string
}

func (NotifyText) isAction() {}

// NotifyChoice presents an ordered set of reply options. The dispatcher splits
// the options across messages when they exceed the channel's per-message limit.
type NotifyChoice struct {
	Prompt  string
	Options []models.ChoiceOption
}

func (NotifyChoice) isAction() {}

// GeneratePost invokes the content generator with the session's history.
// The dispatcher folds the result back via ApplyGeneration or GenerationFailed.
type GeneratePost struct{}

func (GeneratePost) isAction() {}

// PublishDraft publishes the given content to LinkedIn. The dispatcher folds
// the result back via ApplyPublishSuccess or PublishFailed.
type PublishDraft struct {
	Content string
}

func (PublishDraft) isAction() {}

// IssueAuthLink creates a fresh OAuth handshake and sends the authorization
// URL to the user.
type IssueAuthLink struct{}

func (IssueAuthLink) isAction() {}

// ReviewChoices are the options offered after a draft is generated.
func ReviewChoices() []models.ChoiceOption {
	return []models.ChoiceOption{
		{ID: models.ButtonApprove, Label: "✅ Approve & Post"},
		{ID: models.ButtonRegenerate, Label: "🔄 Regenerate"},
		{ID: models.ButtonEdit, Label: "✏️ Edit"},
		{ID: models.ButtonCancel, Label: "❌ Cancel"},
	}
}

// EditReviewChoices are the options offered after the user submits an edit.
func EditReviewChoices() []models.ChoiceOption {
	return []models.ChoiceOption{
		{ID: models.ButtonApprove, Label: "✅ Approve & Post"},
		{ID: models.ButtonCancel, Label: "❌ Cancel"},
	}
}
