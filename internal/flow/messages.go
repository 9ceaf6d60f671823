package flow

import (
	"fmt"

	"github.com/soggo/LinkedinChat/internal/models"
)

// User-facing message texts. Kept in one place so the decision logic stays
// readable and the wording is easy to review.

const welcomeMessage = `👋 Welcome to the LinkedIn Post Generator!

I'll help you create professional LinkedIn posts. Just send me:
- Your post idea or topic
- Any specific points
- Target audience (optional)

Commands:
- "auth": Connect your LinkedIn account
- "help": Show this message
- "cancel": Cancel current operation

To get started, send "auth" or your post idea!`

const (
	cancelledMessage           = "Operation cancelled. Ready for a new idea!"
	postCancelledMessage       = "Post creation cancelled. Ready for a new idea!"
	generatingMessage          = "🔄 Generating your LinkedIn post... This might take a moment."
	regeneratingMessage        = "🔄 Regenerating your LinkedIn post with new considerations..."
	regeneratePromptMessage    = "🔄 To regenerate, please provide specific changes or type 'simple' for a new take on the last idea."
	noHistoryMessage           = "There's no previous post context to regenerate. Please send an idea first."
	noDraftToEditMessage       = "No pending post found to edit. Send an idea first!"
	noDraftToApproveMessage    = "No pending post found to approve."
	generationFailedMessage    = "Sorry, I encountered an error while generating your post. Please try again."
	generatorMissingMessage    = "Sorry, the post generation service is currently unavailable."
	publisherMissingMessage    = "LinkedIn integration is not configured on the server."
	choicePrompt               = "What would you like to do?"
	choiceContinuationPrompt   = "More options:"
	authorizedMessage          = "✅ Your LinkedIn account has been successfully connected! You can now create and post content."
	authPartialMessage         = "✅ Authentication successful, but couldn't retrieve your LinkedIn User ID. Posting might fail. Please try 'auth' again."
	authExchangeFailedMessage  = "❌ Authentication failed. There was an error exchanging the authorization code for an access token. Please try 'auth' again."
	notAuthorizedMessage       = "You need to authenticate with LinkedIn first. Send 'auth' to begin."
	authorizationExpiredLine   = "Your LinkedIn token has expired. Please send 'auth' to reconnect."
	internalErrorMessage       = "Sorry, something went wrong on our side. Please try again."
)

func authLinkMessage(url string) string {
	return fmt.Sprintf(`🔗 To connect your LinkedIn account, please click this link:
%s

Once you authorize the app, you'll be automatically connected. No need to copy any code!
Just return to WhatsApp when you see the success message.`, url)
}

func draftMessage(draft string) string {
	return fmt.Sprintf("📝 Here's your LinkedIn post (Character count: %d/%d):\n\n%s", len(draft), models.MaxDraftLength, draft)
}

func editedDraftMessage(draft string) string {
	return fmt.Sprintf("📝 EDITED LinkedIn post (Character count: %d/%d):\n\n%s", len(draft), models.MaxDraftLength, draft)
}

func editInstructionsMessage(draft string) string {
	return fmt.Sprintf("Current post:\n\n%s\n\nPlease send your complete edited version of the post:", draft)
}

func publishingMessage(draft string) string {
	return fmt.Sprintf("🚀 Posting to LinkedIn...\n\n'%s...'", excerpt(draft))
}

func publishedMessage(draft string) string {
	return fmt.Sprintf("✅ Your post has been successfully published!\n\n---\n'%s...'", excerpt(draft))
}

func publishFailedMessage(reason, draft string) string {
	return fmt.Sprintf("❌ Direct posting failed.\nReason: %s\n\nYou can copy and paste this to post manually:\n\n%s", reason, draft)
}

// excerpt returns the first 100 characters of a draft for status messages.
func excerpt(draft string) string {
	const max = 100
	runes := []rune(draft)
	if len(runes) <= max {
		return draft
	}
	return string(runes[:max])
}
