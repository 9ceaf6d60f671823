// Package messaging provides the outbound notifier abstraction and its
// WhatsApp Cloud API and Twilio backends.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/soggo/LinkedinChat/internal/models"
)

// ErrTooManyOptions is returned when a single SendChoice call carries more
// options than the channel allows. The dispatcher splits larger sets before
// calling.
var ErrTooManyOptions = errors.New("too many choice options for one message")

// Service defines a pluggable message delivery abstraction.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient
	// identifier. Returns the canonicalized recipient and an error if
	// validation fails.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendText sends a plain text message to a recipient.
	SendText(ctx context.Context, to string, body string) error

	// SendChoice presents up to MaxChoiceOptions selectable options.
	SendChoice(ctx context.Context, to string, prompt string, options []models.ChoiceOption) error

	// MaxChoiceOptions is the channel's per-message option limit.
	MaxChoiceOptions() int
}

// phoneNumberRegex strips everything but digits from a recipient.
var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// canonicalizePhoneNumber removes all non-numeric characters and validates
// the result has at least 6 digits.
func canonicalizePhoneNumber(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}

	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < 6 {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum 6 digits required)", canonical)
	}

	if canonical != recipient {
		slog.Debug("messaging canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}
