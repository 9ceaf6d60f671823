package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/soggo/LinkedinChat/internal/models"
)

// TwilioMaxChoiceOptions bounds the numbered text menu used in place of
// reply buttons, which the Twilio SDK does not support.
const TwilioMaxChoiceOptions = 10

// twilioMessageCreator is the slice of the Twilio REST client we use.
// Narrowed for mocking in tests.
type twilioMessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioOpts holds configuration options for the Twilio WhatsApp service.
type TwilioOpts struct {
	AccountSID string
	AuthToken  string
	FromWhats  string
}

// TwilioOption defines a configuration option for the Twilio service.
type TwilioOption func(*TwilioOpts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) TwilioOption {
	return func(o *TwilioOpts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) TwilioOption {
	return func(o *TwilioOpts) { o.AuthToken = token }
}

// WithFromWhats sets the sending WhatsApp number in "whatsapp:+1234567890" format.
func WithFromWhats(from string) TwilioOption {
	return func(o *TwilioOpts) { o.FromWhats = from }
}

// TwilioService sends messages through the Twilio WhatsApp API.
type TwilioService struct {
	api       twilioMessageCreator
	fromWhats string
}

// NewTwilioService creates a Twilio-backed service. Credentials fall back to
// the TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, and TWILIO_FROM_NUMBER
// environment variables when not provided via options.
func NewTwilioService(opts ...TwilioOption) (*TwilioService, error) {
	var cfg TwilioOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromWhats == "" {
		cfg.FromWhats = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("Twilio client config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromWhats_set", cfg.FromWhats != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromWhats == "" {
		return nil, fmt.Errorf("fromWhats number must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioService{api: client.Api, fromWhats: cfg.FromWhats}, nil
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a WhatsApp
// phone number.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhoneNumber(recipient)
}

// MaxChoiceOptions is the text menu limit.
func (s *TwilioService) MaxChoiceOptions() int {
	return TwilioMaxChoiceOptions
}

// SendText sends a WhatsApp message using the Twilio API.
func (s *TwilioService) SendText(ctx context.Context, to string, body string) error {
	to, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService.SendText: recipient validation failed", "error", err, "to", to)
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:+" + to)
	params.SetFrom(s.fromWhats)
	params.SetBody(body)

	if _, err := s.api.CreateMessage(params); err != nil {
		slog.Error("TwilioService.SendText failed", "to", to, "error", err)
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}

	slog.Debug("TwilioService message sent", "to", to)
	return nil
}

// SendChoice renders options as a numbered text menu, since the Twilio SDK
// does not support WhatsApp reply buttons. The user replies with the option
// word; the webhook layer maps it back to a button click.
func (s *TwilioService) SendChoice(ctx context.Context, to string, prompt string, options []models.ChoiceOption) error {
	if len(options) == 0 {
		return fmt.Errorf("choice options cannot be empty")
	}
	if len(options) > TwilioMaxChoiceOptions {
		return fmt.Errorf("%w: %d > %d", ErrTooManyOptions, len(options), TwilioMaxChoiceOptions)
	}
	return s.SendText(ctx, to, RenderChoiceMenu(prompt, options))
}

// RenderChoiceMenu formats a choice prompt as a numbered text menu.
func RenderChoiceMenu(prompt string, options []models.ChoiceOption) string {
	var sb strings.Builder
	sb.WriteString(prompt)
	sb.WriteString("\n")
	for i, opt := range options {
		fmt.Fprintf(&sb, "\n%d. %s (reply '%s')", i+1, opt.Label, opt.ID)
	}
	return sb.String()
}
