package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/soggo/LinkedinChat/internal/models"
)

// Cloud API limits and defaults.
const (
	// DefaultGraphBaseURL is the Meta Graph API root.
	DefaultGraphBaseURL = "https://graph.facebook.com/v22.0"
	// CloudMaxReplyButtons is the Cloud API limit on reply buttons per message.
	CloudMaxReplyButtons = 3
)

// CloudOpts holds configuration options for the WhatsApp Cloud API service.
type CloudOpts struct {
	PhoneNumberID string
	AccessToken   string
	BaseURL       string
	HTTPClient    *http.Client
}

// CloudOption defines a configuration option for the Cloud API service.
type CloudOption func(*CloudOpts)

// WithPhoneNumberID sets the WhatsApp Business phone number ID.
func WithPhoneNumberID(id string) CloudOption {
	return func(o *CloudOpts) { o.PhoneNumberID = id }
}

// WithAccessToken sets the Graph API access token.
func WithAccessToken(token string) CloudOption {
	return func(o *CloudOpts) { o.AccessToken = token }
}

// WithGraphBaseURL overrides the Graph API root. Used by tests.
func WithGraphBaseURL(url string) CloudOption {
	return func(o *CloudOpts) { o.BaseURL = url }
}

// WithCloudHTTPClient injects an HTTP client. Used by tests.
func WithCloudHTTPClient(c *http.Client) CloudOption {
	return func(o *CloudOpts) { o.HTTPClient = c }
}

// CloudService sends messages through the WhatsApp Cloud API.
type CloudService struct {
	phoneNumberID string
	accessToken   string
	baseURL       string
	http          *http.Client
}

// NewCloudService creates a WhatsApp Cloud API service.
func NewCloudService(opts ...CloudOption) (*CloudService, error) {
	var cfg CloudOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.PhoneNumberID == "" || cfg.AccessToken == "" {
		return nil, fmt.Errorf("whatsapp phone number ID and access token must be provided")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGraphBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	slog.Debug("CloudService configured", "phone_number_id_set", cfg.PhoneNumberID != "")

	return &CloudService{
		phoneNumberID: cfg.PhoneNumberID,
		accessToken:   cfg.AccessToken,
		baseURL:       cfg.BaseURL,
		http:          cfg.HTTPClient,
	}, nil
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a WhatsApp
// phone number.
func (s *CloudService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhoneNumber(recipient)
}

// MaxChoiceOptions is the Cloud API reply button limit.
func (s *CloudService) MaxChoiceOptions() int {
	return CloudMaxReplyButtons
}

// SendText sends a plain text message.
func (s *CloudService) SendText(ctx context.Context, to string, body string) error {
	to, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("CloudService.SendText: recipient validation failed", "error", err, "to", to)
		return err
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	}
	return s.post(ctx, payload)
}

// SendChoice sends an interactive reply-button message. The option count
// must not exceed MaxChoiceOptions; the dispatcher splits larger sets.
func (s *CloudService) SendChoice(ctx context.Context, to string, prompt string, options []models.ChoiceOption) error {
	to, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("CloudService.SendChoice: recipient validation failed", "error", err, "to", to)
		return err
	}
	if len(options) == 0 {
		return fmt.Errorf("choice options cannot be empty")
	}
	if len(options) > CloudMaxReplyButtons {
		return fmt.Errorf("%w: %d > %d", ErrTooManyOptions, len(options), CloudMaxReplyButtons)
	}

	buttons := make([]map[string]interface{}, 0, len(options))
	for _, opt := range options {
		buttons = append(buttons, map[string]interface{}{
			"type": "reply",
			"reply": map[string]string{
				"id":    string(opt.ID),
				"title": opt.Label,
			},
		})
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]interface{}{
			"type":   "button",
			"body":   map[string]string{"text": prompt},
			"action": map[string]interface{}{"buttons": buttons},
		},
	}
	return s.post(ctx, payload)
}

func (s *CloudService) post(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.baseURL, s.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.accessToken)

	resp, err := s.http.Do(req)
	if err != nil {
		slog.Error("CloudService.post: request failed", "error", err)
		return fmt.Errorf("whatsapp request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Error("CloudService.post: unexpected status", "status", resp.StatusCode, "body", string(respBody))
		return fmt.Errorf("whatsapp returned status %d: %s", resp.StatusCode, respBody)
	}

	slog.Debug("CloudService.post: message delivered to API")
	return nil
}
