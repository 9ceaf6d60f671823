package messaging

import (
	"context"
	"sync"

	"github.com/soggo/LinkedinChat/internal/models"
)

// MockService records outbound messages for tests. Safe for concurrent use:
// webhook dispatch runs handlers on separate goroutines.
type MockService struct {
	mu          sync.Mutex
	SentTexts   []SentText
	SentChoices []SentChoice
	MaxOptions  int
	TextErr     error
	ChoiceErr   error
}

// SentText is a recorded SendText call.
type SentText struct {
	To   string
	Body string
}

// SentChoice is a recorded SendChoice call.
type SentChoice struct {
	To      string
	Prompt  string
	Options []models.ChoiceOption
}

// NewMockService creates a mock with the Cloud API option limit.
func NewMockService() *MockService {
	return &MockService{MaxOptions: CloudMaxReplyButtons}
}

// ValidateAndCanonicalizeRecipient applies the shared phone canonicalization.
func (m *MockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhoneNumber(recipient)
}

// MaxChoiceOptions returns the configured limit.
func (m *MockService) MaxChoiceOptions() int {
	return m.MaxOptions
}

// SendText records the message.
func (m *MockService) SendText(ctx context.Context, to string, body string) error {
	if m.TextErr != nil {
		return m.TextErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentTexts = append(m.SentTexts, SentText{To: to, Body: body})
	return nil
}

// SendChoice records the choice message.
func (m *MockService) SendChoice(ctx context.Context, to string, prompt string, options []models.ChoiceOption) error {
	if m.ChoiceErr != nil {
		return m.ChoiceErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	opts := append([]models.ChoiceOption(nil), options...)
	m.SentChoices = append(m.SentChoices, SentChoice{To: to, Prompt: prompt, Options: opts})
	return nil
}

// Texts returns a copy of the recorded texts.
func (m *MockService) Texts() []SentText {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentText(nil), m.SentTexts...)
}

// Choices returns a copy of the recorded choice messages.
func (m *MockService) Choices() []SentChoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentChoice(nil), m.SentChoices...)
}
