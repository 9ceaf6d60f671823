// Package genai generates LinkedIn post content using the OpenAI API.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/soggo/LinkedinChat/internal/models"
)

// systemPrompt frames every generation request.
const systemPrompt = `You are a professional LinkedIn content creator that crafts engaging, professional posts for professionals.

Your task is to:
- Transform the user's input into a polished, engaging LinkedIn post
- Create content that sounds authentic and professional
- Include relevant hashtags that will maximize post visibility
- Format the post appropriately for LinkedIn (proper paragraph breaks, emojis where appropriate)
- Keep the tone professional but conversational
- Generate posts that encourage engagement (likes, comments, shares)
- Adapt to the user's industry and preferences
- IMPORTANT: Post like an actual human, no such things in actual post such as "Here's your LinkedIn post:"
- IMPORTANT: no use of emoji unless specifically requested or highly appropriate for the context. Prioritize professionalism.

Each post should be under 3,000 characters (LinkedIn's limit) and optimized for engagement.`

// DefaultModel is used when no model is configured.
const DefaultModel = openai.ChatModelGPT4o

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL overrides the API base URL (for proxies or compatible servers).
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// Client wraps the OpenAI chat completion API for post generation.
type Client struct {
	client openai.Client
	model  openai.ChatModel
}

// NewClient initializes a GenAI client. The API key falls back to the
// OPENAI_API_KEY environment variable when not provided via options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	slog.Debug("genai.NewClient: client configured", "model", cfg.Model, "base_url_set", cfg.BaseURL != "")

	return &Client{client: openai.NewClient(reqOpts...), model: openai.ChatModel(cfg.Model)}, nil
}

// Complete generates post content from the full conversation history.
func (c *Client) Complete(ctx context.Context, history []models.Turn) (string, error) {
	if len(history) == 0 {
		return "", models.ErrEmptyHistory
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	msgs = append(msgs, openai.SystemMessage(systemPrompt))
	for _, turn := range history {
		switch turn.Role {
		case models.RoleAssistant:
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(turn.Content))
		default:
			msgs = append(msgs, openai.UserMessage(turn.Content))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               c.model,
		Messages:            msgs,
		MaxCompletionTokens: openai.Int(1024),
		Temperature:         openai.Float(0.7),
	})
	if err != nil {
		slog.Error("genai.Complete: chat completion failed", "error", err)
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
