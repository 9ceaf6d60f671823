package genai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/soggo/LinkedinChat/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(WithAPIKey("test-key"), WithBaseURL(srv.URL), WithModel("gpt-4o"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func completionResponse(content string) string {
	return `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"model": "gpt-4o",
		"choices": [{"index": 0, "finish_reason": "stop",
			"message": {"role": "assistant", "content": ` + mustJSON(content) + `}}]
	}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(); err == nil {
		t.Error("expected error without API key")
	}
}

func TestCompleteSendsHistoryWithSystemPrompt(t *testing.T) {
	var gotBody map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionResponse("A polished post.")))
	})

	history := []models.Turn{
		{Role: models.RoleUser, Content: "write about Go"},
		{Role: models.RoleAssistant, Content: "previous draft"},
		{Role: models.RoleUser, Content: "shorter please"},
	}
	out, err := c.Complete(context.Background(), history)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if out != "A polished post." {
		t.Errorf("unexpected output %q", out)
	}

	msgs, _ := gotBody["messages"].([]interface{})
	if len(msgs) != 4 {
		t.Fatalf("expected system prompt plus 3 turns, got %d messages", len(msgs))
	}
	first, _ := msgs[0].(map[string]interface{})
	if first["role"] != "system" {
		t.Errorf("first message must be the system prompt, got role %v", first["role"])
	}
	second, _ := msgs[1].(map[string]interface{})
	if second["role"] != "user" || second["content"] != "write about Go" {
		t.Errorf("unexpected second message: %v", second)
	}
	third, _ := msgs[2].(map[string]interface{})
	if third["role"] != "assistant" {
		t.Errorf("assistant turn lost its role: %v", third)
	}
}

func TestCompleteEmptyHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be made for an empty history")
	})
	if _, err := c.Complete(context.Background(), nil); !errors.Is(err, models.ErrEmptyHistory) {
		t.Errorf("expected ErrEmptyHistory, got %v", err)
	}
}

func TestCompleteAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "invalid request"}}`))
	})
	history := []models.Turn{{Role: models.RoleUser, Content: "idea"}}
	if _, err := c.Complete(context.Background(), history); err == nil {
		t.Fatal("expected error for an error response")
	}
}

func TestCompleteNoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "chatcmpl-1", "object": "chat.completion", "choices": []}`))
	})
	history := []models.Turn{{Role: models.RoleUser, Content: "idea"}}
	if _, err := c.Complete(context.Background(), history); err == nil {
		t.Fatal("expected error for a response without choices")
	}
}
