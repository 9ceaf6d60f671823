package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/soggo/LinkedinChat/internal/auth"
	"github.com/soggo/LinkedinChat/internal/bot"
	"github.com/soggo/LinkedinChat/internal/messaging"
	"github.com/soggo/LinkedinChat/internal/models"
	"github.com/soggo/LinkedinChat/internal/store"
)

type stubGenerator struct{ output string }

func (g *stubGenerator) Complete(ctx context.Context, history []models.Turn) (string, error) {
	return g.output, nil
}

type stubPublisher struct {
	exchangeAuth models.Authorization
	exchangeErr  error
	published    []string
}

func (p *stubPublisher) AuthURL(state string) string {
	return "https://auth.example/authorize?state=" + state
}

func (p *stubPublisher) ExchangeCode(ctx context.Context, code string) (models.Authorization, error) {
	if p.exchangeErr != nil {
		return models.Authorization{}, p.exchangeErr
	}
	return p.exchangeAuth, nil
}

func (p *stubPublisher) Publish(ctx context.Context, auth models.Authorization, content string) error {
	p.published = append(p.published, content)
	return nil
}

type serverFixture struct {
	server   *Server
	store    *store.InMemoryStore
	notifier *messaging.MockService
	pub      *stubPublisher
	manager  *auth.Manager
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	st := store.NewInMemoryStore()
	notifier := messaging.NewMockService()
	pub := &stubPublisher{exchangeAuth: models.Authorization{
		AccessToken:    "tok",
		ExpiresAt:      time.Now().Add(time.Hour),
		ExternalUserID: "abc123",
	}}
	manager := auth.NewManager(st)
	b := bot.New(st, notifier, &stubGenerator{output: "draft"}, pub, manager)
	srv := NewServer(b, WithVerifyToken("verify-secret"))
	return &serverFixture{server: srv, store: st, notifier: notifier, pub: pub, manager: manager}
}

// waitForTexts polls the mock notifier until at least n texts arrived and
// returns them. Webhook dispatch is asynchronous relative to the HTTP
// response.
func waitForTexts(t *testing.T, notifier *messaging.MockService, n int) []messaging.SentText {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if texts := notifier.Texts(); len(texts) >= n {
			return texts
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d texts, got %d", n, len(notifier.Texts()))
	return nil
}

func TestWebhookVerification(t *testing.T) {
	f := newServerFixture(t)
	handler := f.server.Handler()

	cases := []struct {
		name       string
		query      string
		wantStatus int
		wantBody   string
	}{
		{"valid", "hub.mode=subscribe&hub.verify_token=verify-secret&hub.challenge=12345", http.StatusOK, "12345"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", http.StatusForbidden, ""},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=verify-secret&hub.challenge=12345", http.StatusForbidden, ""},
		{"missing params", "hub.challenge=12345", http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/webhook?"+tc.query, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			if tc.wantBody != "" && rec.Body.String() != tc.wantBody {
				t.Errorf("expected body %q, got %q", tc.wantBody, rec.Body.String())
			}
		})
	}
}

func metaTextPayload(from, body string) string {
	return fmt.Sprintf(`{
		"object": "whatsapp_business_account",
		"entry": [{"changes": [{"field": "messages", "value": {
			"contacts": [{"wa_id": %q}],
			"messages": [{"from": %q, "type": "text", "text": {"body": %q}}]
		}}]}]
	}`, from, from, body)
}

func metaButtonPayload(from, buttonID string) string {
	return fmt.Sprintf(`{
		"object": "whatsapp_business_account",
		"entry": [{"changes": [{"field": "messages", "value": {
			"contacts": [{"wa_id": %q}],
			"messages": [{"from": %q, "type": "interactive",
				"interactive": {"type": "button_reply", "button_reply": {"id": %q, "title": "x"}}}]
		}}]}]
	}`, from, from, buttonID)
}

func TestWebhookReceiveTextMessage(t *testing.T) {
	f := newServerFixture(t)
	handler := f.server.Handler()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(metaTextPayload("15551234567", "help")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	texts := waitForTexts(t, f.notifier, 1)
	if !strings.Contains(texts[0].Body, "Welcome to the LinkedIn Post Generator") {
		t.Errorf("expected welcome reply, got %q", texts[0].Body)
	}
}

func TestWebhookReceiveButtonReply(t *testing.T) {
	f := newServerFixture(t)
	seed := models.NewSession("15551234567")
	seed.PendingDraft = "a draft"
	if err := f.store.SaveSession(seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	handler := f.server.Handler()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(metaButtonPayload("15551234567", "cancel")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	texts := waitForTexts(t, f.notifier, 1)
	if !strings.Contains(texts[0].Body, "cancelled") {
		t.Errorf("expected cancellation reply, got %q", texts[0].Body)
	}
}

func TestWebhookReceiveIgnoresUnknownButton(t *testing.T) {
	f := newServerFixture(t)
	handler := f.server.Handler()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(metaButtonPayload("15551234567", "bogus")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unknown buttons are acknowledged, got %d", rec.Code)
	}
	time.Sleep(50 * time.Millisecond)
	if texts := f.notifier.Texts(); len(texts) != 0 {
		t.Errorf("unknown button must not produce a reply, got %v", texts)
	}
}

func TestWebhookReceiveRejectsBadJSON(t *testing.T) {
	f := newServerFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid JSON, got %d", rec.Code)
	}
}

func TestWebhookReceiveIgnoresForeignObjects(t *testing.T) {
	f := newServerFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"object": "page", "entry": []}`))
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("foreign objects are acknowledged, got %d", rec.Code)
	}
}

func TestParseWebhookMessage(t *testing.T) {
	text := webhookMessage{Type: "text", Text: &struct {
		Body string `json:"body"`
	}{Body: "hello"}}
	ev := parseWebhookMessage(text)
	if tm, ok := ev.(models.TextMessage); !ok || tm.Body != "hello" {
		t.Errorf("expected TextMessage hello, got %#v", ev)
	}

	if ev := parseWebhookMessage(webhookMessage{Type: "image"}); ev != nil {
		t.Errorf("unsupported types must yield nil, got %#v", ev)
	}
	if ev := parseWebhookMessage(webhookMessage{Type: "text"}); ev != nil {
		t.Errorf("text without body must yield nil, got %#v", ev)
	}
}

func TestOAuthCallbackSuccess(t *testing.T) {
	f := newServerFixture(t)
	token, err := f.manager.Issue("15551234567")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/callback?code=auth-code&state="+url.QueryEscape(token), nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Authentication Complete!") {
		t.Errorf("expected success page, got %q", rec.Body.String())
	}
	sess, err := f.store.GetSession("15551234567")
	if err != nil || sess == nil || sess.Authorization == nil {
		t.Fatalf("expected authorization stored, got sess=%v err=%v", sess, err)
	}
}

func TestOAuthCallbackInvalidState(t *testing.T) {
	f := newServerFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/callback?code=auth-code&state=never-issued", nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), "Invalid state parameter") {
		t.Errorf("expected invalid state page, got %q", rec.Body.String())
	}
}

func TestOAuthCallbackReplayedState(t *testing.T) {
	f := newServerFixture(t)
	token, err := f.manager.Issue("15551234567")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	handler := f.server.Handler()

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/callback?code=c&state="+url.QueryEscape(token), nil))
	if !strings.Contains(first.Body.String(), "Authentication Complete!") {
		t.Fatalf("first redirect should succeed, got %q", first.Body.String())
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/callback?code=c&state="+url.QueryEscape(token), nil))
	if !strings.Contains(second.Body.String(), "Invalid state parameter") {
		t.Errorf("replayed redirect must show the invalid state page, got %q", second.Body.String())
	}
}

func TestOAuthCallbackDeniedByUser(t *testing.T) {
	f := newServerFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/callback?error=user_cancelled_login&error_description=User+denied+%3Caccess%3E", nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "Authentication Failed") {
		t.Errorf("expected failure page, got %q", body)
	}
	if !strings.Contains(body, "User denied &lt;access&gt;") {
		t.Errorf("error description must be HTML-escaped, got %q", body)
	}
}

func TestTwilioWebhookMapsOptionWords(t *testing.T) {
	f := newServerFixture(t)
	seed := models.NewSession("15551234567")
	seed.PendingDraft = "a draft"
	if err := f.store.SaveSession(seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	form := url.Values{}
	form.Set("From", "whatsapp:15551234567")
	form.Set("Body", "cancel")
	req := httptest.NewRequest(http.MethodPost, "/twilio/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	texts := waitForTexts(t, f.notifier, 1)
	if !strings.Contains(texts[0].Body, "cancelled") {
		t.Errorf("expected cancellation reply, got %q", texts[0].Body)
	}
}

func TestTwilioWebhookRequiresFields(t *testing.T) {
	f := newServerFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/twilio/webhook", strings.NewReader("Body=hello"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without From, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newServerFixture(t)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected health body: %q", rec.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	f := newServerFixture(t)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown path, got %d", rec.Code)
	}
}
