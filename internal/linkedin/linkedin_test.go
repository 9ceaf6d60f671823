package linkedin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/soggo/LinkedinChat/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(
		WithClientID("client-id"),
		WithClientSecret("client-secret"),
		WithRedirectURL("http://localhost:8000/callback"),
		WithAPIBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(WithClientID("id"), WithClientSecret("secret")); err == nil {
		t.Error("expected error without redirect URL")
	}
	if _, err := NewClient(WithRedirectURL("http://localhost/callback")); err == nil {
		t.Error("expected error without client credentials")
	}
}

func TestAuthURL(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())
	raw := c.AuthURL("state-token-1")

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("AuthURL produced unparseable URL: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "state-token-1" {
		t.Errorf("expected state in URL, got %q", q.Get("state"))
	}
	if q.Get("client_id") != "client-id" {
		t.Errorf("expected client_id in URL, got %q", q.Get("client_id"))
	}
	if q.Get("redirect_uri") != "http://localhost:8000/callback" {
		t.Errorf("expected redirect_uri in URL, got %q", q.Get("redirect_uri"))
	}
	scope := q.Get("scope")
	for _, want := range []string{"openid", "profile", "w_member_social"} {
		if !strings.Contains(scope, want) {
			t.Errorf("scope %q missing %q", scope, want)
		}
	}
}

func TestPublishSendsUGCPost(t *testing.T) {
	var gotPath, gotAuth, gotRestli, gotVersion string
	var gotBody map[string]interface{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRestli = r.Header.Get("X-Restli-Protocol-Version")
		gotVersion = r.Header.Get("LinkedIn-Version")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"urn:li:ugcPost:1"}`))
	}))

	auth := models.Authorization{
		AccessToken:    "tok",
		ExpiresAt:      time.Now().Add(time.Hour),
		ExternalUserID: "abc123",
	}
	if err := c.Publish(context.Background(), auth, "Hello LinkedIn"); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if gotPath != "/v2/ugcPosts" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("unexpected authorization header %q", gotAuth)
	}
	if gotRestli != "2.0.0" {
		t.Errorf("unexpected Restli header %q", gotRestli)
	}
	if gotVersion != "202402" {
		t.Errorf("unexpected LinkedIn-Version header %q", gotVersion)
	}
	if gotBody["author"] != "urn:li:person:abc123" {
		t.Errorf("unexpected author: %v", gotBody["author"])
	}
	if gotBody["lifecycleState"] != "PUBLISHED" {
		t.Errorf("unexpected lifecycleState: %v", gotBody["lifecycleState"])
	}
	specific, _ := gotBody["specificContent"].(map[string]interface{})
	share, _ := specific["com.linkedin.ugc.ShareContent"].(map[string]interface{})
	commentary, _ := share["shareCommentary"].(map[string]interface{})
	if commentary["text"] != "Hello LinkedIn" {
		t.Errorf("unexpected commentary: %v", commentary)
	}
	visibility, _ := gotBody["visibility"].(map[string]interface{})
	if visibility["com.linkedin.ugc.MemberNetworkVisibility"] != "PUBLIC" {
		t.Errorf("unexpected visibility: %v", visibility)
	}
}

// Only a 201 counts as published; LinkedIn can return 200 with an error body.
func TestPublishRejectsNonCreatedStatus(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusUnprocessableEntity, http.StatusUnauthorized} {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte(`{"message":"nope"}`))
		}))
		auth := models.Authorization{AccessToken: "tok", ExternalUserID: "abc123"}
		err := c.Publish(context.Background(), auth, "content")
		if err == nil {
			t.Errorf("status %d: expected error", status)
			continue
		}
		if !strings.Contains(err.Error(), "status") {
			t.Errorf("status %d: error should mention the status, got %v", status, err)
		}
	}
}

func TestUserInfoResolvesSub(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/userinfo" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sub":"abc123","name":"Test Member"}`))
	}))

	sub, err := c.userInfo(context.Background(), "tok")
	if err != nil {
		t.Fatalf("userInfo failed: %v", err)
	}
	if sub != "abc123" {
		t.Errorf("expected sub abc123, got %q", sub)
	}
}

func TestUserInfoMissingSub(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Test Member"}`))
	}))
	if _, err := c.userInfo(context.Background(), "tok"); err == nil {
		t.Fatal("expected error for a response without sub")
	}
}

func TestUserInfoErrorStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	if _, err := c.userInfo(context.Background(), "tok"); err == nil {
		t.Fatal("expected error for a 403 response")
	}
}
