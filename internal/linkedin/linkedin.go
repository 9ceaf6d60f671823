// Package linkedin implements the LinkedIn publisher: OAuth2 authorization,
// member identity lookup, and post publication via the ugcPosts API.
package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/soggo/LinkedinChat/internal/models"
)

// DefaultAPIBaseURL is the LinkedIn REST API root.
const DefaultAPIBaseURL = "https://api.linkedin.com"

// apiVersion is the LinkedIn-Version header value for ugcPosts requests.
const apiVersion = "202402"

// ErrUserInfo marks a token exchange that succeeded but could not resolve the
// member's OIDC subject. Posting would fail without it, so the caller should
// ask the user to reconnect.
var ErrUserInfo = errors.New("could not resolve linkedin user id")

// Opts holds configuration options for the LinkedIn client.
type Opts struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	APIBaseURL   string
	HTTPClient   *http.Client
}

// Option defines a configuration option for the LinkedIn client.
type Option func(*Opts)

// WithClientID sets the OAuth2 client ID.
func WithClientID(id string) Option {
	return func(o *Opts) { o.ClientID = id }
}

// WithClientSecret sets the OAuth2 client secret.
func WithClientSecret(secret string) Option {
	return func(o *Opts) { o.ClientSecret = secret }
}

// WithRedirectURL sets the OAuth2 redirect URL (the /callback endpoint).
func WithRedirectURL(url string) Option {
	return func(o *Opts) { o.RedirectURL = url }
}

// WithAPIBaseURL overrides the REST API root. Used by tests.
func WithAPIBaseURL(url string) Option {
	return func(o *Opts) { o.APIBaseURL = url }
}

// WithHTTPClient injects an HTTP client. Used by tests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client talks to the LinkedIn OAuth2 and REST APIs.
type Client struct {
	oauth   oauth2.Config
	apiBase string
	http    *http.Client
}

// NewClient creates a LinkedIn client. Client ID, secret, and redirect URL
// are required.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("linkedin client ID and secret must be provided")
	}
	if cfg.RedirectURL == "" {
		return nil, fmt.Errorf("linkedin redirect URL must be provided")
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	slog.Debug("linkedin.NewClient: client configured", "redirect_url", cfg.RedirectURL)

	return &Client{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoints.LinkedIn,
			Scopes:       []string{"openid", "profile", "w_member_social"},
		},
		apiBase: cfg.APIBaseURL,
		http:    cfg.HTTPClient,
	}, nil
}

// AuthURL builds the authorization URL embedding the given state token.
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for an access token and
// resolves the member's OIDC subject. Returns ErrUserInfo when the token was
// issued but the subject lookup failed.
func (c *Client) ExchangeCode(ctx context.Context, code string) (models.Authorization, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Error("linkedin.ExchangeCode: token exchange failed", "error", err)
		return models.Authorization{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	sub, err := c.userInfo(ctx, tok.AccessToken)
	if err != nil {
		slog.Error("linkedin.ExchangeCode: userinfo lookup failed", "error", err)
		return models.Authorization{}, fmt.Errorf("%w: %v", ErrUserInfo, err)
	}

	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(time.Hour)
	}
	return models.Authorization{
		AccessToken:    tok.AccessToken,
		ExpiresAt:      expiresAt,
		ExternalUserID: sub,
	}, nil
}

// userInfo fetches the OIDC "sub" claim for the access token.
func (c *Client) userInfo(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/v2/userinfo", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("userinfo status %d: %s", resp.StatusCode, body)
	}

	var info struct {
		Sub string `json:"sub"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Sub == "" {
		return "", fmt.Errorf("userinfo response missing sub")
	}
	return info.Sub, nil
}

// ugcPost is the request body for the ugcPosts endpoint.
type ugcPost struct {
	Author          string                 `json:"author"`
	LifecycleState  string                 `json:"lifecycleState"`
	SpecificContent map[string]interface{} `json:"specificContent"`
	Visibility      map[string]string      `json:"visibility"`
}

// Publish posts content on behalf of the authorized member.
// The caller checks token expiry before invoking this.
func (c *Client) Publish(ctx context.Context, auth models.Authorization, content string) error {
	post := ugcPost{
		Author:         "urn:li:person:" + auth.ExternalUserID,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]interface{}{
			"com.linkedin.ugc.ShareContent": map[string]interface{}{
				"shareCommentary":    map[string]string{"text": content},
				"shareMediaCategory": "NONE",
			},
		},
		Visibility: map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}

	payload, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("marshal ugc post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/v2/ugcPosts", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+auth.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	req.Header.Set("LinkedIn-Version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("linkedin.Publish: request failed", "error", err)
		return fmt.Errorf("publish request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Error("linkedin.Publish: unexpected status", "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("publish returned status %d: %s", resp.StatusCode, body)
	}

	slog.Info("linkedin.Publish: post published", "author_set", auth.ExternalUserID != "")
	return nil
}
