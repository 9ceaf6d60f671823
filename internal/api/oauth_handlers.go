// Package api provides the LinkedIn OAuth redirect handler.
package api

import (
	"fmt"
	"html"
	"log/slog"
	"net/http"

	"github.com/soggo/LinkedinChat/internal/bot"
)

const htmlPage = `<html><head><title>LinkedIn Authentication</title>
<style> body { font-family: sans-serif; padding: 20px; } h1 { color: #0077B5; } </style>
</head><body>
%s
</body></html>`

const successBody = `<h1>Authentication Complete!</h1>
<p>Your LinkedIn account has been successfully connected to the WhatsApp bot.</p>
<p>You can now return to WhatsApp and start creating LinkedIn posts!</p>`

const partialBody = `<h1>Authentication Partially Complete</h1>
<p>Your LinkedIn authentication was successful, but we couldn't retrieve your LinkedIn User ID.</p>
<p>Please return to WhatsApp and try 'auth' again if you have issues posting.</p>`

const exchangeFailedBody = `<h1>Authentication Failed</h1>
<p>There was an error exchanging the authorization code for an access token.</p>
<p>Please return to WhatsApp and try 'auth' again.</p>`

const invalidStateBody = `<h1>Authentication Failed</h1>
<p>Invalid state parameter. Please try 'auth' again.</p>`

// oauthCallbackHandler completes the LinkedIn authorization flow. The user is
// notified on WhatsApp; the browser gets a plain HTML status page.
func (s *Server) oauthCallbackHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	code := q.Get("code")
	state := q.Get("state")

	if code == "" {
		reason := q.Get("error_description")
		if reason == "" {
			reason = "No authorization code was provided by LinkedIn."
		}
		slog.Warn("Server.oauthCallbackHandler: redirect without code", "reason", reason)
		body := fmt.Sprintf(`<h1>Authentication Failed</h1>
<p>There was an error during LinkedIn authentication:</p>
<pre>%s</pre>
<p>Please try again by sending "auth" to the WhatsApp bot.</p>`, html.EscapeString(reason))
		writeHTMLResponse(w, http.StatusOK, fmt.Sprintf(htmlPage, body))
		return
	}

	outcome := s.bot.HandleAuthorizationRedirect(r.Context(), state, code)
	slog.Info("Server.oauthCallbackHandler: redirect resolved", "outcome", string(outcome))

	switch outcome {
	case bot.RedirectSuccess:
		writeHTMLResponse(w, http.StatusOK, fmt.Sprintf(htmlPage, successBody))
	case bot.RedirectPartial:
		writeHTMLResponse(w, http.StatusOK, fmt.Sprintf(htmlPage, partialBody))
	case bot.RedirectInvalidState:
		writeHTMLResponse(w, http.StatusOK, fmt.Sprintf(htmlPage, invalidStateBody))
	default:
		writeHTMLResponse(w, http.StatusOK, fmt.Sprintf(htmlPage, exchangeFailedBody))
	}
}
