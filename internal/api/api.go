// Package api provides the HTTP surface for LinkedinChat.
//
// It exposes the WhatsApp webhook (verification handshake and inbound
// events), the LinkedIn OAuth redirect endpoint, and a health check. The
// handlers parse transport payloads into events and hand them to the bot;
// all conversational logic lives in internal/flow and internal/bot.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/soggo/LinkedinChat/internal/bot"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = ":8000"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr        string
	VerifyToken string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithVerifyToken sets the webhook verification token.
func WithVerifyToken(token string) Option {
	return func(o *Opts) { o.VerifyToken = token }
}

// Server hosts the webhook and OAuth endpoints.
type Server struct {
	bot         *bot.Bot
	verifyToken string
	addr        string
	httpServer  *http.Server
}

// NewServer creates an API server around a bot.
func NewServer(b *bot.Bot, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{
		bot:         b,
		verifyToken: cfg.VerifyToken,
		addr:        cfg.Addr,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.rootHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/callback", s.oauthCallbackHandler)
	mux.HandleFunc("/twilio/webhook", s.twilioWebhookHandler)
	return mux
}

// Start begins serving and blocks until the server stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("Server.Start: listening", "addr", s.addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	slog.Info("Server.Shutdown: stopping")
	return s.httpServer.Shutdown(ctx)
}
