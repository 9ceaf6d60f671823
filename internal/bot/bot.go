// Package bot dispatches conversation events: it runs the pure decision step
// from internal/flow, executes the emitted actions against the notifier,
// generator, and publisher collaborators, and folds their results back into
// the session.
//
// Mutations are serialized per identity with a keyed mutex, so two events for
// the same user cannot race a read-modify-write of the session. Events for
// different identities proceed concurrently.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/soggo/LinkedinChat/internal/auth"
	"github.com/soggo/LinkedinChat/internal/flow"
	"github.com/soggo/LinkedinChat/internal/linkedin"
	"github.com/soggo/LinkedinChat/internal/messaging"
	"github.com/soggo/LinkedinChat/internal/models"
	"github.com/soggo/LinkedinChat/internal/store"
)

// DefaultCallTimeout bounds each generator and publisher call.
const DefaultCallTimeout = 60 * time.Second

// Generator produces post content from a conversation history.
type Generator interface {
	Complete(ctx context.Context, history []models.Turn) (string, error)
}

// Publisher handles LinkedIn authorization and post publication.
type Publisher interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (models.Authorization, error)
	Publish(ctx context.Context, auth models.Authorization, content string) error
}

// Opts holds configuration options for the bot.
type Opts struct {
	CallTimeout time.Duration
}

// Option defines a configuration option for the bot.
type Option func(*Opts)

// WithCallTimeout bounds outbound generator and publisher calls.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Opts) { o.CallTimeout = d }
}

// Bot coordinates sessions, the state machine, and collaborators.
// Generator and Publisher may be nil when unconfigured; the affected
// operations then fail fast with a user-facing apology.
type Bot struct {
	store      store.Store
	notifier   messaging.Service
	generator  Generator
	publisher  Publisher
	handshakes *auth.Manager
	timeout    time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a bot.
func New(st store.Store, notifier messaging.Service, gen Generator, pub Publisher, handshakes *auth.Manager, opts ...Option) *Bot {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	return &Bot{
		store:      st,
		notifier:   notifier,
		generator:  gen,
		publisher:  pub,
		handshakes: handshakes,
		timeout:    cfg.CallTimeout,
		locks:      make(map[string]*sync.Mutex),
	}
}

// identityLock returns the mutex serializing mutations for one identity.
func (b *Bot) identityLock(identity string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.locks[identity]
	if !ok {
		l = &sync.Mutex{}
		b.locks[identity] = l
	}
	return l
}

// loadSession fetches the session for an identity, creating a default one
// lazily on first contact.
func (b *Bot) loadSession(identity string) (models.Session, error) {
	sess, err := b.store.GetSession(identity)
	if err != nil {
		return models.Session{}, err
	}
	if sess == nil {
		s := models.NewSession(identity)
		return s, nil
	}
	return *sess, nil
}

// HandleInboundEvent processes one webhook event for an identity. It is
// fire-and-forget from the webhook layer's point of view: all failures are
// logged and surfaced to the user as notifications, never returned.
func (b *Bot) HandleInboundEvent(ctx context.Context, identity string, ev models.Event) {
	if identity == "" {
		slog.Warn("Bot.HandleInboundEvent: empty identity, dropping event")
		return
	}

	lock := b.identityLock(identity)
	lock.Lock()
	defer lock.Unlock()

	before, err := b.loadSession(identity)
	if err != nil {
		slog.Error("Bot.HandleInboundEvent: session load failed", "error", err, "identity", identity)
		b.notifyText(ctx, identity, flow.InternalErrorNotification())
		return
	}

	decision := flow.Decide(before, ev)
	cur := decision.Session

	for _, act := range decision.Actions {
		cur = b.execute(ctx, identity, before, cur, act)
	}

	cur.UpdatedAt = time.Now()
	if err := b.store.SaveSession(cur); err != nil {
		slog.Error("Bot.HandleInboundEvent: session save failed", "error", err, "identity", identity)
	}
}

// execute runs one action and returns the session it leaves behind.
// before is the pre-event session, used to roll back when a generation call
// fails so the user can retry the same command.
func (b *Bot) execute(ctx context.Context, identity string, before, cur models.Session, act flow.Action) models.Session {
	switch a := act.(type) {
	case flow.NotifyText:
		b.notifyText(ctx, identity, a)
	case flow.NotifyChoice:
		b.notifyChoice(ctx, identity, a.Prompt, a.Options)
	case flow.GeneratePost:
		return b.generate(ctx, identity, before, cur)
	case flow.PublishDraft:
		return b.publish(ctx, identity, cur, a.Content)
	case flow.IssueAuthLink:
		b.issueAuthLink(ctx, identity)
	default:
		slog.Warn("Bot.execute: unknown action", "identity", identity)
	}
	return cur
}

func (b *Bot) generate(ctx context.Context, identity string, before, cur models.Session) models.Session {
	if b.generator == nil {
		slog.Warn("Bot.generate: generator not configured", "identity", identity)
		b.notifyActions(ctx, identity, flow.GenerationFailed(models.ErrGeneratorUnavailable))
		return before
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	output, err := b.generator.Complete(callCtx, cur.History)
	if err != nil {
		slog.Error("Bot.generate: generation failed", "error", err, "identity", identity)
		b.notifyActions(ctx, identity, flow.GenerationFailed(err))
		return before
	}

	next, actions := flow.ApplyGeneration(cur, output)
	b.notifyActions(ctx, identity, actions)
	slog.Info("Bot.generate: draft generated", "identity", identity, "draft_length", len(output))
	return next
}

func (b *Bot) publish(ctx context.Context, identity string, cur models.Session, content string) models.Session {
	err := b.publishDraft(ctx, cur, content)
	if err != nil {
		slog.Error("Bot.publish: publish failed", "error", err, "identity", identity)
		b.notifyActions(ctx, identity, flow.PublishFailed(content, err))
		return cur
	}

	next, actions := flow.ApplyPublishSuccess(cur, content)
	b.notifyActions(ctx, identity, actions)
	slog.Info("Bot.publish: draft published", "identity", identity)
	return next
}

// publishDraft validates authorization locally before calling out.
// An expired token is treated the same as not authenticated, but is left in
// place: only a fresh auth flow overwrites it.
func (b *Bot) publishDraft(ctx context.Context, cur models.Session, content string) error {
	if b.publisher == nil {
		return models.ErrPublisherUnavailable
	}
	authz := cur.Authorization
	if authz == nil || authz.AccessToken == "" || authz.ExternalUserID == "" {
		return models.ErrNotAuthorized
	}
	if authz.Expired(time.Now()) {
		return models.ErrAuthorizationExpired
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.publisher.Publish(callCtx, *authz, content)
}

func (b *Bot) issueAuthLink(ctx context.Context, identity string) {
	if b.publisher == nil {
		slog.Warn("Bot.issueAuthLink: publisher not configured", "identity", identity)
		b.notifyText(ctx, identity, flow.PublisherUnconfiguredNotification())
		return
	}
	token, err := b.handshakes.Issue(identity)
	if err != nil {
		slog.Error("Bot.issueAuthLink: handshake issue failed", "error", err, "identity", identity)
		b.notifyText(ctx, identity, flow.InternalErrorNotification())
		return
	}
	b.notifyText(ctx, identity, flow.AuthLinkNotification(b.publisher.AuthURL(token)))
}

func (b *Bot) notifyActions(ctx context.Context, identity string, actions []flow.Action) {
	for _, act := range actions {
		switch a := act.(type) {
		case flow.NotifyText:
			b.notifyText(ctx, identity, a)
		case flow.NotifyChoice:
			b.notifyChoice(ctx, identity, a.Prompt, a.Options)
		default:
			slog.Warn("Bot.notifyActions: non-notification action ignored", "identity", identity)
		}
	}
}

func (b *Bot) notifyText(ctx context.Context, identity string, act flow.Action) {
	text, ok := act.(flow.NotifyText)
	if !ok {
		return
	}
	if err := b.notifier.SendText(ctx, identity, text.Body); err != nil {
		slog.Error("Bot.notifyText: send failed", "error", err, "identity", identity)
	}
}

// notifyChoice splits an option set exceeding the channel's per-message
// limit into successive calls, preserving order. Follow-up chunks use the
// continuation prompt.
func (b *Bot) notifyChoice(ctx context.Context, identity string, prompt string, options []models.ChoiceOption) {
	max := b.notifier.MaxChoiceOptions()
	if max <= 0 {
		max = 1
	}
	for start := 0; start < len(options); start += max {
		end := start + max
		if end > len(options) {
			end = len(options)
		}
		p := prompt
		if start > 0 {
			p = flow.ContinuationPrompt()
		}
		if err := b.notifier.SendChoice(ctx, identity, p, options[start:end]); err != nil {
			slog.Error("Bot.notifyChoice: send failed", "error", err, "identity", identity)
		}
	}
}

// RedirectOutcome classifies the result of an OAuth redirect for display.
type RedirectOutcome string

const (
	// RedirectSuccess means the authorization was stored on the session.
	RedirectSuccess RedirectOutcome = "success"
	// RedirectInvalidState means the state token was unknown or replayed.
	RedirectInvalidState RedirectOutcome = "invalid_state"
	// RedirectPartial means the token was issued but the member identity
	// could not be resolved; nothing was stored.
	RedirectPartial RedirectOutcome = "partial"
	// RedirectExchangeFailed means the code-for-token exchange failed.
	RedirectExchangeFailed RedirectOutcome = "exchange_failed"
)

// HandleAuthorizationRedirect resolves an OAuth redirect: it consumes the
// handshake, exchanges the code, stores the authorization on the session, and
// notifies the user on the messaging channel. The returned outcome drives the
// HTML page shown in the browser.
func (b *Bot) HandleAuthorizationRedirect(ctx context.Context, stateToken, code string) RedirectOutcome {
	identity, err := b.handshakes.Consume(stateToken)
	if err != nil {
		if !errors.Is(err, models.ErrHandshakeNotFound) {
			slog.Error("Bot.HandleAuthorizationRedirect: handshake consume failed", "error", err)
		}
		return RedirectInvalidState
	}

	lock := b.identityLock(identity)
	lock.Lock()
	defer lock.Unlock()

	if b.publisher == nil {
		b.notifyText(ctx, identity, flow.AuthExchangeFailedNotification())
		return RedirectExchangeFailed
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	authz, err := b.publisher.ExchangeCode(callCtx, code)
	if err != nil {
		if errors.Is(err, linkedin.ErrUserInfo) {
			slog.Warn("Bot.HandleAuthorizationRedirect: token issued but member identity unresolved", "identity", identity)
			b.notifyText(ctx, identity, flow.AuthPartialNotification())
			return RedirectPartial
		}
		slog.Error("Bot.HandleAuthorizationRedirect: exchange failed", "error", err, "identity", identity)
		b.notifyText(ctx, identity, flow.AuthExchangeFailedNotification())
		return RedirectExchangeFailed
	}

	sess, err := b.loadSession(identity)
	if err != nil {
		slog.Error("Bot.HandleAuthorizationRedirect: session load failed", "error", err, "identity", identity)
		b.notifyText(ctx, identity, flow.AuthExchangeFailedNotification())
		return RedirectExchangeFailed
	}
	sess.Authorization = &authz
	sess.UpdatedAt = time.Now()
	if err := b.store.SaveSession(sess); err != nil {
		slog.Error("Bot.HandleAuthorizationRedirect: session save failed", "error", err, "identity", identity)
		b.notifyText(ctx, identity, flow.AuthExchangeFailedNotification())
		return RedirectExchangeFailed
	}

	b.notifyText(ctx, identity, flow.AuthorizedNotification())
	slog.Info("Bot.HandleAuthorizationRedirect: authorization stored", "identity", identity)
	return RedirectSuccess
}
