// Package api provides webhook handlers for inbound WhatsApp events.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/soggo/LinkedinChat/internal/models"
)

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("LinkedinChat is running. Use /webhook for WhatsApp messages.", nil))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"health": "ok"}))
}

// webhookHandler serves the Meta webhook: GET is the subscription
// verification handshake, POST delivers inbound messages.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.verifyWebhookHandler(w, r)
	case http.MethodPost:
		s.receiveWebhookHandler(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) verifyWebhookHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.verifyWebhookHandler: verification request received")
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "" || token == "" {
		slog.Warn("Server.verifyWebhookHandler: missing parameters")
		http.Error(w, "Missing required parameters for verification", http.StatusBadRequest)
		return
	}
	if mode != "subscribe" || token != s.verifyToken {
		slog.Warn("Server.verifyWebhookHandler: mode or token mismatch", "mode", mode)
		http.Error(w, "Verification failed: Mode or token mismatch", http.StatusForbidden)
		return
	}

	slog.Info("Server.verifyWebhookHandler: webhook verified")
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(challenge))
}

// Wire structures for the Meta webhook envelope. Only the fields we read.
type webhookPayload struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	Changes []webhookChange `json:"changes"`
}

type webhookChange struct {
	Field string       `json:"field"`
	Value webhookValue `json:"value"`
}

type webhookValue struct {
	Contacts []webhookContact `json:"contacts"`
	Messages []webhookMessage `json:"messages"`
}

type webhookContact struct {
	WaID string `json:"wa_id"`
}

type webhookMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID string `json:"id"`
		} `json:"button_reply"`
	} `json:"interactive"`
}

func (s *Server) receiveWebhookHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		slog.Warn("Server.receiveWebhookHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	if payload.Object == "whatsapp_business_account" {
		for _, entry := range payload.Entry {
			for _, change := range entry.Changes {
				if change.Field != "messages" {
					continue
				}
				s.dispatchChange(change.Value)
			}
		}
	}

	// The provider retries on non-200, so acknowledge regardless of content.
	writeJSONResponse(w, http.StatusOK, models.Success(nil))
}

// dispatchChange extracts the sender identity and hands each message to the
// bot. Event handling is fire-and-forget relative to the webhook response.
func (s *Server) dispatchChange(value webhookValue) {
	identity := ""
	if len(value.Contacts) > 0 {
		identity = value.Contacts[0].WaID
	}
	if identity == "" && len(value.Messages) > 0 {
		identity = value.Messages[0].From
	}
	if identity == "" {
		slog.Warn("Server.dispatchChange: no sender identity in change")
		return
	}

	for _, msg := range value.Messages {
		ev := parseWebhookMessage(msg)
		if ev == nil {
			slog.Debug("Server.dispatchChange: unsupported message type", "type", msg.Type)
			continue
		}
		slog.Info("Server.dispatchChange: inbound event", "identity", identity, "type", msg.Type)
		go s.bot.HandleInboundEvent(context.Background(), identity, ev)
	}
}

func parseWebhookMessage(msg webhookMessage) models.Event {
	switch msg.Type {
	case "text":
		if msg.Text == nil {
			return nil
		}
		return models.TextMessage{Body: msg.Text.Body}
	case "interactive":
		if msg.Interactive == nil || msg.Interactive.Type != "button_reply" || msg.Interactive.ButtonReply == nil {
			return nil
		}
		id := models.ButtonID(msg.Interactive.ButtonReply.ID)
		if !models.IsValidButtonID(id) {
			slog.Warn("Server.parseWebhookMessage: unknown button id", "id", string(id))
			return nil
		}
		return models.ButtonClick{Button: id}
	default:
		return nil
	}
}

// twilioWebhookHandler handles inbound Twilio WhatsApp messages. The Twilio
// channel has no reply buttons, so a bare option word ("approve", "cancel",
// ...) is interpreted as a click on that option.
func (s *Server) twilioWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.Error("Server.twilioWebhookHandler: failed to parse form", "error", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	from := strings.TrimPrefix(r.FormValue("From"), "whatsapp:")
	body := r.FormValue("Body")
	if from == "" || body == "" {
		slog.Warn("Server.twilioWebhookHandler: missing fields", "from_set", from != "")
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	var ev models.Event = models.TextMessage{Body: body}
	if id := models.ButtonID(strings.ToLower(strings.TrimSpace(body))); models.IsValidButtonID(id) {
		ev = models.ButtonClick{Button: id}
	}

	slog.Info("Server.twilioWebhookHandler: inbound message", "from", from)
	go s.bot.HandleInboundEvent(context.Background(), from, ev)

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
