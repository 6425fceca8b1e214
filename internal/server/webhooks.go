package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strings"

	"dad-joke-hotline/internal/joke"
	"dad-joke-hotline/internal/messaging"
	"dad-joke-hotline/internal/store"
	"dad-joke-hotline/internal/types"
)

const maxWebhookBody = 1 << 20

// GET /api/answer?from=...
// Returns a one-element NCCO that greets the caller and tells a joke.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	log.Printf("[answer] payload: %v", q)
	from := q.Get("from")
	if from == "" {
		from = "unknown"
	}

	text, err := s.answerText(r.Context(), from)
	if err != nil {
		log.Printf("[answer] error generating joke: %v", err)
		text = fmt.Sprintf("Hello from %s! I'm having trouble thinking of a joke right now. Please call back later!", from)
	}
	writeJSON(w, http.StatusOK, []types.TalkAction{types.NewTalk(text)})
}

func (s *Server) answerText(ctx context.Context, from string) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	res := s.jokes.Joke(ctx)
	log.Printf("[answer] generated joke (%s): %s", res.Source, res.Text)
	return fmt.Sprintf("Hello, caller from %s! Here's your dad joke for today: %s", from, res.Text), nil
}

// POST /api/event
// Call status events. Always acknowledged, whatever the body looks like.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		log.Printf("[event] failed to read body: %v", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
		var payload any
		if err := json.Unmarshal(body, &payload); err != nil {
			log.Printf("[event] invalid JSON (%v), raw body: %s", err, body)
		} else {
			log.Printf("[event] payload: %v", payload)
		}
	} else {
		r.Body = io.NopCloser(bytes.NewReader(body))
		if err := r.ParseForm(); err != nil {
			log.Printf("[event] invalid form (%v), raw body: %s", err, body)
		} else {
			log.Printf("[event] payload: %v", r.PostForm)
		}
	}
	w.WriteHeader(http.StatusOK)
}

// GET /api/fallback
func (s *Server) handleFallback(w http.ResponseWriter, r *http.Request) {
	log.Printf("[fallback] payload: %v", r.URL.Query())
	w.WriteHeader(http.StatusOK)
}

// POST /api/inbound
// Replies to an inbound SMS with a joke. The provider only needs to know the
// webhook was consumed, so send failures are logged rather than returned.
func (s *Server) handleInbound(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		log.Printf("[inbound] failed to read body: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var payload types.InboundSMS
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("[inbound] invalid JSON payload received: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	log.Printf("[inbound] SMS webhook received: %s", body)

	to := strings.TrimSpace(string(payload.MSISDN))
	if to == "" {
		log.Println("[inbound] missing msisdn in webhook payload")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if s.sms == nil {
		log.Printf("[inbound] error processing inbound webhook: %v", s.smsErr)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	msg := messaging.OutboundSms{
		From:      s.cfg.VonagePhoneNumber,
		To:        to,
		Text:      "Dad Joke Hotline: " + s.inboundJoke(ctx),
		ClientRef: messaging.NewClientRef(),
	}
	rec := store.DeliveryRecord{ID: msg.ClientRef, To: msg.To, From: msg.From, Backend: s.sms.Name()}

	res, err := s.sms.Send(ctx, msg)
	if err != nil {
		log.Printf("[inbound] SMS send to %s failed: %v", to, err)
		rec.Status = "error"
		rec.ErrorText = err.Error()
	} else if first, ok := res.First(); !ok {
		log.Printf("[inbound] SMS send to %s returned no message status", to)
		rec.Status = "unknown"
	} else {
		rec.Status = first.Status
		rec.ErrorText = first.ErrorText
		rec.MessageID = first.MessageID
		if first.Status == messaging.StatusOK {
			log.Printf("[inbound] SMS sent successfully to %s", to)
		} else {
			log.Printf("[inbound] SMS failed with error: %s", first.ErrorText)
		}
	}

	if err := s.deliveries.Record(ctx, rec); err != nil {
		log.Printf("[inbound] failed to record delivery %s: %v", rec.ID, err)
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) inboundJoke(ctx context.Context) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[inbound] error getting dad joke from LLM: %v", rec)
			text = joke.FallbackJoke
		}
	}()
	return s.jokes.Joke(ctx).Text
}

// GET /api/healthz
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:    "healthy",
		Service:   s.cfg.ServiceName,
		Timestamp: r.Header.Get("X-Timestamp"),
	})
}
