// Package messaging sends outbound SMS through the Vonage APIs.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"dad-joke-hotline/internal/config"
)

// StatusOK is the per-message status the provider reports for an accepted SMS.
const StatusOK = "0"

var ErrNotConfigured = errors.New("messaging not configured")

// OutboundSms is one text message to send.
type OutboundSms struct {
	From      string
	To        string
	Text      string
	ClientRef string
}

// MessageStatus is the provider's verdict on one message of a send.
type MessageStatus struct {
	To        string `json:"to,omitempty"`
	MessageID string `json:"message-id,omitempty"`
	Status    string `json:"status"`
	ErrorText string `json:"error-text,omitempty"`
}

type SendResult struct {
	MessageCount string          `json:"message-count"`
	Messages     []MessageStatus `json:"messages"`
}

// First returns the first message status, or false for an empty result.
func (r *SendResult) First() (MessageStatus, bool) {
	if r == nil || len(r.Messages) == 0 {
		return MessageStatus{}, false
	}
	return r.Messages[0], true
}

// Sender is implemented by every outbound SMS backend.
type Sender interface {
	Send(ctx context.Context, msg OutboundSms) (*SendResult, error)
	Name() string
}

// New returns the backend selected by cfg.SMSBackend. It returns
// ErrNotConfigured when the credentials or sender number are missing.
func New(cfg config.Config) (Sender, error) {
	if cfg.VonagePhoneNumber == "" {
		return nil, fmt.Errorf("%w: VONAGE_PHONE_NUMBER is not set", ErrNotConfigured)
	}
	httpClient := &http.Client{Timeout: 15 * time.Second}
	switch strings.ToLower(cfg.SMSBackend) {
	case "", "sms":
		if cfg.VonageAPIKey == "" || cfg.VonageAPISecret == "" {
			return nil, fmt.Errorf("%w: VONAGE_API_KEY and VONAGE_API_SECRET are required", ErrNotConfigured)
		}
		return NewSMSClient(cfg.VonageAPIKey, cfg.VonageAPISecret, httpClient), nil
	case "messages":
		if cfg.VonageJWT == "" && (cfg.VonageAPIKey == "" || cfg.VonageAPISecret == "") {
			return nil, fmt.Errorf("%w: VONAGE_JWT or VONAGE_API_KEY/VONAGE_API_SECRET are required", ErrNotConfigured)
		}
		return NewMessagesClient(cfg.VonageAPIKey, cfg.VonageAPISecret, cfg.VonageJWT, httpClient), nil
	default:
		return nil, fmt.Errorf("%w: unknown VONAGE_SMS_BACKEND %q", ErrNotConfigured, cfg.SMSBackend)
	}
}

// NewClientRef returns a fresh correlation id for an outbound message.
func NewClientRef() string {
	return uuid.NewString()
}
