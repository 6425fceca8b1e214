package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
)

const messagesAPIURL = "https://api.nexmo.com/v1/messages"

// MessagesClient talks to the Vonage Messages API. With an application JWT
// it authenticates as a bearer; otherwise it falls back to basic auth with
// the account key and secret.
type MessagesClient struct {
	apiKey     string
	apiSecret  string
	endpoint   string
	httpClient *http.Client
	bearer     bool
}

func NewMessagesClient(apiKey, apiSecret, appJWT string, httpClient *http.Client) *MessagesClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &MessagesClient{apiKey: apiKey, apiSecret: apiSecret, endpoint: messagesAPIURL, httpClient: httpClient}
	if appJWT != "" {
		base := httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		c.httpClient = &http.Client{
			Timeout: httpClient.Timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: appJWT, TokenType: "Bearer"}),
				Base:   base,
			},
		}
		c.bearer = true
	}
	return c
}

func (c *MessagesClient) Name() string { return "messages" }

type messagesRequest struct {
	MessageType string `json:"message_type"`
	Channel     string `json:"channel"`
	From        string `json:"from"`
	To          string `json:"to"`
	Text        string `json:"text"`
	ClientRef   string `json:"client_ref,omitempty"`
}

type messagesAccepted struct {
	MessageUUID string `json:"message_uuid"`
}

type messagesProblem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Send posts msg. The Messages API reports one message per request, so the
// result always holds a single status: "0" when accepted, otherwise the
// HTTP status code with the problem title and detail as error text.
func (c *MessagesClient) Send(ctx context.Context, msg OutboundSms) (*SendResult, error) {
	payload, err := json.Marshal(messagesRequest{
		MessageType: "text",
		Channel:     "sms",
		From:        msg.From,
		To:          msg.To,
		Text:        msg.Text,
		ClientRef:   msg.ClientRef,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if !c.bearer {
		req.SetBasicAuth(c.apiKey, c.apiSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	status := MessageStatus{To: msg.To}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var ok messagesAccepted
		if err := json.Unmarshal(body, &ok); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		status.Status = StatusOK
		status.MessageID = ok.MessageUUID
	} else {
		var problem messagesProblem
		_ = json.Unmarshal(body, &problem)
		status.Status = strconv.Itoa(resp.StatusCode)
		status.ErrorText = problemText(problem, body)
	}
	return &SendResult{MessageCount: "1", Messages: []MessageStatus{status}}, nil
}

func problemText(p messagesProblem, raw []byte) string {
	switch {
	case p.Title != "" && p.Detail != "":
		return p.Title + ": " + p.Detail
	case p.Title != "":
		return p.Title
	case p.Detail != "":
		return p.Detail
	}
	return strings.TrimSpace(string(raw))
}
