package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const smsAPIURL = "https://rest.nexmo.com/sms/json"

// SMSClient talks to the Vonage SMS API, which authenticates with the
// account key and secret in the form body.
type SMSClient struct {
	apiKey     string
	apiSecret  string
	endpoint   string
	httpClient *http.Client
}

func NewSMSClient(apiKey, apiSecret string, httpClient *http.Client) *SMSClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SMSClient{apiKey: apiKey, apiSecret: apiSecret, endpoint: smsAPIURL, httpClient: httpClient}
}

func (c *SMSClient) Name() string { return "sms" }

// Send posts msg and decodes the per-message statuses. A non-nil error means
// the request itself failed; provider rejections come back as a non-zero
// status in the result.
func (c *SMSClient) Send(ctx context.Context, msg OutboundSms) (*SendResult, error) {
	form := url.Values{}
	form.Set("api_key", c.apiKey)
	form.Set("api_secret", c.apiSecret)
	form.Set("from", msg.From)
	form.Set("to", msg.To)
	form.Set("text", msg.Text)
	if msg.ClientRef != "" {
		form.Set("client-ref", msg.ClientRef)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sms api returned %d: %s", resp.StatusCode, string(body))
	}

	var out SendResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
