package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TalkAction is an NCCO action telling the provider to speak Text to the caller.
type TalkAction struct {
	Action string `json:"action"`
	Text   string `json:"text"`
}

func NewTalk(text string) TalkAction {
	return TalkAction{Action: "talk", Text: text}
}

// InboundSMS is the provider's inbound-message webhook body. Only MSISDN is
// required; the rest are logged when present.
type InboundSMS struct {
	MSISDN           MSISDN `json:"msisdn"`
	To               string `json:"to,omitempty"`
	MessageID        string `json:"messageId,omitempty"`
	Text             string `json:"text,omitempty"`
	Type             string `json:"type,omitempty"`
	Keyword          string `json:"keyword,omitempty"`
	MessageTimestamp string `json:"message-timestamp,omitempty"`
}

// MSISDN is a phone number that the provider may send as either a JSON
// string or a bare JSON number.
type MSISDN string

func (m *MSISDN) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = MSISDN(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("msisdn must be a string or number: %w", err)
	}
	*m = MSISDN(n.String())
	return nil
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}
