// Package sms delivers one-time codes through an HTTP SMS gateway.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Sender delivers a text message to an E.164 phone number.
type Sender interface {
	Send(ctx context.Context, phone, text string) error
}

// Client posts {to, from, text} as JSON to the gateway with a bearer API key.
type Client struct {
	URL    string
	APIKey string
	From   string
	HTTP   *http.Client
}

// New returns a gateway client.  When url is empty the returned sender only
// logs the message, which keeps local setups usable without a provider.
func New(url, apiKey, from string) Sender {
	if url == "" {
		return LogSender{}
	}
	return &Client{URL: url, APIKey: apiKey, From: from, HTTP: &http.Client{Timeout: 10 * time.Second}}
}

type payload struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Text string `json:"text"`
}

func (c *Client) Send(ctx context.Context, phone, text string) error {
	body, err := json.Marshal(payload{To: phone, From: c.From, Text: text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("sms send: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("sms send: gateway status %d", res.StatusCode)
	}
	return nil
}

// LogSender writes the destination to the process log and drops the text.
type LogSender struct{}

func (LogSender) Send(_ context.Context, phone, _ string) error {
	log.Printf("sms: no gateway configured, message to %s not delivered", phone)
	return nil
}
