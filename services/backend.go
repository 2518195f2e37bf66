// Package services holds the gateway's upstream-facing logic: the
// envelope REST client, the login flow, and the token refresher.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const statusSuccess = "Success"

// Envelope is the response shape every upstream call returns.
type Envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// EnvelopeError is an upstream response whose status was not "Success".
// Message is the server's message verbatim; Data may be absent.
type EnvelopeError struct {
	Status   string
	Message  string
	HTTPCode int
}

func (e *EnvelopeError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("upstream error (status=%s, http=%d)", e.Status, e.HTTPCode)
}

// BackendClient talks to the business REST backend. It never retries;
// retry policy belongs to callers, and for this subsystem there is none.
type BackendClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewBackendClient(baseURL string) *BackendClient {
	return &BackendClient{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Post sends one JSON request and decodes the envelope. A non-empty
// token is attached as a Bearer header; the login path passes "".
func (c *BackendClient) Post(ctx context.Context, path string, body any, token string) (*Envelope, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req)
}

// Get fetches one resource and decodes the envelope.
func (c *BackendClient) Get(ctx context.Context, path, token string) (*Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req)
}

func (c *BackendClient) do(req *http.Request) (*Envelope, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("malformed upstream response: %w", err)
	}
	if env.Status != statusSuccess {
		return nil, &EnvelopeError{Status: env.Status, Message: env.Message, HTTPCode: resp.StatusCode}
	}
	return &env, nil
}
