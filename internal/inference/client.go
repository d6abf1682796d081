// Package inference is the HTTP client for the external model-inference
// service, plus the error normalization contract shared by every caller.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// UpstreamError carries whatever the inference service said when a call
// failed. Status is 0 when the failure happened before an HTTP response
// (dial error, timeout); Body is nil when no response body was read.
type UpstreamError struct {
	Status int
	Body   []byte
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("inference service returned %d", e.Status)
	}
	return fmt.Sprintf("inference service unreachable: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Client calls the model-inference service. The service is a synchronous
// call-and-response backend; every method performs exactly one call and
// nothing is retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client. A zero timeout leaves the call unbounded: the
// gateway does not time out inference calls itself.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ReplyRequest is the payload for a conversational assistant reply. UserID
// and UserLevel are bookkeeping fields for the backend's response
// calibration; authorization comes solely from the bearer token.
type ReplyRequest struct {
	Prompt    string `json:"prompt"`
	Language  string `json:"language"`
	Code      string `json:"code"`
	UserID    string `json:"user_id"`
	UserLevel string `json:"user_level"`
}

// GenerateRequest is the payload for code generation.
type GenerateRequest struct {
	Prompt   string `json:"prompt"`
	Language string `json:"language"`
}

// AutocompleteRequest is the payload for a completion suggestion.
type AutocompleteRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// Reply asks the backend for a conversational assistant reply.
func (c *Client) Reply(ctx context.Context, req ReplyRequest, token string) (json.RawMessage, error) {
	return c.post(ctx, "/reply", req, token)
}

// ReplyCodeOnly asks the backend for a code-only reply.
func (c *Client) ReplyCodeOnly(ctx context.Context, req ReplyRequest, token string) (json.RawMessage, error) {
	return c.post(ctx, "/reply-code-only", req, token)
}

// Generate asks the backend to generate code.
func (c *Client) Generate(ctx context.Context, req GenerateRequest, token string) (json.RawMessage, error) {
	return c.post(ctx, "/generate", req, token)
}

// Autocomplete asks the backend for a completion suggestion.
func (c *Client) Autocomplete(ctx context.Context, req AutocompleteRequest, token string) (json.RawMessage, error) {
	return c.post(ctx, "/autocomplete", req, token)
}

// post performs one call to the inference service, forwarding the caller's
// bearer credential. On success the response body is returned as-is when it
// is JSON, or quoted into a JSON string when it is plain text; any failure
// becomes an *UpstreamError.
func (c *Client) post(ctx context.Context, path string, payload any, token string) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: data}
	}

	// The service may answer a successful call with plain text instead of
	// JSON. Quote such bodies so callers always hold valid JSON and the
	// result still reaches the client verbatim as a string.
	if !json.Valid(data) {
		quoted, _ := json.Marshal(string(data))
		return json.RawMessage(quoted), nil
	}

	return json.RawMessage(data), nil
}
