// Package backend speaks the one wire contract of the widget: POST a
// JSON array of role/content messages to the assistant endpoint and
// read back a single reply string.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dwern/popchat/pkg/chat"
	"github.com/dwern/popchat/pkg/logger"
)

// maxDiagnosticBody caps how much of an error response body is kept
// for logging.
const maxDiagnosticBody = 2048

const defaultTimeout = 60 * time.Second

// StatusError reports a backend that was reachable but answered with a
// non-2xx status. Body is truncated to maxDiagnosticBody.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d", e.Code)
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int { return e.Code }

// ResponseBody returns the truncated response body.
func (e *StatusError) ResponseBody() string { return e.Body }

type request struct {
	Messages []chat.Turn `json:"messages"`
}

type response struct {
	Reply string `json:"reply"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client, mainly for tests
// and custom timeouts.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// Client calls the assistant endpoint. Safe for concurrent use.
type Client struct {
	endpoint string
	http     *http.Client
}

// New creates a client for the given endpoint URL. The URL is taken on
// trust; a bad one surfaces as a transport error on the first call.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reply sends the conversation snapshot and returns the assistant's
// reply text.
//
// Error contract: transport-level failures come back as wrapped
// errors, a reachable backend with a non-2xx status comes back as a
// *StatusError, and a 2xx response whose body is malformed or whose
// reply is empty returns ("", nil) — the caller decides what stands in
// for a missing reply.
func (c *Client) Reply(ctx context.Context, turns []chat.Turn) (string, error) {
	body, err := json.Marshal(request{Messages: turns})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling assistant backend: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading assistant response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		diag := string(data)
		if len(diag) > maxDiagnosticBody {
			diag = diag[:maxDiagnosticBody]
		}
		return "", &StatusError{Code: resp.StatusCode, Body: diag}
	}

	var parsed response
	if err := json.Unmarshal(data, &parsed); err != nil {
		logger.WarnCF("backend", "response body is not valid JSON", map[string]interface{}{
			"error": err.Error(),
		})
		return "", nil
	}
	return parsed.Reply, nil
}
