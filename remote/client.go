// Package remote is the HTTP client for the external assistant API. It
// returns upstream JSON bodies verbatim and classifies failures; it never
// interprets payloads, retries, or caches.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Upstream paths.
const (
	PathChatMessage     = "/api/chat/message"
	PathUserSessions    = "/api/sessions/user/"
	PathSessionMessages = "/api/sessions/messages/"
	PathProductFeedback = "/api/feedback/product"
)

const maxResponseBytes = 8 << 20

var (
	// ErrNetwork wraps transport-level failures (DNS, connect, reset).
	ErrNetwork = errors.New("network failure")
	// ErrRemoteStatus marks a non-2xx upstream status. Use errors.As with
	// *StatusError for the code.
	ErrRemoteStatus = errors.New("remote error")
	// ErrMalformedResponse marks a 2xx body that is not JSON.
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError reports a non-2xx upstream reply.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("external API error: %s", e.Status)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrRemoteStatus
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client talks to the remote assistant API.
type Client struct {
	base *url.URL
	http *http.Client
}

// New creates a Client from configuration.
func New(cfg *Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid remote base url")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Errorf("invalid remote base url %q: scheme must be http or https", cfg.BaseURL)
	}

	c := &Client{
		base: base,
		http: &http.Client{Timeout: time.Duration(cfg.Timeout)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SendMessage posts a chat message as multipart form data. sessionID is
// omitted from the form when empty.
func (c *Client) SendMessage(ctx context.Context, sessionID, message string) ([]byte, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if sessionID != "" {
		if err := form.WriteField("sessionId", sessionID); err != nil {
			return nil, errors.Wrap(err, "failed to encode form")
		}
	}
	if err := form.WriteField("message", message); err != nil {
		return nil, errors.Wrap(err, "failed to encode form")
	}
	if err := form.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to encode form")
	}

	return c.do(ctx, http.MethodPost, PathChatMessage, form.FormDataContentType(), &body)
}

// ListSessions fetches the sessions owned by userID.
func (c *Client) ListSessions(ctx context.Context, userID string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, PathUserSessions+url.PathEscape(userID), "", nil)
}

// SessionMessages fetches the paired message history of sessionID.
func (c *Client) SessionMessages(ctx context.Context, sessionID string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, PathSessionMessages+url.PathEscape(sessionID), "", nil)
}

// SubmitFeedback posts a JSON feedback document.
func (c *Client) SubmitFeedback(ctx context.Context, feedback []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, PathProductFeedback, "application/json", bytes.NewReader(feedback))
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	target := c.base.String() + path

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build %s %s", method, path)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "%s %s: read body: %v", method, path, err)
	}
	if !json.Valid(data) {
		return nil, errors.Wrapf(ErrMalformedResponse, "%s %s", method, path)
	}

	return data, nil
}
