// Package client calls the shopping proxy on behalf of a chat front end. It
// decodes proxy replies leniently into protocol types and implements the API
// interfaces of the conversation and directory packages.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/tailored-agentic-units/shopassist/core/protocol"
)

const maxResponseBytes = 8 << 20

// ErrRequestFailed marks any proxy call that did not succeed. Use errors.As
// with *RequestError for the status and the proxy's error text.
var ErrRequestFailed = errors.New("request failed")

// RequestError is a failed proxy call. Status is 0 for transport failures.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("request failed: %s", e.Message)
	}
	return fmt.Sprintf("request failed (%d): %s", e.Status, e.Message)
}

func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client talks to the proxy's REST routes.
type Client struct {
	base string
	http *http.Client
}

// New creates a Client for the proxy mounted at baseURL, for example
// http://localhost:8080/api/shop.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid proxy url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("invalid proxy url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SendMessage posts a chat message.
func (c *Client) SendMessage(ctx context.Context, req protocol.SendRequest) (protocol.SendResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return protocol.SendResponse{}, errors.Wrap(err, "encode message")
	}
	data, err := c.do(ctx, http.MethodPost, "/message", body)
	if err != nil {
		return protocol.SendResponse{}, err
	}
	return protocol.DecodeSendResponse(data)
}

// ListSessions fetches the sessions of userID.
func (c *Client) ListSessions(ctx context.Context, userID string) (protocol.SessionList, error) {
	data, err := c.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(userID), nil)
	if err != nil {
		return protocol.SessionList{}, err
	}
	return protocol.DecodeSessionList(data)
}

// SessionMessages fetches the history of sessionID.
func (c *Client) SessionMessages(ctx context.Context, sessionID string) (protocol.SessionHistory, error) {
	data, err := c.do(ctx, http.MethodGet, "/sessions/messages/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return protocol.SessionHistory{}, err
	}
	return protocol.DecodeSessionHistory(data)
}

// SubmitFeedback rates a recommended product.
func (c *Client) SubmitFeedback(ctx context.Context, fb protocol.FeedbackRequest) error {
	body, err := json.Marshal(fb)
	if err != nil {
		return errors.Wrap(err, "encode feedback")
	}
	_, err = c.do(ctx, http.MethodPost, "/feedback", body)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build %s %s", method, path)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RequestError{Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &RequestError{Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{Status: resp.StatusCode, Message: errorText(resp, data)}
	}
	return data, nil
}

func errorText(resp *http.Response, data []byte) string {
	var body protocol.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return resp.Status
}
