// Package conversation drives one chat: it appends the user's turn
// optimistically, relays it through the proxy, appends the assistant's
// reply with its products, and binds the conversation to the remote session
// the first reply names.
//
//	c := conversation.New(api, conversation.WithObserver(obs))
//	if err := c.Initialize(ctx, savedSessionID); err != nil { ... }
//	resp, err := c.Send(ctx, "trail running shoes under 5000")
package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tailored-agentic-units/shopassist/core/protocol"
	"github.com/tailored-agentic-units/shopassist/observability"
	"github.com/tailored-agentic-units/shopassist/session"
)

// Fixed assistant texts.
const (
	FallbackResponse = "I understand. How can I help you find products?"
	ErrorResponse    = "Sorry, I encountered an error. Please try again."
)

// API is the subset of the proxy client a Conversation needs.
type API interface {
	SendMessage(ctx context.Context, req protocol.SendRequest) (protocol.SendResponse, error)
	SessionMessages(ctx context.Context, sessionID string) (protocol.SessionHistory, error)
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithSession overrides the default in-memory message log.
func WithSession(s session.Session) Option {
	return func(c *Conversation) { c.log = s }
}

// WithObserver overrides the default no-op observer.
func WithObserver(o observability.Observer) Option {
	return func(c *Conversation) { c.observer = o }
}

// WithStateListener registers fn to receive every State transition.
// fn runs synchronously and must not call back into the Conversation.
func WithStateListener(fn func(State)) Option {
	return func(c *Conversation) { c.listener = fn }
}

// Conversation is safe for concurrent use. Sends are serialized only
// advisorily: a second Send while one is pending fails with ErrSendInFlight.
type Conversation struct {
	api      API
	log      session.Session
	observer observability.Observer
	listener func(State)

	mu    sync.Mutex
	state State
}

// New creates an unbound, idle Conversation.
func New(api API, opts ...Option) *Conversation {
	c := &Conversation{
		api:      api,
		log:      session.NewMemorySession(),
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the bound remote session id, or "" for a new session.
func (c *Conversation) SessionID() string {
	return c.log.ID()
}

// Binding reports whether a remote session is bound.
func (c *Conversation) Binding() Binding {
	if c.log.ID() == "" {
		return NoSession
	}
	return ActiveSession
}

// State returns the current send state.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Messages returns a copy of the message list in display order.
func (c *Conversation) Messages() []protocol.Message {
	return c.log.Messages()
}

// Initialize loads the history of sessionID, or starts empty when sessionID
// is "". A failed fetch leaves the conversation bound with an empty list and
// returns the error.
func (c *Conversation) Initialize(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		c.log.Clear()
		return nil
	}
	return c.load(ctx, sessionID, "conversation.Initialize")
}

// Send appends text as a user message and relays it. On success the reply is
// appended and returned so callers can pick up a newly issued user id. On
// failure an apology is appended, the binding is left alone, and the error
// is returned. The state is Idle again when Send returns.
func (c *Conversation) Send(ctx context.Context, text string) (protocol.SendResponse, error) {
	if strings.TrimSpace(text) == "" {
		return protocol.SendResponse{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.state == StateSending {
		c.mu.Unlock()
		return protocol.SendResponse{}, ErrSendInFlight
	}
	c.setStateLocked(StateSending)
	c.mu.Unlock()

	defer c.setState(StateIdle)

	c.log.Append(protocol.NewUserMessage(text))
	sessionID := c.log.ID()

	observability.Emit(ctx, c.observer, EventSendStart, observability.LevelVerbose, "conversation.Send", map[string]any{
		"session_id":     sessionID,
		"message_length": len(text),
	})

	resp, err := c.api.SendMessage(ctx, protocol.SendRequest{
		SessionID: sessionID,
		Message:   text,
	})
	if err != nil {
		c.log.Append(protocol.NewAssistantMessage(ErrorResponse, nil))
		c.setState(StateError)

		observability.Emit(ctx, c.observer, EventSendError, observability.LevelWarning, "conversation.Send", map[string]any{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return protocol.SendResponse{}, fmt.Errorf("failed to send message: %w", err)
	}

	if newID := string(resp.SessionID); newID != "" && sessionID == "" && c.log.ID() == "" {
		c.log.Bind(newID)
		observability.Emit(ctx, c.observer, EventSessionBound, observability.LevelInfo, "conversation.Send", map[string]any{
			"session_id": newID,
		})
	}

	content := FallbackResponse
	if resp.AssistantResponse != nil {
		content = *resp.AssistantResponse
	}
	c.log.Append(protocol.NewAssistantMessage(content, resp.Products))

	observability.Emit(ctx, c.observer, EventSendComplete, observability.LevelInfo, "conversation.Send", map[string]any{
		"session_id":      c.log.ID(),
		"response_length": len(content),
		"products":        len(resp.Products),
	})

	return resp, nil
}

// SelectSession switches to sessionID: the list is cleared at once and
// replaced by the fetched history. On failure the list stays empty and the
// error is returned. An empty sessionID behaves like NewSession.
func (c *Conversation) SelectSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		c.NewSession(ctx)
		return nil
	}
	return c.load(ctx, sessionID, "conversation.SelectSession")
}

// NewSession unbinds the conversation and clears the list. It makes no
// remote call; the next Send creates the remote session.
func (c *Conversation) NewSession(ctx context.Context) {
	c.log.Clear()
	observability.Emit(ctx, c.observer, EventSessionNew, observability.LevelInfo, "conversation.NewSession", nil)
}

func (c *Conversation) load(ctx context.Context, sessionID, source string) error {
	c.log.Reset(sessionID, nil)

	history, err := c.api.SessionMessages(ctx, sessionID)
	if err != nil {
		observability.Emit(ctx, c.observer, EventHistoryError, observability.LevelWarning, source, map[string]any{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	messages := protocol.FlattenHistory(history.Messages)
	c.log.Reset(sessionID, messages)

	observability.Emit(ctx, c.observer, EventHistoryLoaded, observability.LevelInfo, source, map[string]any{
		"session_id": sessionID,
		"messages":   len(messages),
	})
	return nil
}

func (c *Conversation) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setStateLocked(s)
}

func (c *Conversation) setStateLocked(s State) {
	c.state = s
	if c.listener != nil {
		c.listener(s)
	}
}
