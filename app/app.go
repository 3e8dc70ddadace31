// Package app composes the chat client: one identity, one conversation and
// the session directory that navigates it.
//
//	id, _ := identity.Load(ctx, memory.NewFileStore(dir), nil)
//	a := app.New(id, client, app.WithObserver(obs))
//	a.Start(ctx, "")
//	a.Send(ctx, "a gift for a runner")
package app

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/shopassist/conversation"
	"github.com/tailored-agentic-units/shopassist/core/protocol"
	"github.com/tailored-agentic-units/shopassist/directory"
	"github.com/tailored-agentic-units/shopassist/identity"
	"github.com/tailored-agentic-units/shopassist/observability"
)

// Texts shown around an empty conversation.
const (
	WelcomeTitle = "Welcome to ShopAssist AI"
	WelcomeText  = "I'm your personal shopping assistant. Tell me what you're looking for, " +
		"your budget, and I'll help you find the perfect products!"
	InputPrompt = "What are you looking for today?"
)

// EventUserIdentified is emitted when a send reveals a new user id.
const EventUserIdentified observability.EventType = "app.user.identified"

// API is everything the shell needs from the proxy. *client.Client and
// *client.ConnectClient implement it.
type API interface {
	conversation.API
	directory.API
}

// Option configures an App.
type Option func(*App)

// WithObserver sets the observer shared by all components.
func WithObserver(o observability.Observer) Option {
	return func(a *App) { a.observer = o }
}

// WithOverlay selects the narrow layout for the directory.
func WithOverlay() Option {
	return func(a *App) { a.overlay = true }
}

// WithTransientSession binds a fresh conversation to the identity's
// instance-scoped session id instead of leaving it unbound.
func WithTransientSession() Option {
	return func(a *App) { a.transient = true }
}

// App wires the components together. Its fields are fixed after New.
type App struct {
	identity  *identity.Identity
	observer  observability.Observer
	overlay   bool
	transient bool

	conversation *conversation.Conversation
	directory    *directory.Directory
}

// New builds the shell around id and api.
func New(id *identity.Identity, api API, opts ...Option) *App {
	a := &App{
		identity: id,
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(a)
	}

	a.conversation = conversation.New(api, conversation.WithObserver(a.observer))

	dirOpts := []directory.Option{
		directory.WithObserver(a.observer),
		directory.WithHandler(a.conversation),
	}
	if a.overlay {
		dirOpts = append(dirOpts, directory.WithOverlay())
	}
	a.directory = directory.New(api, dirOpts...)

	return a
}

// Conversation returns the active conversation.
func (a *App) Conversation() *conversation.Conversation { return a.conversation }

// Directory returns the session directory.
func (a *App) Directory() *directory.Directory { return a.directory }

// Start opens sessionID (or a new conversation when "") and lists the known
// user's sessions. A failed listing is not fatal; a failed history load is
// returned.
func (a *App) Start(ctx context.Context, sessionID string) error {
	if sessionID == "" && a.transient {
		id, err := a.identity.TransientSessionID(ctx)
		if err != nil {
			return err
		}
		sessionID = id
	}

	if userID := a.identity.UserID(); userID != "" {
		_ = a.directory.SetUser(ctx, userID)
	}

	return a.conversation.Initialize(ctx, sessionID)
}

// Send relays text through the conversation. When the reply names a user id
// the shell has not seen, it is persisted and the directory refreshed for it.
// Listing failures are reported through the observer only.
func (a *App) Send(ctx context.Context, text string) (protocol.SendResponse, error) {
	wasBound := a.conversation.Binding() == conversation.ActiveSession

	resp, err := a.conversation.Send(ctx, text)
	if err != nil {
		return resp, err
	}

	userID := string(resp.UserID)
	if userID == "" {
		return resp, nil
	}

	changed, err := a.identity.SetUserID(ctx, userID)
	if err != nil {
		return resp, fmt.Errorf("failed to remember user: %w", err)
	}
	if changed {
		observability.Emit(ctx, a.observer, EventUserIdentified, observability.LevelInfo, "app.Send", map[string]any{
			"user_id": userID,
		})
	}

	// The first reply of a new session also adds an entry to the listing.
	newSession := !wasBound && a.conversation.Binding() == conversation.ActiveSession
	if changed || newSession || a.directory.UserID() != userID {
		_ = a.directory.Refresh(ctx, userID)
	}
	return resp, nil
}

// Select opens a session from the directory.
func (a *App) Select(ctx context.Context, sessionID string) error {
	return a.directory.Select(ctx, sessionID)
}

// NewSession starts an unbound conversation from the directory.
func (a *App) NewSession(ctx context.Context) {
	a.directory.New(ctx)
}
