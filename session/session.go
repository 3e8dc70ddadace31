// Package session holds the client-local view of one conversation: the
// ordered message list and the remote session id it belongs to.
package session

import (
	"github.com/tailored-agentic-units/shopassist/core/protocol"
)

// Session is an insertion-ordered message log bound to at most one remote
// session. An empty ID means a new, not yet saved session. Implementations
// must be safe for concurrent use.
type Session interface {
	// ID returns the bound remote session id, or "" when unbound.
	ID() string
	// Bind sets the remote session id without touching the messages.
	Bind(id string)
	// Append adds a message to the end of the log.
	Append(msg protocol.Message)
	// Messages returns a defensive copy of the log.
	Messages() []protocol.Message
	// Reset replaces the id and the log together.
	Reset(id string, msgs []protocol.Message)
	// Clear unbinds the session and empties the log.
	Clear()
}
