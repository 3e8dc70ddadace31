package conversation

import "github.com/tailored-agentic-units/shopassist/observability"

// Conversation event types.
const (
	EventSendStart     observability.EventType = "conversation.send.start"
	EventSendComplete  observability.EventType = "conversation.send.complete"
	EventSendError     observability.EventType = "conversation.send.error"
	EventSessionBound  observability.EventType = "conversation.session.bound"
	EventHistoryLoaded observability.EventType = "conversation.history.loaded"
	EventHistoryError  observability.EventType = "conversation.history.error"
	EventSessionNew    observability.EventType = "conversation.session.new"
)
