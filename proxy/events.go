package proxy

import "github.com/tailored-agentic-units/shopassist/observability"

// Proxy event types.
const (
	EventRelayStart      observability.EventType = "proxy.relay.start"
	EventRelayComplete   observability.EventType = "proxy.relay.complete"
	EventRelayError      observability.EventType = "proxy.relay.error"
	EventValidationError observability.EventType = "proxy.validation.error"
)
