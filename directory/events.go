package directory

import "github.com/tailored-agentic-units/shopassist/observability"

// Directory event types.
const (
	EventFetchStart    observability.EventType = "directory.fetch.start"
	EventFetchComplete observability.EventType = "directory.fetch.complete"
	EventFetchError    observability.EventType = "directory.fetch.error"
	EventFetchStale    observability.EventType = "directory.fetch.stale"
)
