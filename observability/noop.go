package observability

import "context"

// NoOpObserver drops every event. Components use it until an observer is
// supplied.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(context.Context, Event) {}
