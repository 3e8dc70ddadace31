package conversation

// State is the per-send lifecycle of a Conversation.
type State int

const (
	StateIdle State = iota
	StateSending
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Binding reports whether the conversation is attached to a remote session.
type Binding int

const (
	NoSession Binding = iota
	ActiveSession
)

func (b Binding) String() string {
	if b == ActiveSession {
		return "active"
	}
	return "none"
}
