package conversation

import "errors"

var (
	// ErrEmptyMessage is returned by Send for text that is empty after trimming.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrSendInFlight is returned by Send while a previous send is still
	// awaiting its reply.
	ErrSendInFlight = errors.New("a message is already being sent")
)
