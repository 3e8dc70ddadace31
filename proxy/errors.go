package proxy

import (
	"fmt"
	"net/http"
)

// Fixed failure messages. Upstream detail never reaches the caller.
const (
	MsgSendFailed     = "Failed to send message"
	MsgSessionsFailed = "Failed to fetch sessions"
	MsgHistoryFailed  = "Failed to fetch session messages"
	MsgFeedbackFailed = "Failed to submit feedback"
)

// Error is a relay failure ready to be rendered to the caller. Status is
// 400 for rejected input, 405 for a wrong method and 500 for any upstream
// failure.
type Error struct {
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func badRequest(msg string, cause error) *Error {
	return &Error{Status: http.StatusBadRequest, Message: msg, cause: cause}
}

func upstreamFailure(msg string, cause error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: msg, cause: cause}
}
