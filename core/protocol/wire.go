package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedResponse indicates a payload that is not JSON at all. Valid
// JSON of the wrong shape (null, an array, a bare string) and missing or
// mistyped fields are never an error; they decode to safe defaults.
var ErrMalformedResponse = errors.New("malformed response")

// SendRequest is the body of a send-message call.
type SendRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

// SendResponse is the remote reply to a send. Every field is optional.
// AssistantResponse is nil when the remote omitted it or sent a non-string.
type SendResponse struct {
	SessionID         ID        `json:"sessionId,omitempty"`
	UserID            ID        `json:"userId,omitempty"`
	AssistantResponse *string   `json:"assistantResponse,omitempty"`
	Products          []Product `json:"products,omitempty"`
}

// SessionList is the remote reply to a session listing.
type SessionList struct {
	Sessions []Session `json:"sessions"`
}

// SessionHistory is the remote reply to a message-history fetch.
type SessionHistory struct {
	Messages []HistoryRecord `json:"messages"`
}

// FeedbackRequest rates a product recommended in a session.
type FeedbackRequest struct {
	SessionID    string   `json:"sessionId"`
	MessageID    string   `json:"messageID"`
	ProductID    string   `json:"productId"`
	Rating       float64  `json:"rating"`
	Reason       []string `json:"reason,omitempty"`
	ReasonText   string   `json:"reason_text,omitempty"`
	UserQuery    string   `json:"user_query,omitempty"`
	FeedbackType string   `json:"feedback_type,omitempty"`
}

// ErrorResponse is the generic failure body returned by the proxy.
type ErrorResponse struct {
	Error string `json:"error"`
}

type object map[string]json.RawMessage

// decodeObject returns the top-level fields of data. Any JSON value other
// than an object yields an empty object.
func decodeObject(data []byte) (object, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: not JSON", ErrMalformedResponse)
	}
	var obj object
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return object{}, nil
	}
	return obj, nil
}

// field decodes obj[key] into dst and reports whether it succeeded. Callers
// must not trust dst when it reports false.
func (obj object) field(key string, dst any) bool {
	raw, ok := obj[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// DecodeSendResponse decodes a send reply, substituting defaults for any
// missing or mistyped field. Products fall back to an empty list.
func DecodeSendResponse(data []byte) (SendResponse, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return SendResponse{}, err
	}

	var resp SendResponse
	obj.field("sessionId", &resp.SessionID)
	obj.field("userId", &resp.UserID)

	var text string
	if obj.field("assistantResponse", &text) {
		resp.AssistantResponse = &text
	}

	var products []Product
	if obj.field("products", &products) && products != nil {
		resp.Products = products
	} else {
		resp.Products = []Product{}
	}

	return resp, nil
}

// DecodeSessionList decodes a session listing. A missing or mistyped
// sessions field yields an empty list; sessions that fail to decode are
// skipped.
func DecodeSessionList(data []byte) (SessionList, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return SessionList{}, err
	}

	list := SessionList{Sessions: []Session{}}

	var raws []json.RawMessage
	if !obj.field("sessions", &raws) {
		return list, nil
	}
	for _, raw := range raws {
		var s Session
		if err := json.Unmarshal(raw, &s); err != nil || s.ID == "" {
			continue
		}
		list.Sessions = append(list.Sessions, s)
	}

	return list, nil
}

// DecodeSessionHistory decodes a message-history reply. Each record is
// decoded field by field so one bad field never drops the exchange.
func DecodeSessionHistory(data []byte) (SessionHistory, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return SessionHistory{}, err
	}

	history := SessionHistory{Messages: []HistoryRecord{}}

	var raws []json.RawMessage
	if !obj.field("messages", &raws) {
		return history, nil
	}
	for _, raw := range raws {
		var fields object
		if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
			continue
		}

		var rec HistoryRecord
		fields.field("id", &rec.ID)
		fields.field("user_content", &rec.UserContent)
		fields.field("assistant_content", &rec.AssistantContent)
		if !fields.field("products", &rec.Products) || rec.Products == nil {
			rec.Products = []Product{}
		}
		history.Messages = append(history.Messages, rec)
	}

	return history, nil
}
