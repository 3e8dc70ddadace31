package protocol

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// ID is an opaque identifier assigned by the remote API. It decodes from
// either a JSON string or a JSON number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Session is a conversation owned and persisted by the remote API.
type Session struct {
	ID        ID        `json:"id"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// Timestamp accepts the layouts the remote API is known to emit. Unparseable
// values decode to the zero time instead of failing the enclosing payload.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		ts.Time = time.Time{}
		return nil
	}
	ts.Time = ParseTimestamp(raw)
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(ts.UTC().Format(time.RFC3339Nano))
}

// ParseTimestamp parses s with the known layouts. Values without a zone are
// read as UTC. Returns the zero time when no layout matches.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// HistoryRecord is one exchange as stored by the remote API: a user turn, the
// assistant's reply, and the products attached to that reply.
type HistoryRecord struct {
	ID               ID        `json:"id"`
	UserContent      string    `json:"user_content"`
	AssistantContent string    `json:"assistant_content"`
	Products         []Product `json:"products"`
}

// FlattenHistory expands each paired record into two messages, user then
// assistant, preserving record order. Products attach to the assistant entry
// only; a record without products yields an empty list.
func FlattenHistory(records []HistoryRecord) []Message {
	messages := make([]Message, 0, 2*len(records))

	for _, rec := range records {
		products := rec.Products
		if products == nil {
			products = []Product{}
		}

		messages = append(messages,
			Message{
				ID:      "user-" + string(rec.ID),
				Role:    RoleUser,
				Content: rec.UserContent,
			},
			Message{
				ID:       "assistant-" + string(rec.ID),
				Role:     RoleAssistant,
				Content:  rec.AssistantContent,
				Products: products,
			},
		)
	}

	return messages
}
