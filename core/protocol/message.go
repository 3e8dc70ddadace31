// Package protocol defines the conversation data model shared by the proxy,
// the proxy client, and the conversation components: messages, products,
// sessions, paired history records, and the JSON envelopes exchanged with the
// remote assistant API.
package protocol

import (
	"slices"

	"github.com/google/uuid"
)

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a conversation. Messages are immutable once
// created; only assistant messages carry products.
type Message struct {
	ID       string    `json:"id"`
	Role     Role      `json:"role"`
	Content  string    `json:"content"`
	Products []Product `json:"products,omitempty"`
}

// NewUserMessage creates a user Message with a fresh UUIDv7 identifier.
//
// Example:
//
//	msg := protocol.NewUserMessage("wireless earbuds under 2000")
func NewUserMessage(content string) Message {
	return Message{
		ID:      newID(),
		Role:    RoleUser,
		Content: content,
	}
}

// NewAssistantMessage creates an assistant Message with a fresh identifier.
// A nil product list is normalized to an empty one so every assistant
// message carries a list.
func NewAssistantMessage(content string, products []Product) Message {
	if products == nil {
		products = []Product{}
	}
	return Message{
		ID:       newID(),
		Role:     RoleAssistant,
		Content:  content,
		Products: products,
	}
}

// Clone returns a copy of m whose product list does not alias m's.
func (m Message) Clone() Message {
	if m.Products != nil {
		m.Products = slices.Clone(m.Products)
	}
	return m
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
