package session

import (
	"sync"

	"github.com/tailored-agentic-units/shopassist/core/protocol"
)

type memorySession struct {
	id       string
	messages []protocol.Message
	mu       sync.RWMutex
}

// NewMemorySession creates an unbound Session backed by an in-memory slice.
func NewMemorySession() Session {
	return &memorySession{}
}

func (s *memorySession) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *memorySession) Bind(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

func (s *memorySession) Append(msg protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg.Clone())
}

func (s *memorySession) Messages() []protocol.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.messages)
}

func (s *memorySession) Reset(id string, msgs []protocol.Message) {
	copied := cloneAll(msgs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	s.messages = copied
}

func (s *memorySession) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
	s.messages = nil
}

func cloneAll(msgs []protocol.Message) []protocol.Message {
	copied := make([]protocol.Message, len(msgs))
	for i, msg := range msgs {
		copied[i] = msg.Clone()
	}
	return copied
}
