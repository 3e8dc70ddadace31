// Package identity holds the client's notion of who is chatting: a durable
// user id that survives restarts and a transient session id scoped to one
// client instance. An Identity is constructed once and passed explicitly to
// the components that need it.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/shopassist/memory"
)

// Storage keys.
const (
	KeyUserID    = "shop_user_id"
	KeySessionID = "shop_session_id"
)

// Identity is safe for concurrent use.
type Identity struct {
	durable   *memory.Cache
	transient memory.Store
	mu        sync.Mutex
}

// Load restores an Identity from durable storage. transient backs the
// instance-scoped session id; nil uses a fresh in-process store.
func Load(ctx context.Context, durable, transient memory.Store) (*Identity, error) {
	cache := memory.NewCache(durable)
	if err := cache.Bootstrap(ctx, KeyUserID); err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	if transient == nil {
		transient = memory.NewMapStore()
	}

	return &Identity{
		durable:   cache,
		transient: transient,
	}, nil
}

// UserID returns the persisted user id, or "" when none is known yet.
func (id *Identity) UserID() string {
	val, ok := id.durable.Get(KeyUserID)
	if !ok {
		return ""
	}
	return strings.TrimSpace(string(val))
}

// SetUserID persists userID. Reports whether the stored value changed.
func (id *Identity) SetUserID(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, nil
	}

	id.mu.Lock()
	defer id.mu.Unlock()

	if id.UserID() == userID {
		return false, nil
	}

	id.durable.Set(KeyUserID, []byte(userID))
	if err := id.durable.Flush(ctx); err != nil {
		return false, fmt.Errorf("failed to persist user id: %w", err)
	}
	return true, nil
}

// ClearUserID forgets the persisted user id.
func (id *Identity) ClearUserID(ctx context.Context) error {
	id.mu.Lock()
	defer id.mu.Unlock()

	id.durable.Delete(KeyUserID)
	if err := id.durable.Flush(ctx); err != nil {
		return fmt.Errorf("failed to clear user id: %w", err)
	}
	return nil
}

// TransientSessionID returns the instance-scoped session id, minting and
// storing a UUID on first use.
func (id *Identity) TransientSessionID(ctx context.Context) (string, error) {
	id.mu.Lock()
	defer id.mu.Unlock()

	entries, err := id.transient.Load(ctx, KeySessionID)
	if err == nil && len(entries) == 1 && len(entries[0].Value) > 0 {
		return string(entries[0].Value), nil
	}
	if err != nil && !errors.Is(err, memory.ErrKeyNotFound) {
		return "", fmt.Errorf("failed to read session id: %w", err)
	}

	sessionID := uuid.NewString()
	if err := id.transient.Save(ctx, memory.Entry{Key: KeySessionID, Value: []byte(sessionID)}); err != nil {
		return "", fmt.Errorf("failed to store session id: %w", err)
	}
	return sessionID, nil
}
