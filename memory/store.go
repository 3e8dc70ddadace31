// Package memory provides client-local key/value storage: a durable
// filesystem store that survives restarts, a transient in-process store that
// lives as long as one client instance, and a write-back cache in front of
// either.
package memory

import "context"

// Store translates between external storage and the key/value namespace.
// Implementations are stateless with respect to caching: each call performs
// its own I/O.
type Store interface {
	// List returns all available keys in the store.
	List(ctx context.Context) ([]string, error)
	// Load retrieves entries for the specified keys.
	Load(ctx context.Context, keys ...string) ([]Entry, error)
	// Save persists entries, creating or overwriting as needed.
	Save(ctx context.Context, entries ...Entry) error
	// Delete removes entries. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
