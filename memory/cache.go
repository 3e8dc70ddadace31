package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Cache is a write-back view over a Store. Reads never trigger I/O; writes
// are buffered until Flush. All methods are safe for concurrent use.
type Cache struct {
	store   Store
	cache   map[string][]byte
	dirty   map[string]bool
	removed map[string]bool
	mu      sync.RWMutex
}

// NewCache creates a Cache backed by the given Store.
func NewCache(store Store) *Cache {
	return &Cache{
		store:   store,
		cache:   make(map[string][]byte),
		dirty:   make(map[string]bool),
		removed: make(map[string]bool),
	}
}

// Bootstrap loads every stored key that starts with one of prefixes, or
// every key when no prefix is given.
func (c *Cache) Bootstrap(ctx context.Context, prefixes ...string) error {
	keys, err := c.store.List(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap index: %w", err)
	}

	var toLoad []string
	for _, key := range keys {
		if len(prefixes) == 0 || hasAnyPrefix(key, prefixes) {
			toLoad = append(toLoad, key)
		}
	}
	if len(toLoad) == 0 {
		return nil
	}

	entries, err := c.store.Load(ctx, toLoad...)
	if err != nil {
		return fmt.Errorf("bootstrap load: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entries {
		if c.dirty[e.Key] || c.removed[e.Key] {
			continue
		}
		c.cache[e.Key] = e.Value
	}

	return nil
}

// Flush writes buffered sets and deletes through to the store.
func (c *Cache) Flush(ctx context.Context) error {
	c.mu.RLock()
	var toSave []Entry
	for key := range c.dirty {
		if val, ok := c.cache[key]; ok {
			toSave = append(toSave, Entry{Key: key, Value: slices.Clone(val)})
		}
	}
	var toDelete []string
	for key := range c.removed {
		toDelete = append(toDelete, key)
	}
	c.mu.RUnlock()

	if len(toSave) > 0 {
		if err := c.store.Save(ctx, toSave...); err != nil {
			return fmt.Errorf("flush save: %w", err)
		}
	}

	if len(toDelete) > 0 {
		if err := c.store.Delete(ctx, toDelete...); err != nil {
			return fmt.Errorf("flush delete: %w", err)
		}
	}

	c.mu.Lock()
	c.dirty = make(map[string]bool)
	c.removed = make(map[string]bool)
	c.mu.Unlock()

	return nil
}

func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	val, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	return slices.Clone(val), true
}

func (c *Cache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[key] = slices.Clone(value)
	c.dirty[key] = true
	delete(c.removed, key)
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.cache, key)
	delete(c.dirty, key)
	c.removed[key] = true
}

func hasAnyPrefix(key string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
