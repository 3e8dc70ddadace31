package memory

import "errors"

// Sentinel errors wrapped by every Store implementation.
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrLoadFailed  = errors.New("failed to load entry")
	ErrSaveFailed  = errors.New("failed to save entry")
	ErrInvalidKey  = errors.New("invalid key")
)
