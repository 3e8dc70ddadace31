package memory

// Config holds client storage parameters.
type Config struct {
	Path string `json:"path,omitempty"` // FileStore root directory; empty keeps state in process only.
}

// DefaultConfig returns the default storage configuration (transient).
func DefaultConfig() Config {
	return Config{}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Path != "" {
		c.Path = source.Path
	}
}

// NewStore creates a Store from configuration: a FileStore rooted at Path,
// or a MapStore when Path is empty.
func NewStore(cfg *Config) Store {
	if cfg.Path == "" {
		return NewMapStore()
	}
	return NewFileStore(cfg.Path)
}
