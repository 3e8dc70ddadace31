package proxy

const defaultMaxBodyBytes = 1 << 20

// Config holds relay parameters.
type Config struct {
	MaxBodyBytes int64 `json:"max_body_bytes,omitempty"`
}

// DefaultConfig returns the default proxy configuration.
func DefaultConfig() Config {
	return Config{MaxBodyBytes: defaultMaxBodyBytes}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.MaxBodyBytes > 0 {
		c.MaxBodyBytes = source.MaxBodyBytes
	}
}
