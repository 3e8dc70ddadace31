package remote

import "time"

const defaultBaseURL = "http://localhost:8000"

// Config holds upstream connection parameters.
type Config struct {
	BaseURL string `json:"base_url,omitempty"`
	// Timeout bounds one upstream call. Zero leaves calls unbounded.
	Timeout Duration `json:"timeout,omitempty"`
}

// DefaultConfig returns the default remote configuration.
func DefaultConfig() Config {
	return Config{BaseURL: defaultBaseURL}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.BaseURL != "" {
		c.BaseURL = source.BaseURL
	}
	if source.Timeout > 0 {
		c.Timeout = source.Timeout
	}
}

// Duration decodes from a JSON string such as "30s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}
