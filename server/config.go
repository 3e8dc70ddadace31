package server

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tailored-agentic-units/shopassist/proxy"
	"github.com/tailored-agentic-units/shopassist/remote"
)

// EnvRemoteURL overrides Remote.BaseURL when set.
const EnvRemoteURL = "SHOPASSIST_REMOTE_URL"

const (
	defaultAddr   = ":8080"
	defaultPrefix = "/api/shop"
	defaultLog    = "slog"
)

// Config holds initialization parameters for the proxy server. Each
// subsystem section delegates to that subsystem's Merge.
type Config struct {
	Addr   string        `json:"addr,omitempty"`
	Prefix string        `json:"prefix,omitempty"`
	Remote remote.Config `json:"remote"`
	Proxy  proxy.Config  `json:"proxy"`
	// Log names a registered observer ("slog", "noop", ...).
	Log string `json:"log,omitempty"`
}

// DefaultConfig returns a Config with defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Addr:   defaultAddr,
		Prefix: defaultPrefix,
		Remote: remote.DefaultConfig(),
		Proxy:  proxy.DefaultConfig(),
		Log:    defaultLog,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	c.Remote.Merge(&source.Remote)
	c.Proxy.Merge(&source.Proxy)

	if source.Addr != "" {
		c.Addr = source.Addr
	}
	if source.Prefix != "" {
		c.Prefix = source.Prefix
	}
	if source.Log != "" {
		c.Log = source.Log
	}
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvRemoteURL)); v != "" {
		c.Remote.BaseURL = v
	}
}

// LoadConfig reads a JSON config file, merges it with defaults, and returns
// the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
