package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Default endpoints match a local backend.
const (
	DefaultServerURL = "http://localhost:8000"
	DefaultSocketURL = "ws://localhost:8000"
)

// Config represents the global ~/.samvad/config.toml.
type Config struct {
	ServerURL      string `toml:"server_url"`
	SocketURL      string `toml:"socket_url"`
	DefaultSession string `toml:"default_session"`
}

// Load reads config from the given path. Missing fields fall back to the
// local-backend defaults. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Default returns a config pointing at the local backend.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.ServerURL == "" {
		c.ServerURL = DefaultServerURL
	}
	if c.SocketURL == "" {
		c.SocketURL = DefaultSocketURL
	}
}
