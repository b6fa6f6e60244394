package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the client-side settings that come from the environment.
// Flags may override individual fields after Load.
type Config struct {
	BaseURL      string        `env:"RAGCHAT_BASE_URL" envDefault:"http://localhost:8000"`
	Timeout      time.Duration `env:"RAGCHAT_TIMEOUT" envDefault:"60s"`
	StoreDir     string        `env:"RAGCHAT_STORE_DIR"`
	StoreBackend string        `env:"RAGCHAT_STORE_BACKEND" envDefault:"file"` // "file" or "sqlite"
}

// LoadConfig reads configuration from the environment. StoreDir defaults
// to ~/.ragchat when unset.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.StoreDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.StoreDir = filepath.Join(home, ".ragchat")
	}
	return cfg, nil
}

// OpenStore creates the persistent store the config asks for. The sqlite
// backend keeps everything in one database file; the default file backend
// keeps one file per key.
func (c *Config) OpenStore() (Store, func() error, error) {
	switch c.StoreBackend {
	case "sqlite":
		kv, err := OpenKVStore(filepath.Join(c.StoreDir, "state.db"))
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil
	case "file", "":
		fs := NewFileStore(c.StoreDir)
		return fs, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s (supported: file, sqlite)", c.StoreBackend)
	}
}
