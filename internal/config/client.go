package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends for the local cache
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// ClientConfig configures the note client: where the API lives and where
// the local cache snapshot is kept.
type ClientConfig struct {
	APIBaseURL   string        `yaml:"api_base_url"`
	APITimeout   time.Duration `yaml:"api_timeout"`
	InitData     string        `yaml:"init_data"` // Telegram WebApp init data, sent as "tma <initData>"
	StateDir     string        `yaml:"state_dir"`
	StateBackend string        `yaml:"state_backend"`
	SearchLimit  int           `yaml:"search_limit"`
}

// LoadClient reads the client configuration from the environment and then
// overlays the YAML file at path, if path is non-empty.
func LoadClient(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{
		APIBaseURL:   getEnv("API_BASE_URL", "http://127.0.0.1:8000/api/v1"),
		APITimeout:   time.Duration(getInt("API_TIMEOUT_MS", 12000)) * time.Millisecond,
		InitData:     getEnv("TMA_INIT_DATA", ""),
		StateDir:     getEnv("STATE_DIR", defaultStateDir()),
		StateBackend: getEnv("STATE_BACKEND", BackendFile),
		SearchLimit:  getInt("SEARCH_LIMIT", DefaultSearchLimit),
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		var overlay ClientConfig
		if err := yaml.Unmarshal(data, &overlay); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		cfg.merge(&overlay)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ClientConfig) merge(o *ClientConfig) {
	if o.APIBaseURL != "" {
		c.APIBaseURL = o.APIBaseURL
	}
	if o.APITimeout > 0 {
		c.APITimeout = o.APITimeout
	}
	if o.InitData != "" {
		c.InitData = o.InitData
	}
	if o.StateDir != "" {
		c.StateDir = o.StateDir
	}
	if o.StateBackend != "" {
		c.StateBackend = o.StateBackend
	}
	if o.SearchLimit > 0 {
		c.SearchLimit = o.SearchLimit
	}
}

func (c *ClientConfig) validate() error {
	switch c.StateBackend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unknown state backend %q (supported: %s, %s)", c.StateBackend, BackendFile, BackendSQLite)
	}
	if c.SearchLimit > MaxSearchLimit {
		c.SearchLimit = MaxSearchLimit
	}
	return nil
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "knowledge")
	}
	return ".knowledge"
}
