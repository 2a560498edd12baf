package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ModelEntry declares one loadable model in the configuration file.
type ModelEntry struct {
	ID         string `json:"id" yaml:"id" toml:"id"`
	Name       string `json:"name" yaml:"name" toml:"name"`
	Capability string `json:"capability" yaml:"capability" toml:"capability"`
	Path       string `json:"path" yaml:"path" toml:"path"`
	EstMB      int    `json:"est_mb" yaml:"est_mb" toml:"est_mb"`
}

// RateLimitConfig controls per-key request throttling.
type RateLimitConfig struct {
	// Requests allowed per window. Zero uses the server default.
	Requests int `json:"requests" yaml:"requests" toml:"requests"`
	// Window length in seconds.
	WindowSec int `json:"window_sec" yaml:"window_sec" toml:"window_sec"`
	// Scope is "key" (one window per key) or "key_capability"
	// (one window per key and capability pair).
	Scope string `json:"scope" yaml:"scope" toml:"scope"`
	// RedisURL switches the limiter to a redis backend when set.
	RedisURL string `json:"redis_url" yaml:"redis_url" toml:"redis_url"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr     string       `json:"addr" yaml:"addr" toml:"addr"`
	Models   []ModelEntry `json:"models" yaml:"models" toml:"models"`
	BudgetMB int          `json:"budget_mb" yaml:"budget_mb" toml:"budget_mb"`
	MarginMB int          `json:"margin_mb" yaml:"margin_mb" toml:"margin_mb"`

	// DefaultModels maps a capability to the model id used when a request
	// does not name one.
	DefaultModels map[string]string `json:"default_models" yaml:"default_models" toml:"default_models"`
	// Concurrency maps a capability to its maximum concurrent executions.
	Concurrency map[string]int `json:"concurrency" yaml:"concurrency" toml:"concurrency"`

	MaxQueueDepth int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitSec    int `json:"max_wait_sec" yaml:"max_wait_sec" toml:"max_wait_sec"`

	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit" toml:"rate_limit"`

	// KeysDB is the path to the API key database file.
	KeysDB string `json:"keys_db" yaml:"keys_db" toml:"keys_db"`

	MaxBodyMB int    `json:"max_body_mb" yaml:"max_body_mb" toml:"max_body_mb"`
	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// LoadEnvFile loads a .env file into the process environment if present.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// ApplyEnv overlays AIGATED_* environment variables on top of cfg.
// Environment wins over file values; flags in main win over both.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("AIGATED_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("AIGATED_BUDGET_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BudgetMB = n
		}
	}
	if v := os.Getenv("AIGATED_MARGIN_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MarginMB = n
		}
	}
	if v := os.Getenv("AIGATED_KEYS_DB"); v != "" {
		cfg.KeysDB = v
	}
	if v := os.Getenv("AIGATED_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.Requests = n
		}
	}
	if v := os.Getenv("AIGATED_RATE_WINDOW_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.WindowSec = n
		}
	}
	if v := os.Getenv("AIGATED_RATE_SCOPE"); v != "" {
		cfg.RateLimit.Scope = v
	}
	if v := os.Getenv("AIGATED_REDIS_URL"); v != "" {
		cfg.RateLimit.RedisURL = v
	}
	if v := os.Getenv("AIGATED_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Validate checks statically-verifiable invariants. Budget-versus-footprint
// checks need the loaded registry and happen in the manager preflight.
func (c Config) Validate() error {
	if c.BudgetMB < 0 || c.MarginMB < 0 {
		return fmt.Errorf("budget and margin must be non-negative")
	}
	if c.RateLimit.Requests < 0 || c.RateLimit.WindowSec < 0 {
		return fmt.Errorf("rate limit values must be non-negative")
	}
	switch c.RateLimit.Scope {
	case "", "key", "key_capability":
	default:
		return fmt.Errorf("unknown rate limit scope: %q", c.RateLimit.Scope)
	}
	for capability, n := range c.Concurrency {
		if n <= 0 {
			return fmt.Errorf("concurrency for %q must be positive", capability)
		}
	}
	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.ID == "" || m.Path == "" {
			return fmt.Errorf("model entries need id and path")
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate model id: %s", m.ID)
		}
		seen[m.ID] = true
	}
	return nil
}
