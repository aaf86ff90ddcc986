package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort         = 8080
	DefaultDBPath           = "pasty.db"
	DefaultExpirationHours  = 24
	DefaultMaxContentLength = 2000
	DefaultRatePerMinute    = 30
)

// Config holds the server configuration parsed from config.yaml.
type Config struct {
	// HTTPPort is the port the HTTP API and WebSocket hub listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// DBPath is the SQLite database file path (default "pasty.db").
	DBPath string `yaml:"db_path"`

	// ExpirationHours is how long a text entry lives after creation, in hours
	// (default 24). Fixed for the process lifetime — changing it requires a
	// restart.
	ExpirationHours int `yaml:"expiration_hours"`

	// Limits holds the boundary limits. Unlike the rest of the config, limits
	// are hot-reloadable via Watch.
	Limits Limits `yaml:"limits"`
}

// Limits are the request-boundary limits enforced before anything reaches the
// text store.
type Limits struct {
	// MaxContentLength is the maximum accepted text length in characters
	// (default 2000). Longer submissions are rejected at the boundary.
	MaxContentLength int `yaml:"max_content_length"`

	// RatePerMinute is the per-client-IP request budget for mutating and ping
	// routes (default 30).
	RatePerMinute int `yaml:"rate_per_minute"`
}

// Window returns the expiration window as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		HTTPPort:        DefaultHTTPPort,
		DBPath:          DefaultDBPath,
		ExpirationHours: DefaultExpirationHours,
		Limits: Limits{
			MaxContentLength: DefaultMaxContentLength,
			RatePerMinute:    DefaultRatePerMinute,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return fmt.Errorf("http_port %d is out of range [1, 65535]", cfg.HTTPPort)
	}
	if cfg.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if cfg.ExpirationHours <= 0 {
		return fmt.Errorf("expiration_hours must be positive")
	}
	if cfg.Limits.MaxContentLength <= 0 {
		return fmt.Errorf("limits.max_content_length must be positive")
	}
	if cfg.Limits.RatePerMinute <= 0 {
		return fmt.Errorf("limits.rate_per_minute must be positive")
	}
	return nil
}
