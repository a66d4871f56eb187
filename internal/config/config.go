package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	// HTTP server configuration
	Server ServerConfig `toml:"server"`

	// Database configuration
	Database DatabaseConfig `toml:"database"`

	// Replay fetching configuration
	Replay ReplayConfig `toml:"replay"`

	// Credential broker configuration
	Auth AuthConfig `toml:"auth"`

	// Set retrieval configuration
	Smogon SmogonConfig `toml:"smogon"`
}

// ServerConfig contains API server settings.
type ServerConfig struct {
	Port      int    `toml:"port"`       // Listen port
	DebugMode bool   `toml:"debug_mode"` // Enable debug logging
	Timeout   string `toml:"timeout"`    // Request timeout (e.g., "60s")
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`           // Database file path ("" = default location)
	MaxOpenConns int    `toml:"max_open_conns"` // Connection pool size
	AutoMigrate  bool   `toml:"auto_migrate"`   // Run migrations on open
}

// ReplayConfig contains replay download settings.
type ReplayConfig struct {
	Timeout   string `toml:"timeout"`    // Per-fetch timeout (e.g., "15s")
	RateDelay string `toml:"rate_delay"` // Delay between fetches (e.g., "500ms")
}

// AuthConfig contains credential broker settings.
type AuthConfig struct {
	CredentialsDir string `toml:"credentials_dir"` // Token blob directory ("" = default location)
	Passphrase     string `toml:"passphrase"`      // Seals token blobs at rest
	AuthorizeURL   string `toml:"authorize_url"`   // External authorization endpoint base
	PollInterval   string `toml:"poll_interval"`   // Credential polling interval (e.g., "10s")
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
}

// SmogonConfig contains set retrieval settings.
type SmogonConfig struct {
	DefaultGeneration string `toml:"default_generation"` // Generation when the query omits one
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      8701,
			DebugMode: false,
			Timeout:   "60s",
		},
		Database: DatabaseConfig{
			Path:         "",
			MaxOpenConns: 10,
			AutoMigrate:  true,
		},
		Replay: ReplayConfig{
			Timeout:   "15s",
			RateDelay: "500ms",
		},
		Auth: AuthConfig{
			CredentialsDir: "",
			PollInterval:   "10s",
		},
		Smogon: SmogonConfig{
			DefaultGeneration: "gen9",
		},
	}
}

// Dir returns the application data directory, creating it if needed.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".scorekeeper")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	return dir, nil
}

// configPath returns the path to the configuration file.
func configPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from disk. Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	// If file doesn't exist, return default config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return &config, nil
}

// Save saves the configuration to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if _, err := time.ParseDuration(c.Server.Timeout); err != nil {
		return fmt.Errorf("invalid server timeout %q: %w", c.Server.Timeout, err)
	}
	if _, err := time.ParseDuration(c.Replay.Timeout); err != nil {
		return fmt.Errorf("invalid replay timeout %q: %w", c.Replay.Timeout, err)
	}
	if _, err := time.ParseDuration(c.Replay.RateDelay); err != nil {
		return fmt.Errorf("invalid replay rate delay %q: %w", c.Replay.RateDelay, err)
	}
	if _, err := time.ParseDuration(c.Auth.PollInterval); err != nil {
		return fmt.Errorf("invalid auth poll interval %q: %w", c.Auth.PollInterval, err)
	}
	if c.Database.MaxOpenConns < 0 {
		return fmt.Errorf("max open connections cannot be negative: %d", c.Database.MaxOpenConns)
	}
	return nil
}

// GetServerTimeout returns the request timeout as a duration.
func (c *Config) GetServerTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Server.Timeout)
}

// GetReplayTimeout returns the per-fetch replay timeout as a duration.
func (c *Config) GetReplayTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Replay.Timeout)
}

// GetReplayRateDelay returns the delay between replay fetches as a duration.
func (c *Config) GetReplayRateDelay() (time.Duration, error) {
	return time.ParseDuration(c.Replay.RateDelay)
}

// GetAuthPollInterval returns the credential polling interval as a duration.
func (c *Config) GetAuthPollInterval() (time.Duration, error) {
	return time.ParseDuration(c.Auth.PollInterval)
}
