package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the dashboard configuration.
type Config struct {
	// HTTP server configuration
	Server ServerConfig `toml:"server" yaml:"server"`

	// Analytics backend configuration
	Backend BackendConfig `toml:"backend" yaml:"backend"`

	// Payload cache configuration
	Cache CacheConfig `toml:"cache" yaml:"cache"`

	// Snapshot storage configuration
	Storage StorageConfig `toml:"storage" yaml:"storage"`

	// Periodic refresh configuration
	Refresh RefreshConfig `toml:"refresh" yaml:"refresh"`

	// Chart rendering configuration
	Charts ChartsConfig `toml:"charts" yaml:"charts"`

	// Application configuration
	App AppConfig `toml:"app" yaml:"app"`
}

// ServerConfig contains dashboard server settings.
type ServerConfig struct {
	Port           int      `toml:"port" yaml:"port"`                       // Listen port
	OpenBrowser    bool     `toml:"open_browser" yaml:"open_browser"`       // Open the dashboard on startup
	AllowedOrigins []string `toml:"allowed_origins" yaml:"allowed_origins"` // CORS and WebSocket origin patterns
}

// BackendConfig contains analytics backend settings.
type BackendConfig struct {
	BaseURL   string  `toml:"base_url" yaml:"base_url"`     // e.g., "http://localhost:5000"
	Timeout   string  `toml:"timeout" yaml:"timeout"`       // Request timeout (e.g., "30s")
	RateLimit float64 `toml:"rate_limit" yaml:"rate_limit"` // Requests per second (0 = default)
}

// CacheConfig contains payload caching settings.
type CacheConfig struct {
	Enabled   bool   `toml:"enabled" yaml:"enabled"`       // Enable caching
	TTL       string `toml:"ttl" yaml:"ttl"`               // Cache TTL (e.g., "5m")
	MaxSize   int    `toml:"max_size" yaml:"max_size"`     // Max cache entries (0 = unlimited)
	RedisAddr string `toml:"redis_addr" yaml:"redis_addr"` // Use Redis instead of memory when set
}

// StorageConfig contains snapshot database settings.
type StorageConfig struct {
	Path           string `toml:"path" yaml:"path"`                         // SQLite file ("" = default location)
	Keep           int    `toml:"keep" yaml:"keep"`                         // Snapshots kept per view (0 = unlimited)
	RestoreOnStart bool   `toml:"restore_on_start" yaml:"restore_on_start"` // Render latest snapshots at startup
}

// RefreshConfig contains scheduled reload settings.
type RefreshConfig struct {
	Interval string   `toml:"interval" yaml:"interval"` // e.g., "15m" ("" or "0" disables)
	Views    []string `toml:"views" yaml:"views"`       // Views to reload
}

// ChartsConfig contains chart rendering settings.
type ChartsConfig struct {
	Width  string `toml:"width" yaml:"width"`   // e.g., "900px"
	Height string `toml:"height" yaml:"height"` // e.g., "400px"
	Theme  string `toml:"theme" yaml:"theme"`   // go-echarts theme name
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool `toml:"debug_mode" yaml:"debug_mode"` // Enable debug logging
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			OpenBrowser:    false,
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		Backend: BackendConfig{
			BaseURL:   "http://localhost:5000",
			Timeout:   "60s",
			RateLimit: 5,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     "5m",
			MaxSize: 64,
		},
		Storage: StorageConfig{
			Path:           "",
			Keep:           50,
			RestoreOnStart: true,
		},
		Refresh: RefreshConfig{
			Interval: "",
			Views:    []string{"overview"},
		},
		Charts: ChartsConfig{
			Width:  "100%",
			Height: "400px",
			Theme:  "white",
		},
		App: AppConfig{
			DebugMode: false,
		},
	}
}

// Dir returns the dashboard's data directory, creating it if needed.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".churn-dashboard")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	return dir, nil
}

// DefaultPath returns the path to the default configuration file.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from the default path. Returns default config if the file doesn't exist.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile loads the configuration at path. Files ending in .yaml or .yml
// are parsed as YAML, everything else as TOML. Values missing from the file
// keep their defaults. Returns default config if the file doesn't exist.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(path) {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	} else {
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	return config, nil
}

// SaveFile writes the configuration to path in the format implied by its extension.
func (c *Config) SaveFile(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = toml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend base URL %q", c.Backend.BaseURL)
	}

	if _, err := time.ParseDuration(c.Backend.Timeout); err != nil {
		return fmt.Errorf("invalid backend timeout %q: %w", c.Backend.Timeout, err)
	}

	if c.Backend.RateLimit < 0 {
		return fmt.Errorf("backend rate limit cannot be negative: %v", c.Backend.RateLimit)
	}

	if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
		return fmt.Errorf("invalid cache TTL %q: %w", c.Cache.TTL, err)
	}

	if c.Cache.MaxSize < 0 {
		return fmt.Errorf("cache max size cannot be negative: %d", c.Cache.MaxSize)
	}

	if c.Storage.Keep < 0 {
		return fmt.Errorf("storage keep cannot be negative: %d", c.Storage.Keep)
	}

	if _, err := c.GetRefreshInterval(); err != nil {
		return fmt.Errorf("invalid refresh interval %q: %w", c.Refresh.Interval, err)
	}

	return nil
}

// GetBackendTimeout returns the backend request timeout as a duration.
func (c *Config) GetBackendTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Backend.Timeout)
}

// GetCacheTTL returns the cache TTL as a duration.
func (c *Config) GetCacheTTL() (time.Duration, error) {
	return time.ParseDuration(c.Cache.TTL)
}

// GetRefreshInterval returns the refresh interval. Zero means disabled.
func (c *Config) GetRefreshInterval() (time.Duration, error) {
	if c.Refresh.Interval == "" || c.Refresh.Interval == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Refresh.Interval)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative interval")
	}
	return d, nil
}

// StoragePath returns the snapshot database path, falling back to the data directory.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "snapshots.db"), nil
}
