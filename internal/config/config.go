package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all chatterm configuration.
type Config struct {
	// Backend endpoints
	API APIConfig `yaml:"api"`

	// Real-time channel behavior
	Realtime RealtimeConfig `yaml:"realtime"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig locates the chat backend. Every endpoint derives from BaseURL
// unless RealtimeURL overrides the WebSocket address.
type APIConfig struct {
	BaseURL     string `yaml:"base_url" env:"CHATTERM_API_URL"`
	RealtimeURL string `yaml:"realtime_url,omitempty" env:"CHATTERM_WS_URL"`
	Timeout     string `yaml:"timeout" env:"CHATTERM_TIMEOUT"`
}

// RealtimeConfig configures reconnection of the WebSocket channel.
// MaxAttempts <= 0 disables reconnection.
type RealtimeConfig struct {
	MaxAttempts     int    `yaml:"max_attempts" env:"CHATTERM_RECONNECT_ATTEMPTS"`
	InitialInterval string `yaml:"initial_interval"`
	MaxInterval     string `yaml:"max_interval"`
	WriteTimeout    string `yaml:"write_timeout"`
}

// UIConfig configures the terminal interface.
type UIConfig struct {
	Theme    string `yaml:"theme" env:"CHATTERM_THEME"` // auto, light, dark
	WordWrap int    `yaml:"word_wrap"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode" env:"CHATTERM_DEBUG"` // Master toggle - false = no logging
	Level      string          `yaml:"level"`                           // debug, info, warn, error
	JSONFormat bool            `yaml:"json_format"`
	Dir        string          `yaml:"dir"`
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// IsCategoryEnabled returns whether logging is enabled for a category.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}

// legacyAPIURLEnv is honored for compatibility with the web client's setting.
const legacyAPIURLEnv = "REACT_APP_API_URL"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: "60s",
		},
		Realtime: RealtimeConfig{
			MaxAttempts:     5,
			InitialInterval: "500ms",
			MaxInterval:     "15s",
			WriteTimeout:    "10s",
		},
		UI: UIConfig{
			Theme:    "auto",
			WordWrap: 80,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   filepath.Join(DefaultDir(), "logs"),
		},
	}
}

// DefaultDir returns ~/.chatterm, or .chatterm when the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatterm"
	}
	return filepath.Join(home, ".chatterm")
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Load loads configuration from a YAML file, then applies .env and
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	loadDotEnv(".env")

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv populates unset environment variables from a .env file.
func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "[config] Warning: could not load %s: %v\n", path, err)
	}
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(legacyAPIURLEnv); v != "" {
		c.API.BaseURL = v
	}
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// GetTimeout returns the HTTP request timeout as a duration.
func (c *Config) GetTimeout() time.Duration {
	return parseDuration(c.API.Timeout, 60*time.Second)
}

// GetInitialInterval returns the first reconnect delay.
func (c *Config) GetInitialInterval() time.Duration {
	return parseDuration(c.Realtime.InitialInterval, 500*time.Millisecond)
}

// GetMaxInterval returns the reconnect delay ceiling.
func (c *Config) GetMaxInterval() time.Duration {
	return parseDuration(c.Realtime.MaxInterval, 15*time.Second)
}

// GetWriteTimeout returns the deadline for a single WebSocket write.
func (c *Config) GetWriteTimeout() time.Duration {
	return parseDuration(c.Realtime.WriteTimeout, 10*time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// ValidThemes lists the accepted ui.theme values.
var ValidThemes = []string{"auto", "light", "dark"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid api.base_url %q: %w", c.API.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid api.base_url %q: scheme must be http or https", c.API.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid api.base_url %q: missing host", c.API.BaseURL)
	}

	if c.API.RealtimeURL != "" {
		ru, err := url.Parse(c.API.RealtimeURL)
		if err != nil {
			return fmt.Errorf("invalid api.realtime_url %q: %w", c.API.RealtimeURL, err)
		}
		if ru.Scheme != "ws" && ru.Scheme != "wss" {
			return fmt.Errorf("invalid api.realtime_url %q: scheme must be ws or wss", c.API.RealtimeURL)
		}
	}

	validTheme := false
	for _, t := range ValidThemes {
		if c.UI.Theme == t {
			validTheme = true
			break
		}
	}
	if !validTheme {
		return fmt.Errorf("invalid ui.theme: %s (valid: %v)", c.UI.Theme, ValidThemes)
	}

	return nil
}
