package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load consults so the host environment
// cannot leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CHATTERM_API_URL", "CHATTERM_WS_URL", "CHATTERM_TIMEOUT",
		"CHATTERM_RECONNECT_ATTEMPTS", "CHATTERM_THEME", "CHATTERM_DEBUG",
		legacyAPIURLEnv,
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.GetTimeout())
	assert.Equal(t, 5, cfg.Realtime.MaxAttempts)
	assert.Equal(t, "auto", cfg.UI.Theme)
	assert.False(t, cfg.Logging.DebugMode)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().API, cfg.API)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
api:
  base_url: https://chat.example.com/backend
  timeout: 5s
realtime:
  max_attempts: 0
ui:
  theme: dark
logging:
  debug_mode: true
  level: debug
  categories:
    ui: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example.com/backend", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.GetTimeout())
	assert.Equal(t, 0, cfg.Realtime.MaxAttempts)
	assert.Equal(t, "15s", cfg.Realtime.MaxInterval, "unset keys keep defaults")
	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.True(t, cfg.Logging.IsCategoryEnabled("transport"))
	assert.False(t, cfg.Logging.IsCategoryEnabled("ui"))
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("CHATTERM variables override file values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CHATTERM_API_URL", "http://10.0.0.5:9000")
		t.Setenv("CHATTERM_RECONNECT_ATTEMPTS", "2")
		t.Setenv("CHATTERM_DEBUG", "true")
		t.Setenv("CHATTERM_THEME", "light")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())

		assert.Equal(t, "http://10.0.0.5:9000", cfg.API.BaseURL)
		assert.Equal(t, 2, cfg.Realtime.MaxAttempts)
		assert.True(t, cfg.Logging.DebugMode)
		assert.Equal(t, "light", cfg.UI.Theme)
	})

	t.Run("legacy web variable is honored", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(legacyAPIURLEnv, "http://legacy:8000")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, "http://legacy:8000", cfg.API.BaseURL)
	})

	t.Run("CHATTERM_API_URL wins over legacy variable", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(legacyAPIURLEnv, "http://legacy:8000")
		t.Setenv("CHATTERM_API_URL", "http://new:8000")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, "http://new:8000", cfg.API.BaseURL)
	})

	t.Run("malformed number is an error", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CHATTERM_RECONNECT_ATTEMPTS", "many")

		cfg := DefaultConfig()
		assert.Error(t, cfg.applyEnvOverrides())
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"ftp scheme", func(c *Config) { c.API.BaseURL = "ftp://host" }, true},
		{"no host", func(c *Config) { c.API.BaseURL = "http://" }, true},
		{"bad realtime scheme", func(c *Config) { c.API.RealtimeURL = "http://host/ws" }, true},
		{"good realtime override", func(c *Config) { c.API.RealtimeURL = "wss://host/ws" }, false},
		{"unknown theme", func(c *Config) { c.UI.Theme = "neon" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://saved.example.com"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://saved.example.com", loaded.API.BaseURL)
}

func TestDurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.Timeout = "soon"
	cfg.Realtime.InitialInterval = "-1s"
	cfg.Realtime.WriteTimeout = ""

	assert.Equal(t, 60*time.Second, cfg.GetTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.GetInitialInterval())
	assert.Equal(t, 10*time.Second, cfg.GetWriteTimeout())
}
