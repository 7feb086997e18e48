package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8000, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, "imagen-3.0-generate-002", cfg.Provider.Model)
	assert.Equal(t, 60*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, "static", cfg.Storage.Dir)
	assert.Equal(t, "/static", cfg.Storage.PublicBase)
	assert.Equal(t, 16, cfg.Dispatch.MaxConcurrent)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoader_LoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  http_port: 9000
provider:
  api_key: file-key
  model: imagen-test
storage:
  dir: /tmp/images
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, "file-key", cfg.Provider.APIKey)
	assert.Equal(t, "imagen-test", cfg.Provider.Model)
	assert.Equal(t, "/tmp/images", cfg.Storage.Dir)
	// 未覆盖的字段保留默认值
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
provider:
  api_key: file-key
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("STORYFRAME_PROVIDER_API_KEY", "env-key")
	t.Setenv("STORYFRAME_SERVER_HTTP_PORT", "9100")
	t.Setenv("STORYFRAME_PROVIDER_TIMEOUT", "30s")
	t.Setenv("STORYFRAME_SERVER_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Provider.APIKey)
	assert.Equal(t, 9100, cfg.Server.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
}

func TestLoader_GeminiAPIKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "legacy-key")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "legacy-key", cfg.Provider.APIKey)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.HTTPPort)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) { c.Provider.APIKey = "k" },
		},
		{
			name:    "missing api key",
			mutate:  func(c *Config) {},
			wantErr: "api_key is required",
		},
		{
			name: "bad http port",
			mutate: func(c *Config) {
				c.Provider.APIKey = "k"
				c.Server.HTTPPort = -1
			},
			wantErr: "invalid HTTP port",
		},
		{
			name: "empty model",
			mutate: func(c *Config) {
				c.Provider.APIKey = "k"
				c.Provider.Model = ""
			},
			wantErr: "model must not be empty",
		},
		{
			name: "bad public base",
			mutate: func(c *Config) {
				c.Provider.APIKey = "k"
				c.Storage.PublicBase = "static"
			},
			wantErr: "public_base must start with /",
		},
		{
			name: "bad max concurrent",
			mutate: func(c *Config) {
				c.Provider.APIKey = "k"
				c.Dispatch.MaxConcurrent = 0
			},
			wantErr: "max_concurrent must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
