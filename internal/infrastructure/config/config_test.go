package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GriffinCanCode/ssrender/internal/ssr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://jsdom.ssr", cfg.Render.Host)
	assert.Equal(t, "app-loaded", cfg.Render.EventName)
	assert.Equal(t, 5000, cfg.Render.TimeoutMS)
	assert.True(t, cfg.Render.Stamp)
	assert.False(t, cfg.Render.Dev)
	assert.Equal(t, []string{"/**"}, cfg.Render.LocalPatterns)
	assert.Zero(t, cfg.Render.ScriptTimeoutMS)
	assert.Zero(t, cfg.Render.FetchRateLimit)

	assert.Equal(t, "9091", cfg.Assets.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestDefaultFollowsRenderDefaults(t *testing.T) {
	o := ssr.DefaultOptions()
	r := Default().Render

	assert.Equal(t, o.Host, r.Host)
	assert.Equal(t, o.EventName, r.EventName)
	assert.Equal(t, o.Timeout, time.Duration(r.TimeoutMS)*time.Millisecond)
	assert.Equal(t, o.Stamp, r.Stamp)
	assert.Equal(t, o.LocalPatterns, r.LocalPatterns)

	r.LocalPatterns[0] = "/changed"
	assert.Equal(t, []string{"/**"}, ssr.DefaultOptions().LocalPatterns)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	t.Setenv("SSR_HOST", "http://localhost:5000")
	t.Setenv("SSR_TIMEOUT_MS", "250")
	t.Setenv("SSR_DEV", "true")
	t.Setenv("SSR_LOCAL_PATTERNS", "/assets/**,/data/*.json")
	t.Setenv("SSR_SCRIPT_TIMEOUT_MS", "2000")
	t.Setenv("SSR_FETCH_RATE_LIMIT", "2.5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.Render.Host)
	assert.Equal(t, 250, cfg.Render.TimeoutMS)
	assert.True(t, cfg.Render.Dev)
	assert.Equal(t, []string{"/assets/**", "/data/*.json"}, cfg.Render.LocalPatterns)
	assert.Equal(t, 2000, cfg.Render.ScriptTimeoutMS)
	assert.Equal(t, 2.5, cfg.Render.FetchRateLimit)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched fields keep their defaults
	assert.Equal(t, "app-loaded", cfg.Render.EventName)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ssr.yaml")
	content := `
render:
  host: http://example.test
  eventName: ready
  timeout: 1500
  inlineDynamicImports: true
assets:
  port: "8080"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://example.test", cfg.Render.Host)
	assert.Equal(t, "ready", cfg.Render.EventName)
	assert.Equal(t, 1500, cfg.Render.TimeoutMS)
	assert.True(t, cfg.Render.InlineDynamicImports)
	assert.Equal(t, "8080", cfg.Assets.Port)
	assert.True(t, cfg.Render.Stamp)
}

func TestLoadTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ssr.toml")
	content := `
[render]
host = "http://toml.test"
silent = true

[logging]
format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://toml.test", cfg.Render.Host)
	assert.True(t, cfg.Render.Silent)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "ssr.ini")
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ssr.yml")
	require.NoError(t, os.WriteFile(path, []byte("render:\n  host: http://file.test\n"), 0o644))
	t.Setenv("SSR_HOST", "http://env.test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env.test", cfg.Render.Host)
}

func TestAssetsRateLimitFromEnv(t *testing.T) {
	t.Setenv("SSR_ASSETS_RATE_LIMIT", "20")
	t.Setenv("SSR_ASSETS_BURST", "40")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Assets.RateLimit)
	assert.Equal(t, 40, cfg.Assets.Burst)
	assert.True(t, cfg.Assets.Gzip)
}
