package main

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/GriffinCanCode/ssrender/internal/infrastructure/config"
	"github.com/GriffinCanCode/ssrender/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ssrender/internal/ssr"
)

func TestApplyRenderFlagsOnlyChanged(t *testing.T) {
	f := &renderFlags{}
	flags := pflag.NewFlagSet("render", pflag.ContinueOnError)
	f.bind(flags)
	require.NoError(t, flags.Parse([]string{"--timeout", "250ms", "--event", "", "--stamp=false", "--script-timeout", "2s", "--fetch-rate-limit", "4"}))

	cfg := config.Default().Render
	cfg.Host = "http://from-file.test"
	applyRenderFlags(flags, f, &cfg)

	assert.Equal(t, 250, cfg.TimeoutMS)
	assert.Equal(t, "", cfg.EventName)
	assert.False(t, cfg.Stamp)
	assert.Equal(t, 2000, cfg.ScriptTimeoutMS)
	assert.Equal(t, 4.0, cfg.FetchRateLimit)
	assert.Zero(t, cfg.FetchTimeoutMS)
	assert.Equal(t, "http://from-file.test", cfg.Host)
	assert.Equal(t, []string{"/**"}, cfg.LocalPatterns)
}

func TestRenderOptions(t *testing.T) {
	cfg := config.Default().Render
	cfg.EventName = ""
	cfg.GraceMS = 20
	cfg.LocalRoot = "dist"
	cfg.LocalPatterns = []string{"/api/**"}
	cfg.FetchTimeoutMS = 1500
	cfg.FetchRateLimit = 8

	o := ssr.DefaultOptions()
	for _, opt := range renderOptions(cfg, logging.NewNop()) {
		opt(&o)
	}

	assert.Equal(t, "http://jsdom.ssr", o.Host)
	assert.Equal(t, "", o.EventName)
	assert.Equal(t, 5*time.Second, o.Timeout)
	assert.Equal(t, 20*time.Millisecond, o.Grace)
	assert.Zero(t, o.ScriptTimeout)
	assert.Equal(t, 1500*time.Millisecond, o.FetchTimeout)
	assert.Equal(t, 8.0, o.FetchRateLimit)
	assert.True(t, o.Stamp)
	assert.Equal(t, "dist", o.LocalRoot)
	assert.Equal(t, []string{"/api/**"}, o.LocalPatterns)
	assert.NotNil(t, o.Logger)
}

func TestRenderOptionsKeepDefaultHost(t *testing.T) {
	cfg := config.Default().Render
	cfg.Host = ""

	o := ssr.DefaultOptions()
	for _, opt := range renderOptions(cfg, logging.NewNop()) {
		opt(&o)
	}
	assert.Equal(t, ssr.DefaultHost, o.Host)
}

func TestApplyServeFlags(t *testing.T) {
	f := &serveFlags{}
	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	f.bind(flags)
	require.NoError(t, flags.Parse([]string{"--port", "8080", "--gzip=false", "--rate-limit", "10"}))

	cfg := config.Default().Assets
	applyServeFlags(flags, f, &cfg)

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.Gzip)
	assert.True(t, cfg.CORS)
	assert.False(t, cfg.Metrics)
	assert.Equal(t, 10, cfg.RateLimit)
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(config.LogConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	dev, err := newLogger(config.LogConfig{Level: "error", Development: true})
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))

	_, err = newLogger(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}
