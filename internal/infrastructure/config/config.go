package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GriffinCanCode/ssrender/internal/ssr"
	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Render  RenderConfig `yaml:"render" toml:"render"`
	Assets  AssetsConfig `yaml:"assets" toml:"assets"`
	Logging LogConfig    `yaml:"logging" toml:"logging"`
}

// RenderConfig holds render pipeline defaults for the CLI.
type RenderConfig struct {
	Host                 string   `envconfig:"SSR_HOST" yaml:"host" toml:"host"`
	EventName            string   `envconfig:"SSR_EVENT_NAME" yaml:"eventName" toml:"eventName"`
	TimeoutMS            int      `envconfig:"SSR_TIMEOUT_MS" yaml:"timeout" toml:"timeout"`
	GraceMS              int      `envconfig:"SSR_GRACE_MS" yaml:"grace" toml:"grace"`
	ScriptTimeoutMS      int      `envconfig:"SSR_SCRIPT_TIMEOUT_MS" yaml:"scriptTimeout" toml:"scriptTimeout"`
	FetchTimeoutMS       int      `envconfig:"SSR_FETCH_TIMEOUT_MS" yaml:"fetchTimeout" toml:"fetchTimeout"`
	FetchRateLimit       float64  `envconfig:"SSR_FETCH_RATE_LIMIT" yaml:"fetchRateLimit" toml:"fetchRateLimit"`
	Silent               bool     `envconfig:"SSR_SILENT" yaml:"silent" toml:"silent"`
	InlineDynamicImports bool     `envconfig:"SSR_INLINE_DYNAMIC_IMPORTS" yaml:"inlineDynamicImports" toml:"inlineDynamicImports"`
	Dev                  bool     `envconfig:"SSR_DEV" yaml:"dev" toml:"dev"`
	WaitForIdle          bool     `envconfig:"SSR_WAIT_FOR_IDLE" yaml:"waitForIdle" toml:"waitForIdle"`
	Stamp                bool     `envconfig:"SSR_STAMP" yaml:"stamp" toml:"stamp"`
	LocalRoot            string   `envconfig:"SSR_LOCAL_ROOT" yaml:"localRoot" toml:"localRoot"`
	LocalPatterns        []string `envconfig:"SSR_LOCAL_PATTERNS" yaml:"localPatterns" toml:"localPatterns"`
}

// AssetsConfig holds static asset server configuration.
type AssetsConfig struct {
	Dir     string `envconfig:"SSR_ASSETS_DIR" yaml:"dir" toml:"dir"`
	Port    string `envconfig:"SSR_ASSETS_PORT" yaml:"port" toml:"port"`
	CORS    bool   `envconfig:"SSR_ASSETS_CORS" yaml:"cors" toml:"cors"`
	Gzip    bool   `envconfig:"SSR_ASSETS_GZIP" yaml:"gzip" toml:"gzip"`
	Metrics bool   `envconfig:"SSR_ASSETS_METRICS" yaml:"metrics" toml:"metrics"`
	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit int `envconfig:"SSR_ASSETS_RATE_LIMIT" yaml:"rateLimit" toml:"rateLimit"`
	Burst     int `envconfig:"SSR_ASSETS_BURST" yaml:"burst" toml:"burst"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" yaml:"level" toml:"level"`
	Format      string `envconfig:"LOG_FORMAT" yaml:"format" toml:"format"`
	Development bool   `envconfig:"LOG_DEV" yaml:"development" toml:"development"`
}

// Load builds configuration from defaults, then the optional file at path,
// then environment variables. Later sources win.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Default returns default configuration. Render defaults come from
// ssr.DefaultOptions.
func Default() *Config {
	o := ssr.DefaultOptions()
	return &Config{
		Render: RenderConfig{
			Host:            o.Host,
			EventName:       o.EventName,
			TimeoutMS:       int(o.Timeout / time.Millisecond),
			GraceMS:         int(o.Grace / time.Millisecond),
			ScriptTimeoutMS: int(o.ScriptTimeout / time.Millisecond),
			Stamp:           o.Stamp,
			LocalPatterns:   append([]string(nil), o.LocalPatterns...),
		},
		Assets: AssetsConfig{
			Dir:  ".",
			Port: "9091",
			CORS: true,
			Gzip: true,
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}
