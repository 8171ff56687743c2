package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/ssrender/internal/infrastructure/config"
	"github.com/GriffinCanCode/ssrender/internal/infrastructure/logging"
)

// globals are the flags shared by every command.
type globals struct {
	configPath string
	logLevel   string
	logFormat  string
	dev        bool
}

func main() {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "ssrender",
		Short: "Server-side render client-side web applications",
		Long: `ssrender runs an application bundle inside a virtual browser and
prints the HTML it produces for a given URL.

Template and script arguments may be file paths or literal contents.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file (.yaml, .yml or .toml)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format (console, json)")
	rootCmd.PersistentFlags().BoolVar(&g.dev, "dev-logs", false, "Development logging (colored, debug level)")

	rootCmd.AddCommand(
		renderCmd(g),
		inlineCmd(g),
		serveCmd(g),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		stop()
		os.Exit(1)
	}
}

// load reads configuration and builds the logger, applying the global flags.
func (g *globals) load(cmd *cobra.Command) (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = g.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = g.logFormat
	}
	if flags.Changed("dev-logs") {
		cfg.Logging.Development = g.dev
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newLogger(cfg config.LogConfig) (*logging.Logger, error) {
	lc := logging.DefaultConfig()
	if cfg.Development {
		lc = logging.DevelopmentConfig()
	}
	if cfg.Level != "" && !cfg.Development {
		lc.Level = cfg.Level
	}
	if cfg.Format != "" {
		lc.Format = cfg.Format
	}
	logger, err := logging.New(lc)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
