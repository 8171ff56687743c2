package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/GriffinCanCode/ssrender/internal/infrastructure/config"
	"github.com/GriffinCanCode/ssrender/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ssrender/internal/ssr"
)

type renderFlags struct {
	output        string
	host          string
	eventName     string
	timeout       time.Duration
	grace         time.Duration
	scriptTimeout time.Duration
	fetchTimeout  time.Duration
	fetchRate     float64
	silent        bool
	inline        bool
	dev           bool
	waitForIdle   bool
	stamp         bool
	localRoot     string
	localPatterns []string
	meta          map[string]string
}

func renderCmd(g *globals) *cobra.Command {
	f := &renderFlags{}

	cmd := &cobra.Command{
		Use:   "render <template> <script> <url>",
		Short: "Render one URL and print the HTML",
		Long: `Render runs the script against the template at the given URL and
writes the resulting document to stdout (or --output).

Examples:
  ssrender render dist/index.html dist/build/bundle.js /
  ssrender render dist/index.html dist/build/main.js /blog --inline --timeout 2s
  ssrender render index.html app.js /about --local-root dist --local-pattern '/api/**'`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			applyRenderFlags(cmd.Flags(), f, &cfg.Render)
			opts := renderOptions(cfg.Render, logger)
			if len(f.meta) > 0 {
				opts = append(opts, ssr.WithMeta(f.meta))
			}

			html, err := ssr.Render(cmd.Context(), args[0], args[1], args[2], opts...)
			if err != nil {
				return err
			}
			return writeOutput(f.output, html)
		},
	}

	f.bind(cmd.Flags())

	return cmd
}

func (f *renderFlags) bind(flags *pflag.FlagSet) {
	flags.StringVarP(&f.output, "output", "o", "", "Write HTML to file instead of stdout")
	flags.StringVar(&f.host, "host", "", "Origin the app is rendered under (default http://jsdom.ssr)")
	flags.StringVar(&f.eventName, "event", "", "Event that signals the app is ready; empty renders immediately")
	flags.DurationVar(&f.timeout, "timeout", 0, "Longest wait for the ready event (default 5s)")
	flags.DurationVar(&f.grace, "grace", 0, "Extra wait after the app is ready")
	flags.DurationVar(&f.scriptTimeout, "script-timeout", 0, "Abort a synchronous script running longer than this (default never)")
	flags.DurationVar(&f.fetchTimeout, "fetch-timeout", 0, "Limit for each network request made by the app (default 30s)")
	flags.Float64Var(&f.fetchRate, "fetch-rate-limit", 0, "Network requests per second, 0 for unlimited")
	flags.BoolVar(&f.silent, "silent", false, "Don't log render timings")
	flags.BoolVar(&f.inline, "inline", false, "Bundle the script so dynamic imports work")
	flags.BoolVar(&f.dev, "dev", false, "Rebuild the inlined bundle on every render")
	flags.BoolVar(&f.waitForIdle, "wait-for-idle", false, "Also finish once timers and fetches settle")
	flags.BoolVar(&f.stamp, "stamp", true, "Inject the window.__ssrRendered marker")
	flags.StringVar(&f.localRoot, "local-root", "", "Serve same-origin fetches from this directory")
	flags.StringSliceVar(&f.localPatterns, "local-pattern", nil, "Glob of same-origin paths read from --local-root (repeatable)")
	flags.StringToStringVar(&f.meta, "meta", nil, "Attributes of a <meta> element added to <head>, e.g. data-render=ssr")
}

// applyRenderFlags overrides cfg with the flags the user actually set.
func applyRenderFlags(flags *pflag.FlagSet, f *renderFlags, cfg *config.RenderConfig) {
	if flags.Changed("host") {
		cfg.Host = f.host
	}
	if flags.Changed("event") {
		cfg.EventName = f.eventName
	}
	if flags.Changed("timeout") {
		cfg.TimeoutMS = int(f.timeout / time.Millisecond)
	}
	if flags.Changed("grace") {
		cfg.GraceMS = int(f.grace / time.Millisecond)
	}
	if flags.Changed("script-timeout") {
		cfg.ScriptTimeoutMS = int(f.scriptTimeout / time.Millisecond)
	}
	if flags.Changed("fetch-timeout") {
		cfg.FetchTimeoutMS = int(f.fetchTimeout / time.Millisecond)
	}
	if flags.Changed("fetch-rate-limit") {
		cfg.FetchRateLimit = f.fetchRate
	}
	if flags.Changed("silent") {
		cfg.Silent = f.silent
	}
	if flags.Changed("inline") {
		cfg.InlineDynamicImports = f.inline
	}
	if flags.Changed("dev") {
		cfg.Dev = f.dev
	}
	if flags.Changed("wait-for-idle") {
		cfg.WaitForIdle = f.waitForIdle
	}
	if flags.Changed("stamp") {
		cfg.Stamp = f.stamp
	}
	if flags.Changed("local-root") {
		cfg.LocalRoot = f.localRoot
	}
	if flags.Changed("local-pattern") {
		cfg.LocalPatterns = f.localPatterns
	}
}

// renderOptions translates configuration into pipeline options. Every field
// is applied, so a config that clears EventName disables event waiting.
func renderOptions(cfg config.RenderConfig, logger *logging.Logger) []ssr.Option {
	opts := []ssr.Option{
		ssr.WithEventName(cfg.EventName),
		ssr.WithTimeout(time.Duration(cfg.TimeoutMS) * time.Millisecond),
		ssr.WithGrace(time.Duration(cfg.GraceMS) * time.Millisecond),
		ssr.WithScriptTimeout(time.Duration(cfg.ScriptTimeoutMS) * time.Millisecond),
		ssr.WithFetchLimits(time.Duration(cfg.FetchTimeoutMS)*time.Millisecond, cfg.FetchRateLimit),
		ssr.WithSilent(cfg.Silent),
		ssr.WithInlineDynamicImports(cfg.InlineDynamicImports),
		ssr.WithDev(cfg.Dev),
		ssr.WithWaitForIdle(cfg.WaitForIdle),
		ssr.WithStamp(cfg.Stamp),
		ssr.WithLogger(logger.Logger),
	}
	if cfg.Host != "" {
		opts = append(opts, ssr.WithHost(cfg.Host))
	}
	if cfg.LocalRoot != "" {
		opts = append(opts, ssr.WithLocalFiles(cfg.LocalRoot, cfg.LocalPatterns...))
	}
	return opts
}

func writeOutput(path, content string) error {
	if path == "" {
		_, err := fmt.Fprintln(os.Stdout, content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
