package main

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/GriffinCanCode/ssrender/internal/assets"
	"github.com/GriffinCanCode/ssrender/internal/infrastructure/config"
	"github.com/GriffinCanCode/ssrender/internal/infrastructure/monitoring"
)

type serveFlags struct {
	port      string
	cors      bool
	gzip      bool
	metrics   bool
	rateLimit int
	burst     int
}

func serveCmd(g *globals) *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve a build directory over HTTP",
		Long: `Serve exposes a directory for manual testing of rendered output.
"/" maps to index.html and Content-Type follows the file extension.

Examples:
  ssrender serve dist
  ssrender serve dist --port 8080 --metrics`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if len(args) == 1 {
				cfg.Assets.Dir = args[0]
			}
			applyServeFlags(cmd.Flags(), f, &cfg.Assets)

			if !cfg.Logging.Development {
				gin.SetMode(gin.ReleaseMode)
			}

			var metrics *monitoring.Metrics
			if cfg.Assets.Metrics {
				metrics = monitoring.NewMetrics()
			}
			srv, err := assets.NewServer(cfg.Assets, logger, metrics)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}

	f.bind(cmd.Flags())

	return cmd
}

func (f *serveFlags) bind(flags *pflag.FlagSet) {
	flags.StringVarP(&f.port, "port", "p", "", "Port to listen on (default 9091)")
	flags.BoolVar(&f.cors, "cors", true, "Allow cross-origin requests")
	flags.BoolVar(&f.gzip, "gzip", true, "Compress responses")
	flags.BoolVar(&f.metrics, "metrics", false, "Expose Prometheus metrics at /metrics")
	flags.IntVar(&f.rateLimit, "rate-limit", 0, "Requests per second per client, 0 for unlimited")
	flags.IntVar(&f.burst, "burst", 0, "Rate limit burst size")
}

func applyServeFlags(flags *pflag.FlagSet, f *serveFlags, cfg *config.AssetsConfig) {
	if flags.Changed("port") {
		cfg.Port = f.port
	}
	if flags.Changed("cors") {
		cfg.CORS = f.cors
	}
	if flags.Changed("gzip") {
		cfg.Gzip = f.gzip
	}
	if flags.Changed("metrics") {
		cfg.Metrics = f.metrics
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit = f.rateLimit
	}
	if flags.Changed("burst") {
		cfg.Burst = f.burst
	}
}
