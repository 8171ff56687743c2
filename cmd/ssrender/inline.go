package main

import (
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/ssrender/internal/ssr"
)

func inlineCmd(g *globals) *cobra.Command {
	var (
		output string
		dev    bool
	)

	cmd := &cobra.Command{
		Use:   "inline <script>",
		Short: "Bundle a script with its dynamic imports",
		Long: `Inline bundles the entry script and every module it imports into a
single script, cached next to the entry. The cached bundle is reused unless
--dev is set.

Examples:
  ssrender inline dist/build/main.js
  ssrender inline dist/build/main.js --dev -o bundle.js`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if !cmd.Flags().Changed("dev") {
				dev = cfg.Render.Dev
			}
			out, err := ssr.Inline(cmd.Context(), args[0], dev, ssr.WithLogger(logger.Logger))
			if err != nil {
				return err
			}
			return writeOutput(output, out)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the bundle to file instead of stdout")
	cmd.Flags().BoolVar(&dev, "dev", false, "Rebuild even when a cached bundle exists")

	return cmd
}
