package bundle

import (
	"context"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Bundler builds entry into a single script written to outfile.
type Bundler interface {
	Bundle(ctx context.Context, entry, outfile string) error
}

// BundlerFunc adapts a function to Bundler.
type BundlerFunc func(ctx context.Context, entry, outfile string) error

// Bundle calls f.
func (f BundlerFunc) Bundle(ctx context.Context, entry, outfile string) error {
	return f(ctx, entry, outfile)
}

// Esbuild bundles with esbuild's Go API. Without code splitting esbuild
// inlines every import() target into the output file.
type Esbuild struct {
	Target api.Target
	Minify bool
	Define map[string]string
}

// NewEsbuild returns a bundler targeting what goja executes natively.
func NewEsbuild() *Esbuild {
	return &Esbuild{Target: api.ES2017}
}

// Bundle implements Bundler.
func (e *Esbuild) Bundle(ctx context.Context, entry, outfile string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	result := api.Build(api.BuildOptions{
		EntryPoints:       []string{entry},
		Outfile:           outfile,
		Bundle:            true,
		Write:             true,
		Format:            api.FormatIIFE,
		Platform:          api.PlatformBrowser,
		Target:            e.Target,
		MinifyWhitespace:  e.Minify,
		MinifyIdentifiers: e.Minify,
		MinifySyntax:      e.Minify,
		Define:            e.Define,
		LogLevel:          api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		msgs := api.FormatMessages(result.Errors, api.FormatMessagesOptions{
			Kind: api.ErrorMessage,
		})
		return fmt.Errorf("esbuild: %s", strings.TrimSpace(strings.Join(msgs, "\n")))
	}
	return nil
}
