// Package ssrender renders client-side web applications to static HTML.
//
// Given an HTML template, an application script and a URL path, Render runs
// the script inside an isolated virtual browser realm and returns the
// document as the application left it once it signals that it is ready.
//
//	html, err := ssrender.Render(ctx, "dist/index.html", "dist/build/bundle.js", "/blog/hello",
//		ssrender.WithEventName("app-loaded"),
//		ssrender.WithTimeout(3*time.Second),
//	)
//
// Template and script may be given either as file paths or as literal
// contents. Applications signal readiness by dispatching the configured
// event on window; without one the document is captured right after the
// script runs, and the timeout always bounds the wait.
package ssrender

import (
	"context"

	"github.com/GriffinCanCode/ssrender/internal/realm"
	"github.com/GriffinCanCode/ssrender/internal/ssr"
)

type (
	// Options configures a render. Start from DefaultOptions.
	Options = ssr.Options
	// Option mutates Options.
	Option = ssr.Option
	// Hook runs against the realm before or after the application script.
	Hook = ssr.Hook
	// ErrorHandler decides what a failed render returns.
	ErrorHandler = ssr.ErrorHandler
	// ErrorContext describes the render an error came from.
	ErrorContext = ssr.ErrorContext
	// RenderError carries the failure kind and URL of a failed render.
	RenderError = ssr.RenderError
	// Realm is the virtual browser a render executes in.
	Realm = realm.Realm
)

// Failure kinds, matched with errors.Is.
var (
	ErrResolution        = ssr.ErrResolution
	ErrBuild             = ssr.ErrBuild
	ErrRealmConstruction = ssr.ErrRealmConstruction
	ErrScriptExecution   = ssr.ErrScriptExecution
	ErrHook              = ssr.ErrHook
	ErrRealmClosed       = ssr.ErrRealmClosed
	ErrCanceled          = ssr.ErrCanceled
)

// Defaults.
const (
	DefaultHost      = ssr.DefaultHost
	DefaultEventName = ssr.DefaultEventName
	DefaultTimeout   = ssr.DefaultTimeout
)

// Options.
var (
	WithOptions              = ssr.WithOptions
	WithHost                 = ssr.WithHost
	WithEventName            = ssr.WithEventName
	WithBeforeEval           = ssr.WithBeforeEval
	WithAfterEval            = ssr.WithAfterEval
	WithSilent               = ssr.WithSilent
	WithInlineDynamicImports = ssr.WithInlineDynamicImports
	WithDev                  = ssr.WithDev
	WithTimeout              = ssr.WithTimeout
	WithGrace                = ssr.WithGrace
	WithScriptTimeout        = ssr.WithScriptTimeout
	WithErrorHandler         = ssr.WithErrorHandler
	WithWaitForIdle          = ssr.WithWaitForIdle
	WithIgnoreRejections     = ssr.WithIgnoreRejections
	WithStamp                = ssr.WithStamp
	WithMeta                 = ssr.WithMeta
	WithLocalFiles           = ssr.WithLocalFiles
	WithFetchLimits          = ssr.WithFetchLimits
	WithFetcher              = ssr.WithFetcher
	WithLogger               = ssr.WithLogger
	WithMetrics              = ssr.WithMetrics
)

// Stock hooks.
var (
	Chain               = ssr.Chain
	RemoveSelector      = ssr.RemoveSelector
	RemoveXPath         = ssr.RemoveXPath
	RemoveMarker        = ssr.RemoveMarker
	Eval                = ssr.Eval
	DefaultErrorHandler = ssr.DefaultErrorHandler
)

// DefaultOptions returns the options Render starts from.
func DefaultOptions() Options {
	return ssr.DefaultOptions()
}

// Render produces the HTML of template after script has rendered url into it.
func Render(ctx context.Context, template, script, url string, opts ...Option) (string, error) {
	return ssr.Render(ctx, template, script, url, opts...)
}

// RenderWith is Render for callers holding a complete Options value.
func RenderWith(ctx context.Context, template, script, url string, o Options) (string, error) {
	return ssr.RenderWith(ctx, template, script, url, o)
}

// Inline bundles the script at path so dynamic imports are resolved ahead
// of time, reusing the cached bundle unless dev is set.
func Inline(ctx context.Context, path string, dev bool, opts ...Option) (string, error) {
	return ssr.Inline(ctx, path, dev, opts...)
}
