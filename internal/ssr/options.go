package ssr

import (
	"context"
	"time"

	"github.com/GriffinCanCode/ssrender/internal/bundle"
	"github.com/GriffinCanCode/ssrender/internal/fetch"
	"github.com/GriffinCanCode/ssrender/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ssrender/internal/realm"
	"go.uber.org/zap"
)

// Hook runs against the realm before script evaluation or before
// serialization. Use r.Do for direct document access in a before hook.
type Hook func(ctx context.Context, r *realm.Realm) error

// Options configures one render.
type Options struct {
	Host                 string        // Origin the url is appended to
	EventName            string        // Ready event; empty finalizes right after evaluation
	BeforeEval           Hook          // Runs before the script
	AfterEval            Hook          // Runs on the frozen realm before serialization
	Silent               bool          // Suppress the timing line
	InlineDynamicImports bool          // Treat script as an entry point and bundle it
	Dev                  bool          // Rebuild the bundle on every render
	Timeout              time.Duration // Ready event deadline; <= 0 expires right after evaluation
	ScriptTimeout        time.Duration // Interrupts synchronous evaluation; 0 never interrupts
	Grace                time.Duration // Delay between the winning signal and finalization
	ErrorHandler         ErrorHandler  // nil returns errors unchanged
	WaitForIdle          bool          // Also finalize once timers and fetches drain
	IgnoreRejections     bool          // Keep this render's rejections away from the process guard
	Stamp                bool          // Inject the render marker
	Meta                 map[string]string
	LocalRoot            string        // Serve matching same-origin fetches from here
	LocalPatterns        []string      // Glob patterns for LocalRoot
	FetchTimeout         time.Duration // Per-request limit of the shared network client; 0 keeps its default
	FetchRateLimit       float64       // Requests per second of the shared network client; 0 is unlimited
	Fetcher              fetch.Fetcher // Replaces the shared network client
	Inliner              *bundle.Inliner
	Logger               *zap.Logger
	Metrics              *monitoring.Metrics
}

// Default option values.
const (
	DefaultHost      = "http://jsdom.ssr"
	DefaultEventName = "app-loaded"
	DefaultTimeout   = 5000 * time.Millisecond
)

// DefaultOptions returns the defaults every render starts from.
func DefaultOptions() Options {
	return Options{
		Host:          DefaultHost,
		EventName:     DefaultEventName,
		Timeout:       DefaultTimeout,
		ErrorHandler:  DefaultErrorHandler,
		Stamp:         true,
		LocalPatterns: fetch.DefaultLocalPatterns,
	}
}

// Merge returns o with every non-zero field of override applied. Booleans
// can only be switched on and EventName can only be replaced, never
// cleared; use the functional options for that.
func (o Options) Merge(override Options) Options {
	if override.Host != "" {
		o.Host = override.Host
	}
	if override.EventName != "" {
		o.EventName = override.EventName
	}
	if override.BeforeEval != nil {
		o.BeforeEval = override.BeforeEval
	}
	if override.AfterEval != nil {
		o.AfterEval = override.AfterEval
	}
	if override.Timeout != 0 {
		o.Timeout = override.Timeout
	}
	if override.ScriptTimeout != 0 {
		o.ScriptTimeout = override.ScriptTimeout
	}
	if override.Grace != 0 {
		o.Grace = override.Grace
	}
	if override.ErrorHandler != nil {
		o.ErrorHandler = override.ErrorHandler
	}
	if override.Meta != nil {
		o.Meta = override.Meta
	}
	if override.LocalRoot != "" {
		o.LocalRoot = override.LocalRoot
	}
	if override.LocalPatterns != nil {
		o.LocalPatterns = override.LocalPatterns
	}
	if override.FetchTimeout != 0 {
		o.FetchTimeout = override.FetchTimeout
	}
	if override.FetchRateLimit != 0 {
		o.FetchRateLimit = override.FetchRateLimit
	}
	if override.Fetcher != nil {
		o.Fetcher = override.Fetcher
	}
	if override.Inliner != nil {
		o.Inliner = override.Inliner
	}
	if override.Logger != nil {
		o.Logger = override.Logger
	}
	if override.Metrics != nil {
		o.Metrics = override.Metrics
	}
	o.Silent = o.Silent || override.Silent
	o.InlineDynamicImports = o.InlineDynamicImports || override.InlineDynamicImports
	o.Dev = o.Dev || override.Dev
	o.WaitForIdle = o.WaitForIdle || override.WaitForIdle
	o.IgnoreRejections = o.IgnoreRejections || override.IgnoreRejections
	o.Stamp = o.Stamp || override.Stamp
	return o
}

// Option configures Options.
type Option func(*Options)

// WithOptions replaces the whole option set.
func WithOptions(o Options) Option {
	return func(dst *Options) { *dst = o }
}

// WithHost sets the origin.
func WithHost(host string) Option {
	return func(o *Options) { o.Host = host }
}

// WithEventName sets the ready event. An empty name finalizes immediately.
func WithEventName(name string) Option {
	return func(o *Options) { o.EventName = name }
}

// WithBeforeEval sets the before hook.
func WithBeforeEval(h Hook) Option {
	return func(o *Options) { o.BeforeEval = h }
}

// WithAfterEval sets the after hook.
func WithAfterEval(h Hook) Option {
	return func(o *Options) { o.AfterEval = h }
}

// WithSilent suppresses the timing line.
func WithSilent(silent bool) Option {
	return func(o *Options) { o.Silent = silent }
}

// WithInlineDynamicImports bundles the script before evaluation.
func WithInlineDynamicImports(inline bool) Option {
	return func(o *Options) { o.InlineDynamicImports = inline }
}

// WithDev rebuilds the bundle on every render.
func WithDev(dev bool) Option {
	return func(o *Options) { o.Dev = dev }
}

// WithTimeout sets how long to wait for the ready event.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithScriptTimeout interrupts synchronous evaluation that runs longer than d.
// A render whose script is interrupted fails with ErrScriptExecution.
func WithScriptTimeout(d time.Duration) Option {
	return func(o *Options) { o.ScriptTimeout = d }
}

// WithGrace delays finalization after the winning signal.
func WithGrace(d time.Duration) Option {
	return func(o *Options) { o.Grace = d }
}

// WithErrorHandler sets the error handler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *Options) { o.ErrorHandler = h }
}

// WithWaitForIdle arms the async-idle readiness source.
func WithWaitForIdle(wait bool) Option {
	return func(o *Options) { o.WaitForIdle = wait }
}

// WithIgnoreRejections keeps unhandled rejections out of the process guard.
func WithIgnoreRejections(ignore bool) Option {
	return func(o *Options) { o.IgnoreRejections = ignore }
}

// WithStamp toggles the render marker.
func WithStamp(stamp bool) Option {
	return func(o *Options) { o.Stamp = stamp }
}

// WithMeta appends a <meta> with attrs to <head>.
func WithMeta(attrs map[string]string) Option {
	return func(o *Options) { o.Meta = attrs }
}

// WithLocalFiles serves same-origin fetches matching patterns from root.
// No patterns keeps the current ones.
func WithLocalFiles(root string, patterns ...string) Option {
	return func(o *Options) {
		o.LocalRoot = root
		if len(patterns) > 0 {
			o.LocalPatterns = patterns
		}
	}
}

// WithFetchLimits bounds each network request to timeout and the shared
// client to rps requests per second. Zero values keep the defaults.
func WithFetchLimits(timeout time.Duration, rps float64) Option {
	return func(o *Options) {
		o.FetchTimeout = timeout
		o.FetchRateLimit = rps
	}
}

// WithFetcher replaces the network fetcher.
func WithFetcher(f fetch.Fetcher) Option {
	return func(o *Options) { o.Fetcher = f }
}

// WithInliner replaces the process-wide bundle inliner.
func WithInliner(i *bundle.Inliner) Option {
	return func(o *Options) { o.Inliner = i }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}
