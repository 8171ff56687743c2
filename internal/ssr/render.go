package ssr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/ssrender/internal/bundle"
	"github.com/GriffinCanCode/ssrender/internal/fetch"
	"github.com/GriffinCanCode/ssrender/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ssrender/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ssrender/internal/realm"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	inlinerOnce    sync.Once
	defaultInliner *bundle.Inliner

	loggerOnce     sync.Once
	fallbackLogger *zap.Logger

	clientsMu sync.Mutex
	clients   = make(map[clientKey]*fetch.Client)
)

// defaultLogger is used by renders that do not bring a logger.
func defaultLogger() *zap.Logger {
	loggerOnce.Do(func() {
		fallbackLogger = logging.NewDefault().Logger
	})
	return fallbackLogger
}

// sharedInliner is the process-wide bundle cache used when a render does not
// bring its own.
func sharedInliner(logger *zap.Logger, metrics *monitoring.Metrics) *bundle.Inliner {
	inlinerOnce.Do(func() {
		defaultInliner = bundle.NewInliner(
			bundle.NewEsbuild(),
			bundle.NewDiskCache(),
			bundle.WithLogger(logger),
			bundle.WithMetrics(metrics),
		)
	})
	return defaultInliner
}

type clientKey struct {
	metrics *monitoring.Metrics
	timeout time.Duration
	rps     float64
}

// sharedClient returns the process-wide network client for the fetch limits
// and metrics collector of o, so breakers and rate limits span renders.
func sharedClient(o Options) *fetch.Client {
	key := clientKey{metrics: o.Metrics, timeout: o.FetchTimeout, rps: o.FetchRateLimit}

	clientsMu.Lock()
	defer clientsMu.Unlock()
	c, ok := clients[key]
	if !ok {
		c = fetch.NewClient()
		c.Metrics = o.Metrics
		if o.FetchTimeout > 0 {
			c.SetTimeout(o.FetchTimeout)
		}
		c.SetRateLimit(o.FetchRateLimit)
		clients[key] = c
	}
	return c
}

// Render produces the HTML the application renders for url. template and
// script are each literal content or a path to a file holding it.
func Render(ctx context.Context, template, script, url string, opts ...Option) (string, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return RenderWith(ctx, template, script, url, o)
}

// RenderWith is Render with a fully specified option set.
func RenderWith(ctx context.Context, template, script, url string, o Options) (string, error) {
	p := newPipeline(o, url)
	html, err := p.run(ctx, template, script)
	if err != nil {
		return p.fail(err)
	}
	return html, nil
}

// Inline bundles the entry script with its dynamic imports through the
// process-wide cache. dev forces a rebuild.
func Inline(ctx context.Context, script string, dev bool, opts ...Option) (string, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	inl := o.Inliner
	if inl == nil {
		inl = sharedInliner(loggerOf(o), o.Metrics)
	}
	out, _, err := inl.Inline(ctx, script, dev)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBuild, err)
	}
	return out, nil
}

func loggerOf(o Options) *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return defaultLogger()
}

// pipeline carries the state of one render.
type pipeline struct {
	opts    Options
	url     string
	id      string
	logger  *zap.Logger
	start   time.Time
	rebuilt bool
	source  Source
	once    sync.Once
}

func newPipeline(o Options, url string) *pipeline {
	id := uuid.NewString()
	return &pipeline{
		opts:   o,
		url:    url,
		id:     id,
		logger: loggerOf(o).With(zap.String("render_id", id)),
		start:  time.Now(),
	}
}

func (p *pipeline) run(ctx context.Context, template, script string) (string, error) {
	defer p.opts.Metrics.TrackInFlight()()
	o := p.opts
	guard := InstallGuard()

	tpl, err := resolveSource(template, "text/html", false, p.logger)
	if err != nil {
		return "", newRenderError(ErrResolution, p.url, err)
	}
	src, err := p.loadScript(ctx, script)
	if err != nil {
		return "", err
	}

	cfg, err := p.realmConfig(guard)
	if err != nil {
		return "", newRenderError(ErrRealmConstruction, p.url, err)
	}
	r, err := realm.New(tpl, cfg)
	if err != nil {
		return "", newRenderError(ErrRealmConstruction, p.url, err)
	}
	defer r.Dispose()

	var d *detector
	if o.EventName != "" {
		if d, err = armDetector(r, o.EventName); err != nil {
			return "", newRenderError(ErrRealmConstruction, p.url, err)
		}
	}

	if o.BeforeEval != nil {
		if err := o.BeforeEval(ctx, r); err != nil {
			return "", newRenderError(ErrHook, p.url, err)
		}
	}
	if o.Stamp {
		if err := r.Stamp(); err != nil {
			return "", newRenderError(ErrRealmClosed, p.url, err)
		}
	}

	if err := r.Eval(src); err != nil {
		if errors.Is(err, realm.ErrClosed) {
			return "", newRenderError(ErrRealmClosed, p.url, err)
		}
		return "", newRenderError(ErrScriptExecution, p.url, err)
	}

	source := SourceImmediate
	if d != nil {
		source, err = d.wait(ctx, o.Timeout, o.WaitForIdle)
		switch {
		case errors.Is(err, ErrRealmClosed):
			return "", newRenderError(ErrRealmClosed, p.url, err)
		case err != nil:
			return "", newRenderError(ErrCanceled, p.url, err)
		}
	}

	if source == SourceTimeout {
		p.logger.Warn(fmt.Sprintf("Waited for the event %q, but timed out after %d ms.", o.EventName, o.Timeout.Milliseconds()),
			zap.String("url", p.url))
	}

	if o.Grace > 0 && source != SourceImmediate {
		select {
		case <-time.After(o.Grace):
		case <-ctx.Done():
			return "", newRenderError(ErrCanceled, p.url, ctx.Err())
		}
	}

	var (
		html string
		ferr error
	)
	p.once.Do(func() {
		html, ferr = p.finalize(ctx, r, source)
	})
	return html, ferr
}

// loadScript resolves the script argument, bundling it when requested.
func (p *pipeline) loadScript(ctx context.Context, script string) (string, error) {
	o := p.opts
	if !o.InlineDynamicImports {
		src, err := resolveSource(script, "text/javascript", true, p.logger)
		if err != nil {
			return "", newRenderError(ErrResolution, p.url, err)
		}
		return src, nil
	}

	inl := o.Inliner
	if inl == nil {
		inl = sharedInliner(p.logger, o.Metrics)
	}
	src, rebuilt, err := inl.Inline(ctx, script, o.Dev)
	if err != nil {
		return "", newRenderError(ErrBuild, p.url, err)
	}
	p.rebuilt = rebuilt
	return src, nil
}

func (p *pipeline) realmConfig(guard *Guard) (realm.Config, error) {
	o := p.opts

	var fetcher fetch.Fetcher = o.Fetcher
	if fetcher == nil {
		fetcher = sharedClient(o)
	}
	if o.LocalRoot != "" {
		local, err := fetch.NewLocal(o.LocalRoot, o.Host, o.LocalPatterns, fetcher)
		if err != nil {
			return realm.Config{}, err
		}
		local.Metrics = o.Metrics
		fetcher = local
	}

	origin := Origin{URL: p.url, RenderID: p.id, Logger: p.logger, Metrics: o.Metrics}
	return realm.Config{
		URL:           o.Host + p.url,
		Fetcher:       fetcher,
		Meta:          o.Meta,
		ScriptTimeout: o.ScriptTimeout,
		Logger:        p.logger,
		Metrics:       o.Metrics,
		OnRejection: func(reason string) {
			if o.IgnoreRejections {
				p.logger.Debug("Ignored unhandled rejection", zap.String("reason", reason))
				return
			}
			guard.Report(origin, reason)
		},
		OnError: func(err error) {
			guard.ReportError(origin, err)
		},
	}, nil
}

// finalize freezes the realm, runs the after hook, captures the document
// and releases the realm.
func (p *pipeline) finalize(ctx context.Context, r *realm.Realm, source Source) (string, error) {
	p.source = source
	r.Freeze()

	if p.opts.AfterEval != nil {
		if err := p.opts.AfterEval(ctx, r); err != nil {
			return "", newRenderError(ErrHook, p.url, err)
		}
	}

	html, err := r.Serialize()
	if err != nil {
		return "", newRenderError(ErrRealmClosed, p.url, err)
	}
	r.Dispose()

	elapsed := time.Since(p.start)
	outcome := monitoring.OutcomeOK
	if source == SourceTimeout {
		outcome = monitoring.OutcomeTimeout
	}
	p.opts.Metrics.ObserveRender(outcome, string(source), elapsed)

	if !p.opts.Silent {
		suffix := ""
		if p.rebuilt {
			suffix = " (rebuilt bundle)"
		}
		p.logger.Info(fmt.Sprintf("%s - %dms%s", p.url, elapsed.Milliseconds(), suffix),
			zap.String("source", string(source)))
	}
	return html, nil
}

// fail routes err through the error handler.
func (p *pipeline) fail(err error) (string, error) {
	p.opts.Metrics.ObserveRender(monitoring.OutcomeError, "none", time.Since(p.start))

	kind := error(nil)
	var re *RenderError
	if errors.As(err, &re) {
		kind = re.Kind
	}
	if p.opts.ErrorHandler == nil {
		return "", err
	}
	ec := ErrorContext{Kind: kind, RenderID: p.id, Options: p.opts, Logger: p.logger}
	if herr := p.opts.ErrorHandler(err, p.url, ec); herr != nil {
		return "", herr
	}
	return "", nil
}
