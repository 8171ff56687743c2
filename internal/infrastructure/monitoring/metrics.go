package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Render outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// Metrics holds all Prometheus metrics for the render pipeline.
type Metrics struct {
	registry *prometheus.Registry

	RendersTotal     *prometheus.CounterVec
	RenderDuration   *prometheus.HistogramVec
	RendersInFlight  prometheus.Gauge
	BundleBuilds     *prometheus.CounterVec
	AsyncRejections  prometheus.Counter
	FetchesTotal     *prometheus.CounterVec
	AssetRequests    *prometheus.CounterVec
	RealmConsoleLogs *prometheus.CounterVec
}

// NewMetrics creates a metrics collector backed by its own registry so that
// several pipelines (and tests) can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RendersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssr_renders_total",
				Help: "Total number of renders by outcome",
			},
			[]string{"outcome"},
		),
		RenderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ssr_render_duration_seconds",
				Help:    "Render duration in seconds by readiness source",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"source"},
		),
		RendersInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ssr_renders_in_flight",
				Help: "Number of renders currently holding a realm",
			},
		),
		BundleBuilds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssr_bundle_builds_total",
				Help: "Bundle builds by result (built, cached, failed)",
			},
			[]string{"result"},
		),
		AsyncRejections: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ssr_async_rejections_total",
				Help: "Unhandled asynchronous rejections surfaced by realms",
			},
		),
		FetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssr_fetches_total",
				Help: "Fetches issued by rendered applications by kind (network, local) and status",
			},
			[]string{"kind", "status"},
		),
		AssetRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssr_asset_requests_total",
				Help: "Requests served by the asset server by status",
			},
			[]string{"status"},
		),
		RealmConsoleLogs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssr_realm_console_total",
				Help: "Console calls made by rendered applications by level",
			},
			[]string{"level"},
		),
	}
}

// ObserveRender records a finished render.
func (m *Metrics) ObserveRender(outcome, source string, d time.Duration) {
	if m == nil {
		return
	}
	m.RendersTotal.WithLabelValues(outcome).Inc()
	if source != "" {
		m.RenderDuration.WithLabelValues(source).Observe(d.Seconds())
	}
}

// IncBundle records a bundle cache lookup result.
func (m *Metrics) IncBundle(result string) {
	if m == nil {
		return
	}
	m.BundleBuilds.WithLabelValues(result).Inc()
}

// IncRejection records an unhandled async rejection.
func (m *Metrics) IncRejection() {
	if m == nil {
		return
	}
	m.AsyncRejections.Inc()
}

// IncFetch records a fetch issued from a realm.
func (m *Metrics) IncFetch(kind, status string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(kind, status).Inc()
}

// IncAsset records an asset server response.
func (m *Metrics) IncAsset(status string) {
	if m == nil {
		return
	}
	m.AssetRequests.WithLabelValues(status).Inc()
}

// IncConsole records a console call from a realm.
func (m *Metrics) IncConsole(level string) {
	if m == nil {
		return
	}
	m.RealmConsoleLogs.WithLabelValues(level).Inc()
}

// TrackInFlight increments the in-flight gauge and returns its release func.
func (m *Metrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.RendersInFlight.Inc()
	return m.RendersInFlight.Dec
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
