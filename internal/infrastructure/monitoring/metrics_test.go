package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsIndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.ObserveRender(OutcomeOK, "event", 10*time.Millisecond)
	a.ObserveRender(OutcomeTimeout, "timeout", time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.RendersTotal.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.RendersTotal.WithLabelValues(OutcomeTimeout)))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RendersTotal.WithLabelValues(OutcomeOK)))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	m.ObserveRender(OutcomeOK, "event", time.Millisecond)
	m.IncBundle("built")
	m.IncRejection()
	m.IncFetch("local", "200")
	m.IncAsset("404")
	m.IncConsole("log")
	m.TrackInFlight()()
}

func TestInFlight(t *testing.T) {
	m := NewMetrics()
	done := m.TrackInFlight()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RendersInFlight))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RendersInFlight))
}

func TestHandler(t *testing.T) {
	m := NewMetrics()
	m.IncBundle("built")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ssr_bundle_builds_total{result="built"} 1`)
}
