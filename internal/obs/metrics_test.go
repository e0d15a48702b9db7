package obs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentUsesRouteLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	handler := m.Instrument(func(*http.Request) string { return "/v1/tiers/{tier}" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/tiers/gold", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/v1/tiers/{tier}", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight))
}

func TestDecisionCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveGate("require_role", OutcomeForbidden)
	m.ObserveGate("require_role", OutcomeForbidden)
	m.ObserveVerification("public")
	m.ObserveIssued("USER", "EXPLORER")
	m.SetBuildInfo("1.0.0", "abc")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.gateDecisions.WithLabelValues("require_role", OutcomeForbidden)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verifications.WithLabelValues("public")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tokensIssued.WithLabelValues("USER", "EXPLORER")))

	n, err := testutil.GatherAndCount(reg, "build_info")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveGate("g", OutcomeAllow)
		m.ObserveVerification("public")
		m.ObserveIssued("USER", "EXPLORER")
		m.SetBuildInfo("v", "c")
	})
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	h := m.Instrument(nil)(next)
	assert.NotNil(t, h)
}

func TestInstrumentCollapsesUnmatchedPaths(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	handler := m.Instrument(func(*http.Request) string { return "" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
	for _, path := range []string{"/scan-0", "/scan-1", "/wp-admin.php"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	n, err := testutil.GatherAndCount(reg, "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", UnmatchedRoute, "404")))
}
