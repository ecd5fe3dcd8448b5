package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersIndependentPerRegistry(t *testing.T) {
	a, b := New(), New()
	a.DeltasApplied.WithLabelValues("BTC-USD").Add(3)
	a.ArbSuppressed.Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(a.DeltasApplied.WithLabelValues("BTC-USD")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.ArbSuppressed))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ArbSuppressed))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.ArbEvents.WithLabelValues("2").Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `bookreplay_arbitrage_events_total{cycle="2"} 1`))
}
