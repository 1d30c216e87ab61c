package telemetry

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetricsExposesCountersAndGauges(t *testing.T) {
	metrics := NewPrometheusMetrics(prometheus.NewRegistry(), "frogpond")
	metrics.Add("frames_sent_total", 3)
	metrics.Add("frames_sent_total", 2)
	metrics.Store("population", 21)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "frogpond_frames_sent_total 5")
	assert.Contains(t, string(body), "frogpond_population 21")
}
