package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRun("rejected")
	m.ObserveRun("rejected")
	m.ObserveRejection("blacklist")
	m.ObserveCallError("audit")
	m.ObserveStage("fetching", 20*time.Millisecond)
	done := m.RunStarted()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RejectionsTotal.WithLabelValues("blacklist")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallErrorsTotal.WithLabelValues("audit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InFlightRuns))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlightRuns))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRun("success")
		m.ObserveRejection("audit")
		m.ObserveStage("sizing", time.Second)
		m.RunStarted()()
		m.SubmissionAttempted(time.Now())
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg).ObserveRun("success")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tradegate_workflow_runs_total{outcome="success"} 1`)
}
