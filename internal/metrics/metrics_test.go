package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()

	r.RecordDispatch("analytics", "trend", true)
	r.RecordDispatch("analytics", "trend", true)
	r.RecordDispatch("analytics", "pnl", false)
	r.RecordFetch("series", ResultHit)
	r.RecordLLM("classify", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.dispatches.WithLabelValues("analytics", "trend", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.dispatches.WithLabelValues("analytics", "pnl", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetches.WithLabelValues("series", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.llmCalls.WithLabelValues("classify", "error")))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordHTTP("/api/chat", "POST", 200, 0.1)
		r.RecordDispatch("analytics", "trend", true)
		r.RecordFetch("price", ResultMiss)
		r.RecordLLM("explain", nil)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.RecordHTTP("/api/chat", "POST", 200, 0.2)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `copilot_http_requests_total{method="POST",route="/api/chat",status="200"} 1`)
}
