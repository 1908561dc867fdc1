package prometheusmetrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordStage(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordStage("fetch", nil, time.Millisecond*3)
	m.RecordStage("fetch", assert.AnError, time.Millisecond*7)
	m.RecordStage("decode", nil, time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.stages.WithLabelValues("fetch")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.stages.WithLabelValues("decode")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.errors.WithLabelValues("fetch")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.errors.WithLabelValues("decode")))
}

func TestServerHandler(t *testing.T) {
	s := New(WithPort(9999), WithPath("/stats"))
	require.NotNil(t, s.Metrics)
	assert.Equal(t, ":9999", s.Addr)

	s.Metrics.RecordStage("composite", nil, time.Millisecond)

	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/stats", nil))
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "imageapi_stage_total")

	w = httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, 308, w.Code)
	assert.Equal(t, "/stats", w.Header().Get("Location"))
}
