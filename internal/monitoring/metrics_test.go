package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewMetrics(prometheus.NewRegistry())
}

func TestRecordOperation(t *testing.T) {
	m := newMetrics(t)

	m.RecordOperation("copy", true, 20*time.Millisecond)
	m.RecordOperation("copy", false, time.Millisecond)
	m.RecordOperation("list", true, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("copy", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("copy", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("list", "success")))

	snap := m.GetSnapshot()
	assert.Equal(t, int64(3), snap.Operations)
	assert.Equal(t, int64(1), snap.FailedOperations)
}

func TestTempFilesGauge(t *testing.T) {
	m := newMetrics(t)

	m.TempFiles(2)
	m.TempFiles(-1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TempFilesActive))
	m.TempFiles(-1)
	assert.Zero(t, testutil.ToFloat64(m.TempFilesActive))
	assert.Zero(t, m.GetSnapshot().TempFilesActive)
}

func TestRecordSkippedAndWS(t *testing.T) {
	m := newMetrics(t)

	m.RecordSkipped("zip", 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ItemsSkipped.WithLabelValues("zip")))

	m.IncWSConnections()
	m.IncWSConnections()
	m.DecWSConnections()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WSConnections))
	assert.Equal(t, int64(1), m.GetSnapshot().ActiveConnections)
}

func TestIndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}

func TestMiddlewareLabelsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newMetrics(t)

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/items/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for _, p := range []string{"/items/1", "/items/2", "/missing"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/items/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	snap := m.GetSnapshot()
	require.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)
}
