package utils

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, mc *MetricsCollector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	mc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetricsCollector(t *testing.T) {
	mc := NewMetricsCollector()
	mc.IncrementRequests()
	mc.IncrementRequests()
	mc.IncrementErrors(NewForbiddenError("not yours"))
	mc.IncrementErrors(errors.New("boom"))
	mc.AddOperationLatency("CastVote", 3*time.Millisecond)

	body := scrape(t, mc)
	assert.Contains(t, body, "devoverflow_requests_total 2")
	assert.Contains(t, body, `devoverflow_errors_total{kind="FORBIDDEN"} 1`)
	assert.Contains(t, body, `devoverflow_errors_total{kind="INTERNAL"} 1`)
	assert.Contains(t, body, `devoverflow_operation_duration_seconds_count{operation="CastVote"} 1`)
}

func TestMetricsCollectorsAreIndependent(t *testing.T) {
	a, b := NewMetricsCollector(), NewMetricsCollector()
	a.IncrementRequests()
	assert.Contains(t, scrape(t, b), "devoverflow_requests_total 0")
}
