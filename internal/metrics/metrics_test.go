package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRegistration(ResultSuccess)
		m.RecordLogin(ResultInvalid)
		m.RecordEntryCreated()
		m.RecordRequest(http.MethodGet, "/me", 200, time.Millisecond)
		m.SetStreamClients(3)
		m.RecordMaintenance(ResultSuccess)
		m.SetHostStats(1, 2, 50)
	})
}

func TestCounters(t *testing.T) {
	m := New()

	m.RecordRegistration(ResultSuccess)
	m.RecordRegistration(ResultDuplicate)
	m.RecordRegistration(ResultDuplicate)
	m.RecordLogin(ResultInvalid)
	m.RecordEntryCreated()
	m.SetHostStats(100, 50, 25)

	assert.InDelta(t, 1, testutil.ToFloat64(m.Registrations.WithLabelValues(ResultSuccess)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Registrations.WithLabelValues(ResultDuplicate)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Logins.WithLabelValues(ResultInvalid)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EntriesCreated), 0)
	assert.InDelta(t, 0.25, testutil.ToFloat64(m.MemoryUsedRatio), 1e-9)
	assert.InDelta(t, 100, testutil.ToFloat64(m.DiskUsedBytes), 0)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.RecordRequest(http.MethodPost, "/login", http.StatusUnauthorized, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `diary_http_requests_total{method="POST",route="/login",status="401"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
