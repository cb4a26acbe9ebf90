package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/dclob/exchange/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMonitor struct {
	healthy    bool
	components map[string]string
}

func (f fakeMonitor) GetStatus() map[string]string { return f.components }
func (f fakeMonitor) IsHealthy() bool              { return f.healthy }

func newTestServer(t *testing.T, hm HealthMonitor) *HealthServer {
	t.Helper()
	logger, err := logging.NewZapLogger("ERROR")
	require.NoError(t, err)
	return NewHealthServer("0", logger, hm)
}

func TestHandleHealth_ReportsOkWhenNoComponentsFail(t *testing.T) {
	s := newTestServer(t, fakeMonitor{healthy: true, components: map[string]string{"asset_manager": "Healthy"}})

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 200, rec.Code)
}

func TestHandleHealth_ReportsDegradedOnAdvisoryFailureOnly(t *testing.T) {
	hm := fakeMonitor{
		healthy: true,
		components: map[string]string{
			"asset_manager": "Healthy",
			"ttl_sweeper":   "Unhealthy (advisory): sweep lagging",
		},
	}
	s := newTestServer(t, hm)

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, 200, rec.Code)
}

func TestHandleHealth_ReportsUnhealthyOnCriticalFailure(t *testing.T) {
	hm := fakeMonitor{
		healthy: false,
		components: map[string]string{
			"asset_manager": "Unhealthy (critical): owner lookup failed",
		},
	}
	s := newTestServer(t, hm)

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body["status"])
	assert.Equal(t, 503, rec.Code)
}

func TestHandleStatus_MergesUpdateStatusAndMonitorComponents(t *testing.T) {
	hm := fakeMonitor{healthy: true, components: map[string]string{"order_books": "Healthy"}}
	s := newTestServer(t, hm)
	s.UpdateStatus("startup", "complete")

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest("GET", "/status", nil))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "complete", body["startup"])
	assert.Equal(t, "Healthy", body["order_books"])
}
