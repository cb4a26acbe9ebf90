package healthsrv

import (
	"context"
	"testing"

	"github.com/dclob/exchange/pkg/logging"

	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type fakeMonitor struct{ healthy bool }

func (f fakeMonitor) IsHealthy() bool { return f.healthy }

func newTestLogger(t *testing.T) *logging.ZapLogger {
	l, err := logging.NewZapLogger("ERROR")
	require.NoError(t, err)
	return l
}

func TestServer_RefreshReflectsMonitorHealth(t *testing.T) {
	mon := &fakeMonitor{healthy: true}
	s := New(":0", mon, newTestLogger(t))

	s.refresh()
	resp, err := s.healthSrv.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	mon.healthy = false
	s.refresh()
	resp, err = s.healthSrv.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}

func TestServer_RefreshDefaultsHealthyWithNilMonitor(t *testing.T) {
	s := New(":0", nil, newTestLogger(t))
	s.refresh()
	resp, err := s.healthSrv.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
