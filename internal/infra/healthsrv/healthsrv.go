// Package healthsrv exposes the standard grpc.health.v1 service so an
// orchestrator can health-check a running custodyd/orderbookd process
// without scraping the JSON /health endpoint, mirroring the teacher's
// internal/infrastructure/health manager but over gRPC instead of HTTP.
package healthsrv

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/dclob/exchange/internal/domain"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Monitor reports aggregate process health. internal/infrastructure/health.HealthManager
// satisfies this via its IsHealthy method.
type Monitor interface {
	IsHealthy() bool
}

// Server polls a Monitor on an interval and reflects its status through
// the grpc_health_v1 service for the empty (whole-process) service name.
type Server struct {
	addr      string
	logger    domain.Logger
	monitor   Monitor
	healthSrv *grpchealth.Server
	grpcSrv   *grpc.Server
	interval  time.Duration
	stop      chan struct{}
}

// New builds a health server that will listen on addr (e.g. ":50052").
func New(addr string, monitor Monitor, logger domain.Logger) *Server {
	return &Server{
		addr:      addr,
		logger:    logger.WithField("component", "healthsrv"),
		monitor:   monitor,
		healthSrv: grpchealth.NewServer(),
		interval:  5 * time.Second,
		stop:      make(chan struct{}),
	}
}

// Run listens and serves until ctx is cancelled, satisfying
// internal/bootstrap.Runner.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("healthsrv: listen on %s: %w", s.addr, err)
	}

	s.grpcSrv = grpc.NewServer()
	healthpb.RegisterHealthServer(s.grpcSrv, s.healthSrv)

	go s.refreshLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting grpc health service", "addr", s.addr)
		errCh <- s.grpcSrv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.grpcSrv.GracefulStop()
		close(s.stop)
		return nil
	case err := <-errCh:
		close(s.stop)
		return err
	}
}

func (s *Server) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.refresh()
		}
	}
}

func (s *Server) refresh() {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.monitor == nil || s.monitor.IsHealthy() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.healthSrv.SetServingStatus("", status)
}
