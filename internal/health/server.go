// Package health exposes synthesis availability over the standard gRPC
// health protocol so supervisors can gate voice delivery on it.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is reported alongside the overall ("") status.
const ServiceName = "voicereply.Synthesis"

// Probe reports whether voice synthesis can currently be attempted.
type Probe func() bool

// Server publishes probe results as gRPC health statuses.
type Server struct {
	listener net.Listener
	grpc     *grpc.Server
	health   *grpchealth.Server
	probe    Probe
	interval time.Duration
	logger   *slog.Logger
}

// Listen binds addr and prepares the health service.
func Listen(addr string, probe Probe, logger *slog.Logger) (*Server, error) {
	if probe == nil {
		return nil, errors.New("health probe must not be nil")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen health %s: %w", addr, err)
	}

	hs := grpchealth.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{
		listener: listener,
		grpc:     gs,
		health:   hs,
		probe:    probe,
		interval: 15 * time.Second,
		logger:   logger.With("component", "health"),
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve blocks until ctx is cancelled, re-running the probe periodically.
func (s *Server) Serve(ctx context.Context) error {
	s.refresh()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpc.Serve(s.listener)
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			s.grpc.GracefulStop()
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, grpc.ErrServerStopped) {
				return nil
			}
			return fmt.Errorf("serve health: %w", err)
		case <-ticker.C:
			s.refresh()
		}
	}
}

func (s *Server) refresh() {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.probe() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	s.logger.Debug("health status refreshed", "status", status.String())
}
