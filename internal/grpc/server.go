package grpc

import (
	"context"
	"log"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"messenger-service/internal/observability"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// Server is the internal gRPC endpoint. It only exposes the standard health
// service; each dependency check is its own health service name.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	checks map[string]Check
}

// NewServer builds an instrumented gRPC server with the health service
// registered. The overall status ("") starts NOT_SERVING until Refresh runs.
func NewServer(checks map[string]Check) *Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{grpc: srv, health: hs, checks: checks}
}

// Refresh runs every check and publishes the result. The overall status is
// SERVING only when all checks pass.
func (s *Server) Refresh(ctx context.Context) bool {
	healthy := true
	for name, check := range s.checks {
		status := healthpb.HealthCheckResponse_SERVING
		if err := check(ctx); err != nil {
			log.Printf("health check failed name=%s err=%v", name, err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
			healthy = false
		}
		s.health.SetServingStatus(name, status)
	}
	overall := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", overall)
	return healthy
}

// Serve blocks serving on lis.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop marks everything NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
