package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Server implements grpc.health.v1.Health on top of a Checker.
// The empty service name and ServiceName are the only known services.
type Server struct {
	healthpb.UnimplementedHealthServer
	checker     *Checker
	serviceName string
}

// NewServer returns a health server for serviceName.
func NewServer(checker *Checker, serviceName string) *Server {
	if checker == nil {
		checker = NewChecker()
	}
	return &Server{checker: checker, serviceName: serviceName}
}

// Check reports SERVING when every dependency answers.
func (s *Server) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if svc := req.GetService(); svc != "" && svc != s.serviceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
	}
	if err := s.checker.Ready(ctx); err != nil {
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
