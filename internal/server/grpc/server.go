// Package grpcserver runs the gRPC health endpoint used by orchestrators.
package grpcserver

import (
	"context"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported next to the overall "" entry.
const ServiceName = "grader_market.Marketplace"

// Server is a gRPC server exposing grpc.health.v1.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	log    *zap.Logger
}

// New builds the server with recover and logging interceptors. It starts NOT_SERVING.
func New(log *zap.Logger) *Server {
	log = log.Named("grpc")
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(RecoverUnary(log), LoggingUnary(log)),
		grpc.ChainStreamInterceptor(RecoverStream(log), LoggingStream(log)),
	)
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	return &Server{srv: srv, health: hs, log: log}
}

// SetServing flips the reported status of every service.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Serve blocks accepting connections on lis.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("grpc listening", zap.String("addr", lis.Addr().String()))
	return s.srv.Serve(lis)
}

// Shutdown reports NOT_SERVING, then stops gracefully until ctx is done.
func (s *Server) Shutdown(ctx context.Context) {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.srv.Stop()
		<-done
	}
}
