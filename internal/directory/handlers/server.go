// Package handlers provides the gRPC and HTTP servers of the directory:
// the gRPC health service, the interactive /app routes and the /api
// resources, all mounted on one gateway mux.
package handlers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gartstein/directory/internal/directory/auth"
	"github.com/go-chi/httprate"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// Router mounts a group of HTTP routes on the gateway mux.
type Router interface {
	Register(mux *runtime.ServeMux) error
}

// Server holds references to both a gRPC server and an HTTP server.
type Server struct {
	grpcServer   *grpc.Server
	httpServer   *http.Server
	health       *health.Server
	healthConn   *grpc.ClientConn
	logger       *zap.Logger
	grpcEndpoint string
	httpEndpoint string
}

// NewServer constructs a Server with separate endpoints for gRPC and HTTP.
func NewServer(
	grpcPort int,
	httpPort int,
	logger *zap.Logger,
	grpcOpts ...grpc.ServerOption,
) *Server {
	s := &Server{
		grpcServer:   grpc.NewServer(grpcOpts...),
		httpServer:   &http.Server{ReadHeaderTimeout: 10 * time.Second},
		health:       health.NewServer(),
		logger:       logger.Named("server"),
		grpcEndpoint: fmt.Sprintf(":%d", grpcPort),
		httpEndpoint: fmt.Sprintf(":%d", httpPort),
	}
	grpc_health_v1.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	return s
}

// NewGatewayMux builds the HTTP mux with every router mounted. A non-nil
// health client also exposes /healthz.
func NewGatewayMux(healthClient grpc_health_v1.HealthClient, routers ...Router) (*runtime.ServeMux, error) {
	var opts []runtime.ServeMuxOption
	if healthClient != nil {
		opts = append(opts, runtime.WithHealthzEndpoint(healthClient))
	}
	mux := runtime.NewServeMux(opts...)
	for _, r := range routers {
		if err := r.Register(mux); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

// RegisterHTTPGateway sets up the HTTP side: the routes, /healthz backed by
// the gRPC health service, token authentication and per-IP rate limiting.
// rateLimit is requests per minute; zero disables it.
func (s *Server) RegisterHTTPGateway(
	_ context.Context,
	dialOpts []grpc.DialOption,
	jwtSecret string,
	rateLimit int,
	routers ...Router,
) error {
	conn, err := grpc.NewClient("localhost"+s.grpcEndpoint, dialOpts...)
	if err != nil {
		return fmt.Errorf("failed to dial gRPC endpoint: %w", err)
	}
	s.healthConn = conn

	mux, err := NewGatewayMux(grpc_health_v1.NewHealthClient(conn), routers...)
	if err != nil {
		return err
	}

	// Wrap the mux with auth middleware
	handler := auth.HTTPMiddleware(mux, jwtSecret)
	if rateLimit > 0 {
		handler = httprate.LimitByIP(rateLimit, time.Minute)(handler)
	}

	s.httpServer.Handler = handler
	s.httpServer.Addr = s.httpEndpoint
	return nil
}

// Start runs the gRPC and HTTP servers concurrently, returning on the first error.
func (s *Server) Start() error {
	var wg sync.WaitGroup
	wg.Add(2)
	errChan := make(chan error, 2)

	// Start gRPC Server
	go func() {
		defer wg.Done()
		s.logger.Info("Starting gRPC server", zap.String("endpoint", s.grpcEndpoint))
		lis, err := net.Listen("tcp", s.grpcEndpoint)
		if err != nil {
			errChan <- fmt.Errorf("gRPC listen error: %w", err)
			return
		}
		if err := s.grpcServer.Serve(lis); err != nil {
			errChan <- fmt.Errorf("gRPC serve error: %w", err)
		}
	}()

	// Start HTTP Server
	go func() {
		defer wg.Done()
		s.logger.Info("Starting HTTP server", zap.String("endpoint", s.httpEndpoint))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP serve error: %w", err)
		}
	}()

	go func() {
		wg.Wait()
		close(errChan)
	}()

	for err := range errChan {
		if err != nil {
			return err
		}
	}
	return nil
}

// Stop gracefully shuts down both gRPC and HTTP servers.
func (s *Server) Stop() {
	s.logger.Info("Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.health.Shutdown()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if s.healthConn != nil {
		_ = s.healthConn.Close()
	}
	s.grpcServer.GracefulStop()

	s.logger.Info("Servers stopped")
}
