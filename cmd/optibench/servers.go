package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"

	"github.com/GoSim-25-26J-441/optibench/internal/statusd"
	"github.com/GoSim-25-26J-441/optibench/pkg/config"
	"github.com/GoSim-25-26J-441/optibench/pkg/logger"
)

// statusServers are the optional read-only status endpoints of a run
type statusServers struct {
	httpSrv *http.Server
	grpcSrv *grpc.Server
}

// startStatusServers listens on the configured addresses. Empty addresses
// leave the corresponding server disabled.
func startStatusServers(cfg config.StatusConfig, store *statusd.ProgressStore, gatherer prometheus.Gatherer) (*statusServers, error) {
	s := &statusServers{}

	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return s, fmt.Errorf("failed to listen for gRPC on %s: %w", cfg.GRPCAddr, err)
		}
		s.grpcSrv = statusd.NewGRPCServer(statusd.NewHealthServer(store))
		go func() {
			logger.Info("gRPC health server listening", "addr", lis.Addr().String())
			if err := s.grpcSrv.Serve(lis); err != nil {
				logger.Error("gRPC server error", "error", err)
			}
		}()
	}

	if cfg.HTTPAddr != "" {
		lis, err := net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			return s, fmt.Errorf("failed to listen for HTTP on %s: %w", cfg.HTTPAddr, err)
		}
		s.httpSrv = &http.Server{
			Handler:           statusd.NewHTTPServer(store, gatherer).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		}
		go func() {
			logger.Info("HTTP status server listening", "addr", lis.Addr().String())
			if err := s.httpSrv.Serve(lis); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "error", err)
			}
		}()
	}

	return s, nil
}

// Shutdown stops both servers, waiting for in-flight requests
func (s *statusServers) Shutdown() error {
	var result *multierror.Error
	if s.grpcSrv != nil {
		s.grpcSrv.GracefulStop()
	}
	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("HTTP shutdown: %w", err))
		}
	}
	return result.ErrorOrNil()
}
