package statusd

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/GoSim-25-26J-441/optibench/pkg/logger"
	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

// ServiceName is the gRPC health service name reporting the search state
const ServiceName = "optibench.Search"

// HealthServer reports the run state through the standard gRPC health
// protocol: SERVING while the search runs or after it completed,
// NOT_SERVING once it failed.
type HealthServer struct {
	*health.Server
}

// NewHealthServer creates a health server following store's state
func NewHealthServer(store *ProgressStore) *HealthServer {
	h := &HealthServer{Server: health.NewServer()}
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	store.OnStateChange(h.follow)
	return h
}

func (h *HealthServer) follow(state models.RunStatus) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	switch state {
	case models.RunStatusRunning, models.RunStatusCompleted:
		status = healthpb.HealthCheckResponse_SERVING
	}
	logger.Debug("health status changed", "service", ServiceName, "state", state, "status", status.String())
	h.SetServingStatus(ServiceName, status)
}

// NewGRPCServer creates a gRPC server with the health service registered
func NewGRPCServer(h *HealthServer, opts ...grpc.ServerOption) *grpc.Server {
	srv := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(srv, h.Server)
	return srv
}
