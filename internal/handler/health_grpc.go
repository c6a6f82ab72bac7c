package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"confessionrelay/internal/logger"
)

// ServiceName is the gRPC health service name reported next to the overall
// ("") status.
const ServiceName = "confessionrelay"

// HealthServer publishes grpc.health.v1 status derived from store pings.
type HealthServer struct {
	*health.Server
	db  Pinger
	log *logger.Logger
}

func NewHealthServer(db Pinger, log *logger.Logger) *HealthServer {
	return &HealthServer{
		Server: health.NewServer(),
		db:     db,
		log:    log,
	}
}

func (h *HealthServer) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.Server)
}

// Refresh pings the store once and updates the served status.
func (h *HealthServer) Refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.db.PingContext(ctx); err != nil {
		h.log.Warn("store ping failed, reporting NOT_SERVING", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.SetServingStatus("", status)
	h.SetServingStatus(ServiceName, status)
}

// Run refreshes the status every interval until ctx is done, then marks the
// server NOT_SERVING for good.
func (h *HealthServer) Run(ctx context.Context, interval time.Duration) {
	h.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.Shutdown()
			return
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}
