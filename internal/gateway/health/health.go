// Package health reports database and Redis readiness over the standard gRPC
// health protocol and to the HTTP health endpoint.
package health

import (
	"context"
	"sync"
	"time"

	"mesa-system/internal/database"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"gorm.io/gorm"
)

// ServiceName is the gRPC health service name of the gateway.
const ServiceName = "mesa.Gateway"

const checkTimeout = 3 * time.Second

type Status struct {
	Healthy    bool              `json:"healthy"`
	Components map[string]string `json:"components"`
	CheckedAt  time.Time         `json:"checked_at"`
}

type Checker struct {
	db     *gorm.DB
	redis  *redis.Client
	server *health.Server
	log    *zap.Logger

	mu   sync.RWMutex
	last Status
}

// NewChecker builds a checker. redisClient may be nil when Redis is not
// configured; it is then reported as disabled and does not affect health.
func NewChecker(db *gorm.DB, redisClient *redis.Client, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{db: db, redis: redisClient, server: health.NewServer(), log: log}
}

// Register exposes grpc.health.v1.Health and server reflection on s.
func (c *Checker) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, c.server)
	reflection.Register(s)
}

// Check probes every dependency and publishes the result to the gRPC health
// server.
func (c *Checker) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	st := Status{Healthy: true, Components: map[string]string{}, CheckedAt: time.Now()}

	if err := database.Ping(ctx, c.db); err != nil {
		st.Healthy = false
		st.Components["database"] = err.Error()
	} else {
		st.Components["database"] = "ok"
	}

	switch {
	case c.redis == nil:
		st.Components["redis"] = "disabled"
	default:
		if err := c.redis.Ping(ctx).Err(); err != nil {
			st.Healthy = false
			st.Components["redis"] = err.Error()
		} else {
			st.Components["redis"] = "ok"
		}
	}

	serving := healthpb.HealthCheckResponse_SERVING
	if !st.Healthy {
		serving = healthpb.HealthCheckResponse_NOT_SERVING
	}
	c.server.SetServingStatus("", serving)
	c.server.SetServingStatus(ServiceName, serving)

	c.mu.Lock()
	changed := c.last.Healthy != st.Healthy || c.last.CheckedAt.IsZero()
	c.last = st
	c.mu.Unlock()
	if changed {
		c.log.Info("health status", zap.Bool("healthy", st.Healthy), zap.Any("components", st.Components))
	}
	return st
}

// Last returns the most recent Check result.
func (c *Checker) Last() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Run re-checks every interval until ctx is done, then marks the service as
// shutting down.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	c.Check(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.server.Shutdown()
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

