package engine

import (
	"context"
	"time"
)

// HealthStatus describes the engine's pool at a point in time.
type HealthStatus struct {
	Connected  bool          `json:"connected"`
	Error      string        `json:"error,omitempty"`
	Latency    time.Duration `json:"latency"`
	OpenConns  int           `json:"open_connections"`
	InUseConns int           `json:"in_use_connections"`
	IdleConns  int           `json:"idle_connections"`
}

// Ping verifies the engine's pool can reach the database.
func (e *Engine) Ping(ctx context.Context) error {
	return e.sqlDB.PingContext(ctx)
}

// CheckHealth performs a health check and reports pool statistics.
func (e *Engine) CheckHealth(ctx context.Context) HealthStatus {
	start := time.Now()

	if err := e.sqlDB.PingContext(ctx); err != nil {
		return HealthStatus{Connected: false, Error: err.Error(), Latency: time.Since(start)}
	}

	stats := e.sqlDB.Stats()
	return HealthStatus{
		Connected:  true,
		Latency:    time.Since(start),
		OpenConns:  stats.OpenConnections,
		InUseConns: stats.InUse,
		IdleConns:  stats.Idle,
	}
}
