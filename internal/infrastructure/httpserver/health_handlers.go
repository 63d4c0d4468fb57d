package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/car-marketplace/internal/core/ports"
)

// Health check handler. Only required dependencies can make the service
// unavailable; optional ones (the cache) only mark it degraded.
func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string)
	overall := "healthy"
	unavailable := false
	for _, hc := range s.healthCheckers {
		if hc == nil {
			continue
		}
		if err := hc.Check(ctx); err != nil {
			if opt, ok := hc.(ports.OptionalDependency); ok && opt.Optional() {
				deps[hc.Name()] = "degraded"
			} else {
				deps[hc.Name()] = "unhealthy"
				unavailable = true
			}
			overall = "degraded"
		} else {
			deps[hc.Name()] = "healthy"
		}
	}
	health := map[string]interface{}{
		"status":       overall,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"version":      "1.0.0",
		"service":      "car-marketplace",
		"environment":  s.config.Environment,
		"dependencies": deps,
	}
	if s.cache != nil {
		stats := s.cache.Stats(ctx)
		health["cache"] = map[string]interface{}{
			"state":            stats.State,
			"remote_connected": stats.RemoteConnected,
			"fallback_size":    stats.FallbackSize,
		}
	}
	code := http.StatusOK
	if unavailable {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, health)
}
