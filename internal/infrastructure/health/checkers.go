package health

import (
	"context"
	"fmt"

	"github.com/avatarctic/car-marketplace/internal/core/ports"
	infraDB "github.com/avatarctic/car-marketplace/internal/infrastructure/db"
)

// dbHealthChecker wraps the database for health checks.
type dbHealthChecker struct{ db *infraDB.Database }

func (d *dbHealthChecker) Name() string                    { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.DB.PingContext(ctx) }

// cacheHealthChecker reports the cache's remote connection. The accessor
// keeps serving from its fallback while degraded, so the check is optional.
type cacheHealthChecker struct{ link ports.CacheLinkReporter }

func (c *cacheHealthChecker) Name() string   { return "cache" }
func (c *cacheHealthChecker) Optional() bool { return true }

func (c *cacheHealthChecker) Check(ctx context.Context) error {
	configured, connected, state := c.link.RemoteStatus()
	if configured && !connected {
		return fmt.Errorf("remote cache %s, serving from fallback", state)
	}
	return nil
}

// NewDBHealthChecker creates a health checker for the database.
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker { return &dbHealthChecker{db: db} }

// NewCacheHealthChecker creates a non-critical health checker for the cache.
func NewCacheHealthChecker(c ports.CacheLinkReporter) ports.HealthChecker {
	return &cacheHealthChecker{link: c}
}
