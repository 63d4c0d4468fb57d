package health_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/car-marketplace/internal/core/ports"
	"github.com/avatarctic/car-marketplace/internal/infrastructure/cache"
	"github.com/avatarctic/car-marketplace/internal/infrastructure/health"
)

type linkStub struct {
	configured, connected bool
	state                 string
	calls                 int
}

func (l *linkStub) RemoteStatus() (bool, bool, string) {
	l.calls++
	return l.configured, l.connected, l.state
}

func TestCacheHealthChecker_ReportsLinkState(t *testing.T) {
	link := &linkStub{configured: true, connected: true, state: "connected"}
	checker := health.NewCacheHealthChecker(link)
	ctx := context.Background()

	assert.Equal(t, "cache", checker.Name())
	opt, ok := checker.(ports.OptionalDependency)
	require.True(t, ok)
	assert.True(t, opt.Optional())

	require.NoError(t, checker.Check(ctx))

	link.connected, link.state = false, "degraded"
	err := checker.Check(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "degraded")
	assert.Equal(t, 2, link.calls)
}

func TestCacheHealthChecker_LocalOnlyCacheIsHealthy(t *testing.T) {
	acc := cache.NewAccessor(nil, cache.Config{TTL: time.Minute}, nil)
	acc.Initialize(context.Background())
	defer acc.Close()

	assert.NoError(t, health.NewCacheHealthChecker(acc).Check(context.Background()))
}
