package ports

import "context"

// HealthChecker abstracts a dependency health check.
// Implementations should return error if unhealthy.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// OptionalDependency is implemented by checkers whose failure degrades the
// service without making it unavailable.
type OptionalDependency interface {
	Optional() bool
}

// CacheLinkReporter exposes a cache's remote connection from local state,
// without a round trip to the remote store.
type CacheLinkReporter interface {
	RemoteStatus() (configured, connected bool, state string)
}
