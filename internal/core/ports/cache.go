package ports

import (
	"context"
	"time"
)

// Cache is the caller-facing cache-aside surface. Implementations absorb
// infrastructure faults: a miss or an unreachable backend is reported as
// ok=false, never as an error.
type Cache interface {
	// Get returns the JSON bytes stored for key. ok=false if not found.
	Get(ctx context.Context, key string) (value []byte, ok bool)
	// Set stores value (JSON-encoded) for key. Only encoding failures are returned.
	Set(ctx context.Context, key string, value any) error
	// Clear removes entries matching pattern; "*" removes everything.
	Clear(ctx context.Context, pattern string)
	// Stats returns a snapshot of the cache; it never fails.
	Stats(ctx context.Context) CacheStats
}

// CacheStats is a point-in-time view of the cache backends.
type CacheStats struct {
	RemoteConnected bool     `json:"remote_connected"`
	RemoteAvailable bool     `json:"remote_available"`
	State           string   `json:"state"`
	FallbackSize    int      `json:"fallback_size"`
	FallbackKeys    []string `json:"fallback_keys"`
	RemoteMemory    string   `json:"remote_memory,omitempty"`
}

// RemoteCache is the network key-value store behind a Cache (e.g., Redis).
// Every method may fail; callers decide how to degrade.
type RemoteCache interface {
	// Get returns the raw bytes for key. ok=false if not found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for key with TTL (0 means no expiration).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Keys lists keys matching a glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// Delete removes keys and returns how many existed.
	Delete(ctx context.Context, keys ...string) (int64, error)
	Ping(ctx context.Context) error
	// Info returns the raw INFO text for section.
	Info(ctx context.Context, section string) (string, error)
	Close() error
}
