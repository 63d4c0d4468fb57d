// Package cache implements the cache-aside accessor used by the read paths
// of the marketplace. The accessor fronts an optional remote store (Redis)
// and an in-process fallback map, and picks one of them per call based on
// an explicit connection state machine:
//
//	Disconnected -> Connecting -> Connected
//	Connected    -> Degraded      (any remote operation error)
//	Degraded     -> Connecting    (periodic reconnect)
//	Connecting   -> Degraded      (retries exhausted)
//
// Without a configured remote the accessor stays Disconnected for the life
// of the process. Whichever store is active serves both reads and writes;
// the two are never reconciled. Infrastructure errors are logged and
// absorbed, so callers only ever see ErrSerialization or ErrEmptyKey.
package cache
