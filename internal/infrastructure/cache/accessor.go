package cache

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/car-marketplace/internal/core/ports"
)

var (
	// ErrSerialization is returned when a value cannot round-trip through JSON.
	ErrSerialization = errors.New("cache: value is not JSON-serializable")
	ErrEmptyKey      = errors.New("cache: empty key")
)

// Config holds the accessor's TTL and connection policy.
type Config struct {
	TTL               time.Duration
	ConnectTimeout    time.Duration
	RetryBase         time.Duration
	RetryCeiling      time.Duration
	MaxRetries        int
	ReconnectInterval time.Duration
	SweepInterval     time.Duration
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 100 * time.Millisecond
	}
	if c.RetryCeiling <= 0 {
		c.RetryCeiling = 3 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

// Accessor implements ports.Cache on top of an optional remote store, serving
// from an in-process fallback map whenever the remote is not connected.
// Remote failures never reach callers; they move the accessor to StateDegraded.
type Accessor struct {
	remote   ports.RemoteCache
	cfg      Config
	logger   *logrus.Logger
	fallback *fallbackStore
	pending  *pendingInvalidations
	state    stateHolder
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var (
	_ ports.Cache             = (*Accessor)(nil)
	_ ports.CacheLinkReporter = (*Accessor)(nil)
)

// NewAccessor creates an accessor. remote may be nil, in which case the
// accessor stays Disconnected and only uses the fallback map.
func NewAccessor(remote ports.RemoteCache, cfg Config, logger *logrus.Logger) *Accessor {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	cfg = cfg.withDefaults()
	return &Accessor{
		remote:   remote,
		cfg:      cfg,
		logger:   logger,
		fallback: newFallbackStore(cfg.TTL),
		pending:  newPendingInvalidations(),
		now:      time.Now,
	}
}

// State returns the current remote connection state.
func (a *Accessor) State() ConnectionState {
	return a.state.load()
}

// RemoteStatus reports whether a remote store is configured and connected.
// It reads local state only.
func (a *Accessor) RemoteStatus() (configured, connected bool, state string) {
	s := a.state.load()
	return a.remote != nil, s == StateConnected, s.String()
}

// Initialize connects to the remote store, if any, and starts the background
// reconnect and sweep loop. It never fails: every error leaves the accessor
// serving from the fallback map.
func (a *Accessor) Initialize(ctx context.Context) {
	if a.remote == nil {
		a.logger.Info("cache: no remote store configured, using in-memory fallback only")
	} else if a.state.transition(StateDisconnected, StateConnecting) {
		a.connect(ctx)
	}
	a.startLoop()
}

// Reconnect retries the remote store if the accessor is degraded.
// It reports whether the remote is connected afterwards.
func (a *Accessor) Reconnect(ctx context.Context) bool {
	if a.remote == nil {
		return false
	}
	if a.state.transition(StateDegraded, StateConnecting) {
		a.logger.Info("cache: reconnecting to remote store")
		a.connect(ctx)
	}
	return a.state.load() == StateConnected
}

// connect pings the remote until it answers or retries run out.
// The state must be Connecting on entry.
func (a *Accessor) connect(ctx context.Context) {
	for attempt := 0; attempt <= a.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := a.retryDelay(attempt)
			select {
			case <-ctx.Done():
				a.logger.WithError(ctx.Err()).Warn("cache: remote connect canceled")
				a.state.transition(StateConnecting, StateDegraded)
				degradationsTotal.Inc()
				return
			case <-time.After(delay):
			}
		}

		pingCtx, cancel := context.WithTimeout(ctx, a.cfg.ConnectTimeout)
		err := a.remote.Ping(pingCtx)
		cancel()
		if err == nil {
			err = a.promote(ctx)
		}
		if err == nil {
			a.logger.WithField("attempt", attempt+1).Info("cache: connected to remote store")
			return
		}
		a.logger.WithFields(logrus.Fields{
			"attempt":     attempt + 1,
			"max_retries": a.cfg.MaxRetries,
		}).WithError(err).Warn("cache: remote connect attempt failed")
	}

	a.state.transition(StateConnecting, StateDegraded)
	degradationsTotal.Inc()
	a.logger.Warn("cache: giving up on remote store, serving from in-memory fallback")
}

// promote drops the remote copies of everything written or cleared while the
// remote was bypassed, then moves Connecting to Connected. markStale records
// under the same lock, so no fallback-only write is missed by the flush.
func (a *Accessor) promote(ctx context.Context) error {
	a.pending.mu.Lock()
	defer a.pending.mu.Unlock()
	if err := a.flushPending(ctx); err != nil {
		return fmt.Errorf("failed to invalidate stale remote entries: %w", err)
	}
	a.pending.reset()
	a.state.transition(StateConnecting, StateConnected)
	return nil
}

// flushPending runs with pending.mu held. A partial failure leaves the log
// intact; deleting the same keys again is harmless.
func (a *Accessor) flushPending(ctx context.Context) error {
	p := a.pending
	if p.empty() {
		return nil
	}
	var removed int64
	if p.all {
		n, err := a.deleteMatching(ctx, Wildcard)
		if err != nil {
			return err
		}
		removed += n
	}
	for pattern := range p.patterns {
		n, err := a.deleteMatching(ctx, pattern)
		if err != nil {
			return err
		}
		removed += n
	}
	if len(p.keys) > 0 {
		keys := make([]string, 0, len(p.keys))
		for k := range p.keys {
			keys = append(keys, k)
		}
		n, err := a.remote.Delete(ctx, keys...)
		if err != nil {
			return err
		}
		removed += n
	}
	a.logger.WithFields(logrus.Fields{
		"all":      p.all,
		"keys":     len(p.keys),
		"patterns": len(p.patterns),
		"removed":  removed,
	}).Info("cache: dropped remote entries changed while degraded")
	return nil
}

// markStale notes that entry (a key, or a Clear pattern) changed in the
// fallback map only, so the remote copy must not be served once reconnected.
func (a *Accessor) markStale(ctx context.Context, entry string, isPattern bool) {
	if a.remote == nil {
		return
	}
	a.pending.mu.Lock()
	if a.state.load() != StateConnected {
		a.pending.add(entry, isPattern)
		a.pending.mu.Unlock()
		return
	}
	a.pending.mu.Unlock()

	// The remote came back after this write missed it.
	var err error
	if isPattern {
		_, err = a.deleteMatching(ctx, entry)
	} else {
		_, err = a.remote.Delete(ctx, entry)
	}
	if err != nil {
		a.degrade("invalidate", entry, err)
		a.markStale(ctx, entry, isPattern)
	}
}

// retryDelay is min(attempt*base, ceiling).
func (a *Accessor) retryDelay(attempt int) time.Duration {
	d := time.Duration(attempt) * a.cfg.RetryBase
	if d <= 0 || d > a.cfg.RetryCeiling {
		return a.cfg.RetryCeiling
	}
	return d
}

// degrade abandons the remote after a failed operation.
func (a *Accessor) degrade(op, key string, err error) {
	operationsTotal.WithLabelValues(op, sourceRemote, resultError).Inc()
	if a.state.transition(StateConnected, StateDegraded) {
		degradationsTotal.Inc()
		a.logger.WithFields(logrus.Fields{"op": op, "key": key}).WithError(err).Warn("cache: remote operation failed, switching to in-memory fallback")
		return
	}
	a.logger.WithFields(logrus.Fields{"op": op, "key": key}).WithError(err).Debug("cache: remote operation failed")
}

// Get returns the cached JSON for key. Misses and remote failures both yield ok=false.
func (a *Accessor) Get(ctx context.Context, key string) ([]byte, bool) {
	if key == "" {
		return nil, false
	}
	if a.state.load() == StateConnected {
		val, ok, err := a.remote.Get(ctx, key)
		switch {
		case err != nil:
			a.degrade("get", key, err)
		case ok:
			operationsTotal.WithLabelValues("get", sourceRemote, resultHit).Inc()
			return val, true
		default:
			operationsTotal.WithLabelValues("get", sourceRemote, resultMiss).Inc()
		}
	}

	val, ok, stale := a.fallback.get(key, a.now())
	switch {
	case ok:
		operationsTotal.WithLabelValues("get", sourceFallback, resultHit).Inc()
	case stale:
		operationsTotal.WithLabelValues("get", sourceFallback, resultStale).Inc()
	default:
		operationsTotal.WithLabelValues("get", sourceFallback, resultMiss).Inc()
	}
	return val, ok
}

// Set stores value under key. Only an empty key or a value that cannot be
// encoded as JSON is reported; a failed remote write lands in the fallback map.
func (a *Accessor) Set(ctx context.Context, key string, value any) error {
	if key == "" {
		return ErrEmptyKey
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: key %q: %w", ErrSerialization, key, err)
	}

	if a.state.load() == StateConnected {
		err := a.remote.Set(ctx, key, data, a.cfg.TTL)
		if err == nil {
			operationsTotal.WithLabelValues("set", sourceRemote, resultOK).Inc()
			return nil
		}
		a.degrade("set", key, err)
	}

	a.fallback.set(key, data, a.now())
	operationsTotal.WithLabelValues("set", sourceFallback, resultOK).Inc()
	a.markStale(ctx, key, false)
	return nil
}

// Clear removes matching keys from the remote store when connected, and
// always from the fallback map. "*" (or an empty pattern) matches everything;
// otherwise keys containing the pattern's literal text match.
func (a *Accessor) Clear(ctx context.Context, pattern string) {
	if pattern == "" {
		pattern = Wildcard
	}
	remoteCleared := a.state.load() == StateConnected && a.clearRemote(ctx, pattern)
	n := a.fallback.clear(pattern)
	operationsTotal.WithLabelValues("clear", sourceFallback, resultOK).Inc()
	a.logger.WithFields(logrus.Fields{"pattern": pattern, "removed": n}).Debug("cache: cleared fallback entries")
	if !remoteCleared {
		a.markStale(ctx, pattern, true)
	}
}

// clearRemote reports whether the remote matches were removed.
func (a *Accessor) clearRemote(ctx context.Context, pattern string) bool {
	n, err := a.deleteMatching(ctx, pattern)
	if err != nil {
		a.degrade("clear", pattern, err)
		return false
	}
	operationsTotal.WithLabelValues("clear", sourceRemote, resultOK).Inc()
	a.logger.WithFields(logrus.Fields{"pattern": pattern, "removed": n}).Debug("cache: cleared remote entries")
	return true
}

func (a *Accessor) deleteMatching(ctx context.Context, pattern string) (int64, error) {
	keys, err := a.remote.Keys(ctx, remoteGlob(pattern))
	if err != nil || len(keys) == 0 {
		return 0, err
	}
	return a.remote.Delete(ctx, keys...)
}

// remoteGlob turns a Clear pattern into a Redis glob with the same
// substring semantics the fallback map uses.
func remoteGlob(pattern string) string {
	literal := literalPart(pattern)
	if literal == "" {
		return Wildcard
	}
	return Wildcard + globEscaper.Replace(literal) + Wildcard
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// Stats returns a snapshot of both stores. Remote memory usage is included
// on a best-effort basis while connected.
func (a *Accessor) Stats(ctx context.Context) ports.CacheStats {
	state := a.state.load()
	keys := a.fallback.keys()
	stats := ports.CacheStats{
		RemoteConnected: state == StateConnected,
		RemoteAvailable: a.remote != nil,
		State:           state.String(),
		FallbackSize:    len(keys),
		FallbackKeys:    keys,
	}
	if stats.RemoteConnected {
		info, err := a.remote.Info(ctx, "memory")
		if err != nil {
			a.logger.WithError(err).Debug("cache: remote memory info unavailable")
		} else {
			stats.RemoteMemory = infoField(info, "used_memory_human")
		}
	}
	return stats
}

// infoField extracts one "name:value" line from Redis INFO output.
func infoField(info, name string) string {
	sc := bufio.NewScanner(strings.NewReader(info))
	for sc.Scan() {
		k, v, ok := strings.Cut(strings.TrimSpace(sc.Text()), ":")
		if ok && k == name {
			return v
		}
	}
	return ""
}

// Sweep drops expired fallback entries and returns how many were removed.
func (a *Accessor) Sweep() int {
	return a.fallback.sweep(a.now())
}

func (a *Accessor) startLoop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.wg.Add(1)
	go a.loop(ctx)
}

// loop plays the role of the remote client's reconnect events and runs the
// periodic fallback sweep.
func (a *Accessor) loop(ctx context.Context) {
	defer a.wg.Done()

	var reconnectC, sweepC <-chan time.Time
	if a.remote != nil && a.cfg.ReconnectInterval > 0 {
		t := time.NewTicker(a.cfg.ReconnectInterval)
		defer t.Stop()
		reconnectC = t.C
	}
	if a.cfg.SweepInterval > 0 {
		t := time.NewTicker(a.cfg.SweepInterval)
		defer t.Stop()
		sweepC = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-reconnectC:
			if a.state.load() == StateDegraded {
				a.Reconnect(ctx)
			}
		case <-sweepC:
			if n := a.Sweep(); n > 0 {
				a.logger.WithField("removed", n).Debug("cache: swept expired fallback entries")
			}
		}
	}
}

// Close stops the background loop and closes the remote connection.
func (a *Accessor) Close() error {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
		a.wg.Wait()
	}

	a.state.reset()
	if a.remote == nil {
		return nil
	}
	if err := a.remote.Close(); err != nil {
		return fmt.Errorf("failed to close remote cache: %w", err)
	}
	return nil
}

// GetJSON reads key from c and decodes it into T. A value that no longer
// decodes into T is reported as ErrSerialization.
func GetJSON[T any](ctx context.Context, c ports.Cache, key string) (T, bool, error) {
	var v T
	if c == nil {
		return v, false, nil
	}
	data, ok := c.Get(ctx, key)
	if !ok {
		return v, false, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("%w: key %q: %w", ErrSerialization, key, err)
	}
	return v, true, nil
}
