package cache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRemote is an in-memory RemoteCache whose operations can be made to fail.
type fakeRemote struct {
	mu       sync.Mutex
	data     map[string][]byte
	ttls     map[string]time.Duration
	failPing bool
	failOps  bool
	pings    int
	infos    int
	info     string
	closed   bool
}

var errRemote = errors.New("remote unavailable")

func newFakeRemote() *fakeRemote {
	return &fakeRemote{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRemote) setFailing(ops bool) {
	f.mu.Lock()
	f.failOps = ops
	f.failPing = ops
	f.mu.Unlock()
}

func (f *fakeRemote) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

func (f *fakeRemote) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOps {
		return nil, false, errRemote
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeRemote) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOps {
		return errRemote
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeRemote) Keys(ctx context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOps {
		return nil, errRemote
	}
	var out []string
	for k := range f.data {
		if ok, _ := path.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeRemote) Delete(ctx context.Context, keys ...string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOps {
		return 0, errRemote
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeRemote) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	if f.failPing {
		return errRemote
	}
	return nil
}

func (f *fakeRemote) Info(ctx context.Context, section string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infos++
	if f.failOps || f.info == "" {
		return "", errRemote
	}
	return f.info, nil
}

func (f *fakeRemote) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testConfig() Config {
	return Config{
		TTL:            time.Minute,
		ConnectTimeout: 50 * time.Millisecond,
		RetryBase:      time.Millisecond,
		RetryCeiling:   3 * time.Millisecond,
		MaxRetries:     2,
	}
}

func newTestAccessor(t *testing.T, remote *fakeRemote) (*Accessor, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	var a *Accessor
	if remote == nil {
		a = NewAccessor(nil, testConfig(), nil)
	} else {
		a = NewAccessor(remote, testConfig(), nil)
	}
	a.now = clock.Now
	a.Initialize(context.Background())
	t.Cleanup(func() { _ = a.Close() })
	return a, clock
}

func TestAccessor_NoRemoteScenario(t *testing.T) {
	a, _ := newTestAccessor(t, nil)
	ctx := context.Background()

	assert.Equal(t, StateDisconnected, a.State())
	require.NoError(t, a.Set(ctx, "a", map[string]int{"x": 1}))

	got, ok, err := GetJSON[map[string]int](ctx, a, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]int{"x": 1}, got)

	stats := a.Stats(ctx)
	assert.False(t, stats.RemoteConnected)
	assert.False(t, stats.RemoteAvailable)
	assert.Equal(t, "disconnected", stats.State)
	assert.Equal(t, 1, stats.FallbackSize)
	assert.Contains(t, stats.FallbackKeys, "a")
	assert.Empty(t, stats.RemoteMemory)

	// no reconnect is ever attempted without a descriptor
	assert.False(t, a.Reconnect(ctx))
	assert.Equal(t, StateDisconnected, a.State())
}

func TestAccessor_ConnectedWritesOnlyRemote(t *testing.T) {
	remote := newFakeRemote()
	a, _ := newTestAccessor(t, remote)
	ctx := context.Background()

	require.Equal(t, StateConnected, a.State())
	require.NoError(t, a.Set(ctx, "b", []int{1, 2, 3}))
	assert.True(t, remote.has("b"))
	assert.Equal(t, time.Minute, remote.ttls["b"])
	assert.NotContains(t, a.Stats(ctx).FallbackKeys, "b")

	got, ok, err := GetJSON[[]int](ctx, a, "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, got)

	// disconnect: the value lived only remotely, so it is gone from the caller's view
	remote.setFailing(true)
	_, ok = a.Get(ctx, "b")
	assert.False(t, ok)
	assert.Equal(t, StateDegraded, a.State())
}

func TestAccessor_FailedRemoteSetFallsBackWithinTTL(t *testing.T) {
	remote := newFakeRemote()
	a, clock := newTestAccessor(t, remote)
	ctx := context.Background()

	remote.setFailing(true)
	require.NoError(t, a.Set(ctx, "listing:1", "golf"), "remote failures never reach the caller")
	assert.Equal(t, StateDegraded, a.State())
	assert.False(t, remote.has("listing:1"))

	clock.Advance(59 * time.Second)
	got, ok := a.Get(ctx, "listing:1")
	require.True(t, ok)
	assert.JSONEq(t, `"golf"`, string(got))

	clock.Advance(time.Second)
	_, ok = a.Get(ctx, "listing:1")
	assert.False(t, ok)
	assert.Empty(t, a.Stats(ctx).FallbackKeys, "stale entry is removed on lookup")
}

func TestAccessor_SetGetAcrossTransition(t *testing.T) {
	remote := newFakeRemote()
	a, _ := newTestAccessor(t, remote)
	ctx := context.Background()

	// written while degraded, read after reconnecting: remote misses, fallback serves it
	remote.setFailing(true)
	require.NoError(t, a.Set(ctx, "k", map[string]any{"n": 1.5}))
	remote.setFailing(false)
	require.True(t, a.Reconnect(ctx))

	got, ok, err := GetJSON[map[string]any](ctx, a, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"n": 1.5}, got)
}

func TestAccessor_SerializationErrorPropagates(t *testing.T) {
	a, _ := newTestAccessor(t, nil)
	ctx := context.Background()

	err := a.Set(ctx, "bad", math.Inf(1))
	require.ErrorIs(t, err, ErrSerialization)
	err = a.Set(ctx, "bad", func() {})
	require.ErrorIs(t, err, ErrSerialization)
	require.ErrorIs(t, a.Set(ctx, "", 1), ErrEmptyKey)

	_, ok := a.Get(ctx, "bad")
	assert.False(t, ok)

	require.NoError(t, a.Set(ctx, "num", 42))
	_, _, err = GetJSON[[]string](ctx, a, "num")
	require.ErrorIs(t, err, ErrSerialization)
}

func TestAccessor_ClearWildcard(t *testing.T) {
	remote := newFakeRemote()
	a, _ := newTestAccessor(t, remote)
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "remote:1", 1))
	remote.setFailing(true)
	require.NoError(t, a.Set(ctx, "local:1", 1))
	remote.setFailing(false)
	require.True(t, a.Reconnect(ctx))

	a.Clear(ctx, Wildcard)

	_, ok := a.Get(ctx, "remote:1")
	assert.False(t, ok)
	_, ok = a.Get(ctx, "local:1")
	assert.False(t, ok)
	assert.Zero(t, a.Stats(ctx).FallbackSize)
}

func TestAccessor_ClearPatternKeepsOtherKeys(t *testing.T) {
	a, _ := newTestAccessor(t, nil)
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "listings:page1", []string{"a"}))
	require.NoError(t, a.Set(ctx, "filters:options", []string{"b"}))

	a.Clear(ctx, "listings")

	_, ok := a.Get(ctx, "listings:page1")
	assert.False(t, ok)
	_, ok = a.Get(ctx, "filters:options")
	assert.True(t, ok)

	// wildcards around the literal behave the same
	require.NoError(t, a.Set(ctx, "listings:page2", 1))
	a.Clear(ctx, "*page2*")
	assert.Equal(t, []string{"filters:options"}, a.Stats(ctx).FallbackKeys)
}

func TestAccessor_ClearRemoteErrorIsAbsorbed(t *testing.T) {
	remote := newFakeRemote()
	a, _ := newTestAccessor(t, remote)
	ctx := context.Background()

	remote.setFailing(true)
	a.Clear(ctx, "listings")
	assert.Equal(t, StateDegraded, a.State())
}

func TestAccessor_StatsNeverFails(t *testing.T) {
	remote := newFakeRemote()
	remote.info = "# Memory\r\nused_memory:1024\r\nused_memory_human:1.00K\r\n"
	a, _ := newTestAccessor(t, remote)
	ctx := context.Background()

	stats := a.Stats(ctx)
	assert.True(t, stats.RemoteConnected)
	assert.True(t, stats.RemoteAvailable)
	assert.Equal(t, "1.00K", stats.RemoteMemory)

	remote.mu.Lock()
	remote.info = ""
	remote.mu.Unlock()
	stats = a.Stats(ctx)
	assert.True(t, stats.RemoteConnected, "info errors do not change the state")
	assert.Empty(t, stats.RemoteMemory)
}

func TestAccessor_RemoteStatusStaysLocal(t *testing.T) {
	remote := newFakeRemote()
	a, _ := newTestAccessor(t, remote)
	pings := remote.pings

	configured, connected, state := a.RemoteStatus()
	assert.True(t, configured)
	assert.True(t, connected)
	assert.Equal(t, "connected", state)

	remote.setFailing(true)
	_, _ = a.Get(context.Background(), "k")
	configured, connected, state = a.RemoteStatus()
	assert.True(t, configured)
	assert.False(t, connected)
	assert.Equal(t, "degraded", state)

	assert.Zero(t, remote.infos)
	assert.Equal(t, pings, remote.pings)
}

func TestAccessor_InitializeGivesUpAfterRetries(t *testing.T) {
	remote := newFakeRemote()
	remote.failPing = true
	a, _ := newTestAccessor(t, remote)

	assert.Equal(t, StateDegraded, a.State())
	assert.Equal(t, 3, remote.pings, "one attempt plus MaxRetries retries")

	ctx := context.Background()
	require.NoError(t, a.Set(ctx, "k", "v"))
	assert.False(t, remote.has("k"))
	_, ok := a.Get(ctx, "k")
	assert.True(t, ok)
}

func TestAccessor_InitializeHonoursCancellation(t *testing.T) {
	remote := newFakeRemote()
	remote.failPing = true
	a := NewAccessor(remote, Config{RetryBase: time.Hour, RetryCeiling: time.Hour, MaxRetries: 5}, nil)
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	a.Initialize(ctx)
	assert.Equal(t, StateDegraded, a.State())
}

func TestAccessor_BackgroundReconnect(t *testing.T) {
	remote := newFakeRemote()
	remote.failPing = true
	cfg := testConfig()
	cfg.MaxRetries = 0
	cfg.ReconnectInterval = 5 * time.Millisecond
	a := NewAccessor(remote, cfg, nil)
	a.Initialize(context.Background())
	defer a.Close()
	require.Equal(t, StateDegraded, a.State())

	remote.setFailing(false)
	assert.Eventually(t, func() bool { return a.State() == StateConnected }, time.Second, 5*time.Millisecond)
}

func TestAccessor_SweepRemovesExpired(t *testing.T) {
	a, clock := newTestAccessor(t, nil)
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "old", 1))
	clock.Advance(30 * time.Second)
	require.NoError(t, a.Set(ctx, "new", 2))
	clock.Advance(45 * time.Second)

	assert.Equal(t, 1, a.Sweep())
	assert.Equal(t, []string{"new"}, a.Stats(ctx).FallbackKeys)
}

func TestAccessor_CloseClosesRemote(t *testing.T) {
	remote := newFakeRemote()
	a := NewAccessor(remote, testConfig(), nil)
	a.Initialize(context.Background())
	require.NoError(t, a.Close())
	assert.True(t, remote.closed)
	assert.Equal(t, StateDisconnected, a.State())

	// still usable through the fallback
	ctx := context.Background()
	require.NoError(t, a.Set(ctx, "k", 1))
	_, ok := a.Get(ctx, "k")
	assert.True(t, ok)
}

func TestAccessor_ConcurrentUse(t *testing.T) {
	remote := newFakeRemote()
	a, _ := newTestAccessor(t, remote)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i == 8 {
				remote.setFailing(true)
			}
			key := "k" + string(rune('a'+i))
			_ = a.Set(ctx, key, i)
			_, _ = a.Get(ctx, key)
			if i%5 == 0 {
				a.Clear(ctx, "zzz")
			}
			_ = a.Stats(ctx)
		}(i)
	}
	wg.Wait()
	keys := a.Stats(ctx).FallbackKeys
	assert.True(t, sort.StringsAreSorted(keys))
}

func TestAccessor_ReconnectDropsRemoteCopiesChangedWhileDegraded(t *testing.T) {
	remote := newFakeRemote()
	a, _ := newTestAccessor(t, remote)
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "listing:1", "old"))
	require.NoError(t, a.Set(ctx, "listings:page1", "p"))
	require.NoError(t, a.Set(ctx, "filters:options", "f"))

	remote.setFailing(true)
	require.NoError(t, a.Set(ctx, "listing:1", "new"))
	a.Clear(ctx, "listings")
	require.Equal(t, StateDegraded, a.State())

	remote.setFailing(false)
	require.True(t, a.Reconnect(ctx))
	assert.False(t, remote.has("listing:1"))
	assert.False(t, remote.has("listings:page1"))
	assert.True(t, remote.has("filters:options"))

	got, ok := a.Get(ctx, "listing:1")
	require.True(t, ok)
	assert.JSONEq(t, `"new"`, string(got))

	// the log is flushed once
	require.NoError(t, a.Set(ctx, "listing:1", "newer"))
	assert.True(t, remote.has("listing:1"))
}

func TestAccessor_FailedInvalidationKeepsAccessorDegraded(t *testing.T) {
	remote := newFakeRemote()
	a, _ := newTestAccessor(t, remote)
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "listing:1", "old"))
	remote.setFailing(true)
	a.Clear(ctx, "listing:1")
	require.Equal(t, StateDegraded, a.State())

	// pings answer but deletes still fail
	remote.mu.Lock()
	remote.failPing = false
	remote.mu.Unlock()
	assert.False(t, a.Reconnect(ctx))
	assert.Equal(t, StateDegraded, a.State())
	assert.True(t, remote.has("listing:1"))

	remote.setFailing(false)
	require.True(t, a.Reconnect(ctx))
	assert.False(t, remote.has("listing:1"))
}

func TestAccessor_OversizedInvalidationLogClearsRemote(t *testing.T) {
	remote := newFakeRemote()
	a, _ := newTestAccessor(t, remote)
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "untouched", 1))
	remote.setFailing(true)
	for i := 0; i <= maxPendingKeys; i++ {
		require.NoError(t, a.Set(ctx, fmt.Sprintf("k%d", i), i))
	}

	remote.setFailing(false)
	require.True(t, a.Reconnect(ctx))
	assert.False(t, remote.has("untouched"))
}

func TestRetryDelay(t *testing.T) {
	a := NewAccessor(nil, Config{RetryBase: 100 * time.Millisecond, RetryCeiling: 250 * time.Millisecond}, nil)
	assert.Equal(t, 100*time.Millisecond, a.retryDelay(1))
	assert.Equal(t, 200*time.Millisecond, a.retryDelay(2))
	assert.Equal(t, 250*time.Millisecond, a.retryDelay(3))
	assert.Equal(t, 250*time.Millisecond, a.retryDelay(50))
}

func TestRemoteGlob(t *testing.T) {
	assert.Equal(t, "*", remoteGlob("*"))
	assert.Equal(t, "*", remoteGlob("**"))
	assert.Equal(t, "*listings*", remoteGlob("listings"))
	assert.Equal(t, "*listings:*", remoteGlob("listings:*"))
	assert.Equal(t, `*a\[1\]*`, remoteGlob("a[1]"))
}

func TestStateMachine(t *testing.T) {
	var h stateHolder
	assert.Equal(t, StateDisconnected, h.load())
	assert.False(t, h.transition(StateDisconnected, StateConnected), "must pass through Connecting")
	assert.True(t, h.transition(StateDisconnected, StateConnecting))
	assert.True(t, h.transition(StateConnecting, StateConnected))
	assert.False(t, h.transition(StateConnected, StateConnecting))
	assert.True(t, h.transition(StateConnected, StateDegraded))
	assert.False(t, h.transition(StateConnected, StateDegraded), "already degraded")
	assert.True(t, h.transition(StateDegraded, StateConnecting))
	assert.True(t, h.transition(StateConnecting, StateDegraded))
	assert.Equal(t, "degraded", h.load().String())
}
