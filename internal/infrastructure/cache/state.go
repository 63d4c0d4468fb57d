package cache

import "sync/atomic"

// ConnectionState describes the reachability of the remote store.
type ConnectionState int32

const (
	// StateDisconnected is the initial state, and the terminal one when no
	// remote store is configured.
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	// StateDegraded means the remote store is being bypassed until the next
	// successful reconnect.
	StateDegraded
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// transitions lists every edge of the state machine; Close is handled separately.
var transitions = map[ConnectionState][]ConnectionState{
	StateDisconnected: {StateConnecting},
	StateConnecting:   {StateConnected, StateDegraded},
	StateConnected:    {StateDegraded},
	StateDegraded:     {StateConnecting},
}

func canTransition(from, to ConnectionState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// stateHolder is a lock-free ConnectionState cell that only moves along legal edges.
type stateHolder struct {
	v atomic.Int32
}

func (h *stateHolder) load() ConnectionState {
	return ConnectionState(h.v.Load())
}

// transition moves from -> to if the current state is from and the edge is legal.
// It reports whether this call performed the move.
func (h *stateHolder) transition(from, to ConnectionState) bool {
	if !canTransition(from, to) {
		return false
	}
	if !h.v.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	stateGauge.Set(float64(to))
	return true
}

// reset forces the state back to Disconnected on shutdown.
func (h *stateHolder) reset() {
	h.v.Store(int32(StateDisconnected))
	stateGauge.Set(float64(StateDisconnected))
}
