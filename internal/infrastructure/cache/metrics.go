package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Cache operations by operation, serving store and result",
		},
		[]string{"op", "source", "result"},
	)

	stateGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_remote_state",
			Help: "Remote cache connection state (0=disconnected, 1=connecting, 2=connected, 3=degraded)",
		},
	)

	degradationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_degraded_transitions_total",
			Help: "Number of times the remote cache was abandoned for the local fallback",
		},
	)
)

func init() {
	prometheus.MustRegister(operationsTotal)
	prometheus.MustRegister(stateGauge)
	prometheus.MustRegister(degradationsTotal)
}

const (
	sourceRemote   = "remote"
	sourceFallback = "fallback"

	resultHit   = "hit"
	resultMiss  = "miss"
	resultStale = "stale"
	resultOK    = "ok"
	resultError = "error"
)
