// Package metrics – Prometheus metrics of the tier engine.
//
//   - tierbot_evaluations_total{state}          – evaluations by terminal state
//   - tierbot_sells_total{tier}                 – PARTIAL_SELL recommendations by tier number
//   - tierbot_persistence_failures_total{op}    – holding store failures (observe|allowed|record|clear|read|journal)
//   - tierbot_lock_contention_total{kind}       – acquire attempts lost to an active lock
//   - tierbot_evaluation_seconds                – evaluation latency
//   - tierbot_ticks_dropped_total               – ticks rejected by a full runner queue
//
// Registered in init() and served at /metrics by the health module.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Evaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tierbot_evaluations_total",
			Help: "Evaluations by terminal state",
		},
		[]string{"state"},
	)

	Sells = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tierbot_sells_total",
			Help: "Partial sell recommendations by tier",
		},
		[]string{"tier"},
	)

	PersistenceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tierbot_persistence_failures_total",
			Help: "Holding state store failures by operation",
		},
		[]string{"op"},
	)

	LockContention = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tierbot_lock_contention_total",
			Help: "Lock acquisitions rejected because a lock was active",
		},
		[]string{"kind"},
	)

	TicksDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tierbot_ticks_dropped_total",
			Help: "Profit ticks dropped because the runner queue was full",
		},
	)

	EvaluationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tierbot_evaluation_seconds",
			Help:    "Evaluation latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)
)

func init() {
	prometheus.MustRegister(
		Evaluations,
		Sells,
		PersistenceFailures,
		LockContention,
		TicksDropped,
		EvaluationSeconds,
	)
}
