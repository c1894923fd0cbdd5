// Package metrics holds the Prometheus collectors for billing activity.
// HTTP request metrics live in the middleware package.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	sessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_sessions_started_total",
			Help: "Total number of game sessions started",
		},
	)

	sessionsStopped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_sessions_stopped_total",
			Help: "Total number of game sessions stopped, by tariff policy",
		},
		[]string{"policy"},
	)

	revenue = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_revenue_total",
			Help: "Sum of prices charged for stopped sessions",
		},
	)

	sessionMinutes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "billing_session_minutes",
			Help:    "Length of stopped sessions in minutes",
			Buckets: []float64{5, 10, 15, 30, 45, 60, 90, 120, 180, 240},
		},
	)

	conflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_conflicts_total",
			Help: "Rejected lifecycle operations caused by conflicting state",
		},
		[]string{"operation"},
	)
)

// RecordSessionStarted counts a new session.
func RecordSessionStarted() {
	sessionsStarted.Inc()
}

// RecordSessionStopped records a stopped session, its length and its price.
func RecordSessionStopped(policy string, minutes float64, price decimal.Decimal) {
	sessionsStopped.WithLabelValues(policy).Inc()
	sessionMinutes.Observe(minutes)
	f, _ := price.Float64()
	revenue.Add(f)
}

// RecordConflict counts a start or stop that lost to the current state.
func RecordConflict(operation string) {
	conflicts.WithLabelValues(operation).Inc()
}
