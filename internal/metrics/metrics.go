// Package metrics defines the prometheus collectors for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subsplit_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "subsplit_http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "subsplit_http_requests_in_flight",
			Help: "Current number of HTTP requests in flight",
		},
	)

	// Domain metrics
	SplitSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subsplit_split_saves_total",
			Help: "Atomic allocation saves, by strategy",
		},
		[]string{"strategy"},
	)
	SettlementTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subsplit_settlement_transitions_total",
			Help: "Settlement state transitions, by event",
		},
		[]string{"event"},
	)
	RemindersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subsplit_reminders_total",
			Help: "Payment reminders, by dispatch outcome",
		},
		[]string{"outcome"},
	)
)
