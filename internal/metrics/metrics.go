package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TriggersRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_triggers_registered_total",
			Help: "Total number of daily triggers registered",
		},
	)

	TriggersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reminder_triggers_active",
			Help: "Number of triggers currently held by the registry",
		},
	)

	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_dispatch_total",
			Help: "Total number of reminder dispatch attempts",
		},
		[]string{"status"},
	)

	dispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_dispatch_duration_seconds",
			Help:    "Duration of gateway send calls",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		},
	)

	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_requests_total",
			Help: "Total number of reminder requests handled",
		},
		[]string{"mode", "status"},
	)
)

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
	StatusPanic  = "panic"
)

func ObserveDispatch(succeeded bool, took time.Duration) {
	status := StatusSent
	if !succeeded {
		status = StatusFailed
	}
	dispatchTotal.WithLabelValues(status).Inc()
	dispatchDuration.Observe(took.Seconds())
}

func DispatchPanicked() {
	dispatchTotal.WithLabelValues(StatusPanic).Inc()
}

func ObserveRequest(mode string, scheduled bool) {
	status := "scheduled"
	if !scheduled {
		status = "rejected"
	}
	requestsTotal.WithLabelValues(mode, status).Inc()
}
