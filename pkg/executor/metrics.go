package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for dispatched units.
var (
	unitsDispatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fanout_units_dispatched_total",
		Help: "Total units submitted to the executor",
	})

	unitsCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanout_units_completed_total",
		Help: "Total units resolved by outcome",
	}, []string{"outcome"})

	unitsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fanout_units_in_flight",
		Help: "Units currently executing on a worker",
	})

	unitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fanout_unit_duration_seconds",
		Help:    "Execution time of a single dispatched unit",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fanout_queue_depth",
		Help: "Units waiting for a free worker",
	})
)
