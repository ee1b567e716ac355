package fanout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for dispatch cycles.
var (
	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanout_cycles_total",
		Help: "Dispatch cycles by mode and outcome",
	}, []string{"mode", "outcome"})

	cycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fanout_cycle_duration_seconds",
		Help:    "Wall time of a dispatch cycle by mode",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"mode"})

	cycleItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanout_cycle_items_total",
		Help: "Work items processed by mode",
	}, []string{"mode"})

	cycleUnits = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fanout_cycle_units",
		Help:    "Executor units dispatched per cycle by mode",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"mode"})
)
