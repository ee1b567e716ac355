// Package metrics exposes the Prometheus registry shared by the fan-out
// packages. Metrics are defined in their owning packages (executor, books,
// quota, fanout) via promauto and registered on the default registerer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by all packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer paired with Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the HTTP handler serving Registry in the exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Executor Metrics (pkg/executor):
//   - fanout_units_dispatched_total (Counter): Units submitted to the pool
//   - fanout_units_completed_total{outcome} (Counter): Finished units by outcome (success, failure)
//   - fanout_units_in_flight (Gauge): Units currently running on a worker
//   - fanout_unit_duration_seconds (Histogram): Unit execution time
//   - fanout_queue_depth (Gauge): Units waiting in the submission queue
//
// Cycle Metrics (pkg/fanout):
//   - fanout_cycles_total{mode, outcome} (Counter): Dispatch cycles by mode and outcome
//   - fanout_cycle_duration_seconds{mode} (Histogram): Wall-clock cycle time
//   - fanout_cycle_items_total{mode} (Counter): Work items processed
//   - fanout_cycle_units{mode} (Histogram): Units dispatched per cycle
//
// Lookup Metrics (pkg/books):
//   - books_requests_total{status} (Counter): Volume lookups by HTTP status
//   - books_request_duration_seconds (Histogram): Lookup duration
//   - books_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - books_missing_fields_total (Counter): Responses without a description
//
// Quota Metrics (pkg/quota):
//   - books_quota_blocked (Gauge): 1 while a cooldown window is active
//   - books_quota_blocks_total (Counter): Requests refused during cooldown
//   - books_quota_rejections_total (Counter): 429 responses observed
//
// Example Prometheus Queries:
//
//   # Batched vs parallel P95 cycle time
//   histogram_quantile(0.95, sum by (mode, le) (rate(fanout_cycle_duration_seconds_bucket[5m])))
//
//   # Failed cycle rate
//   rate(fanout_cycles_total{outcome="failure"}[5m])
//
//   # Share of items without a description
//   rate(books_missing_fields_total[5m]) / rate(books_requests_total[5m])
//
//   # Worker saturation
//   fanout_units_in_flight
