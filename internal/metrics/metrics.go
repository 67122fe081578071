// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ---- poll cycle ----

	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleet_poll_cycles_total",
		Help: "Total number of completed poll cycles",
	})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fleet_poll_cycle_duration_seconds",
		Help:    "Wall time spent collecting one cycle",
		Buckets: prometheus.DefBuckets,
	})

	CycleOverruns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleet_poll_cycle_overruns_total",
		Help: "Cycles whose collection took longer than the configured interval",
	})

	BatchPoints = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fleet_batch_points",
		Help: "Number of points in the most recent batch",
	})

	// ---- per unit ----

	UnitReadFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_unit_read_failures_total",
		Help: "Unit reads that ended in a typed failure",
	}, []string{"unit", "kind"})

	DecodeAnomalies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_decode_anomalies_total",
		Help: "Windows that could not be decoded with the unit's layout",
	}, []string{"unit"})

	IdentityMismatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_identity_mismatches_total",
		Help: "Reads whose decoded serial differs from the configured serial",
	}, []string{"unit"})

	// ---- sinks ----

	SinkWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_sink_write_failures_total",
		Help: "Batch writes rejected by a sink",
	}, []string{"sink"})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
