package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initStoreMetrics() {
	r.StoreProjectsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "tara_store_projects_total",
			Help: "Total number of projects in the store",
		},
	)

	r.StoreOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tara_store_operations_total",
			Help: "Total number of store operations",
		},
		[]string{"operation", "status"},
	)

	r.StoreOperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tara_store_operation_duration_seconds",
			Help:    "Store operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"operation"},
	)

	r.StoreSnapshotBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "tara_store_snapshot_bytes",
			Help: "Disk space used by project snapshots in bytes",
		},
	)
}
