package db

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

var (
	maintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddoindexor_sqlite_maintenance_runs_total",
			Help: "Maintenance passes over the document database by outcome",
		},
		[]string{"outcome"},
	)

	maintenanceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ddoindexor_sqlite_maintenance_duration_seconds",
			Help:    "Duration of a maintenance pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	maintenanceLastRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ddoindexor_sqlite_maintenance_last_run_timestamp",
			Help: "Unix timestamp of the last maintenance pass",
		},
	)

	reclaimedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ddoindexor_sqlite_reclaimed_bytes_total",
			Help: "Bytes reclaimed by maintenance since startup",
		},
	)

	walCheckpoints = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddoindexor_sqlite_wal_checkpoints_total",
			Help: "WAL checkpoints by mode",
		},
		[]string{"mode"},
	)

	vacuumRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ddoindexor_sqlite_vacuums_total",
			Help: "Completed VACUUM operations",
		},
	)

	dbSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ddoindexor_sqlite_size_bytes",
			Help: "Size of the database including WAL and shared memory files",
		},
	)

	operationLockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ddoindexor_sqlite_operation_lock_wait_seconds",
			Help:    "Time store operations waited for a running maintenance pass",
			Buckets: []float64{.0001, .001, .01, .1, 1, 10},
		},
	)
)

// recordMaintenance records the result of one maintenance pass.
func recordMaintenance(elapsed time.Duration, err error, sizeBefore, sizeAfter int64) {
	maintenanceDuration.Observe(elapsed.Seconds())
	maintenanceLastRun.Set(float64(time.Now().Unix()))

	if err != nil {
		maintenanceRuns.WithLabelValues(outcomeError).Inc()
		return
	}

	maintenanceRuns.WithLabelValues(outcomeSuccess).Inc()
	dbSizeBytes.Set(float64(sizeAfter))
	if sizeBefore > sizeAfter {
		reclaimedBytes.Add(float64(sizeBefore - sizeAfter))
	}
}
