package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReindexSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddoindexor_reindex_submissions_total",
			Help: "Reindex tasks submitted to the supervisor by result",
		},
		[]string{"result"},
	)

	EventsForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddoindexor_events_forwarded_total",
			Help: "Worker events republished on the event bus by kind",
		},
		[]string{"kind"},
	)

	WorkerExits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddoindexor_worker_exits_total",
			Help: "Worker exits by network and final state",
		},
		[]string{"chain_id", "state"},
	)

	WorkerRestarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddoindexor_worker_restarts_total",
			Help: "Workers started again by the restart policy",
		},
		[]string{"chain_id"},
	)
)
