package rpc

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddoindexor_rpc_calls_total",
			Help: "RPC calls by JSON-RPC method and outcome class",
		},
		[]string{"method", "outcome"},
	)

	callDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ddoindexor_rpc_call_duration_seconds",
			Help:    "Duration of RPC calls including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddoindexor_rpc_retries_total",
			Help: "Retry attempts by JSON-RPC method",
		},
		[]string{"method"},
	)

	failoversTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddoindexor_rpc_failovers_total",
			Help: "Switches to an alternate RPC endpoint per network",
		},
		[]string{"chain_id"},
	)

	activeEndpoint = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ddoindexor_rpc_active_endpoint_index",
			Help: "Position in rpc_urls of the endpoint a network currently uses",
		},
		[]string{"chain_id"},
	)
)

// observeCall records one finished call. Successful calls use the "ok" outcome,
// failures the class returned by classifyError.
func observeCall(method string, start time.Time, err error) {
	callDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = classifyError(err)
	}
	callsTotal.WithLabelValues(method, outcome).Inc()
}

func observeFailover(chainID uint64, index int) {
	label := strconv.FormatUint(chainID, 10)
	failoversTotal.WithLabelValues(label).Inc()
	activeEndpoint.WithLabelValues(label).Set(float64(index))
}
