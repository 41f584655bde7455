package crawler

import (
	"strconv"

	"github.com/goran-ethernal/DDOIndexor/pkg/indexer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LastIndexedBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ddoindexor_last_indexed_block",
			Help: "Checkpoint of each network",
		},
		[]string{"chain_id"},
	)

	ChainHead = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ddoindexor_chain_head_block",
			Help: "Latest block reported by the RPC provider of each network",
		},
		[]string{"chain_id"},
	)

	BlocksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddoindexor_blocks_processed_total",
			Help: "Total number of blocks crawled",
		},
		[]string{"chain_id"},
	)

	EventsDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddoindexor_events_decoded_total",
			Help: "Total number of logs decoded by event kind",
		},
		[]string{"chain_id", "kind"},
	)

	DecodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddoindexor_decode_failures_total",
			Help: "Total number of logs that could not be decoded",
		},
		[]string{"chain_id"},
	)

	DocumentsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddoindexor_documents_rejected_total",
			Help: "Total number of metadata payloads skipped because their id does not match the NFT",
		},
		[]string{"chain_id"},
	)

	ReindexTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddoindexor_reindex_tasks_total",
			Help: "Reindex items by outcome (accepted, merged, dropped, processed, failed)",
		},
		[]string{"chain_id", "outcome"},
	)

	InboxSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ddoindexor_reindex_inbox_size",
			Help: "Number of pending reindex items",
		},
		[]string{"chain_id"},
	)

	WorkerStateGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ddoindexor_worker_state",
			Help: "1 for the current state of each network worker, 0 otherwise",
		},
		[]string{"chain_id", "state"},
	)
)

var allStates = []indexer.WorkerState{
	indexer.StateStarting,
	indexer.StateSyncing,
	indexer.StateLive,
	indexer.StateReindexDraining,
	indexer.StateStopped,
	indexer.StateErrored,
}

func chainLabel(chainID uint64) string {
	return strconv.FormatUint(chainID, 10)
}

func setWorkerState(chainID uint64, state indexer.WorkerState) {
	label := chainLabel(chainID)
	for _, s := range allStates {
		v := 0.0
		if s == state {
			v = 1
		}
		WorkerStateGauge.WithLabelValues(label, string(s)).Set(v)
	}
}

func reindexOutcome(chainID uint64, outcome string) {
	ReindexTasks.WithLabelValues(chainLabel(chainID), outcome).Inc()
}
