package ddo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddoindexor_document_events_recorded_total",
			Help: "Events recorded in the document history by kind",
		},
		[]string{"kind"},
	)

	documentsUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ddoindexor_documents_upserted_total",
			Help: "Document upserts applied",
		},
	)

	ordersAttributed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ddoindexor_orders_attributed_on_replay_total",
			Help: "Recorded orders attributed to an asset when replayed",
		},
	)
)
