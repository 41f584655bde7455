package eventbus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddoindexor_eventbus_published_total",
			Help: "Notifications published on the event bus by kind",
		},
		[]string{"kind"},
	)

	eventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddoindexor_eventbus_dropped_total",
			Help: "Notifications dropped because a subscriber queue was full",
		},
		[]string{"kind"},
	)

	subscribersGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ddoindexor_eventbus_subscribers",
			Help: "Current number of event bus subscribers",
		},
	)

	natsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddoindexor_nats_published_total",
			Help: "Notifications republished to NATS by outcome",
		},
		[]string{"status"},
	)
)
