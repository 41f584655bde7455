// Package metrics holds process-wide metrics and the HTTP server exposing them.
// Per-component metrics live next to the code they measure; Go runtime and
// process metrics come from the default registry collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ddoindexor_uptime_seconds",
			Help: "Seconds since the process started",
		},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ddoindexor_build_info",
			Help: "Always 1, labelled with the running version",
		},
		[]string{"version"},
	)

	componentUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ddoindexor_component_up",
			Help: "Whether a process component is healthy (1) or not (0)",
		},
		[]string{"component"},
	)

	startTime = time.Now()
)

// SetBuildInfo publishes the running version.
func SetBuildInfo(version string) {
	buildInfo.WithLabelValues(version).Set(1)
}

// SetComponentHealth marks a component healthy or unhealthy.
func SetComponentHealth(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1
	}
	componentUp.WithLabelValues(component).Set(value)
}

func refreshUptime() {
	uptime.Set(time.Since(startTime).Seconds())
}
