// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package host

import "github.com/prometheus/client_golang/prometheus"

// Event outcomes counted by Events.
const (
	outcomeOK       = "ok"
	outcomePanicked = "panicked"
)

var (
	// Events counts events run by host loops, by outcome.
	Events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warpbook_host_events_total",
			Help: "Total number of events run on the host loop",
		},
		[]string{"outcome"},
	)

	// Connected is the number of entities connected through host loops.
	Connected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "warpbook_connected_entities",
		Help: "Number of currently connected entities",
	})
)

// RegisterMetrics registers host metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Events, Connected)
}
