// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package teleport

import "github.com/prometheus/client_golang/prometheus"

// Lifecycle events counted by RequestEvents.
const (
	EventSent            = "sent"
	EventAccepted        = "accepted"
	EventDeclined        = "declined"
	EventSenderOffline   = "sender_offline"
	EventReceiverOffline = "receiver_offline"
	EventCancelled       = "cancelled"
	EventExpired         = "expired"
	EventCascaded        = "cascaded"
	EventRearmed         = "rearmed"
)

// RequestEvents counts teleport request lifecycle events.
// Use RegisterMetrics to register this with a Prometheus registry.
var RequestEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "warpbook_teleport_requests_total",
		Help: "Total number of teleport request lifecycle events",
	},
	[]string{"outcome"},
)

// RegisterMetrics registers teleport metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(RequestEvents)
}

func recordEvent(event string) {
	RequestEvents.WithLabelValues(event).Inc()
}
