// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package settings

import "github.com/prometheus/client_golang/prometheus"

// DefaultsWritten counts setting defaults written by InitializeDefaults.
// Use RegisterMetrics to register this with a Prometheus registry.
var DefaultsWritten = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "warpbook_settings_initialized_total",
		Help: "Total number of setting defaults written to entity scopes",
	},
	[]string{"setting"},
)

// RegisterMetrics registers settings metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(DefaultsWritten)
}

func recordDefaultWritten(id string) {
	DefaultsWritten.WithLabelValues(id).Inc()
}
