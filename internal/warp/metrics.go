// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package warp

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Status values for warp operation metrics.
const (
	StatusSuccess  = "success"
	StatusInvalid  = "invalid"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// Operations counts registry mutations.
// Use RegisterMetrics to register this with a Prometheus registry.
var Operations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "warpbook_warp_operations_total",
		Help: "Total number of warp registry mutations",
	},
	[]string{"operation", "scope", "status"},
)

// RegisterMetrics registers warp metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Operations)
}

func recordOperation(operation string, scope Scope, err error) {
	Operations.WithLabelValues(operation, scope.String(), statusOf(err)).Inc()
}

func statusOf(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return StatusSuccess
	case errors.As(err, &verr):
		return StatusInvalid
	case errors.Is(err, ErrNotFound):
		return StatusNotFound
	default:
		return StatusError
	}
}
