// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "forge",
		Subsystem: "pipeline",
		Name:      "duration_seconds",
		Help:      "End-to-end pipeline run duration in seconds",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"outcome"})

	gateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forge",
		Subsystem: "pipeline",
		Name:      "gate_decisions_total",
		Help:      "Gate decisions by action",
	}, []string{"action"})

	pipelineRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forge",
		Subsystem: "pipeline",
		Name:      "agent_retries_total",
		Help:      "Agent retry attempts consumed, by role",
	}, []string{"role"})
)

// RecordRunDuration records one pipeline invocation's wall-clock time.
//
// Inputs:
//
//	outcome - "success", "partial", or "error".
//	durationSec - Duration in seconds.
func RecordRunDuration(outcome string, durationSec float64) {
	pipelineDuration.WithLabelValues(outcome).Observe(durationSec)
}

// RecordGateDecision records one gate verdict.
func RecordGateDecision(action string) {
	gateDecisions.WithLabelValues(action).Inc()
}

// RecordAgentRetries records retries consumed by one role in one run.
func RecordAgentRetries(role string, count int) {
	if count <= 0 {
		return
	}
	pipelineRetries.WithLabelValues(role).Add(float64(count))
}
