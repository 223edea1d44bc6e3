// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Stream Metrics
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binlogsync_events_total",
			Help: "Total number of row change events received from the binlog",
		},
		[]string{"operation"}, // insert, update, delete
	)

	EventsFiltered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "binlogsync_events_filtered_total",
			Help: "Total number of row events skipped because they target another table",
		},
	)

	StreamState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "binlogsync_stream_state",
			Help: "Coordinator state (0=idle, 1=initializing, 2=streaming, 3=draining, 4=closed)",
		},
	)

	StreamRestarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "binlogsync_stream_restarts_total",
			Help: "Total number of stream restarts after connectivity failures",
		},
	)

	// Apply Metrics
	RowsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binlogsync_rows_applied_total",
			Help: "Total number of rows written to the destination",
		},
		[]string{"operation", "outcome"}, // outcome: upserted, inserted, updated, deleted, failed
	)

	ApplyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "binlogsync_apply_duration_seconds",
			Help:    "Duration of destination writes in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	ApplyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binlogsync_apply_failures_total",
			Help: "Total number of writes the destination rejected on every path",
		},
		[]string{"operation"},
	)

	ApplyFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "binlogsync_apply_fallbacks_total",
			Help: "Total number of upserts that needed the check-then-write fallback",
		},
	)

	MappingErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binlogsync_mapping_errors_total",
			Help: "Total number of positional rows that could not be mapped to columns",
		},
		[]string{"table"},
	)

	// Position Metrics
	PositionOffset = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "binlogsync_position_offset",
			Help: "Offset of the last persisted binlog position",
		},
	)

	PositionFileSequence = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "binlogsync_position_file_sequence",
			Help: "Numeric suffix of the last persisted binlog file",
		},
	)

	PositionPersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "binlogsync_position_persist_failures_total",
			Help: "Total number of failed position saves",
		},
	)

	// Quarantine Metrics
	Quarantined = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binlogsync_quarantined_total",
			Help: "Total number of records written to the quarantine journal",
		},
		[]string{"reason"},
	)

	QuarantineEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "binlogsync_quarantine_entries",
			Help: "Current number of entries in the quarantine journal",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "binlogsync_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binlogsync_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binlogsync_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "binlogsync_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordApply records one destination write.
func RecordApply(operation, outcome string, duration time.Duration, err error) {
	ApplyDuration.WithLabelValues(operation).Observe(duration.Seconds())
	RowsApplied.WithLabelValues(operation, outcome).Inc()
	if err != nil {
		ApplyFailures.WithLabelValues(operation).Inc()
	}
}

// RecordEvent counts a received row event.
func RecordEvent(operation string) {
	EventsTotal.WithLabelValues(operation).Inc()
}

// RecordPosition publishes the last persisted position.
func RecordPosition(fileSequence int64, offset uint64) {
	PositionOffset.Set(float64(offset))
	if fileSequence >= 0 {
		PositionFileSequence.Set(float64(fileSequence))
	}
}

// RecordQuarantine counts a quarantined record.
func RecordQuarantine(reason string) {
	Quarantined.WithLabelValues(reason).Inc()
	QuarantineEntries.Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordCircuitBreakerTransition records a breaker state change. States
// are the gobreaker names: closed, half-open, open.
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
