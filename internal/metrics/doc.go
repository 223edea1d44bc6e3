// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

/*
Package metrics defines the Prometheus collectors exported by binlogsync.

Collectors are registered with the default registry through promauto and are
served at /metrics by the ops HTTP server.

Stream:
  - binlogsync_events_total{operation}
  - binlogsync_events_filtered_total
  - binlogsync_stream_state
  - binlogsync_stream_restarts_total

Apply:
  - binlogsync_rows_applied_total{operation,outcome}
  - binlogsync_apply_duration_seconds{operation}
  - binlogsync_apply_failures_total{operation}
  - binlogsync_apply_fallbacks_total
  - binlogsync_mapping_errors_total{table}

Position:
  - binlogsync_position_offset
  - binlogsync_position_file_sequence
  - binlogsync_position_persist_failures_total

Quarantine:
  - binlogsync_quarantined_total{reason}
  - binlogsync_quarantine_entries

Circuit breaker:
  - binlogsync_circuit_breaker_state{name}
  - binlogsync_circuit_breaker_state_transitions_total{name,from_state,to_state}

Example alert on a stalled pipeline:

	rate(binlogsync_rows_applied_total[5m]) == 0 and binlogsync_stream_state == 2
*/
package metrics
