// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

/*
Package stream drives replication: it reads change events from a Source,
maps and normalizes each row, applies it to the destination and persists
the event position once every row is applied.

	Source.Next -> Mapper.Resolve -> Normalize -> Destination.Upsert/Delete -> PositionStore.Save

One goroutine runs the loop and handles one event at a time. The
coordinator moves through Idle, Initializing, Streaming, Draining and
Closed; State and Status are safe to call from other goroutines.

# Failure Classes

IsFatal separates errors that must stop the process (mapping and apply
failures, which would otherwise advance the position past unapplied data)
from connectivity failures, which the supervisor retries by calling Run
again from the saved position.

# Cancellation

Cancelling the context interrupts the blocking read. An apply already in
progress runs to completion on a context detached from cancellation and
bounded by the apply timeout, so rows are never half-written.
*/
package stream
