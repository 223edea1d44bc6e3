// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

/*
Package binlog reads row-level change events from a MySQL or MariaDB
binary log.

The source registers as a replica with go-mysql's BinlogSyncer, starts at a
saved LogPosition and yields one models.ChangeEvent per rows event for the
configured schema and table. Events for other tables are dropped and
counted in binlogsync_events_filtered_total.

# Positions

Each emitted event carries the position of the last transaction boundary
seen before it: the end of the previous XID or COMMIT event, or the target
of the latest rotate. Restarting from that position replays at most the
current transaction, and never starts between a TABLE_MAP event and the
rows events that depend on it.

# Column names

Named row images require binlog_row_metadata=FULL on the server (MySQL
8.0.1+). Without it the rows event carries values only and the source emits
positional images, which the mapping package resolves against the
configured column order.

# Reconnects

Automatic retry inside the syncer is disabled. A stream error surfaces as a
*models.ConnectivityError and the caller reopens from the saved position.
*/
package binlog
