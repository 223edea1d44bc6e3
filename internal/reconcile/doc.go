// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

/*
Package reconcile makes the destination table agree with normalized records.

An upsert is attempted as one atomic statement in the destination's dialect:

	StarRocks / MySQL: INSERT ... ON DUPLICATE KEY UPDATE c = VALUES(c)
	DuckDB:            INSERT ... ON CONFLICT ("id") DO UPDATE SET "c" = EXCLUDED."c"

If that statement fails, the reconciler checks whether the key exists and
issues a full-column UPDATE or a plain INSERT. When the dialect supports
transactions the check and the write share one transaction. Only when both
stages fail does the caller see an *ApplyError, which keeps both causes and
the full record for diagnostics.

Every call takes its own connection from the pool and releases it before
returning, so a dropped connection affects only the operation in flight.

Deletes remove at most one row by key. Deleting a row that is already gone
succeeds with zero rows affected.
*/
package reconcile
