// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

/*
Package quarantine keeps a durable journal of rows the stream could not
apply.

Entries are stored in BadgerDB as JSON under the "q:" prefix, keyed by a
UUIDv7 so iteration order is insertion order. Two kinds of rows are
recorded:

  - missing_key: an upsert whose after image carried no primary key and
    was skipped.
  - apply_failed: a row whose upsert or delete failed on every path,
    recorded just before the stream halts.

Operators list and delete entries through the HTTP API once the rows have
been repaired by hand. The binlogsync_quarantine_entries gauge tracks the
journal size.
*/
package quarantine
