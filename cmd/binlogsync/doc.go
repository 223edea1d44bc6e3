// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

// Command binlogsync replicates one MySQL table into StarRocks (or DuckDB)
// by following the source's row-based binary log.
//
// # Startup
//
//  1. Configuration: defaults, then config.yaml, then mapped environment
//     variables (Koanf v2), validated before anything connects
//  2. Connectivity check: the source and the destination are pinged; either
//     failing exits with status 1
//  3. Position store, column mapper, default value set, binlog client and,
//     when enabled, the quarantine journal
//  4. Supervisor tree: the stream coordinator under the stream layer and the
//     ops HTTP server under the api layer
//
// # Replication
//
// Each row event for the configured schema and table is resolved to column
// names, normalized against the default value set and applied with an
// upsert (or delete). The position file is rewritten after every applied
// event, so a restart resumes at the last transaction boundary that was
// fully applied.
//
// Connectivity failures restart the stream with backoff. Mapping and apply
// failures, and repeated connectivity failures inside the failure window,
// stop the process with status 1.
//
// # Signals
//
// SIGINT and SIGTERM stop the stream after the event in flight, persist its
// position, shut the HTTP server down and exit with status 0.
//
// # Ops tokens
//
// DELETE /quarantine/{id} requires an admin bearer token. With
// server.auth_secret set, "binlogsync token [subject]" prints one valid for
// server.auth_token_ttl. Without a secret the endpoint answers 403. The ops
// server binds 127.0.0.1 unless server.host says otherwise.
//
// # Example
//
//	export MYSQL_HOST=mysql.internal
//	export MYSQL_PASSWORD=...
//	export STARROCKS_HOST=starrocks-fe.internal
//	export STARROCKS_TABLE=fa_clubs
//	./binlogsync
package main
