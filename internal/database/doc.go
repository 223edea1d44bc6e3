// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

/*
Package database opens database/sql pools for the source connectivity check and the
destination.

Drivers:
  - starrocks, mysql: github.com/go-sql-driver/mysql. StarRocks is reached over
    its MySQL protocol port (9030 by default) with client-side parameter
    interpolation.
  - duckdb: github.com/duckdb/duckdb-go/v2, a local file or in-memory database.

Open pings the pool before returning it and reports an unreachable server as a
*models.ConnectivityError so callers can tell startup connectivity failures
from configuration mistakes.
*/
package database
