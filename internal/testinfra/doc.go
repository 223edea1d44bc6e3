// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

// Package testinfra provides container fixtures for integration tests.
//
// Files in this package build only with the integration tag:
//
//	go test -tags integration ./...
//
// # MySQL Container
//
// MySQLContainer runs a MySQL 8.0 server with row-based binary logging and
// binlog_row_metadata=FULL, so rows events carry column names:
//
//	func TestSourceStreams(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    mysql, err := testinfra.NewMySQLContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, mysql)
//	    // point binlog.Config at mysql.Host and mysql.Port
//	}
//
// WithMinimalRowMetadata starts the server without column names in the
// binlog, which exercises the positional mapping path.
//
// # CI Considerations
//
// These tests require Docker and network access. They are skipped when
// Docker is unavailable. The first run downloads the image.
package testinfra
