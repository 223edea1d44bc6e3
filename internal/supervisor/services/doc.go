// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

/*
Package services provides suture.Service wrappers for binlogsync
components.

Each wrapper implements suture's Serve(ctx) error and fmt.Stringer.

# Available Services

Stream (StreamService):
  - Runs the replication coordinator once per Serve call
  - Returns connectivity failures so suture restarts from the saved position
  - Counts consecutive failures in a gobreaker breaker; when it opens, or on
    a mapping or apply failure, calls OnFatal and returns
    suture.ErrDoNotRestart

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts ListenAndServe to Serve

# Usage Example

	tree, _ := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())

	streamSvc := services.NewStreamService(coordinator, services.StreamServiceConfig{
	    MaxConsecutiveFailures: cfg.Stream.MaxConsecutiveFailures,
	    FailureWindow:          cfg.Stream.FailureWindow,
	    OnFatal:                func(error) { cancel() },
	})
	tree.AddStreamService(streamSvc)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
*/
package services
