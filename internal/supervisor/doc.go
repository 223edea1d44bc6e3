// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

/*
Package supervisor provides process supervision for binlogsync using
suture v4.

# Overview

	RootSupervisor ("binlogsync")
	├── StreamSupervisor ("stream-layer")
	│   └── StreamService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService (if server.enabled)

A failing stream restarts with backoff while the API layer keeps reporting
health and status. Supervisor events are logged through sutureslog using
the zerolog-backed slog handler from the logging package.

# Configuration

TreeConfig mirrors suture.Spec:

	FailureThreshold  5     failures before backoff
	FailureDecay      30    seconds for the failure count to decay
	FailureBackoff    15s   wait once the threshold is exceeded
	ShutdownTimeout   10s   per-service stop timeout

# Shutdown

Cancelling the context passed to Serve stops every service. Services that
miss the timeout are listed by UnstoppedServiceReport.
*/
package supervisor
