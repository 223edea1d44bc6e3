// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

/*
Package api serves the operations HTTP surface of binlogsync.

Endpoints:

	GET    /healthz           200 while streaming, 503 otherwise
	GET    /status            coordinator snapshot (state, position, counters)
	GET    /metrics           Prometheus exposition
	GET    /quarantine?limit= quarantined records, oldest first
	DELETE /quarantine/{id}   drop a record after manual reconciliation (admin token)

All JSON bodies use the APIResponse envelope. Every request gets an
X-Request-ID which is also placed in the logging context. CORS allows only
the configured origins; /status and /quarantine are rate limited per client
IP with go-chi/httprate.

DELETE requires "Authorization: Bearer <token>" carrying the admin role,
signed HS256 with server.auth_secret (golang-jwt). Missing or invalid tokens
get 401, other roles 403. With no secret configured the endpoint always
answers 403.

The router is served by services.HTTPServerService under the api-layer of
the supervisor tree.
*/
package api
