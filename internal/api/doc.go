// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

/*
Package api serves the worker's operational HTTP endpoint using the Chi router.

Routes:

	GET /healthz   liveness, always 200 while the process runs
	GET /readyz    503 until the database answers a ping
	GET /metrics   Prometheus exposition
	GET /status    scheduler tasks, last model build and latest artifact

Every JSON response uses the APIResponse envelope. Requests carry an
X-Request-ID that is echoed in the envelope metadata.
*/
package api
