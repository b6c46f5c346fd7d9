// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

/*
Package supervisor runs the worker's long-lived services under a suture v4
supervisor tree.

The tree has three layers, each its own supervisor so that a crash loop in
one does not restart the others:

	reelcast
	├── work-layer        scheduler (model rebuilds, moderation sweeps, preferences)
	├── messaging-layer   event listeners (model.built, moderation.decided)
	└── api-layer         ops HTTP server

A service that returns an error or panics is restarted with suture's
failure decay and backoff. Supervisor events are logged through
sutureslog, bridged to zerolog by logging.NewSlogLogger.

Usage:

	tree := supervisor.NewTree(logging.NewSlogLogger(logger), supervisor.TreeConfig{})
	tree.Add(supervisor.LayerWork, services.NewSchedulerService(sched, logger))
	tree.Add(supervisor.LayerMessaging, services.NewEventListenerService("model-built-listener", listen, logger))
	tree.Add(supervisor.LayerAPI, services.NewHTTPServerService(server, 10*time.Second))
	err := tree.Serve(ctx)
*/
package supervisor
