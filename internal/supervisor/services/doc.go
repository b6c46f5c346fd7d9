// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

// Package services adapts the worker's components to suture.Service.
//
// Each wrapper translates a component's own lifecycle into Serve(ctx):
// SchedulerService runs the task loop, EventListenerService runs a bus
// subscription, and HTTPServerService runs an http.Server with graceful
// shutdown. All of them return when ctx is canceled and implement
// fmt.Stringer for suture's logs.
package services
