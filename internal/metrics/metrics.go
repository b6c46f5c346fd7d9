// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

// Package metrics holds the worker's Prometheus instruments. They register
// with the default registry and are exposed by the ops server at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelcast_db_query_duration_seconds",
			Help:    "Duration of database statements in seconds, including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelcast_db_query_errors_total",
			Help: "Database statements that failed after exhausting retries",
		},
		[]string{"operation"},
	)

	DBRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelcast_db_retries_total",
			Help: "Failed database attempts that triggered a retry",
		},
	)

	DBReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelcast_db_reconnects_total",
			Help: "Connection pool rebuilds",
		},
	)

	// Model Metrics
	ModelBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelcast_model_builds_total",
			Help: "Similarity model build cycles by result",
		},
		[]string{"result"}, // "success", "empty_corpus", "error"
	)

	ModelBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reelcast_model_build_duration_seconds",
			Help:    "Duration of a model build cycle",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300},
		},
	)

	ModelCorpusSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelcast_model_corpus_size",
			Help: "Number of videos in the most recently built model",
		},
	)

	ModelArtifactsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelcast_model_artifacts_pruned_total",
			Help: "Model artifacts deleted by prune",
		},
	)

	// Recommendation Metrics
	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reelcast_recommend_duration_seconds",
			Help:    "Duration of a scoring call",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	RecommendResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelcast_recommend_requests_total",
			Help: "Scoring calls by outcome",
		},
		[]string{"outcome"}, // "ranked", "no_model", "no_candidates", "error"
	)

	// Moderation Metrics
	ModerationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelcast_moderation_decisions_total",
			Help: "Moderation verdicts written back, by content kind and status",
		},
		[]string{"kind", "status"},
	)

	ModerationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelcast_moderation_failures_total",
			Help: "Items left pending because classification or write-back failed",
		},
		[]string{"kind", "stage"}, // stage: "classify", "write"
	)

	ModerationSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelcast_moderation_skipped_total",
			Help: "Pending items skipped because they carry no payload",
		},
		[]string{"kind"},
	)

	ClassifierCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelcast_classifier_calls_total",
			Help: "Calls to external classifiers by result",
		},
		[]string{"classifier", "result"},
	)

	ClassifierCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelcast_classifier_cache_total",
			Help: "Verdict cache lookups",
		},
		[]string{"result"}, // "hit", "miss"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reelcast_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Preference Metrics
	PreferenceUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelcast_preference_updates_total",
			Help: "User preference refresh outcomes",
		},
		[]string{"result"}, // "updated", "invalid", "error"
	)

	// Scheduler Metrics
	SchedulerTaskRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelcast_scheduler_task_runs_total",
			Help: "Scheduled task executions by result",
		},
		[]string{"task", "result"}, // result: "success", "error", "panic"
	)

	SchedulerTaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelcast_scheduler_task_duration_seconds",
			Help:    "Duration of scheduled task executions",
			Buckets: []float64{.01, .1, 1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"task"},
	)

	SchedulerTaskLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reelcast_scheduler_task_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful run",
		},
		[]string{"task"},
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelcast_events_published_total",
			Help: "Events published to the bus by topic and result",
		},
		[]string{"topic", "result"},
	)
)

// RecordDBQuery records a database statement.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordModelBuild records one build cycle.
func RecordModelBuild(result string, duration time.Duration, corpusSize int) {
	ModelBuilds.WithLabelValues(result).Inc()
	ModelBuildDuration.Observe(duration.Seconds())
	if result == "success" {
		ModelCorpusSize.Set(float64(corpusSize))
	}
}

// RecordRecommend records one scoring call.
func RecordRecommend(outcome string, duration time.Duration) {
	RecommendResults.WithLabelValues(outcome).Inc()
	RecommendDuration.Observe(duration.Seconds())
}

// RecordModeration records a verdict that was written back.
func RecordModeration(kind, status string) {
	ModerationDecisions.WithLabelValues(kind, status).Inc()
}

// RecordClassifierCall records an external classifier call.
func RecordClassifierCall(classifier string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	ClassifierCalls.WithLabelValues(classifier, result).Inc()
}

// RecordTaskRun records one scheduled task execution.
func RecordTaskRun(task, result string, duration time.Duration) {
	SchedulerTaskRuns.WithLabelValues(task, result).Inc()
	SchedulerTaskDuration.WithLabelValues(task).Observe(duration.Seconds())
	if result == "success" {
		SchedulerTaskLastSuccess.WithLabelValues(task).Set(float64(time.Now().Unix()))
	}
}

// RecordEventPublish records an event bus publish.
func RecordEventPublish(topic string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	EventsPublished.WithLabelValues(topic, result).Inc()
}
