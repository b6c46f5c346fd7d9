// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/reelcast/config.yaml",
	"/etc/reelcast/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. The cadences and ranking
// constants match the production worker.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Driver:          "mysql",
			DSN:             "",
			MaxAttempts:     3,
			RetryDelay:      5 * time.Second,
			PingTimeout:     5 * time.Second,
			QueryTimeout:    30 * time.Second,
			MaxOpenConns:    0, // 0 = runtime.NumCPU()
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 5 * time.Minute,
			InitSchema:      false,
		},
		Recommend: RecommendConfig{
			CorpusPredicate:   "not_rejected",
			DefaultTopN:       8,
			SimilarityWeight:  0.7,
			EngagementWeight:  0.3,
			NeutralSimilarity: 0.5,
			LikeWeight:        1.0,
			CommentWeight:     2.0,
			ViewWeight:        0.5,
		},
		Store: StoreConfig{
			Dir:          "/data/models",
			Keep:         1,
			PruneOnLoad:  false, // only the saving process prunes by default
			SafetyWindow: 10 * time.Minute,
		},
		Moderation: ModerationConfig{
			CommentsEnabled: true,
			VideosEnabled:   false, // requires Google Cloud credentials
			VideoAttempts:   3,
			VideoBackoff:    2 * time.Second,
			VideoTimeout:    10 * time.Minute,

			UnsafeVideoLabels: []string{
				"violence", "weapon", "gun", "firearm", "blood", "gore", "fight", "self-harm",
			},
			VideoLabelConfidence: 0.8,

			RateLimit:       5,
			RateBurst:       1,
			BreakerFailures: 5,
			BreakerTimeout:  time.Minute,
			CacheEnabled:    false,
			CacheDir:        "/data/moderation-cache",
			CacheTTL:        24 * time.Hour,
		},
		Ollama: OllamaConfig{
			Host:            "",
			ModerationModel: "llama3.1",
			PreferenceModel: "llama3.1",
			Timeout:         2 * time.Minute,
		},
		Preferences: PreferencesConfig{
			Enabled:       true,
			Lookback:      30 * 24 * time.Hour,
			MaxCategories: 3,
		},
		Scheduler: SchedulerConfig{
			PollInterval:        time.Minute,
			Timezone:            "Local",
			RunOnStart:          true,
			RebuildSchedule:     "0 3 * * *",
			CommentsSchedule:    "*/5 * * * *",
			VideosSchedule:      "*/10 * * * *",
			PreferencesSchedule: "0 4 * * *",
		},
		Events: EventsConfig{
			Backend:     "gochannel",
			NATSURL:     "",
			TopicPrefix: "reelcast",
		},
		Server: ServerConfig{
			Enabled:         true,
			Host:            "0.0.0.0",
			Port:            9090,
			ShutdownTimeout: 10 * time.Second,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5.0,
			FailureDecay:     30.0,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults
//  2. Config file (optional)
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	return LoadFrom(findConfigFile())
}

// LoadFrom is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored so the process environment cannot leak
// into configuration.
var envMappings = map[string]string{
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"db_driver":             "database.driver",
	"db_dsn":                "database.dsn",
	"database_url":          "database.dsn",
	"db_max_attempts":       "database.max_attempts",
	"db_retry_delay":        "database.retry_delay",
	"db_ping_timeout":       "database.ping_timeout",
	"db_query_timeout":      "database.query_timeout",
	"db_max_open_conns":     "database.max_open_conns",
	"db_max_idle_conns":     "database.max_idle_conns",
	"db_conn_max_lifetime":  "database.conn_max_lifetime",
	"db_conn_max_idle_time": "database.conn_max_idle_time",
	"db_init_schema":        "database.init_schema",

	"corpus_predicate":          "recommend.corpus_predicate",
	"recommend_default_top_n":   "recommend.default_top_n",
	"recommend_similarity_wt":   "recommend.similarity_weight",
	"recommend_engagement_wt":   "recommend.engagement_weight",
	"recommend_neutral_sim":     "recommend.neutral_similarity",
	"recommend_like_weight":     "recommend.like_weight",
	"recommend_comment_weight":  "recommend.comment_weight",
	"recommend_view_weight":     "recommend.view_weight",
	"model_dir":                 "store.dir",
	"model_keep":                "store.keep",
	"model_prune_on_load":       "store.prune_on_load",
	"model_prune_safety_window": "store.safety_window",

	"moderation_comments_enabled": "moderation.comments_enabled",
	"moderation_videos_enabled":   "moderation.videos_enabled",
	"moderation_video_attempts":   "moderation.video_attempts",
	"moderation_video_backoff":    "moderation.video_backoff",
	"moderation_video_timeout":    "moderation.video_timeout",
	"moderation_rate_limit":       "moderation.rate_limit",
	"moderation_rate_burst":       "moderation.rate_burst",
	"moderation_breaker_failures": "moderation.breaker_failures",
	"moderation_breaker_timeout":  "moderation.breaker_timeout",
	"moderation_cache_enabled":    "moderation.cache_enabled",
	"moderation_cache_dir":        "moderation.cache_dir",
	"moderation_cache_ttl":        "moderation.cache_ttl",
	"gcp_credentials":             "moderation.gcp_credentials",
	"moderation_label_confidence": "moderation.video_label_confidence",

	"ollama_url":              "ollama.host",
	"ollama_moderation_model": "ollama.moderation_model",
	"ollama_preference_model": "ollama.preference_model",
	"ollama_timeout":          "ollama.timeout",

	"preferences_enabled":        "preferences.enabled",
	"preferences_lookback":       "preferences.lookback",
	"preferences_max_categories": "preferences.max_categories",

	"scheduler_poll_interval": "scheduler.poll_interval",
	"scheduler_timezone":      "scheduler.timezone",
	"scheduler_run_on_start":  "scheduler.run_on_start",
	"schedule_rebuild":        "scheduler.rebuild_schedule",
	"schedule_comments":       "scheduler.comments_schedule",
	"schedule_videos":         "scheduler.videos_schedule",
	"schedule_preferences":    "scheduler.preferences_schedule",

	"events_backend":      "events.backend",
	"nats_url":            "events.nats_url",
	"events_topic_prefix": "events.topic_prefix",

	"ops_enabled":          "server.enabled",
	"ops_host":             "server.host",
	"ops_port":             "server.port",
	"ops_shutdown_timeout": "server.shutdown_timeout",

	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc maps an environment variable name to a koanf path.
//
// Examples:
//   - DB_DSN -> database.dsn
//   - MODEL_DIR -> store.dir
//   - SCHEDULE_REBUILD -> scheduler.rebuild_schedule
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
