// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package config

import "time"

// Config holds all worker configuration.
//
// Loading order (Koanf v2):
//  1. Defaults from defaultConfig()
//  2. Optional YAML file (CONFIG_PATH, config.yaml, /etc/reelcast/config.yaml)
//  3. Environment variables listed in envMappings
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load configuration")
//	}
//	db, err := database.Open(ctx, &cfg.Database, logger)
type Config struct {
	Logging     LoggingConfig     `koanf:"logging"`
	Database    DatabaseConfig    `koanf:"database"`
	Recommend   RecommendConfig   `koanf:"recommend"`
	Store       StoreConfig       `koanf:"store"`
	Moderation  ModerationConfig  `koanf:"moderation"`
	Ollama      OllamaConfig      `koanf:"ollama"`
	Preferences PreferencesConfig `koanf:"preferences"`
	Scheduler   SchedulerConfig   `koanf:"scheduler"`
	Events      EventsConfig      `koanf:"events"`
	Server      ServerConfig      `koanf:"server"`
	Supervisor  SupervisorConfig  `koanf:"supervisor"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig configures the resilient data access layer.
type DatabaseConfig struct {
	// Driver is "mysql" for the platform database or "duckdb" for local development.
	Driver string `koanf:"driver" validate:"oneof=mysql duckdb"`

	// DSN is passed to sql.Open unchanged. For duckdb an empty DSN means in-memory.
	DSN string `koanf:"dsn"`

	MaxAttempts     int           `koanf:"max_attempts" validate:"min=1,max=10"`
	RetryDelay      time.Duration `koanf:"retry_delay" validate:"min=0"`
	PingTimeout     time.Duration `koanf:"ping_timeout" validate:"min=0"`
	QueryTimeout    time.Duration `koanf:"query_timeout" validate:"min=0"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`

	// InitSchema creates the tables the worker reads when they are missing.
	InitSchema bool `koanf:"init_schema"`
}

// RecommendConfig holds the model-building and ranking constants.
type RecommendConfig struct {
	// CorpusPredicate selects which videos form the corpus: "active" or "not_rejected".
	CorpusPredicate string `koanf:"corpus_predicate" validate:"oneof=active not_rejected"`

	DefaultTopN       int     `koanf:"default_top_n" validate:"min=1,max=1000"`
	SimilarityWeight  float64 `koanf:"similarity_weight" validate:"min=0,max=1"`
	EngagementWeight  float64 `koanf:"engagement_weight" validate:"min=0,max=1"`
	NeutralSimilarity float64 `koanf:"neutral_similarity" validate:"min=0,max=1"`
	LikeWeight        float64 `koanf:"like_weight" validate:"min=0"`
	CommentWeight     float64 `koanf:"comment_weight" validate:"min=0"`
	ViewWeight        float64 `koanf:"view_weight" validate:"min=0"`
}

// StoreConfig configures the model artifact store.
type StoreConfig struct {
	Dir          string        `koanf:"dir" validate:"required"`
	Keep         int           `koanf:"keep" validate:"min=1"`
	PruneOnLoad  bool          `koanf:"prune_on_load"`
	SafetyWindow time.Duration `koanf:"safety_window" validate:"min=0"`
}

// ModerationConfig configures the sweeps and the classifier guards.
type ModerationConfig struct {
	CommentsEnabled bool `koanf:"comments_enabled"`
	VideosEnabled   bool `koanf:"videos_enabled"`

	VideoAttempts int           `koanf:"video_attempts" validate:"min=1,max=10"`
	VideoBackoff  time.Duration `koanf:"video_backoff" validate:"min=0"`
	VideoTimeout  time.Duration `koanf:"video_timeout" validate:"min=0"`

	// GCPCredentials is a credentials file path or inline JSON; empty uses ADC.
	GCPCredentials string `koanf:"gcp_credentials"`

	// UnsafeVideoLabels rejects a video when Video Intelligence tags it with
	// one of these labels at VideoLabelConfidence or higher. Empty disables
	// label checks; explicit content detection always runs.
	UnsafeVideoLabels    []string `koanf:"unsafe_video_labels"`
	VideoLabelConfidence float64  `koanf:"video_label_confidence" validate:"min=0,max=1"`

	RateLimit       float64       `koanf:"rate_limit" validate:"min=0"`
	RateBurst       int           `koanf:"rate_burst" validate:"min=1"`
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"min=1"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" validate:"min=0"`

	CacheEnabled bool          `koanf:"cache_enabled"`
	CacheDir     string        `koanf:"cache_dir" validate:"required_if=CacheEnabled true"`
	CacheTTL     time.Duration `koanf:"cache_ttl" validate:"min=0"`
}

// OllamaConfig configures the LLM client shared by text moderation and preferences.
type OllamaConfig struct {
	// Host overrides OLLAMA_HOST when set.
	Host            string        `koanf:"host" validate:"omitempty,url"`
	ModerationModel string        `koanf:"moderation_model" validate:"required"`
	PreferenceModel string        `koanf:"preference_model" validate:"required"`
	Timeout         time.Duration `koanf:"timeout" validate:"min=0"`
}

// PreferencesConfig configures the user preference refresh.
type PreferencesConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Lookback      time.Duration `koanf:"lookback" validate:"min=0"`
	MaxCategories int           `koanf:"max_categories" validate:"min=1,max=19"`
}

// SchedulerConfig holds the task cadences as 5-field cron expressions.
type SchedulerConfig struct {
	PollInterval        time.Duration `koanf:"poll_interval" validate:"min=0"`
	Timezone            string        `koanf:"timezone"`
	RunOnStart          bool          `koanf:"run_on_start"`
	RebuildSchedule     string        `koanf:"rebuild_schedule" validate:"cron"`
	CommentsSchedule    string        `koanf:"comments_schedule" validate:"cron"`
	VideosSchedule      string        `koanf:"videos_schedule" validate:"cron"`
	PreferencesSchedule string        `koanf:"preferences_schedule" validate:"cron"`
}

// EventsConfig selects the event bus backend.
type EventsConfig struct {
	// Backend is "gochannel" (in-process), "nats", or "none".
	Backend     string `koanf:"backend" validate:"oneof=gochannel nats none"`
	NATSURL     string `koanf:"nats_url" validate:"required_if=Backend nats"`
	TopicPrefix string `koanf:"topic_prefix"`
}

// ServerConfig configures the operational HTTP endpoint.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=0"`
}

// SupervisorConfig mirrors supervisor.TreeConfig.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// ScheduleLocation resolves the configured timezone.
func (c *SchedulerConfig) ScheduleLocation() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
