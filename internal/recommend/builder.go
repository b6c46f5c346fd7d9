// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/events"
	"github.com/tomtom215/reelcast/internal/metrics"
	"github.com/tomtom215/reelcast/internal/models"
	"github.com/tomtom215/reelcast/internal/recommend/algorithms"
	"github.com/tomtom215/reelcast/internal/recommend/storage"
)

// Build turns a corpus snapshot into an artifact. Row i of the similarity
// matrix belongs to corpus[i].
func Build(corpus []models.VideoRecord, cfg *Config, builtAt time.Time) (*storage.Artifact, error) {
	if len(corpus) == 0 {
		return nil, ErrEmptyCorpus
	}

	docs := make([]string, len(corpus))
	for i, v := range corpus {
		docs[i] = v.Category
	}
	vec, rows, err := algorithms.FitTransform(docs)
	if err != nil {
		if errors.Is(err, algorithms.ErrEmptyVocabulary) {
			return nil, fmt.Errorf("%w: %w", ErrEmptyCorpus, err)
		}
		return nil, fmt.Errorf("fit vectorizer: %w", err)
	}

	raw := make([]float64, len(corpus))
	for i, v := range corpus {
		raw[i] = cfg.Engagement.Raw(v.Likes, v.Comments, v.Views)
	}
	engagement := algorithms.MinMaxNormalize(raw)

	videos := make([]storage.ArtifactVideo, len(corpus))
	for i, v := range corpus {
		videos[i] = storage.ArtifactVideo{VideoRecord: v, EngagementScore: engagement[i]}
	}

	a := &storage.Artifact{
		SchemaVersion: storage.SchemaVersion,
		BuiltAt:       builtAt.UTC(),
		Predicate:     string(cfg.CorpusPredicate),
		Vectorizer:    *vec,
		Videos:        videos,
		Similarity:    algorithms.CosineMatrix(rows),
	}
	a.BuildIndex()
	if len(a.Index) != len(a.Videos) {
		return nil, fmt.Errorf("corpus contains duplicate video ids (%d rows, %d ids)", len(a.Videos), len(a.Index))
	}
	return a, nil
}

// BuildStatus describes the most recent build.
type BuildStatus struct {
	Building       bool      `json:"building"`
	LastStartedAt  time.Time `json:"last_started_at,omitempty"`
	LastBuiltAt    time.Time `json:"last_built_at,omitempty"`
	LastArtifact   string    `json:"last_artifact,omitempty"`
	LastCorpusSize int       `json:"last_corpus_size"`
	LastDurationMS int64     `json:"last_duration_ms"`
	LastError      string    `json:"last_error,omitempty"`
}

// Builder runs the load, build, save, prune, publish cycle.
// Only one build runs at a time.
type Builder struct {
	cfg       *Config
	source    CorpusSource
	store     ArtifactSaver
	publisher BuildPublisher
	logger    zerolog.Logger
	now       func() time.Time

	buildMu  sync.Mutex
	statusMu sync.RWMutex
	status   BuildStatus
}

// NewBuilder creates a Builder. publisher may be nil.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewBuilder(cfg *Config, source CorpusSource, store ArtifactSaver, publisher BuildPublisher, logger zerolog.Logger) *Builder {
	return &Builder{
		cfg:       cfg,
		source:    source,
		store:     store,
		publisher: publisher,
		logger:    logger.With().Str("component", "model_builder").Logger(),
		now:       time.Now,
	}
}

// BuildFromDatabase loads the corpus, builds and saves a new artifact, prunes
// old artifacts and publishes model.built. On failure the previous artifact
// stays authoritative.
func (b *Builder) BuildFromDatabase(ctx context.Context) (storage.ArtifactInfo, error) {
	if !b.buildMu.TryLock() {
		return storage.ArtifactInfo{}, ErrBuildInProgress
	}
	defer b.buildMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, b.cfg.BuildTimeout)
	defer cancel()

	start := b.now()
	b.setStatus(func(s *BuildStatus) {
		s.Building = true
		s.LastStartedAt = start
	})

	info, size, err := b.build(ctx, start)

	duration := time.Since(start)
	result := "success"
	switch {
	case errors.Is(err, ErrEmptyCorpus):
		result = "empty_corpus"
	case err != nil:
		result = "error"
	}
	metrics.RecordModelBuild(result, duration, size)

	b.setStatus(func(s *BuildStatus) {
		s.Building = false
		s.LastDurationMS = duration.Milliseconds()
		s.LastCorpusSize = size
		if err != nil {
			s.LastError = err.Error()
			return
		}
		s.LastError = ""
		s.LastBuiltAt = info.Stamp
		s.LastArtifact = info.Name
	})
	return info, err
}

func (b *Builder) build(ctx context.Context, start time.Time) (storage.ArtifactInfo, int, error) {
	corpus, err := b.source.LoadCorpus(ctx, b.cfg.CorpusPredicate)
	if err != nil {
		return storage.ArtifactInfo{}, 0, fmt.Errorf("load corpus: %w", err)
	}

	artifact, err := Build(corpus, b.cfg, start)
	if err != nil {
		return storage.ArtifactInfo{}, len(corpus), err
	}

	info, err := b.store.Save(ctx, artifact)
	if err != nil {
		return storage.ArtifactInfo{}, len(corpus), fmt.Errorf("save artifact: %w", err)
	}

	logger := b.logger.With().Str("artifact", info.Name).Int("corpus_size", len(corpus)).Logger()
	logger.Info().
		Int("terms", len(artifact.Vectorizer.Terms)).
		Dur("elapsed", time.Since(start)).
		Msg("Model built")

	if removed, err := b.store.Prune(ctx, b.cfg.Keep); err != nil {
		logger.Warn().Err(err).Int("removed", removed).Msg("Pruning old artifacts failed")
	} else if removed > 0 {
		logger.Debug().Int("removed", removed).Msg("Pruned old artifacts")
	}

	if b.publisher != nil {
		ev := events.ModelBuilt{
			EventID:      uuid.NewString(),
			ArtifactName: info.Name,
			BuiltAt:      artifact.BuiltAt,
			CorpusSize:   len(corpus),
			Predicate:    b.cfg.CorpusPredicate,
		}
		if err := b.publisher.PublishModelBuilt(ctx, ev); err != nil {
			logger.Warn().Err(err).Msg("Publishing model.built failed")
		}
	}
	return info, len(corpus), nil
}

func (b *Builder) setStatus(fn func(*BuildStatus)) {
	b.statusMu.Lock()
	defer b.statusMu.Unlock()
	fn(&b.status)
}

// Status returns a snapshot of the last build.
func (b *Builder) Status() BuildStatus {
	b.statusMu.RLock()
	defer b.statusMu.RUnlock()
	return b.status
}
