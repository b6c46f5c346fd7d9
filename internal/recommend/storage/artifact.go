// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package storage

import (
	"fmt"
	"time"

	"github.com/tomtom215/reelcast/internal/models"
	"github.com/tomtom215/reelcast/internal/recommend/algorithms"
)

// SchemaVersion is written into every artifact. Readers reject other versions.
const SchemaVersion = 1

// ArtifactVideo is one corpus row with its normalized engagement score.
type ArtifactVideo struct {
	models.VideoRecord
	EngagementScore float64 `json:"engagement_score"`
}

// Artifact is the output of one model build. Row i of Similarity belongs to
// Videos[i]; Index maps each video ID to that row. An Artifact must not be
// modified once it has been saved or returned by LoadLatest.
type Artifact struct {
	SchemaVersion int                   `json:"schema_version"`
	BuiltAt       time.Time             `json:"built_at"`
	Predicate     string                `json:"corpus_predicate"`
	Vectorizer    algorithms.Vectorizer `json:"vectorizer"`
	Videos        []ArtifactVideo       `json:"videos"`
	Similarity    algorithms.Matrix     `json:"similarity"`
	Index         map[string]int        `json:"index"`
}

// Size returns the number of corpus rows.
func (a *Artifact) Size() int {
	return len(a.Videos)
}

// Row returns the matrix row of videoID.
func (a *Artifact) Row(videoID string) (int, bool) {
	i, ok := a.Index[videoID]
	return i, ok
}

// BuildIndex fills Index from Videos.
func (a *Artifact) BuildIndex() {
	a.Index = make(map[string]int, len(a.Videos))
	for i, v := range a.Videos {
		a.Index[v.VideoID] = i
	}
}

// Validate checks the structural invariants that index-based scoring relies on.
func (a *Artifact) Validate() error {
	if a.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: schema version %d, want %d", ErrCorruptArtifact, a.SchemaVersion, SchemaVersion)
	}
	n := len(a.Videos)
	if a.Similarity.N != n || !a.Similarity.Valid() {
		return fmt.Errorf("%w: similarity matrix is %d x %d with %d values for %d videos",
			ErrCorruptArtifact, a.Similarity.N, a.Similarity.N, len(a.Similarity.Data), n)
	}
	if len(a.Index) != n {
		return fmt.Errorf("%w: index has %d entries for %d videos", ErrCorruptArtifact, len(a.Index), n)
	}
	for i, v := range a.Videos {
		row, ok := a.Index[v.VideoID]
		if !ok || row != i {
			return fmt.Errorf("%w: video %s is at row %d but indexed at %d", ErrCorruptArtifact, v.VideoID, i, row)
		}
		if v.EngagementScore < 0 || v.EngagementScore > 1 {
			return fmt.Errorf("%w: engagement score %v of %s outside [0,1]", ErrCorruptArtifact, v.EngagementScore, v.VideoID)
		}
	}
	if !a.Vectorizer.Restore() {
		return fmt.Errorf("%w: vectorizer terms and weights disagree", ErrCorruptArtifact)
	}
	return nil
}

// ArtifactInfo describes one artifact file.
type ArtifactInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size_bytes"`

	// Stamp and Seq come from the file name: the build second and the
	// same-second suffix (1 when absent).
	Stamp time.Time `json:"stamp"`
	Seq   int       `json:"seq"`
}

// newer reports whether a sorts after b: by modification time, then by name.
func (a ArtifactInfo) newer(b ArtifactInfo) bool {
	if !a.ModTime.Equal(b.ModTime) {
		return a.ModTime.After(b.ModTime)
	}
	if !a.Stamp.Equal(b.Stamp) {
		return a.Stamp.After(b.Stamp)
	}
	return a.Seq > b.Seq
}
