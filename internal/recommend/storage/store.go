// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

// Package storage persists recommendation model artifacts.
//
// # Storage Format
//
// Each artifact is one gzip file named
//
//	recommendation_model_YYYYMMDD_HHMMSS.json.gz
//
// after its UTC build time. A second build within the same second gets a
// "_2", "_3", ... suffix before the extension. The gzip body is the JSON
// encoding of Artifact. The gzip header comment holds "sha256=<hex>" of the
// uncompressed body and is verified on every load.
//
// Files are written to a temporary name in the same directory and renamed
// into place, so readers never observe a partial artifact.
//
// # Retention
//
// Prune keeps the newest N artifacts by modification time (file name breaks
// ties). The newest artifact is never deleted, and neither is any artifact
// this process handed to a caller within the safety window.
//
// # Thread Safety
//
// A Store is safe for concurrent use. Loaded artifacts are shared between
// callers and must be treated as read-only.
package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/metrics"
)

const (
	filePrefix   = "recommendation_model_"
	fileSuffix   = ".json.gz"
	stampLayout  = "20060102_150405"
	checksumTag  = "sha256="
	tempPattern  = ".recommendation_model_*.tmp"
	maxSameStamp = 1000
)

var fileNamePattern = regexp.MustCompile(`^recommendation_model_(\d{8}_\d{6})(?:_(\d+))?\.json\.gz$`)

// Options configures a Store.
type Options struct {
	Dir string

	// Keep is the default retention used by LoadLatest when PruneOnLoad is set.
	Keep int

	// PruneOnLoad prunes after every LoadLatest. Enable it only in the
	// process that saves artifacts.
	PruneOnLoad bool

	// SafetyWindow protects artifacts recently returned by LoadLatest from Prune.
	SafetyWindow time.Duration
}

// Store manages the artifact files of one directory.
type Store struct {
	opts   Options
	logger zerolog.Logger

	mu sync.Mutex

	// served records when each file was last handed to a caller.
	served map[string]time.Time

	cached     *Artifact
	cachedName string
	cachedMod  time.Time

	now func() time.Time
}

// NewStore creates the directory if needed and returns a Store for it.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewStore(opts Options, logger zerolog.Logger) (*Store, error) {
	if opts.Dir == "" {
		return nil, errors.New("storage: directory is required")
	}
	if opts.Keep < 1 {
		opts.Keep = 1
	}
	if err := os.MkdirAll(opts.Dir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	return &Store{
		opts:   opts,
		logger: logger.With().Str("component", "model_store").Logger(),
		served: make(map[string]time.Time),
		now:    time.Now,
	}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.opts.Dir
}

// Save writes a as a new artifact file and returns its description.
func (s *Store) Save(ctx context.Context, a *Artifact) (ArtifactInfo, error) {
	if err := ctx.Err(); err != nil {
		return ArtifactInfo{}, err
	}
	if err := a.Validate(); err != nil {
		return ArtifactInfo{}, fmt.Errorf("refusing to save invalid artifact: %w", err)
	}

	payload, err := json.Marshal(a)
	if err != nil {
		return ArtifactInfo{}, fmt.Errorf("encode artifact: %w", err)
	}
	sum := sha256.Sum256(payload)

	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.freeName(a.BuiltAt)
	if err != nil {
		return ArtifactInfo{}, err
	}

	var compressed bytes.Buffer
	gzw, err := gzip.NewWriterLevel(&compressed, gzip.BestSpeed)
	if err != nil {
		return ArtifactInfo{}, fmt.Errorf("create gzip writer: %w", err)
	}
	gzw.Name = name
	gzw.Comment = checksumTag + hex.EncodeToString(sum[:])
	gzw.ModTime = a.BuiltAt
	if _, err := gzw.Write(payload); err != nil {
		return ArtifactInfo{}, fmt.Errorf("compress artifact: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return ArtifactInfo{}, fmt.Errorf("finalize compression: %w", err)
	}

	path := filepath.Join(s.opts.Dir, name)
	if err := writeAtomic(s.opts.Dir, path, compressed.Bytes()); err != nil {
		return ArtifactInfo{}, err
	}

	info, err := statInfo(s.opts.Dir, name)
	if err != nil {
		return ArtifactInfo{}, err
	}

	s.logger.Info().
		Str("file", name).
		Int("videos", a.Size()).
		Int64("size_bytes", info.Size).
		Msg("Model artifact saved")

	return info, nil
}

// freeName returns the first unused file name for builtAt. Must hold s.mu.
func (s *Store) freeName(builtAt time.Time) (string, error) {
	stamp := builtAt.UTC().Format(stampLayout)
	for seq := 1; seq <= maxSameStamp; seq++ {
		name := filePrefix + stamp + fileSuffix
		if seq > 1 {
			name = filePrefix + stamp + "_" + strconv.Itoa(seq) + fileSuffix
		}
		_, err := os.Stat(filepath.Join(s.opts.Dir, name))
		if errors.Is(err, os.ErrNotExist) {
			return name, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat artifact file: %w", err)
		}
	}
	return "", fmt.Errorf("more than %d artifacts saved for %s", maxSameStamp, stamp)
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) } //nolint:errcheck // best-effort cleanup of temp file

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		cleanup()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close() //nolint:errcheck // sync error takes precedence
		cleanup()
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}

// List returns every artifact file, newest first.
func (s *Store) List(ctx context.Context) ([]ArtifactInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("read storage directory: %w", err)
	}

	infos := make([]ArtifactInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !fileNamePattern.MatchString(entry.Name()) {
			continue
		}
		info, err := statInfo(s.opts.Dir, entry.Name())
		if err != nil {
			// Removed by a concurrent prune.
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		infos = append(infos, info)
	}

	sort.SliceStable(infos, func(i, j int) bool { return infos[i].newer(infos[j]) })
	return infos, nil
}

func statInfo(dir, name string) (ArtifactInfo, error) {
	path := filepath.Join(dir, name)
	fi, err := os.Stat(path)
	if err != nil {
		return ArtifactInfo{}, fmt.Errorf("stat artifact file: %w", err)
	}

	info := ArtifactInfo{Name: name, Path: path, ModTime: fi.ModTime(), Size: fi.Size(), Seq: 1}
	if m := fileNamePattern.FindStringSubmatch(name); m != nil {
		if stamp, err := time.ParseInLocation(stampLayout, m[1], time.UTC); err == nil {
			info.Stamp = stamp
		}
		if m[2] != "" {
			if seq, err := strconv.Atoi(m[2]); err == nil {
				info.Seq = seq
			}
		}
	}
	return info, nil
}

// LoadLatest returns the newest artifact, or ErrArtifactNotFound when none
// exists. Repeated calls return the same cached *Artifact until a newer
// file appears or the newest file's modification time changes.
func (s *Store) LoadLatest(ctx context.Context) (*Artifact, error) {
	infos, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, ErrArtifactNotFound
	}
	newest := infos[0]

	s.mu.Lock()
	a := s.cached
	if a == nil || s.cachedName != newest.Name || !s.cachedMod.Equal(newest.ModTime) {
		s.mu.Unlock()
		decoded, err := readArtifact(newest.Path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", newest.Name, err)
		}
		s.mu.Lock()
		s.cached, s.cachedName, s.cachedMod = decoded, newest.Name, newest.ModTime
		a = decoded
		s.logger.Debug().Str("file", newest.Name).Int("videos", a.Size()).Msg("Model artifact loaded")
	}
	s.served[newest.Name] = s.now()
	s.mu.Unlock()

	if s.opts.PruneOnLoad {
		if _, err := s.Prune(ctx, s.opts.Keep); err != nil {
			s.logger.Warn().Err(err).Msg("Prune after load failed")
		}
	}

	return a, nil
}

func readArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from a directory listing filtered by fileNamePattern
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	payload, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}

	want, ok := strings.CutPrefix(gzr.Comment, checksumTag)
	if !ok {
		return nil, fmt.Errorf("%w: missing checksum", ErrCorruptArtifact)
	}
	sum := sha256.Sum256(payload)
	if got := hex.EncodeToString(sum[:]); got != want {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, want, got)
	}

	var a Artifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Prune deletes all but the newest keep artifacts and returns how many were
// removed. The newest is computed before anything is deleted and always
// survives, as does every artifact served within the safety window.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}

	infos, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(infos) <= keep {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	var errs []error
	for _, info := range infos[keep:] {
		if servedAt, ok := s.served[info.Name]; ok && now.Sub(servedAt) < s.opts.SafetyWindow {
			s.logger.Debug().Str("file", info.Name).Msg("Keeping recently served artifact")
			continue
		}
		if err := os.Remove(info.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", info.Name, err))
			continue
		}
		delete(s.served, info.Name)
		if s.cachedName == info.Name {
			s.cached, s.cachedName = nil, ""
		}
		removed++
	}

	if removed > 0 {
		metrics.ModelArtifactsPruned.Add(float64(removed))
		s.logger.Info().Int("removed", removed).Int("kept", len(infos)-removed).Msg("Pruned model artifacts")
	}
	return removed, errors.Join(errs...)
}

// Invalidate drops the decoded artifact so the next LoadLatest re-reads it.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.cached, s.cachedName, s.cachedMod = nil, "", time.Time{}
	s.mu.Unlock()
}
