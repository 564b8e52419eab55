// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinematch/internal/logging"
)

// File names inside a version directory.
const (
	currentFile    = "CURRENT"
	versionsDir    = "versions"
	stagingPrefix  = ".staging-"
	itemIDsFile    = "item_ids.json"
	titleMapFile   = "title_to_id.json"
	similarityFile = "similarity.bin"
	metaFile       = "meta.json"

	// staleStagingAge is how old an abandoned staging directory must be
	// before prune removes it. Younger ones may belong to another builder.
	staleStagingAge = time.Hour
)

// FileStore keeps each version in its own directory and publishes it by
// atomically replacing the CURRENT pointer file.
//
//	<root>/CURRENT
//	<root>/versions/<version>/item_ids.json
//	<root>/versions/<version>/title_to_id.json
//	<root>/versions/<version>/similarity.bin
type FileStore struct {
	root   string
	retain int
	logger zerolog.Logger

	// mu serializes writers within one process; readers never take it.
	mu sync.Mutex
}

// NewFileStore creates the directory layout under root if needed.
// retain <= 0 selects the default of three versions.
func NewFileStore(root string, retain int) (*FileStore, error) {
	if root == "" {
		return nil, errors.New("artifact: file store root is empty")
	}
	if retain <= 0 {
		retain = defaultRetainCount
	}
	if err := os.MkdirAll(filepath.Join(root, versionsDir), 0o750); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &FileStore{
		root:   root,
		retain: retain,
		logger: logging.WithComponent("artifact-file-store"),
	}, nil
}

// Root returns the store's root directory.
func (s *FileStore) Root() string { return s.root }

// Save writes the artifact into a staging directory, renames it into
// versions/ and then swaps CURRENT. A failure at any step leaves the
// previously published version untouched.
func (s *FileStore) Save(ctx context.Context, a *Artifact) error {
	if a == nil || a.Version == "" {
		return errors.New("artifact: version is required")
	}
	if strings.ContainsAny(a.Version, `/\`) || strings.HasPrefix(a.Version, ".") {
		return fmt.Errorf("artifact: invalid version %q", a.Version)
	}
	if err := a.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	final := filepath.Join(s.root, versionsDir, a.Version)
	if _, err := os.Stat(final); err == nil {
		return fmt.Errorf("artifact: version %s already exists", a.Version)
	}

	staging, err := os.MkdirTemp(s.root, stagingPrefix+"*")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	published := false
	defer func() {
		if !published {
			if rmErr := os.RemoveAll(staging); rmErr != nil {
				s.logger.Warn().Err(rmErr).Str("path", staging).Msg("Failed to remove staging directory")
			}
		}
	}()

	if err := s.writeComponents(ctx, staging, a); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Rename(staging, final); err != nil {
		return fmt.Errorf("publish version directory: %w", err)
	}
	published = true
	if err := syncDir(filepath.Join(s.root, versionsDir)); err != nil {
		return fmt.Errorf("sync versions directory: %w", err)
	}

	if err := s.writeCurrent(a.Version); err != nil {
		return err
	}

	s.logger.Info().
		Str("version", a.Version).
		Int("items", a.Len()).
		Msg("Artifact published")

	s.prune(a.Version)
	return nil
}

func (s *FileStore) writeComponents(ctx context.Context, dir string, a *Artifact) error {
	ids, err := encodeItemIDs(a.ItemIDs)
	if err != nil {
		return fmt.Errorf("encode item ids: %w", err)
	}
	if err := writeFileSync(filepath.Join(dir, itemIDsFile), ids); err != nil {
		return fmt.Errorf("write %s: %w", itemIDsFile, err)
	}

	titles, err := encodeTitles(a.TitleToID, a.Len())
	if err != nil {
		return fmt.Errorf("encode title table: %w", err)
	}
	if err := writeFileSync(filepath.Join(dir, titleMapFile), titles); err != nil {
		return fmt.Errorf("write %s: %w", titleMapFile, err)
	}

	meta, err := json.Marshal(metadata{Version: a.Version, BuiltAt: a.BuiltAt, ItemCount: a.Len()})
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := writeFileSync(filepath.Join(dir, metaFile), meta); err != nil {
		return fmt.Errorf("write %s: %w", metaFile, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(dir, similarityFile), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("create %s: %w", similarityFile, err)
	}
	if err := writeMatrix(f, a.Matrix); err != nil {
		closeQuietly(f)
		return fmt.Errorf("write %s: %w", similarityFile, err)
	}
	if err := f.Sync(); err != nil {
		closeQuietly(f)
		return fmt.Errorf("sync %s: %w", similarityFile, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", similarityFile, err)
	}

	return syncDir(dir)
}

func (s *FileStore) writeCurrent(version string) error {
	tmp, err := os.CreateTemp(s.root, "."+currentFile+"-*")
	if err != nil {
		return fmt.Errorf("create pointer file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(version + "\n"); err != nil {
		closeQuietly(tmp)
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("write pointer file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		closeQuietly(tmp)
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("sync pointer file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("close pointer file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.root, currentFile)); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("swap pointer file: %w", err)
	}
	return syncDir(s.root)
}

// CurrentVersion reads the CURRENT pointer.
func (s *FileStore) CurrentVersion(_ context.Context) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.root, currentFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNoArtifact
	}
	if err != nil {
		return "", fmt.Errorf("read pointer file: %w", err)
	}
	version := strings.TrimSpace(string(data))
	if version == "" {
		return "", ErrNoArtifact
	}
	return version, nil
}

// Load reads and cross-checks the published version.
func (s *FileStore) Load(ctx context.Context) (*Artifact, error) {
	version, err := s.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(s.root, versionsDir, version)

	idsData, err := os.ReadFile(filepath.Join(dir, itemIDsFile))
	if err != nil {
		return nil, &MissingComponentError{Version: version, Component: ComponentItemIDs, Err: err}
	}
	ids, err := decodeItemIDs(idsData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInconsistent, err)
	}

	titleData, err := os.ReadFile(filepath.Join(dir, titleMapFile))
	if err != nil {
		return nil, &MissingComponentError{Version: version, Component: ComponentTitleMap, Err: err}
	}
	tt, err := decodeTitles(titleData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInconsistent, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(dir, similarityFile))
	if err != nil {
		return nil, &MissingComponentError{Version: version, Component: ComponentMatrix, Err: err}
	}
	fi, err := f.Stat()
	if err != nil {
		closeQuietly(f)
		return nil, &MissingComponentError{Version: version, Component: ComponentMatrix, Err: err}
	}
	m, err := readMatrix(f, len(ids), fi.Size())
	closeQuietly(f)
	if err != nil {
		return nil, err
	}

	return assemble(version, s.builtAt(dir), ids, tt, m)
}

// builtAt prefers the recorded build time and falls back to the directory
// modification time for artifacts written without metadata.
func (s *FileStore) builtAt(dir string) time.Time {
	if data, err := os.ReadFile(filepath.Join(dir, metaFile)); err == nil {
		var meta metadata
		if json.Unmarshal(data, &meta) == nil && !meta.BuiltAt.IsZero() {
			return meta.BuiltAt
		}
	}
	if fi, err := os.Stat(dir); err == nil {
		return fi.ModTime().UTC()
	}
	return time.Time{}
}

// Versions lists stored versions, newest first.
func (s *FileStore) Versions() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, versionsDir))
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	type dirEntry struct {
		name string
		mod  time.Time
	}
	dirs := make([]dirEntry, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, dirEntry{name: e.Name(), mod: info.ModTime()})
	}
	sort.Slice(dirs, func(i, j int) bool {
		if !dirs[i].mod.Equal(dirs[j].mod) {
			return dirs[i].mod.After(dirs[j].mod)
		}
		return dirs[i].name > dirs[j].name
	})
	out := make([]string, len(dirs))
	for i, d := range dirs {
		out[i] = d.name
	}
	return out, nil
}

// prune removes versions beyond the retention count and stale staging
// directories. The current version is always kept.
func (s *FileStore) prune(current string) {
	versions, err := s.Versions()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to list versions for pruning")
		return
	}
	kept := 0
	for _, v := range versions {
		if v == current || kept < s.retain-1 {
			if v != current {
				kept++
			}
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, versionsDir, v)); err != nil {
			s.logger.Warn().Err(err).Str("version", v).Msg("Failed to prune artifact version")
			continue
		}
		s.logger.Debug().Str("version", v).Msg("Pruned artifact version")
	}

	stale, err := filepath.Glob(filepath.Join(s.root, stagingPrefix+"*"))
	if err != nil {
		return
	}
	for _, dir := range stale {
		fi, err := os.Stat(dir)
		if err != nil || time.Since(fi.ModTime()) < staleStagingAge {
			continue
		}
		_ = os.RemoveAll(dir) //nolint:errcheck // best effort cleanup
	}
}

// Close is a no-op; FileStore holds no open handles between calls.
func (s *FileStore) Close() error { return nil }

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		closeQuietly(f)
		return err
	}
	if err := f.Sync(); err != nil {
		closeQuietly(f)
		return err
	}
	return f.Close()
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer closeQuietly(d)
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}
	return nil
}

func closeQuietly(f *os.File) {
	_ = f.Close() //nolint:errcheck // best effort cleanup
}
