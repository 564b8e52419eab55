// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinematch/internal/logging"
)

// Key layout
const (
	keyPrefix       = "artifact/"
	keyVersions     = keyPrefix + "v/"
	keyCurrent      = keyPrefix + "current"
	keyMetaSuffix   = "/meta"
	keyItemIDs      = "/item_ids"
	keyTitleMap     = "/title_to_id"
	keyMatrixPrefix = "/matrix/"

	// maxChunkBytes keeps each matrix value well under Badger's value size
	// and transaction limits.
	maxChunkBytes = 4 << 20
)

// BadgerStore persists artifacts in a BadgerDB directory. Each version is
// written under its own key prefix and becomes visible only when
// artifact/current is pointed at it.
//
// Badger holds an exclusive lock on its directory, so a BadgerStore is
// single-process: while the server runs, builds must go through the
// server (POST /api/v1/recommendations/build) rather than a second
// process. A second open fails with ErrStoreLocked.
type BadgerStore struct {
	db     *badger.DB
	retain int
	logger zerolog.Logger
	owned  bool

	mu sync.Mutex
}

// OpenBadgerStore opens (or creates) a BadgerDB at path.
func OpenBadgerStore(path string, retain int) (*BadgerStore, error) {
	if path == "" {
		return nil, errors.New("artifact: badger path is empty")
	}
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = true
	opts.Compression = options.Snappy
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		if strings.Contains(err.Error(), "Cannot acquire directory lock") {
			return nil, fmt.Errorf("%w: %s: %v", ErrStoreLocked, path, err)
		}
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	s := NewBadgerStore(db, retain)
	s.owned = true

	s.logger.Info().Str("path", path).Msg("Artifact store opened")
	return s, nil
}

// NewBadgerStore wraps an already open database. Close does not close db.
func NewBadgerStore(db *badger.DB, retain int) *BadgerStore {
	if retain <= 0 {
		retain = defaultRetainCount
	}
	return &BadgerStore{
		db:     db,
		retain: retain,
		logger: logging.WithComponent("artifact-badger-store"),
	}
}

func versionKey(version, suffix string) []byte {
	return []byte(keyVersions + version + suffix)
}

func chunkKey(version string, chunk int) []byte {
	return []byte(fmt.Sprintf("%s%s%s%06d", keyVersions, version, keyMatrixPrefix, chunk))
}

// chunkRows returns how many matrix rows fit in one value.
func chunkRows(n int) int {
	if n == 0 {
		return 1
	}
	rows := maxChunkBytes / (4 * n)
	if rows < 1 {
		rows = 1
	}
	return rows
}

// Save writes the components with a WriteBatch and then flips the pointer
// in its own transaction.
func (s *BadgerStore) Save(ctx context.Context, a *Artifact) error {
	if a == nil || a.Version == "" || strings.Contains(a.Version, "/") {
		return errors.New("artifact: a version without '/' is required")
	}
	if err := a.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exists := false
	if err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(versionKey(a.Version, keyMetaSuffix))
		if err == nil {
			exists = true
			return nil
		}
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	}); err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists {
		return fmt.Errorf("artifact: version %s already exists", a.Version)
	}

	n := a.Len()
	rows := chunkRows(n)
	chunks := (n + rows - 1) / rows

	ids, err := encodeItemIDs(a.ItemIDs)
	if err != nil {
		return fmt.Errorf("encode item ids: %w", err)
	}
	titles, err := encodeTitles(a.TitleToID, n)
	if err != nil {
		return fmt.Errorf("encode title table: %w", err)
	}
	meta, err := json.Marshal(metadata{
		Version:   a.Version,
		BuiltAt:   a.BuiltAt,
		ItemCount: n,
		Chunks:    chunks,
		ChunkRows: rows,
	})
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	if err := wb.Set(versionKey(a.Version, keyItemIDs), ids); err != nil {
		return fmt.Errorf("write item ids: %w", err)
	}
	if err := wb.Set(versionKey(a.Version, keyTitleMap), titles); err != nil {
		return fmt.Errorf("write title table: %w", err)
	}
	for c := 0; c < chunks; c++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := c * rows * n
		end := start + rows*n
		if end > len(a.Matrix.Data) {
			end = len(a.Matrix.Data)
		}
		var buf bytes.Buffer
		buf.Grow((end - start) * 4)
		if err := writeFloats(&buf, a.Matrix.Data[start:end]); err != nil {
			return fmt.Errorf("encode matrix chunk %d: %w", c, err)
		}
		if err := wb.Set(chunkKey(a.Version, c), buf.Bytes()); err != nil {
			return fmt.Errorf("write matrix chunk %d: %w", c, err)
		}
	}
	if err := wb.Set(versionKey(a.Version, keyMetaSuffix), meta); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush artifact components: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyCurrent), []byte(a.Version))
	}); err != nil {
		return fmt.Errorf("publish version: %w", err)
	}

	s.logger.Info().
		Str("version", a.Version).
		Int("items", n).
		Int("chunks", chunks).
		Msg("Artifact published")

	s.prune(a.Version)
	return nil
}

// CurrentVersion reads artifact/current.
func (s *BadgerStore) CurrentVersion(_ context.Context) (string, error) {
	var version string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyCurrent))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNoArtifact
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			version = string(val)
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	if version == "" {
		return "", ErrNoArtifact
	}
	return version, nil
}

// Load reads the published version in one read transaction.
func (s *BadgerStore) Load(ctx context.Context) (*Artifact, error) {
	var a *Artifact
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyCurrent))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNoArtifact
		}
		if err != nil {
			return fmt.Errorf("read pointer: %w", err)
		}
		ver, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("read pointer: %w", err)
		}
		version := string(ver)
		if version == "" {
			return ErrNoArtifact
		}

		metaData, err := getValue(txn, versionKey(version, keyMetaSuffix), version, ComponentMetadata)
		if err != nil {
			return err
		}
		var meta metadata
		if err := json.Unmarshal(metaData, &meta); err != nil {
			return fmt.Errorf("%w: decode metadata: %v", ErrInconsistent, err)
		}

		idsData, err := getValue(txn, versionKey(version, keyItemIDs), version, ComponentItemIDs)
		if err != nil {
			return err
		}
		ids, err := decodeItemIDs(idsData)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInconsistent, err)
		}

		titleData, err := getValue(txn, versionKey(version, keyTitleMap), version, ComponentTitleMap)
		if err != nil {
			return err
		}
		tt, err := decodeTitles(titleData)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInconsistent, err)
		}

		if meta.ItemCount != len(ids) {
			return fmt.Errorf("%w: metadata counts %d items, item ids has %d", ErrInconsistent, meta.ItemCount, len(ids))
		}
		m, err := readChunks(ctx, txn, version, meta)
		if err != nil {
			return err
		}

		a, err = assemble(version, meta.BuiltAt, ids, tt, m)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func readChunks(ctx context.Context, txn *badger.Txn, version string, meta metadata) (*Matrix, error) {
	n := meta.ItemCount
	m := NewMatrix(n)
	if n == 0 {
		return m, nil
	}
	if meta.ChunkRows <= 0 {
		return nil, fmt.Errorf("%w: invalid chunk size %d", ErrInconsistent, meta.ChunkRows)
	}
	offset := 0
	for c := 0; c < meta.Chunks; c++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := getValue(txn, chunkKey(version, c), version, ComponentMatrix)
		if err != nil {
			return nil, err
		}
		if len(data)%4 != 0 || offset+len(data)/4 > len(m.Data) {
			return nil, fmt.Errorf("%w: matrix chunk %d has %d bytes", ErrInconsistent, c, len(data))
		}
		count := len(data) / 4
		if err := readFloats(bytes.NewReader(data), m.Data[offset:offset+count]); err != nil {
			return nil, fmt.Errorf("%w: decode matrix chunk %d: %v", ErrInconsistent, c, err)
		}
		offset += count
	}
	if offset != len(m.Data) {
		return nil, fmt.Errorf("%w: matrix holds %d values, want %d", ErrInconsistent, offset, len(m.Data))
	}
	return m, nil
}

func getValue(txn *badger.Txn, key []byte, version, component string) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, &MissingComponentError{Version: version, Component: component, Err: err}
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, &MissingComponentError{Version: version, Component: component, Err: err}
	}
	return val, nil
}

// Versions lists stored versions, newest build first.
func (s *BadgerStore) Versions() ([]string, error) {
	type entry struct {
		version string
		meta    metadata
	}
	var entries []entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyVersions)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			if !strings.HasSuffix(key, keyMetaSuffix) {
				continue
			}
			version := strings.TrimSuffix(strings.TrimPrefix(key, keyVersions), keyMetaSuffix)
			var meta metadata
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				continue
			}
			entries = append(entries, entry{version: version, meta: meta})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].meta.BuiltAt.Equal(entries[j].meta.BuiltAt) {
			return entries[i].meta.BuiltAt.After(entries[j].meta.BuiltAt)
		}
		return entries[i].version > entries[j].version
	})
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.version
	}
	return out, nil
}

func (s *BadgerStore) prune(current string) {
	versions, err := s.Versions()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to list versions for pruning")
		return
	}
	kept := 0
	dropped := 0
	for _, v := range versions {
		if v == current {
			continue
		}
		if kept < s.retain-1 {
			kept++
			continue
		}
		// Drop the metadata key first so a half-dropped version is never
		// listed again.
		if err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(versionKey(v, keyMetaSuffix))
		}); err != nil {
			s.logger.Warn().Err(err).Str("version", v).Msg("Failed to prune artifact version")
			continue
		}
		if err := s.db.DropPrefix([]byte(keyVersions + v + "/")); err != nil {
			s.logger.Warn().Err(err).Str("version", v).Msg("Failed to drop artifact version")
			continue
		}
		dropped++
		s.logger.Debug().Str("version", v).Msg("Pruned artifact version")
	}
	if dropped > 0 {
		// ErrNoRewrite just means there was nothing worth collecting.
		if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
			s.logger.Debug().Err(err).Msg("Value log GC skipped")
		}
	}
}

// Close closes the database if this store opened it.
func (s *BadgerStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
