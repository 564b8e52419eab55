// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package artifact defines the versioned similarity artifact and the stores
// that persist it.
//
// An artifact has three components that are only meaningful together: the
// ordered item IDs, the title lookup table and the dense similarity matrix.
// Stores publish a version only after all three are durable, so readers
// never observe a partially written artifact.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Component names used in errors and logs.
const (
	ComponentItemIDs   = "item_ids"
	ComponentTitleMap  = "title_to_id"
	ComponentMatrix    = "similarity"
	ComponentPointer   = "current"
	ComponentMetadata  = "meta"
	matrixFormatV1     = uint32(1)
	matrixMagic        = "SIMX"
	matrixHeaderLen    = 16
	defaultRetainCount = 3
)

var (
	// ErrNoArtifact means no version has been published yet.
	ErrNoArtifact = errors.New("artifact: no published version")

	// ErrInconsistent means the components disagree on item count or the
	// matrix violates its invariants.
	ErrInconsistent = errors.New("artifact: components are inconsistent")

	// ErrStoreLocked means another process has the Badger directory open.
	ErrStoreLocked = errors.New("artifact: store is locked by another process")
)

// MissingComponentError reports a component that could not be read.
type MissingComponentError struct {
	Version   string
	Component string
	Err       error
}

func (e *MissingComponentError) Error() string {
	return fmt.Sprintf("artifact %s: missing component %s: %v", e.Version, e.Component, e.Err)
}

func (e *MissingComponentError) Unwrap() error { return e.Err }

// Matrix is a dense N×N row-major similarity matrix.
type Matrix struct {
	N    int
	Data []float32
}

// NewMatrix allocates a zeroed n×n matrix.
func NewMatrix(n int) *Matrix {
	return &Matrix{N: n, Data: make([]float32, n*n)}
}

// At returns M[i][j].
func (m *Matrix) At(i, j int) float32 { return m.Data[i*m.N+j] }

// Set assigns M[i][j].
func (m *Matrix) Set(i, j int, v float32) { m.Data[i*m.N+j] = v }

// Row returns row i without copying.
func (m *Matrix) Row(i int) []float32 { return m.Data[i*m.N : (i+1)*m.N] }

// Artifact is one immutable build of the similarity index.
type Artifact struct {
	Version   string
	BuiltAt   time.Time
	ItemIDs   []int64
	TitleToID map[string]int64
	Matrix    *Matrix
}

// NewVersion returns a time-ordered version identifier.
func NewVersion() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Len returns the number of items.
func (a *Artifact) Len() int { return len(a.ItemIDs) }

// Validate checks that the components agree with each other.
func (a *Artifact) Validate() error {
	if a.Matrix == nil {
		return fmt.Errorf("%w: matrix is nil", ErrInconsistent)
	}
	n := len(a.ItemIDs)
	if a.Matrix.N != n {
		return fmt.Errorf("%w: matrix is %dx%d, have %d item ids", ErrInconsistent, a.Matrix.N, a.Matrix.N, n)
	}
	if len(a.Matrix.Data) != n*n {
		return fmt.Errorf("%w: matrix holds %d values, want %d", ErrInconsistent, len(a.Matrix.Data), n*n)
	}
	seen := make(map[int64]struct{}, n)
	for _, id := range a.ItemIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate item id %d", ErrInconsistent, id)
		}
		seen[id] = struct{}{}
	}
	for title, id := range a.TitleToID {
		if _, ok := seen[id]; !ok {
			return fmt.Errorf("%w: title %q maps to unknown item %d", ErrInconsistent, title, id)
		}
	}
	return nil
}

// Store persists artifacts and publishes the current version.
type Store interface {
	// Save writes every component and then publishes the version.
	Save(ctx context.Context, a *Artifact) error

	// Load reads the currently published version.
	Load(ctx context.Context) (*Artifact, error)

	// CurrentVersion returns the published version, or ErrNoArtifact.
	CurrentVersion(ctx context.Context) (string, error)

	Close() error
}
