// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package artifact

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/goccy/go-json"
)

// titleTable is the on-disk form of the title lookup. ItemCount lets the
// loader cross-check it against the item id list.
type titleTable struct {
	ItemCount int              `json:"item_count"`
	Titles    map[string]int64 `json:"titles"`
}

// metadata is stored alongside the components in key-value backends.
type metadata struct {
	Version   string    `json:"version"`
	BuiltAt   time.Time `json:"built_at"`
	ItemCount int       `json:"item_count"`
	Chunks    int       `json:"chunks,omitempty"`
	ChunkRows int       `json:"chunk_rows,omitempty"`
}

func encodeItemIDs(ids []int64) ([]byte, error) {
	if ids == nil {
		ids = []int64{}
	}
	return json.Marshal(ids)
}

func decodeItemIDs(data []byte) ([]int64, error) {
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode item ids: %w", err)
	}
	return ids, nil
}

func encodeTitles(titles map[string]int64, itemCount int) ([]byte, error) {
	if titles == nil {
		titles = map[string]int64{}
	}
	return json.Marshal(titleTable{ItemCount: itemCount, Titles: titles})
}

func decodeTitles(data []byte) (titleTable, error) {
	var tt titleTable
	if err := json.Unmarshal(data, &tt); err != nil {
		return tt, fmt.Errorf("decode title table: %w", err)
	}
	if tt.Titles == nil {
		tt.Titles = map[string]int64{}
	}
	return tt, nil
}

// writeMatrix writes the header followed by N*N little-endian float32 values.
func writeMatrix(w io.Writer, m *Matrix) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(matrixMagic); err != nil {
		return err
	}
	var hdr [12]byte
	binary.LittleEndian.PutUint32(hdr[0:4], matrixFormatV1)
	binary.LittleEndian.PutUint64(hdr[4:12], uint64(m.N)) //nolint:gosec // N is non-negative
	if _, err := bw.Write(hdr[:]); err != nil {
		return err
	}
	if err := writeFloats(bw, m.Data); err != nil {
		return err
	}
	return bw.Flush()
}

// readMatrix parses the format written by writeMatrix. The header must
// declare exactly want rows, and when size is non-negative the stream must
// be exactly as long as that header implies. Both are checked before the
// body is allocated.
func readMatrix(r io.Reader, want int, size int64) (*Matrix, error) {
	br := bufio.NewReader(r)
	var hdr [16]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, fmt.Errorf("read matrix header: %w", err)
	}
	if string(hdr[0:4]) != matrixMagic {
		return nil, fmt.Errorf("%w: bad matrix magic %q", ErrInconsistent, hdr[0:4])
	}
	if v := binary.LittleEndian.Uint32(hdr[4:8]); v != matrixFormatV1 {
		return nil, fmt.Errorf("%w: unsupported matrix format %d", ErrInconsistent, v)
	}
	n64 := binary.LittleEndian.Uint64(hdr[8:16])
	if want < 0 || n64 != uint64(want) {
		return nil, fmt.Errorf("%w: matrix header declares %d rows, item ids has %d", ErrInconsistent, n64, want)
	}
	if size >= 0 {
		if expect := matrixSize(want); expect != size {
			return nil, fmt.Errorf("%w: matrix file is %d bytes, header implies %d", ErrInconsistent, size, expect)
		}
	}
	m := NewMatrix(want)
	if err := readFloats(br, m.Data); err != nil {
		return nil, fmt.Errorf("%w: read matrix body: %v", ErrInconsistent, err)
	}
	// Trailing bytes mean the header and body disagree.
	if _, err := br.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after matrix body", ErrInconsistent)
	}
	return m, nil
}

// matrixSize is the encoded length of an n*n matrix.
func matrixSize(n int) int64 {
	return matrixHeaderLen + 4*int64(n)*int64(n)
}

func writeFloats(w io.Writer, vals []float32) error {
	buf := make([]byte, 4*1024)
	for len(vals) > 0 {
		n := len(buf) / 4
		if n > len(vals) {
			n = len(vals)
		}
		for k := 0; k < n; k++ {
			binary.LittleEndian.PutUint32(buf[k*4:], math.Float32bits(vals[k]))
		}
		if _, err := w.Write(buf[:n*4]); err != nil {
			return err
		}
		vals = vals[n:]
	}
	return nil
}

func readFloats(r io.Reader, dst []float32) error {
	buf := make([]byte, 4*1024)
	for len(dst) > 0 {
		n := len(buf) / 4
		if n > len(dst) {
			n = len(dst)
		}
		if _, err := io.ReadFull(r, buf[:n*4]); err != nil {
			return err
		}
		for k := 0; k < n; k++ {
			dst[k] = math.Float32frombits(binary.LittleEndian.Uint32(buf[k*4:]))
		}
		dst = dst[n:]
	}
	return nil
}

// assemble cross-checks decoded components and builds the artifact.
func assemble(version string, builtAt time.Time, ids []int64, tt titleTable, m *Matrix) (*Artifact, error) {
	if tt.ItemCount != len(ids) {
		return nil, fmt.Errorf("%w: title table counts %d items, item ids has %d", ErrInconsistent, tt.ItemCount, len(ids))
	}
	a := &Artifact{
		Version:   version,
		BuiltAt:   builtAt,
		ItemIDs:   ids,
		TitleToID: tt.Titles,
		Matrix:    m,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}
