// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package features turns catalog items into L2-normalized TF-IDF vectors.
//
// Each film becomes one document built from its director, genre names and
// description. Terms are lowercase runs of two or more letters, digits or
// underscores with English stop words removed. Weights use raw term counts
// and the smoothed inverse document frequency
//
//	idf(t) = ln((1 + N) / (1 + df(t))) + 1
//
// The vocabulary is sorted, so the same catalog always yields the same
// term indices and vectors.
package features

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/tomtom215/cinematch/internal/models"
)

// ErrEmptyCatalog is returned when there is nothing to extract from.
var ErrEmptyCatalog = errors.New("features: catalog is empty")

// tokenPattern is the Unicode form of the \w\w+ word pattern.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Vector is a sparse weighted-term vector. Terms are vocabulary indices in
// ascending order; Weights[i] belongs to Terms[i].
type Vector struct {
	Terms   []int32
	Weights []float64
}

// Len returns the number of non-zero entries.
func (v Vector) Len() int { return len(v.Terms) }

// Norm returns the Euclidean norm.
func (v Vector) Norm() float64 {
	var sum float64
	for _, w := range v.Weights {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Dot returns the inner product of two vectors.
func (v Vector) Dot(o Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Terms) && j < len(o.Terms) {
		switch {
		case v.Terms[i] == o.Terms[j]:
			sum += v.Weights[i] * o.Weights[j]
			i++
			j++
		case v.Terms[i] < o.Terms[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Result is the output of one extraction run.
type Result struct {
	// ItemIDs are in catalog order; Vectors[k] belongs to ItemIDs[k].
	ItemIDs    []int64
	Vocabulary []string
	IDF        []float64
	Vectors    []Vector
}

// Extractor builds TF-IDF vectors. It holds no per-run state and is safe
// for concurrent use.
type Extractor struct {
	stopWords map[string]struct{}
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithStopWords replaces the English stop list. An empty list disables
// stop-word filtering.
func WithStopWords(words []string) Option {
	return func(e *Extractor) {
		e.stopWords = toSet(words)
	}
}

// NewExtractor returns an extractor using the English stop list unless
// overridden.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{stopWords: toSet(englishStopWords)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Document concatenates the text signals of an item: director, genre
// names sorted by name, then description. Missing fields are skipped.
func Document(item *models.CatalogItem) string {
	parts := make([]string, 0, 2+len(item.Genres))
	if d := strings.TrimSpace(item.Director); d != "" {
		parts = append(parts, d)
	}
	genres := item.GenreNames()
	sort.Strings(genres)
	for _, g := range genres {
		if n := strings.TrimSpace(g); n != "" {
			parts = append(parts, n)
		}
	}
	if d := strings.TrimSpace(item.Description); d != "" {
		parts = append(parts, d)
	}
	return strings.Join(parts, " ")
}

// Tokenize lowercases text and returns its terms with stop words removed.
func (e *Extractor) Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		if _, stop := e.stopWords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Extract computes one vector per item. Items with no text get an empty
// vector.
func (e *Extractor) Extract(items []models.CatalogItem) (*Result, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCatalog
	}

	counts := make([]map[string]int, len(items))
	df := make(map[string]int)
	ids := make([]int64, len(items))
	for i := range items {
		ids[i] = items[i].ID
		tf := make(map[string]int)
		for _, tok := range e.Tokenize(Document(&items[i])) {
			tf[tok]++
		}
		for term := range tf {
			df[term]++
		}
		counts[i] = tf
	}

	vocab := make([]string, 0, len(df))
	for term := range df {
		vocab = append(vocab, term)
	}
	sort.Strings(vocab)

	index := make(map[string]int32, len(vocab))
	idf := make([]float64, len(vocab))
	n := float64(len(items))
	for i, term := range vocab {
		index[term] = int32(i) //nolint:gosec // vocabulary size is bounded by catalog text
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	vectors := make([]Vector, len(items))
	for i, tf := range counts {
		vectors[i] = weigh(tf, index, idf)
	}

	return &Result{
		ItemIDs:    ids,
		Vocabulary: vocab,
		IDF:        idf,
		Vectors:    vectors,
	}, nil
}

func weigh(tf map[string]int, index map[string]int32, idf []float64) Vector {
	if len(tf) == 0 {
		return Vector{}
	}
	type entry struct {
		term   int32
		weight float64
	}
	entries := make([]entry, 0, len(tf))
	for term, c := range tf {
		t := index[term]
		entries = append(entries, entry{term: t, weight: float64(c) * idf[t]})
	}
	// Sum in term order so the norm is bit-for-bit reproducible.
	sort.Slice(entries, func(a, b int) bool { return entries[a].term < entries[b].term })

	terms := make([]int32, len(entries))
	weights := make([]float64, len(entries))
	var sum float64
	for k, en := range entries {
		terms[k] = en.term
		weights[k] = en.weight
		sum += en.weight * en.weight
	}

	norm := math.Sqrt(sum)
	if norm > 0 {
		for k := range weights {
			weights[k] /= norm
		}
	}
	return Vector{Terms: terms, Weights: weights}
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}
