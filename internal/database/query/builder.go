// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package query

import (
	"fmt"
	"strings"

	"github.com/tomtom215/cinematch/internal/models"
)

// WhereBuilder accumulates AND-ed predicates over the films table and
// their positional arguments.
//
//	where, args := query.NewWhereBuilder("f").
//	    AddCatalogFilter(models.CatalogFilter{Director: "scott"}).
//	    Build()
//	// where == "contains(lower(f.director), lower(?))"
type WhereBuilder struct {
	alias   string
	clauses []string
	args    []interface{}
}

// NewWhereBuilder creates a WhereBuilder whose film columns are qualified
// with alias. An empty alias leaves columns unqualified.
func NewWhereBuilder(alias string) *WhereBuilder {
	return &WhereBuilder{alias: alias}
}

func (wb *WhereBuilder) col(name string) string {
	if wb.alias == "" {
		return name
	}
	return wb.alias + "." + name
}

// Add appends a predicate written by the caller. Its placeholders must
// match args.
func (wb *WhereBuilder) Add(clause string, args ...interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddGenre restricts films to those tagged with genreID. Zero is skipped.
func (wb *WhereBuilder) AddGenre(genreID int) *WhereBuilder {
	if genreID == 0 {
		return wb
	}
	return wb.Add(
		fmt.Sprintf("EXISTS (SELECT 1 FROM film_genres fg WHERE fg.film_id = %s AND fg.genre_id = ?)", wb.col("id")),
		genreID)
}

// AddDirector adds a case-insensitive substring match on director.
// Blank input is skipped.
func (wb *WhereBuilder) AddDirector(director string) *WhereBuilder {
	director = strings.TrimSpace(director)
	if director == "" {
		return wb
	}
	return wb.Add(fmt.Sprintf("contains(lower(%s), lower(?))", wb.col("director")), director)
}

// AddReleaseYear adds an exact release year match. Zero is skipped.
func (wb *WhereBuilder) AddReleaseYear(year int) *WhereBuilder {
	if year == 0 {
		return wb
	}
	return wb.Add(wb.col("release_year")+" = ?", year)
}

// AddCatalogFilter applies every set field of f.
func (wb *WhereBuilder) AddCatalogFilter(f models.CatalogFilter) *WhereBuilder {
	return wb.AddGenre(f.GenreID).AddDirector(f.Director).AddReleaseYear(f.ReleaseYear)
}

// AddIDs adds "<column> IN (?, ...)" for ids. An empty slice matches
// nothing.
func (wb *WhereBuilder) AddIDs(column string, ids []int64) *WhereBuilder {
	if len(ids) == 0 {
		return wb.Add("1=0")
	}
	placeholders, args := InClause(ids)
	return wb.Add(fmt.Sprintf("%s IN (%s)", wb.col(column), placeholders), args...)
}

// Build returns the predicates joined with AND, or "1=1" when there are
// none, so callers can always write "WHERE " + clause.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if wb.IsEmpty() {
		return "1=1", nil
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// IsEmpty reports whether no predicate was added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}

// InClause returns one "?" per item and the items as arguments.
//
//	placeholders, args := InClause([]int64{4, 8})
//	// placeholders = "?, ?"
func InClause[T any](items []T) (string, []interface{}) {
	placeholders := make([]string, len(items))
	args := make([]interface{}, len(items))
	for i, item := range items {
		placeholders[i] = "?"
		args[i] = item
	}
	return strings.Join(placeholders, ", "), args
}
