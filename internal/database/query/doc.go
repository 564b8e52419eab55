// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package query provides SQL query building utilities for the database package.
//
// The WhereBuilder composes parameterized WHERE clauses for catalog reads:
//
//	wb := query.NewWhereBuilder("f")
//	wb.AddCatalogFilter(filter)
//	whereClause, args := wb.Build()
//	rows, err := conn.QueryContext(ctx,
//	    "SELECT f.id FROM films f WHERE "+whereClause+" ORDER BY f.id", args...)
//
// All values are bound through ? placeholders; user input never reaches the
// SQL text.
//
// WhereBuilder instances are not safe for concurrent use. Create one per
// query.
package query
