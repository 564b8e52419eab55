// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package database

import (
	"context"
	"fmt"
)

// Migration is one append-only schema change applied after the base schema.
type Migration struct {
	Version     int
	Name        string
	Description string
	Statements  []string
}

const createSchemaMigrations = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	applied_at TIMESTAMP NOT NULL DEFAULT current_timestamp
)`

// migrations lists every released migration in version order. Never edit or
// remove a released entry; add a new version instead.
func migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Name:        "reviews_created_order",
			Description: "Liked-film lookups in review creation order",
			Statements: []string{
				`CREATE INDEX IF NOT EXISTS idx_reviews_user_created ON reviews(user_id, created_at)`,
			},
		},
		{
			Version:     2,
			Name:        "reviews_film_rating",
			Description: "Covering index for rating aggregation",
			Statements: []string{
				`CREATE INDEX IF NOT EXISTS idx_reviews_film_rating ON reviews(film_id, rating)`,
			},
		},
	}
}

func (db *DB) appliedVersions(ctx context.Context) (map[int]struct{}, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	seen := make(map[int]struct{})
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		seen[v] = struct{}{}
	}
	return seen, rows.Err()
}

// applyMigration runs m and records it in one transaction.
func (db *DB) applyMigration(ctx context.Context, m *Migration) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration v%d: %w", m.Version, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration v%d (%s): %w", m.Version, m.Name, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, description) VALUES (?, ?, ?)`,
		m.Version, m.Name, m.Description); err != nil {
		return fmt.Errorf("record migration v%d: %w", m.Version, err)
	}
	return tx.Commit()
}

// runVersionedMigrations applies the migrations not yet recorded.
func (db *DB) runVersionedMigrations() error {
	ctx, cancel := schemaContext()
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, createSchemaMigrations); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	seen, err := db.appliedVersions(ctx)
	if err != nil {
		return err
	}

	all := migrations()
	applied := 0
	for i := range all {
		if _, ok := seen[all[i].Version]; ok {
			continue
		}
		if err := db.applyMigration(ctx, &all[i]); err != nil {
			return err
		}
		applied++
	}
	if applied > 0 {
		db.logger.Info().Int("applied", applied).Int("version", all[len(all)-1].Version).Msg("Applied database migrations")
	}
	return nil
}

// CurrentSchemaVersion returns the highest applied migration version, or 0.
func (db *DB) CurrentSchemaVersion(ctx context.Context) (int, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var version int
	if err := db.conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
