// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/cinematch/internal/config"
	"github.com/tomtom215/cinematch/internal/models"
)

// testDBSemaphore serializes DuckDB test databases. Concurrent CGO
// connections from parallel tests can hang under CI resource pressure, so
// the slot is held for the whole test and released in t.Cleanup.
var testDBSemaphore = make(chan struct{}, 1)

var testDBMutex sync.Mutex

// setupTestDB creates a new in-memory test database with timeout protection.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	cfg := &config.DatabaseConfig{
		Path:                   ":memory:",
		MaxMemory:              "1GB",
		PreserveInsertionOrder: true,
	}

	type result struct {
		db  *DB
		err error
	}

	resultCh := make(chan result, 1)
	go func() {
		testDBMutex.Lock()
		db, err := New(cfg)
		testDBMutex.Unlock()
		resultCh <- result{db: db, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("Failed to create test database: %v", res.err)
		}
		t.Cleanup(func() {
			if err := res.db.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
		return res.db
	case <-time.After(120 * time.Second):
		t.Fatalf("Timeout: database creation took longer than 120s (DuckDB may be under resource pressure)")
		return nil
	}
}

// seedFilms inserts a small catalog: ids 1..5 with genres and directors.
func seedFilms(t *testing.T, db *DB) {
	t.Helper()
	films := []models.CatalogItem{
		{ID: 1, Title: "Alien", Director: "Ridley Scott", ReleaseYear: 1979, Genres: []models.Genre{{Name: "SciFi"}, {Name: "Horror"}}, Description: "crew of a spaceship hunted by a creature"},
		{ID: 2, Title: "Aliens", Director: "James Cameron", ReleaseYear: 1986, Genres: []models.Genre{{Name: "SciFi"}, {Name: "Action"}}, Description: "marines fight the creature on a colony"},
		{ID: 3, Title: "Prometheus", Director: "Ridley Scott", ReleaseYear: 2012, Genres: []models.Genre{{Name: "SciFi"}}, Description: "spaceship expedition seeks the origins of humanity"},
		{ID: 4, Title: "Notting Hill", Director: "Roger Michell", ReleaseYear: 1999, Genres: []models.Genre{{Name: "Romance"}}, Description: "bookshop owner falls for a famous actress"},
		{ID: 5, Title: "Love Actually", Director: "Richard Curtis", ReleaseYear: 2003, Genres: []models.Genre{{Name: "Romance"}}},
	}
	for i := range films {
		if _, err := db.UpsertFilm(context.Background(), &films[i]); err != nil {
			t.Fatalf("UpsertFilm(%q) error = %v", films[i].Title, err)
		}
	}
}

func TestNew_CreatesSchema(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	for _, table := range []string{"films", "genres", "film_genres", "reviews", "schema_migrations"} {
		var n int
		if err := db.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			t.Errorf("table %s not queryable: %v", table, err)
		}
	}

	version, err := db.CurrentSchemaVersion(ctx)
	if err != nil {
		t.Fatalf("CurrentSchemaVersion() error = %v", err)
	}
	if want := len(migrations()); version != want {
		t.Errorf("CurrentSchemaVersion() = %d, want %d", version, want)
	}
}

func TestMigrations_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	if err := db.runVersionedMigrations(); err != nil {
		t.Fatalf("second runVersionedMigrations() error = %v", err)
	}
	var n int
	if err := db.Conn().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != len(migrations()) {
		t.Errorf("schema_migrations rows = %d, want %d", n, len(migrations()))
	}
}

func TestEnsureContext(t *testing.T) {
	ctx, cancel := ensureContext(context.Background())
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Error("ensureContext() should add a deadline")
	}

	parent, parentCancel := context.WithTimeout(context.Background(), time.Minute)
	defer parentCancel()
	ctx2, cancel2 := ensureContext(parent)
	defer cancel2()
	if ctx2 != parent {
		t.Error("ensureContext() should keep an existing deadline")
	}
}

func TestIsTransactionConflict(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"TransactionContext Error: Transaction conflict: cannot update", true},
		{"Conflict on update!", true},
		{"Constraint Error: duplicate key", false},
	}
	for _, tt := range tests {
		if got := isTransactionConflict(errString(tt.msg)); got != tt.want {
			t.Errorf("isTransactionConflict(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
	if isTransactionConflict(nil) {
		t.Error("isTransactionConflict(nil) = true")
	}
}

func TestIsLockConflict(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{`IO Error: Could not set lock on file "/data/cinematch.duckdb": Conflicting lock is held in /usr/bin/cinematch (PID 4242)`, true},
		{"Conflicting lock is held in another process", true},
		{"TransactionContext Error: Transaction conflict: cannot update", false},
		{"IO Error: No such file or directory", false},
	}
	for _, tt := range tests {
		if got := isLockConflict(errString(tt.msg)); got != tt.want {
			t.Errorf("isLockConflict(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
	if isLockConflict(nil) {
		t.Error("isLockConflict(nil) = true")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
