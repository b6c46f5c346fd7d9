// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/config"
)

// testDBSemaphore serializes DuckDB usage across tests; concurrent CGO
// connections from many tests can hang under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

func testConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Driver:       "duckdb",
		MaxAttempts:  3,
		RetryDelay:   5 * time.Second,
		PingTimeout:  5 * time.Second,
		QueryTimeout: 30 * time.Second,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
}

// countingOpener opens a file-backed DuckDB database so that data survives
// pool rebuilds. failFirst makes the first n opens fail.
type countingOpener struct {
	path      string
	failFirst int32
	opens     atomic.Int32
}

func (o *countingOpener) open(_ context.Context) (*sql.DB, error) {
	n := o.opens.Add(1)
	if n <= o.failFirst {
		return nil, errOpenRefused
	}
	return sql.Open("duckdb", o.path)
}

type openError string

func (e openError) Error() string { return string(e) }

const errOpenRefused = openError("connection refused")

// setupTestDB returns a DB on a fresh file database with the schema applied.
// Retry sleeps are recorded instead of waited.
func setupTestDB(t *testing.T) (*DB, *countingOpener, *[]time.Duration) {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	opener := &countingOpener{path: filepath.Join(t.TempDir(), "reelcast.duckdb")}
	db := NewWithOpener(testConfig(), opener.open, zerolog.Nop())

	var sleeps []time.Duration
	db.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	if err := db.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return db, opener, &sleeps
}

// mustExec runs setup statements and fails the test on error.
func mustExec(t *testing.T, db *DB, stmts ...string) {
	t.Helper()
	for _, stmt := range stmts {
		if _, err := db.Execute(context.Background(), stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
}

func checkNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
