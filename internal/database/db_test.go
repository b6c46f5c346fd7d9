// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/config"
)

func TestRetryRebuildsPoolAfterFailedOpen(t *testing.T) {
	db, opener, sleeps := setupTestDB(t)
	checkNoError(t, db.Close())

	// Next two opens fail, the third succeeds.
	opener.failFirst = opener.opens.Load() + 2
	before := opener.opens.Load()

	_, err := db.Execute(context.Background(), "INSERT INTO users (user_id, username) VALUES ('u1', 'alice')")
	checkNoError(t, err)

	if got := opener.opens.Load() - before; got != 3 {
		t.Errorf("opens = %d, want 3", got)
	}
	if len(*sleeps) != 2 {
		t.Fatalf("sleeps = %v, want 2 entries", *sleeps)
	}
	for _, d := range *sleeps {
		if d != 5*time.Second {
			t.Errorf("retry delay = %v, want fixed 5s", d)
		}
	}
}

func TestRetryExhaustion(t *testing.T) {
	db, opener, sleeps := setupTestDB(t)
	checkNoError(t, db.Close())
	opener.failFirst = 1 << 30

	_, err := db.Execute(context.Background(), "SELECT 1")
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("err = %v, want ErrConnection", err)
	}

	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("err is %T, want *ConnectionError", err)
	}
	if connErr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", connErr.Attempts)
	}
	if !errors.Is(err, errOpenRefused) {
		t.Errorf("last cause not preserved: %v", err)
	}
	if len(*sleeps) != 2 {
		t.Errorf("sleeps = %d, want 2 (between attempts only)", len(*sleeps))
	}
}

func TestFailedStatementRebuildsPool(t *testing.T) {
	db, opener, _ := setupTestDB(t)
	before := opener.opens.Load()

	_, err := db.Execute(context.Background(), "INSERT INTO missing_table VALUES (1)")
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("err = %v, want ErrConnection", err)
	}
	// The first attempt reuses the existing pool, the next two rebuild it.
	if got := opener.opens.Load() - before; got != 2 {
		t.Errorf("opens = %d, want 2", got)
	}
}

func TestRetryStopsWhenContextCancelled(t *testing.T) {
	db, opener, sleeps := setupTestDB(t)
	checkNoError(t, db.Close())
	opener.failFirst = 1 << 30

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := db.Execute(ctx, "SELECT 1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrConnection) {
		t.Error("cancellation should not be reported as a connection failure")
	}
	if len(*sleeps) != 0 {
		t.Errorf("sleeps = %d, want 0", len(*sleeps))
	}
}

func TestQueryRowsFreshSlicePerAttempt(t *testing.T) {
	db, _, _ := setupTestDB(t)
	mustExec(t, db,
		"INSERT INTO users (user_id, username) VALUES ('u1', 'alice')",
		"INSERT INTO users (user_id, username) VALUES ('u2', 'bob')",
	)

	calls := 0
	names, err := QueryRows(context.Background(), db, "test", "SELECT username FROM users ORDER BY user_id",
		func(rows *sql.Rows) (string, error) {
			calls++
			if calls == 2 {
				return "", errors.New("transient scan failure")
			}
			var s string
			err := rows.Scan(&s)
			return s, err
		})
	checkNoError(t, err)

	if len(names) != 2 || names[0] != "alice" || names[1] != "bob" {
		t.Errorf("names = %v, want [alice bob]", names)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	db, _, _ := setupTestDB(t)
	db.cfg.MaxAttempts = 1

	err := db.WithTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO users (user_id, username) VALUES ('u1', 'alice')"); err != nil {
			return err
		}
		return errors.New("abort")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var n int
	checkNoError(t, db.Query(context.Background(), "SELECT COUNT(*) FROM users", func(rows *sql.Rows) error {
		return rows.Scan(&n)
	}))
	if n != 0 {
		t.Errorf("users = %d after rollback, want 0", n)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.DatabaseConfig{Driver: "sqlite"}, zerolog.Nop())
	if !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("err = %v, want ErrUnknownDriver", err)
	}
}

func TestOpenInvalidMySQLDSN(t *testing.T) {
	_, err := Open(context.Background(), &config.DatabaseConfig{Driver: "mysql", DSN: "not a dsn"}, zerolog.Nop())
	if err == nil {
		t.Error("expected DSN parse error")
	}
}

func TestOpenDuckDBInMemory(t *testing.T) {
	db, err := Open(context.Background(), &config.DatabaseConfig{Driver: "duckdb", MaxAttempts: 1}, zerolog.Nop())
	checkNoError(t, err)
	defer func() { _ = db.Close() }()

	checkNoError(t, db.Ping(context.Background()))
	if db.Driver() != "duckdb" {
		t.Errorf("Driver() = %q", db.Driver())
	}
}
