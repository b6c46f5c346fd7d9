// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

/*
Package database is the resilient data access layer of the worker.

Every operation obtains a pooled connection, verifies it with SELECT 1 and
runs the statement. A failed attempt closes the pool and the next attempt
builds a new one. Attempts are bounded (3 by default) with a fixed delay
between them (5s by default). When the budget is spent the caller receives a
*ConnectionError that matches ErrConnection.

Single statements commit immediately. WithTx is the only multi-statement
atomic unit.

Supported drivers:
  - mysql: the platform database (github.com/go-sql-driver/mysql)
  - duckdb: local development and tests (github.com/duckdb/duckdb-go/v2)

Both drivers accept "?" placeholders, so the queries in this package are shared.
*/
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver
	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/config"
	"github.com/tomtom215/reelcast/internal/metrics"
)

// Opener creates a new connection pool. It is called for the first
// operation and again after every failed attempt.
type Opener func(ctx context.Context) (*sql.DB, error)

// DB is the explicitly passed database handle. It is safe for concurrent use.
type DB struct {
	cfg    config.DatabaseConfig
	open   Opener
	logger zerolog.Logger

	mu   sync.Mutex
	conn *sql.DB

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Open builds a DB for the configured driver. The pool is created lazily;
// a failed startup ping is logged and retried on first use.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Open(ctx context.Context, cfg *config.DatabaseConfig, logger zerolog.Logger) (*DB, error) {
	opener, err := driverOpener(cfg)
	if err != nil {
		return nil, err
	}

	db := NewWithOpener(cfg, opener, logger)

	pingCtx, cancel := context.WithTimeout(ctx, db.pingTimeout())
	defer cancel()
	if _, err := db.healthyConn(pingCtx); err != nil {
		db.logger.Warn().Err(err).Str("driver", cfg.Driver).Msg("Database not reachable at startup, will retry on first use")
	} else {
		db.logger.Info().Str("driver", cfg.Driver).Msg("Database connection established")
	}

	return db, nil
}

// NewWithOpener builds a DB around a custom Opener.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewWithOpener(cfg *config.DatabaseConfig, opener Opener, logger zerolog.Logger) *DB {
	return &DB{
		cfg:    *cfg,
		open:   opener,
		logger: logger.With().Str("component", "database").Logger(),
		sleep:  sleepContext,
	}
}

func driverOpener(cfg *config.DatabaseConfig) (Opener, error) {
	switch cfg.Driver {
	case "mysql":
		mcfg, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql DSN: %w", err)
		}
		mcfg.ParseTime = true
		return func(_ context.Context) (*sql.DB, error) {
			connector, err := mysql.NewConnector(mcfg)
			if err != nil {
				return nil, err
			}
			return sql.OpenDB(connector), nil
		}, nil

	case "duckdb":
		dsn := cfg.DSN
		return func(_ context.Context) (*sql.DB, error) {
			return sql.Open("duckdb", dsn)
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// Driver returns the configured driver name.
func (db *DB) Driver() string {
	return db.cfg.Driver
}

// healthyConn returns the current pool, creating it if needed, after a
// SELECT 1 round trip. A pool that fails the check is discarded.
func (db *DB) healthyConn(ctx context.Context) (*sql.DB, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.conn == nil {
		conn, err := db.open(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to open connection pool: %w", err)
		}
		db.configureConnectionPool(conn)
		db.conn = conn
	}

	pingCtx, cancel := context.WithTimeout(ctx, db.pingTimeout())
	defer cancel()

	var one int
	if err := db.conn.QueryRowContext(pingCtx, "SELECT 1").Scan(&one); err != nil {
		closeQuietly(db.conn)
		db.conn = nil
		return nil, fmt.Errorf("liveness check failed: %w", err)
	}

	return db.conn, nil
}

// invalidate drops conn if it is still the current pool.
func (db *DB) invalidate(conn *sql.DB) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if conn != nil && db.conn == conn {
		closeWithLog(db.conn, &db.logger, "connection pool")
		db.conn = nil
		metrics.DBReconnects.Inc()
	}
}

func (db *DB) configureConnectionPool(conn *sql.DB) {
	maxOpen := db.cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = runtime.NumCPU()
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(db.cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(db.cfg.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(db.cfg.ConnMaxIdleTime)
}

func (db *DB) pingTimeout() time.Duration {
	if db.cfg.PingTimeout > 0 {
		return db.cfg.PingTimeout
	}
	return 5 * time.Second
}

func (db *DB) maxAttempts() int {
	if db.cfg.MaxAttempts > 0 {
		return db.cfg.MaxAttempts
	}
	return 1
}

// withRetry runs fn against a healthy pool, rebuilding the pool after each
// failed attempt. Context cancellation stops the loop immediately.
func (db *DB) withRetry(ctx context.Context, op string, fn func(ctx context.Context, conn *sql.DB) error) error {
	start := time.Now()
	attempts := db.maxAttempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			metrics.DBRetries.Inc()
			if err := db.sleep(ctx, db.cfg.RetryDelay); err != nil {
				metrics.RecordDBQuery(op, time.Since(start), err)
				return fmt.Errorf("database %s: %w", op, err)
			}
		}

		conn, err := db.healthyConn(ctx)
		if err == nil {
			err = db.runWithTimeout(ctx, conn, fn)
			if err == nil {
				metrics.RecordDBQuery(op, time.Since(start), nil)
				return nil
			}
			db.invalidate(conn)
		}
		lastErr = err

		if ctx.Err() != nil {
			metrics.RecordDBQuery(op, time.Since(start), ctx.Err())
			return fmt.Errorf("database %s: %w", op, ctx.Err())
		}

		db.logger.Warn().
			Err(err).
			Str("operation", op).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Msg("Database operation failed")
	}

	metrics.RecordDBQuery(op, time.Since(start), lastErr)
	return &ConnectionError{Op: op, Attempts: attempts, Err: lastErr}
}

func (db *DB) runWithTimeout(ctx context.Context, conn *sql.DB, fn func(ctx context.Context, conn *sql.DB) error) error {
	if db.cfg.QueryTimeout <= 0 {
		return fn(ctx, conn)
	}
	qctx, cancel := context.WithTimeout(ctx, db.cfg.QueryTimeout)
	defer cancel()
	return fn(qctx, conn)
}

// Execute runs a statement that returns no rows. It commits immediately.
func (db *DB) Execute(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var result sql.Result
	err := db.withRetry(ctx, "execute", func(ctx context.Context, conn *sql.DB) error {
		res, err := conn.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	return result, err
}

// Query runs a query and calls scan once per row. scan may be called again
// for the same rows when an attempt fails midway, so it must reset any
// state it accumulates; QueryRows does this for you.
func (db *DB) Query(ctx context.Context, query string, scan func(*sql.Rows) error, args ...any) error {
	return db.withRetry(ctx, "query", func(ctx context.Context, conn *sql.DB) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer closeQuietly(rows)

		for rows.Next() {
			if err := scan(rows); err != nil {
				return err
			}
		}
		return rows.Err()
	})
}

// QueryRows runs a query and maps each row with scan. The slice is rebuilt
// on every attempt, so a partially read attempt never leaks into the result.
func QueryRows[T any](ctx context.Context, db *DB, op, query string, scan func(*sql.Rows) (T, error), args ...any) ([]T, error) {
	var out []T
	err := db.withRetry(ctx, op, func(ctx context.Context, conn *sql.DB) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer closeQuietly(rows)

		items := make([]T, 0)
		for rows.Next() {
			item, err := scan(rows)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		out = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WithTx runs fn in one transaction, committing when fn returns nil. The
// whole transaction is retried on failure, so fn must be repeatable.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return db.withRetry(ctx, "transaction", func(ctx context.Context, conn *sql.DB) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if err := fn(ctx, tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				db.logger.Warn().Err(rbErr).Msg("Rollback failed")
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

// Ping verifies connectivity once, without retries. Used for readiness.
func (db *DB) Ping(ctx context.Context) error {
	_, err := db.healthyConn(ctx)
	return err
}

// Close closes the current pool.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.conn == nil {
		return nil
	}
	err := db.conn.Close()
	db.conn = nil
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
