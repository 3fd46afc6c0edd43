// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Config describes a pool. Only Path is required.
type Config struct {
	// Path is the database file, created if missing. ":memory:"
	// requires PoolSize 1 since each in-memory connection is its own
	// database.
	Path string

	// PoolSize defaults to 4. Writes serialize regardless.
	PoolSize int

	// Migrations are schema scripts applied in order. See the package
	// documentation.
	Migrations []string

	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

// Pool is a fixed-size set of prepared connections.
type Pool struct {
	inner  *sqlitex.Pool
	logger *slog.Logger
	path   string

	migrateOnce sync.Once
	migrateErr  error
	migrations  []string
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA temp_store=MEMORY",
}

// Open creates the pool. Connections are opened lazily; migrations run
// on the first Take.
func Open(config Config) (*Pool, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("sqlitepool: Path is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	size := config.PoolSize
	if size <= 0 {
		size = 4
	}

	inner, err := sqlitex.NewPool(config.Path, sqlitex.PoolOptions{
		PoolSize:    size,
		PrepareConn: prepare,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: opening %s: %w", config.Path, err)
	}
	logger.Info("sqlite pool opened", "path", config.Path, "pool_size", size)

	return &Pool{
		inner:      inner,
		logger:     logger,
		path:       config.Path,
		migrations: config.Migrations,
	}, nil
}

// Take borrows a connection, blocking until one is free or ctx ends.
// The first successful Take brings the schema up to date.
func (pool *Pool) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := pool.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: take: %w", err)
	}
	pool.migrateOnce.Do(func() {
		pool.migrateErr = migrate(conn, pool.migrations, pool.logger)
	})
	if pool.migrateErr != nil {
		pool.inner.Put(conn)
		return nil, pool.migrateErr
	}
	return conn, nil
}

// Put returns conn to the pool. Nil is ignored.
func (pool *Pool) Put(conn *sqlite.Conn) {
	pool.inner.Put(conn)
}

// Close waits for borrowed connections and closes them all.
func (pool *Pool) Close() error {
	if err := pool.inner.Close(); err != nil {
		return fmt.Errorf("sqlitepool: closing %s: %w", pool.path, err)
	}
	pool.logger.Info("sqlite pool closed", "path", pool.path)
	return nil
}

func prepare(conn *sqlite.Conn) error {
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlitepool: %s: %w", pragma, err)
		}
	}
	return nil
}

// SchemaVersion reports PRAGMA user_version.
func SchemaVersion(conn *sqlite.Conn) (int, error) {
	var version int
	err := sqlitex.ExecuteTransient(conn, "PRAGMA user_version", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			version = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("sqlitepool: reading user_version: %w", err)
	}
	return version, nil
}

func migrate(conn *sqlite.Conn, migrations []string, logger *slog.Logger) (err error) {
	current, err := SchemaVersion(conn)
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("sqlitepool: database schema version %d is newer than this binary (%d)", current, len(migrations))
	}
	for index := current; index < len(migrations); index++ {
		if err := applyMigration(conn, index+1, migrations[index]); err != nil {
			return err
		}
		logger.Info("sqlite schema migrated", "version", index+1)
	}
	return nil
}

func applyMigration(conn *sqlite.Conn, version int, script string) (err error) {
	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("sqlitepool: migration %d: %w", version, err)
	}
	defer endFn(&err)

	if err = sqlitex.ExecuteScript(conn, script, nil); err != nil {
		return fmt.Errorf("sqlitepool: migration %d: %w", version, err)
	}
	// PRAGMA does not accept bound parameters.
	if err = sqlitex.ExecuteTransient(conn, fmt.Sprintf("PRAGMA user_version=%d", version), nil); err != nil {
		return fmt.Errorf("sqlitepool: migration %d: setting user_version: %w", version, err)
	}
	return nil
}
