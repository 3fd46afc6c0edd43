// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/courier/lib/sqlitepool"
)

func open(t *testing.T, path string, migrations ...string) *sqlitepool.Pool {
	t.Helper()
	pool, err := sqlitepool.Open(sqlitepool.Config{Path: path, PoolSize: 2, Migrations: migrations})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return pool
}

func take(t *testing.T, pool *sqlitepool.Pool) *sqlite.Conn {
	t.Helper()
	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	t.Cleanup(func() { pool.Put(conn) })
	return conn
}

func TestPragmas(t *testing.T) {
	pool := open(t, filepath.Join(t.TempDir(), "p.db"))
	t.Cleanup(func() { pool.Close() })
	conn := take(t, pool)

	var mode string
	err := sqlitex.ExecuteTransient(conn, "PRAGMA journal_mode", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			mode = stmt.ColumnText(0)
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestMigrationsApplyOnceAndResume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	v1 := "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT NOT NULL);"
	v2 := "ALTER TABLE notes ADD COLUMN author TEXT NOT NULL DEFAULT '';"

	pool := open(t, path, v1)
	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if version, err := sqlitepool.SchemaVersion(conn); err != nil || version != 1 {
		t.Fatalf("version = %d, %v; want 1", version, err)
	}
	if err := sqlitex.Execute(conn, "INSERT INTO notes (body) VALUES (?)", &sqlitex.ExecOptions{Args: []any{"kept"}}); err != nil {
		t.Fatal(err)
	}
	pool.Put(conn)
	if err := pool.Close(); err != nil {
		t.Fatal(err)
	}

	pool = open(t, path, v1, v2)
	t.Cleanup(func() { pool.Close() })
	conn = take(t, pool)
	if version, err := sqlitepool.SchemaVersion(conn); err != nil || version != 2 {
		t.Fatalf("version = %d, %v; want 2", version, err)
	}
	var rows int
	err = sqlitex.Execute(conn, "SELECT count(*) FROM notes WHERE author = ''", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			rows = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Errorf("rows = %d, want the row written before v2", rows)
	}
}

func TestNewerSchemaRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "n.db")
	pool := open(t, path, "CREATE TABLE a (x);", "CREATE TABLE b (x);")
	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	pool.Put(conn)
	pool.Close()

	pool = open(t, path, "CREATE TABLE a (x);")
	t.Cleanup(func() { pool.Close() })
	_, err = pool.Take(context.Background())
	if err == nil || !strings.Contains(err.Error(), "newer than this binary") {
		t.Fatalf("Take = %v, want schema version error", err)
	}
}

func TestFailedMigrationRollsBack(t *testing.T) {
	pool := open(t, filepath.Join(t.TempDir(), "f.db"), "CREATE TABLE ok (x); SELECT * FROM missing;")
	t.Cleanup(func() { pool.Close() })
	if _, err := pool.Take(context.Background()); err == nil {
		t.Fatal("expected migration error")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := sqlitepool.Open(sqlitepool.Config{}); err == nil {
		t.Error("Open with empty path succeeded")
	}
}
