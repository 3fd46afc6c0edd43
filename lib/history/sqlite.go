// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/courier/lib/agentstream"
	"github.com/bureau-foundation/courier/lib/clock"
	"github.com/bureau-foundation/courier/lib/codec"
	"github.com/bureau-foundation/courier/lib/ref"
	"github.com/bureau-foundation/courier/lib/sqlitepool"
)

var migrations = []string{
	`CREATE TABLE entries (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		thread     TEXT    NOT NULL,
		role       TEXT    NOT NULL,
		content    TEXT    NOT NULL,
		author     TEXT    NOT NULL DEFAULT '',
		metadata   BLOB,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX entries_by_thread ON entries (thread, id);`,
}

// SQLiteConfig configures a SQLite-backed store.
type SQLiteConfig struct {
	// Path is the database file. Its directory must exist.
	Path string

	// Clock stamps entries appended without a time. Required.
	Clock clock.Clock

	// Logger receives pool lifecycle messages. Required.
	Logger *slog.Logger
}

// SQLite is a Store persisted in a SQLite database.
type SQLite struct {
	pool  *sqlitepool.Pool
	clock clock.Clock
}

// OpenSQLite opens or creates the database at config.Path.
func OpenSQLite(config SQLiteConfig) (*SQLite, error) {
	if config.Clock == nil {
		return nil, fmt.Errorf("history: Clock is required")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("history: Logger is required")
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:       config.Path,
		Logger:     config.Logger,
		Migrations: migrations,
	})
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return &SQLite{pool: pool, clock: config.Clock}, nil
}

// Close closes the connection pool.
func (s *SQLite) Close() error {
	return s.pool.Close()
}

func (s *SQLite) Append(ctx context.Context, thread ref.ThreadRef, entry Entry) error {
	if entry.Time.IsZero() {
		entry.Time = s.clock.Now()
	}
	var metadata any
	if len(entry.Metadata) > 0 {
		encoded, err := codec.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("history: encoding metadata: %w", err)
		}
		metadata = encoded
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("history: append: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO entries (thread, role, content, author, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			thread.String(),
			string(entry.Role),
			entry.Content,
			entry.Author,
			metadata,
			entry.Time.UnixMicro(),
		}},
	)
	if err != nil {
		return fmt.Errorf("history: append to %s: %w", thread, err)
	}
	return nil
}

// History returns the thread's entries, oldest first.
func (s *SQLite) History(ctx context.Context, thread ref.ThreadRef) ([]Entry, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("history: read: %w", err)
	}
	defer s.pool.Put(conn)

	var entries []Entry
	err = sqlitex.Execute(conn,
		`SELECT role, content, author, metadata, created_at
		 FROM entries WHERE thread = ? ORDER BY id`,
		&sqlitex.ExecOptions{
			Args: []any{thread.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entry := Entry{
					Role:    agentstream.Role(stmt.ColumnText(0)),
					Content: stmt.ColumnText(1),
					Author:  stmt.ColumnText(2),
					Time:    time.UnixMicro(stmt.ColumnInt64(4)).UTC(),
				}
				if stmt.ColumnType(3) != sqlite.TypeNull {
					blob := make([]byte, stmt.ColumnLen(3))
					stmt.ColumnBytes(3, blob)
					if err := codec.Unmarshal(blob, &entry.Metadata); err != nil {
						return fmt.Errorf("decoding metadata: %w", err)
					}
				}
				entries = append(entries, entry)
				return nil
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("history: read %s: %w", thread, err)
	}
	return entries, nil
}
