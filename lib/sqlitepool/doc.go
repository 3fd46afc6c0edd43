// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens zombiezen SQLite connection pools with the
// pragmas courier's stores expect and applies versioned schema
// migrations.
//
// Connections are not safe for concurrent use: Take one per goroutine
// and Put it back when done.
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:       "/var/lib/courier/history.db",
//	    Logger:     logger,
//	    Migrations: []string{schemaV1},
//	})
//
// Migrations are tracked in PRAGMA user_version. Migration N (1-based)
// runs inside a transaction on a database whose user_version is N-1
// and leaves it at N. Entries are never edited once released; new
// schema goes in a new entry.
package sqlitepool
