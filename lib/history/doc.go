// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package history stores the conversation of each Slack thread as an
// append-only sequence of entries.
//
// The renderer reads a thread's entries before a turn to build the
// agent request and appends the user prompt and every committed
// assistant message. [Memory] keeps entries for the life of the
// process; [SQLite] persists them through lib/sqlitepool with per-turn
// metadata encoded as CBOR.
package history
