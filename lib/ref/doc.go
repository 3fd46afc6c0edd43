// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated, immutable references to Slack
// entities: channels, users, message timestamps, threads, and posted
// messages.
//
// Raw identifiers arrive from the Slack Web API and Events API as bare
// strings. They are parsed into these types at the boundary so the
// renderer never confuses a channel ID with a user ID, or a thread root
// with the message being edited. The zero value of each type is not
// valid; use IsZero to check.
package ref
