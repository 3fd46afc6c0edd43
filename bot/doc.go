// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bot connects Slack events to the renderer.
//
// A [Listener] reads Socket Mode events, acknowledges them, and turns
// app_mention and message events into [Trigger] values. A [Dispatcher]
// decides which triggers start a turn: mentions and direct messages
// always do, and an unmentioned reply does when the thread already has
// history. Turns in one thread are serialised in arrival order so a
// follow-up question never races the answer before it.
package bot
