// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package render turns one agent turn's event stream into Slack
// messages as the events arrive.
//
// [Renderer.RenderTurn] posts a placeholder, streams the agent, and
// keeps the thread's messages current:
//
//   - Text deltas accumulate in a response buffer. A flush policy
//     ([Policy]) decides per delta whether to re-render. A flush always
//     formats the whole buffer (lib/markup, then lib/blockfmt) and
//     issues exactly one post or update.
//   - A message identity state machine ([Phase]) tracks which posted
//     message the next flush targets. Tool invocations get their own
//     message, updated once in place with the result, and prose after a
//     tool result always starts a new message.
//   - The final answer is written to the current message, or the
//     placeholder, or a new message, and recorded in the thread's
//     history. Agent failures append a visible error block and end the
//     turn.
//
// Sink failures never end a turn: they are logged and the buffer is
// kept, so the next flush carries the missed content.
package render
