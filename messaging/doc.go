// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the Slack Web API for courier's rendering
// needs.
//
// [Client] is the renderer's message sink: Post sends a threaded reply
// with chat.postMessage and Update rewrites one in place with
// chat.update. It also resolves the bot's own user ID (auth.test,
// cached after the first success) and user display names (users.info).
//
// Every call passes through an optional client-side limiter
// (golang.org/x/time/rate) and is retried when Slack answers 429,
// sleeping for the Retry-After interval on the configured clock, up to
// MaxAttempts tries. Other failures are returned to the caller, which
// treats them as transient.
//
// Errors from Slack carry the API error code. [IsSlackError] tests for
// a specific code and [IsRateLimited] recognises both the HTTP 429 form
// and the "ratelimited" code.
//
// Blocks produced by lib/blockfmt are converted to Block Kit JSON by
// [SlackBlocks]: prose becomes an mrkdwn section, an aside becomes a
// labelled code block, and a divider stays a divider.
package messaging
