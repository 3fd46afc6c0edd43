// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import "errors"

var (
	// ErrIdentityUnavailable means the bot's own identity could not be
	// resolved, so the turn was aborted before the agent was called.
	ErrIdentityUnavailable = errors.New("render: bot identity unavailable")

	// ErrAgentFailed means the agent reported an error or its stream
	// failed. Whatever was rendered before the failure stays visible.
	ErrAgentFailed = errors.New("render: agent failed")
)
