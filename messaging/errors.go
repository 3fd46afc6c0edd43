// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"errors"

	"github.com/slack-go/slack"
)

// Slack Web API error codes courier reacts to.
const (
	ErrCodeRateLimited     = "ratelimited"
	ErrCodeInvalidAuth     = "invalid_auth"
	ErrCodeNotAuthed       = "not_authed"
	ErrCodeChannelNotFound = "channel_not_found"
	ErrCodeNotInChannel    = "not_in_channel"
	ErrCodeMessageNotFound = "message_not_found"
	ErrCodeCantUpdate      = "cant_update_message"
	ErrCodeInvalidBlocks   = "invalid_blocks"
	ErrCodeMsgTooLong      = "msg_too_long"
	ErrCodeUserNotFound    = "user_not_found"
)

// IsSlackError checks whether err carries the given Slack error code.
// Callers can also use errors.As with a slack.SlackErrorResponse:
//
//	var slackErr slack.SlackErrorResponse
//	if errors.As(err, &slackErr) {
//	    if slackErr.Err == ErrCodeMessageNotFound { ... }
//	}
func IsSlackError(err error, code string) bool {
	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		return slackErr.Err == code
	}
	return false
}

// IsRateLimited reports whether Slack rejected the call for rate
// limiting, either with HTTP 429 or the ratelimited error code.
func IsRateLimited(err error) bool {
	var limited *slack.RateLimitedError
	if errors.As(err, &limited) {
		return true
	}
	return IsSlackError(err, ErrCodeRateLimited)
}

// IsAuthError reports whether the token was rejected. Retrying will not
// help.
func IsAuthError(err error) bool {
	return IsSlackError(err, ErrCodeInvalidAuth) || IsSlackError(err, ErrCodeNotAuthed)
}
