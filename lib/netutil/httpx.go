// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil holds HTTP and connection helpers shared by the agent
// backend client and the renderer.
//
// ErrorBody bounds the read of an error response so a misbehaving
// backend cannot exhaust memory through a diagnostic message.
// IsExpectedCloseError classifies the errors a streaming response
// produces when the peer goes away mid-body.
package netutil

import "io"

// MaxErrorBodySize bounds ErrorBody reads: 64 KB is far more than any
// useful diagnostic.
const MaxErrorBodySize int64 = 64 << 10

// ErrorBody reads an HTTP error response body for use in an error
// message. Read errors are ignored; a partial body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxErrorBodySize))
	return string(data)
}
