// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"testing"
)

func TestErrorBody(t *testing.T) {
	t.Run("returns body as string", func(t *testing.T) {
		got := ErrorBody(bytes.NewReader([]byte(`{"detail":"overloaded"}`)))
		if got != `{"detail":"overloaded"}` {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("bounded", func(t *testing.T) {
		got := ErrorBody(strings.NewReader(strings.Repeat("x", int(MaxErrorBodySize)+10)))
		if int64(len(got)) != MaxErrorBodySize {
			t.Fatalf("len = %d, want %d", len(got), MaxErrorBodySize)
		}
	})

	t.Run("read error returns empty", func(t *testing.T) {
		if got := ErrorBody(&failReader{}); got != "" {
			t.Fatalf("expected empty from failing reader, got %q", got)
		}
	})
}

func TestIsExpectedCloseError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "eof", err: io.EOF, want: true},
		{name: "wrapped unexpected eof", err: fmt.Errorf("agentstream: reading stream: %w", io.ErrUnexpectedEOF), want: true},
		{name: "closed", err: net.ErrClosed, want: true},
		{name: "reset", err: &net.OpError{Op: "read", Err: syscall.ECONNRESET}, want: true},
		{name: "broken pipe", err: syscall.EPIPE, want: true},
		{name: "other", err: errors.New("decoding event line: invalid character"), want: false},
		{name: "refused", err: syscall.ECONNREFUSED, want: false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsExpectedCloseError(test.err); got != test.want {
				t.Errorf("IsExpectedCloseError(%v) = %v, want %v", test.err, got, test.want)
			}
		})
	}
}

// failReader always returns an error on Read.
type failReader struct{}

func (*failReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("simulated read failure")
}
