// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var counter atomic.Uint64

// UniqueID returns "prefix-N" with N increasing across the binary.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, counter.Add(1))
}

// Timestamp returns a Slack-style message timestamp ("seconds.micros")
// that no other call in this binary returns.
func Timestamp() string {
	n := counter.Add(1)
	return fmt.Sprintf("%d.%06d", 1700000000+n/1000000, n%1000000)
}
