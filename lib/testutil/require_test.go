// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

type fatalRecorder struct {
	message string
}

func (recorder *fatalRecorder) Helper() {}

func (recorder *fatalRecorder) Fatalf(format string, args ...any) {
	recorder.message = fmt.Sprintf(format, args...)
	panic(recorder)
}

func expectFatal(t *testing.T, run func(TB)) string {
	t.Helper()
	recorder := &fatalRecorder{}
	func() {
		defer func() {
			if recovered := recover(); recovered != recorder {
				if recovered != nil {
					panic(recovered)
				}
			}
		}()
		run(recorder)
	}()
	if recorder.message == "" {
		t.Fatal("expected Fatalf")
	}
	return recorder.message
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 7
	if got := RequireReceive(t, ch, time.Second, "buffered"); got != 7 {
		t.Errorf("got %d, want 7", got)
	}

	closed := make(chan int)
	close(closed)
	message := expectFatal(t, func(tb TB) { RequireReceive(tb, closed, time.Second, "reading %s", "closed") })
	if !strings.Contains(message, "reading closed") {
		t.Errorf("message = %q", message)
	}

	message = expectFatal(t, func(tb TB) { RequireReceive(tb, make(chan int), time.Millisecond) })
	if !strings.Contains(message, "timed out") {
		t.Errorf("message = %q", message)
	}
}

func TestRequireClosed(t *testing.T) {
	done := make(chan struct{})
	close(done)
	RequireClosed(t, done, time.Second, "closed channel")

	message := expectFatal(t, func(tb TB) { RequireClosed(tb, make(chan struct{}), time.Millisecond, "never") })
	if !strings.Contains(message, "never") {
		t.Errorf("message = %q", message)
	}
}

func TestTimestampUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		ts := Timestamp()
		if seen[ts] {
			t.Fatalf("duplicate timestamp %s", ts)
		}
		seen[ts] = true
		if len(ts) != len("1700000000.000001") {
			t.Fatalf("timestamp %q has unexpected shape", ts)
		}
	}
	if UniqueID("x") == UniqueID("x") {
		t.Error("UniqueID repeated")
	}
}
