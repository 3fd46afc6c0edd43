// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeNowOnlyMovesOnAdvance(t *testing.T) {
	c := Fake(epoch)
	if !c.Now().Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", c.Now(), epoch)
	}
	c.Advance(1200 * time.Millisecond)
	if got := c.Now().Sub(epoch); got != 1200*time.Millisecond {
		t.Errorf("elapsed = %v, want 1.2s", got)
	}
}

func TestFakeAfterFiresAtDeadline(t *testing.T) {
	c := Fake(epoch)
	channel := c.After(time.Second)

	c.Advance(999 * time.Millisecond)
	select {
	case <-channel:
		t.Fatal("fired before deadline")
	default:
	}

	c.Advance(time.Millisecond)
	select {
	case fired := <-channel:
		if !fired.Equal(epoch.Add(time.Second)) {
			t.Errorf("fired at %v", fired)
		}
	default:
		t.Fatal("did not fire at deadline")
	}
	if c.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d after firing", c.PendingCount())
	}
}

func TestFakeAfterNonPositiveIsImmediate(t *testing.T) {
	c := Fake(epoch)
	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) not ready")
	}
	if c.PendingCount() != 0 {
		t.Errorf("After(0) registered a waiter")
	}
}

func TestWaitForWaiters(t *testing.T) {
	c := Fake(epoch)
	done := make(chan struct{})
	go func() {
		<-c.After(5 * time.Second)
		close(done)
	}()

	c.WaitForWaiters(1)
	c.Advance(5 * time.Second)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("goroutine never woke")
	}
}
