// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The renderer's flush gate and the Slack sink's rate-limit waits read
// time only through a [Clock]. Production code passes [Real]; tests pass
// a [FakeClock] from [Fake] and move time with [FakeClock.Advance], so
// gating decisions are deterministic and no test sleeps.
//
// A goroutine blocked in [Clock.After] on a fake clock registers a
// waiter. [FakeClock.WaitForWaiters] blocks until a given number of
// waiters exist, which closes the race between a goroutine arming a
// timer and the test advancing past it.
package clock
