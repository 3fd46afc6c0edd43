// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by courier tests.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so tests that wait on goroutines never hang the suite. They
// are the only place tests use the wall clock; everything
// time-dependent in the code under test runs on a fake clock.
//
// [Timestamp] and [UniqueID] mint identifiers that are distinct
// across a test binary, for fake Slack message timestamps and request
// IDs.
//
// Helpers call t.Fatalf on failure.
package testutil
