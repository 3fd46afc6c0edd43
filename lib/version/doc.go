// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for courier binaries.
//
// [GitCommit], [GitDirty], [BuildTime] and [Version] are injected with
// -ldflags -X and keep their development defaults otherwise. [Info] is
// the one-line form printed by --version; [Full] adds the toolchain and
// platform; [UserAgent] is sent to the Slack and agent backends.
package version
