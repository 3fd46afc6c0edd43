// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds Slack tokens in memory outside the Go heap.
//
// A [Buffer] is an anonymous mmap region that is mlocked against swap
// and excluded from core dumps. Tokens are loaded once at startup with
// [Load] from a file, stdin, or an environment variable, and are only
// turned into heap strings at the slack-go API boundary.
package secret
