// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package markup partitions accumulated agent output into prose and
// aside segments.
//
// An aside is a span of private reasoning delimited by a pair of
// markers (by default <think> and </think>). [Parse] is a pure function
// of the whole text: the renderer calls it on the full buffer at every
// flush instead of tracking marker state across deltas, so a marker
// split between two deltas cannot leave the renderer out of step.
//
// Pairing rules:
//   - The last opener before a closer starts the aside. Earlier
//     openers in the same stretch stay in the preceding prose.
//   - An opener with no later closer yields a trailing open aside
//     covering the remainder of the text.
//   - A closer with no opener is kept as prose.
//
// While text is still streaming, a trailing partial marker ("<thi") is
// withheld from the output so it never flashes on screen before the
// next delta completes it. [ParseComplete] disables that for the final
// render of a turn.
package markup
