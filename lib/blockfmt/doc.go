// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package blockfmt turns markup segments into size-bounded Slack blocks.
//
// [Format] is pure and idempotent: the renderer re-formats the entire
// response buffer on every flush, and identical input must produce
// identical blocks so an update never flickers.
//
// Prose goes through two stages. First the agent's GitHub-flavoured
// markdown is translated to Slack mrkdwn: fenced code loses its
// language tag, **bold** and __bold__ become *bold*, ~~strike~~ becomes
// ~strike~, headings become bold lines, links become <url|text>,
// bullets become "•", and a line holding only a thematic break becomes
// a standalone [Divider] block. Then the translated text is cut into
// blocks of at most [Limits.ProseChars] runes. Sentences are packed
// greedily; a sentence that does not fit alone is cut at the last
// newline, sentence end, or space that does not fall inside a code
// span, emphasis pair, Slack token, or entity. A cut that cannot avoid
// a long code fence closes the fence at the end of one block and
// reopens it at the start of the next. Only when no such point exists
// is the text cut at a plain rune boundary.
//
// Each aside becomes exactly one block. Asides longer than
// [Limits.AsideChars] keep their most recent text behind a leading
// ellipsis.
package blockfmt
