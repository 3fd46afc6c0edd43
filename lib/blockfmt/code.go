// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blockfmt

import (
	"strings"
	"unicode/utf8"
)

// Preformatted returns a prose block showing raw as a code block of at
// most limit runes including the fences. Longer content keeps its head
// and ends in an ellipsis.
func Preformatted(raw string, limit int) Block {
	limit = max(limit, minimumChars)
	budget := limit - 2*len(fence) - 2
	raw = strings.Trim(raw, "\r\n")
	content := render(raw)
	if utf8.RuneCountInString(content) > budget {
		runes := []rune(raw)
		keep := longestFit(len(runes), func(n int) bool {
			return utf8.RuneCountInString(render(string(runes[:n]))) < budget
		})
		content = render(string(runes[:keep])) + ellipsis
	}
	return Block{Kind: Prose, Text: fence + "\n" + content + "\n" + fence}
}

// Literal escapes text for mrkdwn without translating any markup, for
// names and identifiers that must appear verbatim.
func Literal(text string) string { return escapeRaw(text) }
