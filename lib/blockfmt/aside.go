// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blockfmt

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bureau-foundation/courier/lib/markup"
)

const ellipsis = "…"

// fenceBreaker replaces a literal fence inside an aside. The aside is
// rendered inside a code block, and a bare ``` in its content would end
// that block early. A zero-width space keeps it looking the same.
var fenceBreaker = strings.NewReplacer(fence, "``\u200b`")

func formatAside(segment markup.Segment, limit int, stats *Stats) Block {
	raw := strings.Trim(segment.Text, "\r\n")
	text := render(raw)
	if utf8.RuneCountInString(text) > limit {
		stats.TruncatedAsides++
		runes := []rune(raw)
		keep := longestFit(len(runes), func(n int) bool {
			return utf8.RuneCountInString(render(string(runes[len(runes)-n:]))) < limit
		})
		text = ellipsis + render(string(runes[len(runes)-keep:]))
	}
	return Block{Kind: Aside, Text: text, Open: segment.Open}
}

// longestFit returns the largest n in [0, total] for which fits(n)
// holds; fits(0) must hold. Escaping only grows text, so fits is
// monotone apart from Slack tokens cut in half, which the walk back
// covers.
func longestFit(total int, fits func(n int) bool) int {
	n := sort.Search(total+1, func(n int) bool { return !fits(n) }) - 1
	for n > 0 && !fits(n) {
		n--
	}
	return n
}

func render(raw string) string { return fenceBreaker.Replace(escape(raw)) }
