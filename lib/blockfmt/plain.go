// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blockfmt

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	namedLink   = regexp.MustCompile(`<((?:https?://|mailto:)[^<>|\s]*)\|([^<>]*)>`)
	bareLink    = regexp.MustCompile(`<((?:https?://|mailto:)[^<>|\s]*)>`)
	whitespace  = regexp.MustCompile(`\s+`)
	unescaper   = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&")
	fenceMarker = strings.NewReplacer(fence, "")
)

// PlainText flattens the prose of blocks into a one-line summary of at
// most maxRunes runes for notifications and clients that cannot show
// blocks. Asides and dividers are skipped. A response that is only an
// open aside so far summarizes as "Thinking…".
func PlainText(blocks []Block, maxRunes int) string {
	var parts []string
	thinking := false
	for _, block := range blocks {
		switch block.Kind {
		case Prose:
			parts = append(parts, block.Text)
		case Aside:
			thinking = thinking || block.Open
		}
	}
	if len(parts) == 0 {
		if thinking {
			return "Thinking" + ellipsis
		}
		return ""
	}

	text := strings.Join(parts, " ")
	text = namedLink.ReplaceAllString(text, "$2")
	text = bareLink.ReplaceAllString(text, "$1")
	text = fenceMarker.Replace(text)
	text = unescaper.Replace(text)
	text = strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
	return Truncate(text, maxRunes)
}

// Truncate shortens text to at most maxRunes runes, ending in an
// ellipsis when anything was removed.
func Truncate(text string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	return strings.TrimRight(text[:runeOffset(text, maxRunes-1)], " ") + ellipsis
}
