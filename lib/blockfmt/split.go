// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blockfmt

import (
	"strings"
	"unicode/utf8"

	"github.com/bureau-foundation/courier/lib/markup"
)

// splitProse cuts translated prose into chunks of at most limit runes.
func splitProse(text string, limit int, stats *Stats) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	safe, _ := cutPoints(text)
	var sentences []string
	last := 0
	for _, offset := range markup.SentenceBoundaries(text) {
		if safe[offset] {
			sentences = append(sentences, text[last:offset])
			last = offset
		}
	}
	sentences = append(sentences, text[last:])

	var chunks []string
	emit := func(chunk string) {
		if trimmed := strings.TrimSpace(chunk); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
	}

	current := ""
	for _, sentence := range sentences {
		if utf8.RuneCountInString(current)+utf8.RuneCountInString(sentence) <= limit {
			current += sentence
			continue
		}
		emit(current)
		current = sentence
		for utf8.RuneCountInString(current) > limit {
			head, tail := hardSplit(current, limit, stats)
			emit(head)
			current = tail
		}
	}
	emit(current)
	return chunks
}

// hardSplit cuts text, which is longer than limit runes, into a head of
// at most limit runes and the remaining tail. Candidate points are
// tried in order: the last newline, the last sentence end, the last
// space, then any point, considering only points where the head would
// be balanced markup.
func hardSplit(text string, limit int, stats *Stats) (head, tail string) {
	window := runeOffset(text, limit)
	safe, fenced := cutPoints(text)

	lastSafe := func(match func(int) bool) int {
		for offset := window; offset > 0; offset-- {
			if safe[offset] && match(offset) {
				return offset
			}
		}
		return -1
	}

	if offset := lastSafe(func(i int) bool { return i < len(text) && text[i] == '\n' }); offset > 0 {
		return text[:offset], text[offset+1:]
	}
	if offset := lastSafe(func(i int) bool {
		return i < len(text) && isSpace(text[i]) && markup.IsTerminator(text[i-1])
	}); offset > 0 {
		return text[:offset], text[offset:]
	}
	if offset := lastSafe(func(i int) bool { return i < len(text) && text[i] == ' ' }); offset > 0 {
		return text[:offset], text[offset+1:]
	}
	if offset := lastSafe(func(int) bool { return true }); offset > 0 {
		return text[:offset], text[offset:]
	}

	if fenced[window] {
		if head, tail, ok := splitFence(text, limit, fenced); ok {
			stats.FenceSplits++
			return head, tail
		}
	}

	stats.ForcedCuts++
	return text[:window], text[window:]
}

// splitFence cuts inside a code fence that opens at the start of text
// and runs past the window, closing the fence on the head and
// reopening it on the tail.
func splitFence(text string, limit int, fenced []bool) (head, tail string, ok bool) {
	reserve := len("\n" + fence)
	window := runeOffset(text, limit-reserve)
	opener := strings.IndexByte(text, '\n')

	cut := -1
	for offset := window; offset > opener && offset > 0; offset-- {
		if fenced[offset] && text[offset] == '\n' {
			cut = offset
			break
		}
	}
	if cut < 0 {
		cut = window
		head = text[:cut] + "\n" + fence
		tail = fence + "\n" + text[cut:]
	} else {
		head = text[:cut] + "\n" + fence
		tail = fence + text[cut:]
	}
	if len(tail) >= len(text) {
		return "", "", false
	}
	return head, tail, true
}

// runeOffset returns the byte offset just past the first n runes of
// text, or len(text) if it is shorter.
func runeOffset(text string, n int) int {
	if n <= 0 {
		return 0
	}
	count := 0
	for offset := range text {
		if count == n {
			return offset
		}
		count++
	}
	return len(text)
}

// cutPoints classifies every byte offset of text. safe[i] reports
// whether cutting before text[i] leaves both sides balanced: not
// inside a fenced block, inline code, emphasis pair, Slack token or
// entity, and on a rune boundary. fenced[i] reports whether offset i
// lies inside a fenced block.
func cutPoints(text string) (safe, fenced []bool) {
	safe = make([]bool, len(text)+1)
	fenced = make([]bool, len(text)+1)

	inFence := false
	lineStart := 0
	for lineStart <= len(text) {
		lineEnd := strings.IndexByte(text[lineStart:], '\n')
		if lineEnd < 0 {
			lineEnd = len(text)
		} else {
			lineEnd += lineStart
		}
		line := text[lineStart:lineEnd]
		indentless := strings.TrimLeft(line, " \t")
		isFenceLine := strings.HasPrefix(indentless, fence) &&
			(inFence || !strings.Contains(indentless[len(fence):], fence))

		switch {
		case isFenceLine && !inFence:
			safe[lineStart] = true
			for offset := lineStart + 1; offset <= lineEnd; offset++ {
				fenced[offset] = true
			}
			inFence = true
		case isFenceLine && inFence:
			for offset := lineStart; offset < lineEnd; offset++ {
				fenced[offset] = true
			}
			safe[lineEnd] = true
			inFence = false
		case inFence:
			for offset := lineStart; offset <= lineEnd; offset++ {
				fenced[offset] = true
			}
		default:
			mask := lineMask(line)
			for offset := 0; offset <= len(line); offset++ {
				safe[lineStart+offset] = mask[offset]
			}
		}

		if lineEnd == len(text) {
			break
		}
		lineStart = lineEnd + 1
	}

	for offset := 0; offset < len(text); offset++ {
		if safe[offset] && !utf8.RuneStart(text[offset]) {
			safe[offset] = false
		}
	}
	return safe, fenced
}

// lineMask marks the balanced cut points of a single line outside any
// fence. Spans never cross a newline in mrkdwn, so each line starts
// and ends balanced.
func lineMask(line string) []bool {
	mask := make([]bool, len(line)+1)
	for offset := range mask {
		mask[offset] = true
	}
	cover := func(start, end int) {
		for offset := start + 1; offset < end; offset++ {
			mask[offset] = false
		}
	}

	// Code spans hide everything inside them, so emphasis is paired on
	// a copy with code and tokens blanked out.
	neutral := []byte(line)
	blank := func(start, end int) {
		for offset := start; offset < end; offset++ {
			neutral[offset] = 'x'
		}
	}

	open := -1
	for offset := 0; offset < len(line); offset++ {
		if line[offset] != '`' {
			continue
		}
		if open < 0 {
			open = offset
			continue
		}
		cover(open, offset+1)
		blank(open, offset+1)
		open = -1
	}

	for _, span := range slackToken.FindAllStringIndex(string(neutral), -1) {
		cover(span[0], span[1])
		blank(span[0], span[1])
	}
	for _, span := range entity.FindAllStringIndex(string(neutral), -1) {
		cover(span[0], span[1])
	}

	text := string(neutral)
	for _, delim := range []string{"*", "_", "~"} {
		index := 0
		for index < len(text) {
			if strings.HasPrefix(text[index:], delim) && isOpener(text, index, delim) {
				if end := findCloser(text, index+len(delim), delim); end > 0 {
					cover(index, end+len(delim))
					index = end + len(delim)
					continue
				}
			}
			index++
		}
	}
	return mask
}
