// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package markup

// IsTerminator reports whether b ends a sentence.
func IsTerminator(b byte) bool { return b == '.' || b == '!' || b == '?' }

func isSpace(b byte) bool { return b == ' ' || b == '\n' || b == '\t' || b == '\r' }

// SentenceBoundaries returns the byte offsets just past each sentence
// terminator that is followed by whitespace. The whitespace itself is
// not included, so text[:offset] ends with the terminator.
func SentenceBoundaries(text string) []int {
	var offsets []int
	for index := 0; index+1 < len(text); index++ {
		if IsTerminator(text[index]) && isSpace(text[index+1]) {
			offsets = append(offsets, index+1)
		}
	}
	return offsets
}

// HasSentenceBoundary reports whether text contains a terminator
// followed by whitespace.
func HasSentenceBoundary(text string) bool {
	for index := 0; index+1 < len(text); index++ {
		if IsTerminator(text[index]) && isSpace(text[index+1]) {
			return true
		}
	}
	return false
}

// CountTerminators counts sentence terminators in text. A run such as
// "?!" or "..." counts once.
func CountTerminators(text string) int {
	count := 0
	for index := 0; index < len(text); index++ {
		if IsTerminator(text[index]) && (index+1 == len(text) || !IsTerminator(text[index+1])) {
			count++
		}
	}
	return count
}
