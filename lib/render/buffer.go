// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"slices"
	"time"
	"unicode/utf8"

	"github.com/bureau-foundation/courier/lib/markup"
)

// flushReason is why the buffer asked to be flushed.
type flushReason int

const (
	noFlush flushReason = iota
	flushProse
	flushAside
	flushAsideClosed
	flushCeiling
)

func (r flushReason) String() string {
	switch r {
	case noFlush:
		return "none"
	case flushProse:
		return "prose"
	case flushAside:
		return "aside"
	case flushAsideClosed:
		return "aside_closed"
	case flushCeiling:
		return "ceiling"
	default:
		return "unknown"
	}
}

// gated reports whether the reason is subject to MinInterval.
func (r flushReason) gated() bool { return r == flushProse || r == flushAside }

// responseBuffer accumulates the raw text of the current message and
// decides when it should be flushed. It is never partially cleared.
type responseBuffer struct {
	policy  Policy
	markers markup.Markers

	text  string
	runes int

	// State captured at the last flush.
	flushedBytes int
	flushedRunes int
	lastFlush    time.Time

	// shownBytes is how much of text the last successful write showed.
	shownBytes int

	// closedAsides is the count of closed aside pairs seen so far.
	closedAsides int
}

func newResponseBuffer(policy Policy, markers markup.Markers) *responseBuffer {
	return &responseBuffer{policy: policy, markers: markers}
}

// add appends delta and evaluates the flush policy at now.
func (b *responseBuffer) add(delta string, now time.Time) flushReason {
	b.text += delta
	b.runes += utf8.RuneCountInString(delta)

	state := markup.Inspect(b.text, b.markers)
	closed := state.Closed > b.closedAsides
	b.closedAsides = state.Closed

	if closed {
		return flushAsideClosed
	}
	if ceiling := b.policy.HardCeiling; ceiling > 0 && b.runes/ceiling > b.flushedRunes/ceiling {
		return flushCeiling
	}
	if !b.lastFlush.IsZero() && now.Sub(b.lastFlush) < b.policy.MinInterval {
		return noFlush
	}

	sinceFlush := b.runes - b.flushedRunes
	if state.Open {
		if sinceFlush >= b.policy.AsideChars {
			return flushAside
		}
		if markup.CountTerminators(b.openAdded(state.OpenText)) >= b.policy.AsideSentences {
			return flushAside
		}
		return noFlush
	}
	if sinceFlush >= b.policy.ProseChars && markup.HasSentenceBoundary(b.added()) {
		return flushProse
	}
	return noFlush
}

// added returns the text appended since the last flush, plus the byte
// before it so a terminator that ended the flushed text still pairs
// with whitespace that arrived after it.
func (b *responseBuffer) added() string {
	return b.text[max(b.flushedBytes-1, 0):]
}

// openAdded returns the part of the open aside appended since the last
// flush.
func (b *responseBuffer) openAdded(openText string) string {
	if n := len(b.text) - b.flushedBytes; n < len(openText) {
		return openText[len(openText)-n:]
	}
	return openText
}

// markFlushed records a flush attempt at now.
func (b *responseBuffer) markFlushed(now time.Time) {
	b.flushedBytes = len(b.text)
	b.flushedRunes = b.runes
	b.lastFlush = now
}

// empty reports whether nothing but whitespace has been buffered.
func (b *responseBuffer) empty() bool {
	for index := 0; index < len(b.text); index++ {
		switch b.text[index] {
		case ' ', '\t', '\r', '\n':
		default:
			return false
		}
	}
	return true
}

// markShown records that the whole buffer is on screen.
func (b *responseBuffer) markShown() { b.shownBytes = len(b.text) }

// shown reports whether the last successful write covered the whole
// buffer.
func (b *responseBuffer) shown() bool { return b.shownBytes == len(b.text) }

// reset starts a new message. The flush time is kept so the rate gate
// spans messages.
func (b *responseBuffer) reset() {
	lastFlush := b.lastFlush
	*b = responseBuffer{policy: b.policy, markers: b.markers, lastFlush: lastFlush}
}

// complete reports whether segments, parsed for a mid-stream flush,
// already show the whole buffer as a finished stream would.
func (b *responseBuffer) complete(segments []markup.Segment) bool {
	return slices.Equal(segments, markup.ParseComplete(b.text, b.markers))
}

// segments parses the buffer for a mid-stream flush.
func (b *responseBuffer) segments() []markup.Segment {
	return markup.Parse(b.text, b.markers)
}
