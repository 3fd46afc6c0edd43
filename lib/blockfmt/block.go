// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blockfmt

import (
	"fmt"
	"unicode/utf8"

	"github.com/bureau-foundation/courier/lib/markup"
)

// Kind distinguishes block types.
type Kind int

const (
	// Prose is a section of mrkdwn text.
	Prose Kind = iota + 1

	// Aside is preformatted reasoning text rendered inside a code
	// block with a label.
	Aside

	// Divider is a horizontal rule. It carries no text.
	Divider
)

func (k Kind) String() string {
	switch k {
	case Prose:
		return "prose"
	case Aside:
		return "aside"
	case Divider:
		return "divider"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Block is one renderable unit. Open marks an aside that is still
// streaming.
type Block struct {
	Kind Kind
	Text string
	Open bool
}

// Limits bounds the formatter's output. Lengths are in runes.
type Limits struct {
	ProseChars int `yaml:"prose_chars"`
	AsideChars int `yaml:"aside_chars"`
	MaxBlocks  int `yaml:"max_blocks"`
}

// DefaultLimits stay well inside Slack's 3000-character section text
// ceiling and 50-block message ceiling. Aside blocks get more room
// because an aside is never split.
var DefaultLimits = Limits{
	ProseChars: 2000,
	AsideChars: 2900,
	MaxBlocks:  50,
}

// minimumChars is the smallest ceiling the splitter accepts. Fence
// reopening needs room for the fence markers plus real content.
const minimumChars = 16

// Validate rejects limits the splitter cannot honour.
func (l Limits) Validate() error {
	if l.ProseChars < minimumChars {
		return fmt.Errorf("blockfmt: prose_chars must be at least %d, got %d", minimumChars, l.ProseChars)
	}
	if l.AsideChars < minimumChars {
		return fmt.Errorf("blockfmt: aside_chars must be at least %d, got %d", minimumChars, l.AsideChars)
	}
	if l.MaxBlocks < 1 {
		return fmt.Errorf("blockfmt: max_blocks must be positive, got %d", l.MaxBlocks)
	}
	return nil
}

// floor raises any ceiling below the splitter's minimum so a
// misconfigured limit degrades output instead of looping.
func (l Limits) floor() Limits {
	l.ProseChars = max(l.ProseChars, minimumChars)
	l.AsideChars = max(l.AsideChars, minimumChars)
	return l
}

// Stats counts the degradations applied while formatting.
type Stats struct {
	// ForcedCuts counts prose cuts made at a bare rune boundary
	// because no markup-safe point existed.
	ForcedCuts int

	// FenceSplits counts code fences closed and reopened across a
	// block boundary.
	FenceSplits int

	// TruncatedAsides counts asides shortened to fit.
	TruncatedAsides int

	// DroppedBlocks counts the oldest blocks discarded to stay under
	// MaxBlocks.
	DroppedBlocks int
}

// Degraded reports whether any content was cut, truncated or dropped
// in a way the reader can see.
func (s Stats) Degraded() bool {
	return s.ForcedCuts > 0 || s.TruncatedAsides > 0 || s.DroppedBlocks > 0
}

// Format renders segments as blocks.
func Format(segments []markup.Segment, limits Limits) []Block {
	blocks, _ := FormatStats(segments, limits)
	return blocks
}

// FormatStats is Format plus a report of the degradations applied.
func FormatStats(segments []markup.Segment, limits Limits) ([]Block, Stats) {
	var (
		blocks []Block
		stats  Stats
	)
	limits = limits.floor()
	for _, segment := range segments {
		switch segment.Kind {
		case markup.Aside:
			blocks = append(blocks, formatAside(segment, limits.AsideChars, &stats))
		default:
			for _, piece := range translate(segment.Text) {
				if piece.divider {
					blocks = append(blocks, Block{Kind: Divider})
					continue
				}
				for _, chunk := range splitProse(piece.text, limits.ProseChars, &stats) {
					blocks = append(blocks, Block{Kind: Prose, Text: chunk})
				}
			}
		}
	}
	clamped := Clamp(blocks, limits.MaxBlocks)
	stats.DroppedBlocks = len(blocks) - len(clamped)
	return clamped, stats
}

// Clamp keeps the newest max blocks.
func Clamp(blocks []Block, max int) []Block {
	if max <= 0 || len(blocks) <= max {
		return blocks
	}
	return blocks[len(blocks)-max:]
}

// Length returns the block's text length in runes.
func (b Block) Length() int { return utf8.RuneCountInString(b.Text) }

// Limit returns the ceiling that applies to the block's kind.
func (l Limits) Limit(kind Kind) int {
	switch kind {
	case Aside:
		return l.AsideChars
	case Prose:
		return l.ProseChars
	default:
		return 0
	}
}
