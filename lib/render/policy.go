// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"errors"
	"fmt"
	"time"
)

// Policy holds the flush thresholds. Character counts are runes.
type Policy struct {
	// MinInterval is the shortest gap between two gated flushes.
	MinInterval time.Duration `yaml:"min_interval"`

	// ProseChars is how much new prose must accumulate before a flush
	// at the next sentence boundary.
	ProseChars int `yaml:"prose_chars"`

	// AsideChars is how much new text inside an open aside forces a
	// flush without waiting for sentences.
	AsideChars int `yaml:"aside_chars"`

	// AsideSentences flushes an open aside once this many sentences
	// have been added to it since the last flush.
	AsideSentences int `yaml:"aside_sentences"`

	// HardCeiling flushes, ignoring MinInterval, every time the buffer
	// grows past another multiple of this length.
	HardCeiling int `yaml:"hard_ceiling"`
}

// DefaultPolicy keeps updates near one per second, the pace Slack's
// chat.update tier sustains.
var DefaultPolicy = Policy{
	MinInterval:    1200 * time.Millisecond,
	ProseChars:     250,
	AsideChars:     380,
	AsideSentences: 2,
	HardCeiling:    2800,
}

// DefaultPlaceholder is posted before the agent produces anything.
const DefaultPlaceholder = "_working…_"

// Validate rejects inconsistent thresholds.
func (p Policy) Validate() error {
	var errs []error
	if p.MinInterval < 0 {
		errs = append(errs, fmt.Errorf("min_interval must not be negative, got %v", p.MinInterval))
	}
	if p.ProseChars < 1 {
		errs = append(errs, fmt.Errorf("prose_chars must be positive, got %d", p.ProseChars))
	}
	if p.AsideChars <= p.ProseChars {
		errs = append(errs, fmt.Errorf("aside_chars (%d) must exceed prose_chars (%d)", p.AsideChars, p.ProseChars))
	}
	if p.AsideSentences < 1 {
		errs = append(errs, fmt.Errorf("aside_sentences must be positive, got %d", p.AsideSentences))
	}
	if p.HardCeiling <= p.AsideChars {
		errs = append(errs, fmt.Errorf("hard_ceiling (%d) must exceed aside_chars (%d)", p.HardCeiling, p.AsideChars))
	}
	return errors.Join(errs...)
}
