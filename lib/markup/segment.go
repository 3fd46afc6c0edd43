// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package markup

import (
	"fmt"
	"strings"
)

// Kind distinguishes segment types.
type Kind int

const (
	// Prose is ordinary response text.
	Prose Kind = iota + 1

	// Aside is delimited private reasoning.
	Aside
)

func (k Kind) String() string {
	switch k {
	case Prose:
		return "prose"
	case Aside:
		return "aside"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Segment is one span of the partitioned text. Open is true only for a
// trailing Aside whose closing marker has not arrived.
type Segment struct {
	Kind Kind
	Text string
	Open bool
}

// Markers are the literal strings that open and close an aside.
type Markers struct {
	Open  string `yaml:"open"`
	Close string `yaml:"close"`
}

// DefaultMarkers are the reasoning tags emitted by the agent backend.
var DefaultMarkers = Markers{Open: "<think>", Close: "</think>"}

// Validate rejects marker pairs that cannot be told apart.
func (m Markers) Validate() error {
	if m.Open == "" || m.Close == "" {
		return fmt.Errorf("markup: aside markers must be non-empty")
	}
	if strings.Contains(m.Open, m.Close) || strings.Contains(m.Close, m.Open) {
		return fmt.Errorf("markup: aside markers %q and %q overlap", m.Open, m.Close)
	}
	return nil
}

// State summarizes the aside structure of a text.
type State struct {
	// Closed is the number of opener/closer pairs matched so far,
	// including pairs with nothing between them.
	Closed int

	// Open reports whether the text ends inside an aside.
	Open bool

	// OpenText is the content of the trailing open aside.
	OpenText string
}

// Parse partitions streaming text into segments, withholding a trailing
// partial marker. Adjacent prose is merged, empty prose is omitted, and
// a closed aside with no content is dropped. A trailing open aside is
// always present when the text ends inside one, even if empty.
func Parse(text string, markers Markers) []Segment {
	segments, _ := parse(text, markers, false)
	return segments
}

// ParseComplete partitions text that will receive no further deltas.
// Nothing is withheld.
func ParseComplete(text string, markers Markers) []Segment {
	segments, _ := parse(text, markers, true)
	return segments
}

// Inspect reports the aside structure of streaming text.
func Inspect(text string, markers Markers) State {
	segments, closed := parse(text, markers, false)
	state := State{Closed: closed}
	if len(segments) > 0 {
		if last := segments[len(segments)-1]; last.Open {
			state.Open = true
			state.OpenText = last.Text
		}
	}
	return state
}

func parse(text string, markers Markers, complete bool) ([]Segment, int) {
	var (
		segments []Segment
		prose    strings.Builder
		closed   int
	)
	emitProse := func() {
		if prose.Len() > 0 {
			segments = append(segments, Segment{Kind: Prose, Text: prose.String()})
			prose.Reset()
		}
	}

	rest := text
	for {
		closeAt := strings.Index(rest, markers.Close)
		if closeAt < 0 {
			break
		}
		region := rest[:closeAt]
		if openAt := strings.LastIndex(region, markers.Open); openAt >= 0 {
			prose.WriteString(region[:openAt])
			if body := region[openAt+len(markers.Open):]; body != "" {
				emitProse()
				segments = append(segments, Segment{Kind: Aside, Text: body})
			}
			closed++
		} else {
			prose.WriteString(region)
			prose.WriteString(markers.Close)
		}
		rest = rest[closeAt+len(markers.Close):]
	}

	if openAt := strings.LastIndex(rest, markers.Open); openAt >= 0 {
		prose.WriteString(rest[:openAt])
		emitProse()
		body := rest[openAt+len(markers.Open):]
		if !complete {
			body = withholdPartial(body, markers.Close)
		}
		segments = append(segments, Segment{Kind: Aside, Text: body, Open: true})
		return segments, closed
	}

	if !complete {
		rest = withholdPartial(rest, markers.Open)
	}
	prose.WriteString(rest)
	emitProse()
	return segments, closed
}

// withholdPartial trims the longest suffix of text that is a proper
// prefix of marker.
func withholdPartial(text, marker string) string {
	longest := len(marker) - 1
	if longest > len(text) {
		longest = len(text)
	}
	for n := longest; n > 0; n-- {
		if strings.HasSuffix(text, marker[:n]) {
			return text[:len(text)-n]
		}
	}
	return text
}
