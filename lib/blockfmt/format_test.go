// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blockfmt

import (
	"reflect"
	"strings"
	"testing"

	"github.com/bureau-foundation/courier/lib/markup"
)

func proseBlock(text string) Block { return Block{Kind: Prose, Text: text} }

func formatText(text string, limits Limits) []Block {
	return Format(markup.ParseComplete(text, markup.DefaultMarkers), limits)
}

func TestDialectTranslation(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "double star bold", input: "This is **bold** and __also__.", want: "This is *bold* and *also*."},
		{name: "strike", input: "~~gone~~ now", want: "~gone~ now"},
		{name: "single star italic", input: "Use *emphasis* here", want: "Use _emphasis_ here"},
		{name: "heading", input: "# Heading", want: "*Heading*"},
		{name: "closed heading", input: "## Setup ##", want: "*Setup*"},
		{name: "bullets", input: "- item one\n* item two", want: "• item one\n• item two"},
		{name: "link", input: "See [docs](https://example.com/a).", want: "See <https://example.com/a|docs>."},
		{name: "escaping", input: "a < b & c > d", want: "a &lt; b &amp; c &gt; d"},
		{name: "mention kept", input: "ping <@U123ABC> now", want: "ping <@U123ABC> now"},
		{name: "inline code untouched", input: "run `a **b** c` now **x**", want: "run `a **b** c` now *x*"},
		{name: "snake case untouched", input: "call my_func_name now", want: "call my_func_name now"},
		{name: "arithmetic star untouched", input: "2 * 3 = 6", want: "2 * 3 = 6"},
		{
			name:  "fence language tag dropped",
			input: "```go\nfmt.Println(\"**no**\")\n```",
			want:  "```\nfmt.Println(\"**no**\")\n```",
		},
		{name: "unclosed fence closed", input: "```\ncode line", want: "```\ncode line\n```"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := formatText(test.input, DefaultLimits)
			want := []Block{proseBlock(test.want)}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Format(%q)\n got %#v\nwant %#v", test.input, got, want)
			}
		})
	}
}

func TestHorizontalRuleBecomesDivider(t *testing.T) {
	for _, rule := range []string{"---", "***", "___", "- - -"} {
		got := formatText("Above\n"+rule+"\nBelow", DefaultLimits)
		want := []Block{proseBlock("Above"), {Kind: Divider}, proseBlock("Below")}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("rule %q: got %#v, want %#v", rule, got, want)
		}
	}
}

func TestSentencePacking(t *testing.T) {
	limits := Limits{ProseChars: 40, AsideChars: 100, MaxBlocks: 50}
	got := formatText("One short sentence. Two short sentence. Three short sentence.", limits)
	want := []Block{
		proseBlock("One short sentence. Two short sentence."),
		proseBlock("Three short sentence."),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v\nwant %#v", got, want)
	}
}

func TestHardSplitAtSpaces(t *testing.T) {
	limits := Limits{ProseChars: 20, AsideChars: 100, MaxBlocks: 50}
	got := formatText("aaaa bbbb cccc dddd eeee ffff gggg hhhh iiii", limits)
	want := []Block{
		proseBlock("aaaa bbbb cccc dddd"),
		proseBlock("eeee ffff gggg hhhh"),
		proseBlock("iiii"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v\nwant %#v", got, want)
	}
}

func TestHardSplitPrefersNewline(t *testing.T) {
	limits := Limits{ProseChars: 20, AsideChars: 100, MaxBlocks: 50}
	got := formatText("first line\nsecond line here", limits)
	want := []Block{proseBlock("first line"), proseBlock("second line here")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v\nwant %#v", got, want)
	}
}

func TestHardSplitKeepsBoldIntact(t *testing.T) {
	limits := Limits{ProseChars: 18, AsideChars: 100, MaxBlocks: 50}
	got := formatText("xx **bold words here** yy zz", limits)
	want := []Block{
		proseBlock("xx"),
		proseBlock("*bold words here*"),
		proseBlock("yy zz"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v\nwant %#v", got, want)
	}
}

func TestLongFenceIsClosedAndReopened(t *testing.T) {
	line := "0123456789"
	body := strings.Repeat(line+"\n", 5) + line
	limits := Limits{ProseChars: 40, AsideChars: 100, MaxBlocks: 50}

	blocks, stats := FormatStats(markup.ParseComplete("```\n"+body+"\n```", markup.DefaultMarkers), limits)

	half := "```\n" + line + "\n" + line + "\n" + line + "\n```"
	want := []Block{proseBlock(half), proseBlock(half)}
	if !reflect.DeepEqual(blocks, want) {
		t.Fatalf("got %#v\nwant %#v", blocks, want)
	}
	if stats.FenceSplits != 1 {
		t.Errorf("FenceSplits = %d, want 1", stats.FenceSplits)
	}
	if stats.Degraded() {
		t.Errorf("fence split reported as degradation: %+v", stats)
	}
}

func TestUnbreakableSpanIsForcedCut(t *testing.T) {
	limits := Limits{ProseChars: 16, AsideChars: 100, MaxBlocks: 50}
	blocks, stats := FormatStats(markup.ParseComplete("`"+strings.Repeat("z", 30)+"`", markup.DefaultMarkers), limits)
	if stats.ForcedCuts == 0 {
		t.Fatal("expected a forced cut")
	}
	var joined string
	for _, block := range blocks {
		if block.Length() > limits.ProseChars {
			t.Errorf("block over limit: %q", block.Text)
		}
		joined += block.Text
	}
	if joined != "`"+strings.Repeat("z", 30)+"`" {
		t.Errorf("content lost: %q", joined)
	}
}

func TestAsideBlocks(t *testing.T) {
	t.Run("one block per aside", func(t *testing.T) {
		body := strings.Repeat("r", 500)
		markers := markup.Markers{Open: "<aside>", Close: "</aside>"}
		got := Format(markup.Parse("Intro text. <aside>"+body, markers), DefaultLimits)
		want := []Block{proseBlock("Intro text."), {Kind: Aside, Text: body, Open: true}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v\nwant %#v", got, want)
		}
	})

	t.Run("long aside keeps its tail", func(t *testing.T) {
		limits := Limits{ProseChars: 100, AsideChars: 20, MaxBlocks: 50}
		blocks, stats := FormatStats([]markup.Segment{{Kind: markup.Aside, Text: "abcdefghijklmnopqrstuvwxyz"}}, limits)
		want := []Block{{Kind: Aside, Text: "…hijklmnopqrstuvwxyz"}}
		if !reflect.DeepEqual(blocks, want) {
			t.Errorf("got %#v, want %#v", blocks, want)
		}
		if stats.TruncatedAsides != 1 {
			t.Errorf("TruncatedAsides = %d", stats.TruncatedAsides)
		}
	})

	t.Run("escaped content uses the whole ceiling", func(t *testing.T) {
		tests := []struct {
			name   string
			text   string
			open   bool
			limits Limits
		}{
			{"comparisons", strings.Repeat("if a<b && c>d then. ", 150), false, DefaultLimits},
			{"only angle brackets", strings.Repeat("<", 100), true, Limits{ProseChars: 100, AsideChars: 60, MaxBlocks: 50}},
			{"ampersands and text", strings.Repeat("x&y ", 40), false, Limits{ProseChars: 100, AsideChars: 50, MaxBlocks: 50}},
		}
		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				blocks := Format([]markup.Segment{{Kind: markup.Aside, Text: test.text, Open: test.open}}, test.limits)
				if len(blocks) != 1 {
					t.Fatalf("got %d blocks", len(blocks))
				}
				block := blocks[0]
				limit := test.limits.AsideChars
				// One more raw rune renders to at most "&amp;", so a
				// kept tail shorter than that would have left room.
				if block.Length() > limit || block.Length() < limit-len("&amp;") {
					t.Errorf("length %d, want within %d of %d", block.Length(), len("&amp;"), limit)
				}
				if !strings.HasPrefix(block.Text, "…") || block.Text == "…" {
					t.Errorf("text = %q", block.Text)
				}
			})
		}
	})

	t.Run("content is escaped and fences neutralized", func(t *testing.T) {
		got := Format([]markup.Segment{{Kind: markup.Aside, Text: "\na<b ``` c\n"}}, DefaultLimits)
		want := []Block{{Kind: Aside, Text: "a&lt;b ``\u200b` c"}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	})
}

func TestClampDropsOldest(t *testing.T) {
	limits := Limits{ProseChars: 100, AsideChars: 100, MaxBlocks: 3}
	blocks, stats := FormatStats(markup.ParseComplete("a\n---\nb\n---\nc", markup.DefaultMarkers), limits)
	want := []Block{proseBlock("b"), {Kind: Divider}, proseBlock("c")}
	if !reflect.DeepEqual(blocks, want) {
		t.Errorf("got %#v, want %#v", blocks, want)
	}
	if stats.DroppedBlocks != 2 {
		t.Errorf("DroppedBlocks = %d, want 2", stats.DroppedBlocks)
	}
}

func TestLimitsValidate(t *testing.T) {
	if err := DefaultLimits.Validate(); err != nil {
		t.Errorf("DefaultLimits.Validate() = %v", err)
	}
	bad := []Limits{
		{ProseChars: 0, AsideChars: 100, MaxBlocks: 1},
		{ProseChars: 100, AsideChars: 3, MaxBlocks: 1},
		{ProseChars: 100, AsideChars: 100, MaxBlocks: 0},
	}
	for _, limits := range bad {
		if err := limits.Validate(); err == nil {
			t.Errorf("Validate(%+v) succeeded", limits)
		}
	}
}

func TestPlainText(t *testing.T) {
	blocks := []Block{
		proseBlock("*Hi* see <https://x.com|docs>"),
		{Kind: Divider},
		{Kind: Aside, Text: "secret"},
		proseBlock("&lt;ok&gt;\n\n```\ncode\n```"),
	}
	if got := PlainText(blocks, 150); got != "*Hi* see docs <ok> code" {
		t.Errorf("PlainText() = %q", got)
	}
	if got := PlainText([]Block{{Kind: Aside, Open: true}}, 150); got != "Thinking…" {
		t.Errorf("PlainText(open aside) = %q", got)
	}
	if got := PlainText(nil, 150); got != "" {
		t.Errorf("PlainText(nil) = %q", got)
	}
	if got := Truncate("abcdefghij", 5); got != "abcd…" {
		t.Errorf("Truncate() = %q", got)
	}
}

func TestPreformatted(t *testing.T) {
	block := Preformatted("{\"q\":\"<x>\"}", 100)
	if block.Kind != Prose {
		t.Errorf("kind = %s", block.Kind)
	}
	if want := "```\n{\"q\":\"&lt;x&gt;\"}\n```"; block.Text != want {
		t.Errorf("text = %q, want %q", block.Text, want)
	}

	long := Preformatted(strings.Repeat("a&", 100), 40)
	if long.Length() > 40 {
		t.Errorf("length %d exceeds limit", long.Length())
	}
	if !strings.HasSuffix(long.Text, "…\n```") || strings.Contains(long.Text, "&amp\n") {
		t.Errorf("truncated text = %q", long.Text)
	}

	dense := Preformatted(strings.Repeat("<>", 100), 40)
	if dense.Length() > 40 || dense.Length() < 40-len("&amp;") {
		t.Errorf("escaped preview length %d does not use the limit: %q", dense.Length(), dense.Text)
	}

	nested := Preformatted("before ``` after", 100)
	if strings.Count(nested.Text, "```") != 2 {
		t.Errorf("inner fence not broken: %q", nested.Text)
	}
}

func TestLiteral(t *testing.T) {
	if got := Literal("*a* <b> & c"); got != "*a* &lt;b&gt; &amp; c" {
		t.Errorf("Literal = %q", got)
	}
}
