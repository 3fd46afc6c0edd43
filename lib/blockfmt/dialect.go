// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blockfmt

import (
	"regexp"
	"strings"
)

const fence = "```"

var (
	rulePattern    = regexp.MustCompile(`^ {0,3}(?:(?:-[ \t]*){3,}|(?:\*[ \t]*){3,}|(?:_[ \t]*){3,})$`)
	headingPattern = regexp.MustCompile(`^ {0,3}#{1,6}[ \t]+(.*?)(?:[ \t]+#+)?[ \t]*$`)
	bulletPattern  = regexp.MustCompile(`^([ \t]*)[-*+][ \t]+(.*)$`)
	linkPattern    = regexp.MustCompile(`\[([^\[\]\n]+)\]\(((?:https?://|mailto:)[^()\s]+)\)`)
	languageTag    = regexp.MustCompile(`^[\w+#.-]*$`)

	// slackToken matches mrkdwn control sequences that must reach Slack
	// with their angle brackets intact: links, user and channel
	// mentions, and special mentions.
	slackToken = regexp.MustCompile(`<(?:https?://|mailto:|[@#!])[^<>\s]*>`)
	entity     = regexp.MustCompile(`&(?:amp|lt|gt);`)
)

// piece is a run of translated prose, or a divider.
type piece struct {
	divider bool
	text    string
}

// translate rewrites markdown as mrkdwn, separating thematic breaks
// into divider pieces. Fenced code is passed through except for
// escaping and the fence lines themselves. A fence left open at the
// end of the text is closed so every piece is balanced.
func translate(text string) []piece {
	var (
		pieces  []piece
		current strings.Builder
		inFence bool
	)
	flush := func() {
		if current.Len() > 0 {
			pieces = append(pieces, piece{text: current.String()})
			current.Reset()
		}
	}

	lines := strings.Split(text, "\n")
	for index, line := range lines {
		last := index == len(lines)-1
		indentless := strings.TrimLeft(line, " \t")

		switch {
		case strings.HasPrefix(indentless, fence) && (inFence || !strings.Contains(indentless[len(fence):], fence)):
			rest := indentless[len(fence):]
			if inFence {
				current.WriteString(fence)
				current.WriteString(escape(rest))
				inFence = false
			} else {
				current.WriteString(fence)
				if !languageTag.MatchString(strings.TrimSpace(rest)) {
					current.WriteByte('\n')
					current.WriteString(escape(rest))
				}
				inFence = true
			}
		case inFence:
			current.WriteString(escape(line))
		case rulePattern.MatchString(line):
			flush()
			pieces = append(pieces, piece{divider: true})
			continue
		default:
			current.WriteString(translateLine(line))
		}
		if !last {
			current.WriteByte('\n')
		}
	}
	if inFence {
		closed := strings.TrimRight(current.String(), "\n")
		current.Reset()
		current.WriteString(closed)
		current.WriteString("\n" + fence)
	}
	flush()
	return pieces
}

// translateLine converts one line outside any fence.
func translateLine(line string) string {
	if match := headingPattern.FindStringSubmatch(line); match != nil {
		if match[1] == "" {
			return ""
		}
		return "*" + strings.Trim(convertInline(match[1]), "*") + "*"
	}
	if match := bulletPattern.FindStringSubmatch(line); match != nil && !rulePattern.MatchString(line) {
		return match[1] + "• " + convertInline(match[2])
	}
	return convertInline(line)
}

// convertInline escapes a line and rewrites emphasis and links outside
// inline code spans.
func convertInline(line string) string {
	escaped := escape(line)
	if !strings.ContainsAny(escaped, "*_~[") {
		return escaped
	}
	parts := strings.Split(escaped, "`")
	closedSpans := len(parts)%2 == 1
	for index := range parts {
		inCode := index%2 == 1 && (closedSpans || index < len(parts)-1)
		if !inCode {
			parts[index] = convertEmphasis(parts[index])
		}
	}
	return strings.Join(parts, "`")
}

func convertEmphasis(text string) string {
	var out strings.Builder
	last := 0
	for _, span := range slackToken.FindAllStringIndex(text, -1) {
		out.WriteString(convertPlain(text[last:span[0]]))
		out.WriteString(text[span[0]:span[1]])
		last = span[1]
	}
	out.WriteString(convertPlain(text[last:]))
	return out.String()
}

func convertPlain(text string) string {
	text = convertPairs(text, "*", "_")
	text = convertPairs(text, "**", "*")
	text = convertPairs(text, "__", "*")
	text = convertPairs(text, "~~", "~")
	return linkPattern.ReplaceAllString(text, "<$2|$1>")
}

// convertPairs rewrites delim…delim spans as repl…repl. An opener must
// be followed by a non-space and a closer preceded by one, and neither
// may touch another copy of the delimiter's first byte, so "**" is
// never read as two single-star delimiters.
func convertPairs(text, delim, repl string) string {
	if !strings.Contains(text, delim) {
		return text
	}
	var out strings.Builder
	index := 0
	for index < len(text) {
		if strings.HasPrefix(text[index:], delim) && isOpener(text, index, delim) {
			if end := findCloser(text, index+len(delim), delim); end > 0 {
				out.WriteString(repl)
				out.WriteString(text[index+len(delim) : end])
				out.WriteString(repl)
				index = end + len(delim)
				continue
			}
		}
		out.WriteByte(text[index])
		index++
	}
	return out.String()
}

func isOpener(text string, at int, delim string) bool {
	after := at + len(delim)
	if after >= len(text) || isSpace(text[after]) || text[after] == delim[0] {
		return false
	}
	if at > 0 && text[at-1] == delim[0] {
		return false
	}
	if delim == "_" && at > 0 && isWordByte(text[at-1]) {
		return false
	}
	return true
}

func findCloser(text string, from int, delim string) int {
	for index := from + 1; index+len(delim) <= len(text); index++ {
		if !strings.HasPrefix(text[index:], delim) {
			continue
		}
		if isSpace(text[index-1]) || text[index-1] == delim[0] {
			continue
		}
		after := index + len(delim)
		if after < len(text) && text[after] == delim[0] {
			continue
		}
		if delim == "_" && after < len(text) && isWordByte(text[after]) {
			continue
		}
		return index
	}
	return -1
}

// escape replaces the three characters mrkdwn reserves, leaving Slack
// control sequences the agent wrote deliberately untouched.
func escape(text string) string {
	if !strings.ContainsAny(text, "&<>") {
		return text
	}
	var out strings.Builder
	last := 0
	for _, span := range slackToken.FindAllStringIndex(text, -1) {
		out.WriteString(escapeRaw(text[last:span[0]]))
		out.WriteString(text[span[0]:span[1]])
		last = span[1]
	}
	out.WriteString(escapeRaw(text[last:]))
	return out.String()
}

var rawEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeRaw(text string) string { return rawEscaper.Replace(text) }

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= 0x80
}
