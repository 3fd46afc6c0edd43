// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/courier/lib/agentstream"
	"github.com/bureau-foundation/courier/lib/blockfmt"
)

// toolCard is the message announcing one tool invocation.
type toolCard struct {
	name      string
	arguments string
	handle    *Handle
}

func newToolCard(start *agentstream.ToolStart) *toolCard {
	return &toolCard{name: start.Name, arguments: argumentPreview(start.Arguments)}
}

// argumentPreview compacts the arguments and drops an empty object.
func argumentPreview(arguments json.RawMessage) string {
	var compacted bytes.Buffer
	if err := json.Compact(&compacted, arguments); err != nil {
		compacted.Reset()
		compacted.Write(bytes.TrimSpace(arguments))
	}
	text := compacted.String()
	if text == "{}" || text == "null" {
		return ""
	}
	return agentstream.Preview(text, agentstream.PreviewChars)
}

func (c *toolCard) label() string {
	if c.name == "" {
		return "`tool`"
	}
	return "`" + blockfmt.Literal(c.name) + "`"
}

func (c *toolCard) displayName() string {
	if c.name == "" {
		return "tool"
	}
	return c.name
}

// startBlocks shows the invocation while it runs.
func (c *toolCard) startBlocks(limits blockfmt.Limits) ([]blockfmt.Block, string) {
	blocks := []blockfmt.Block{{Kind: blockfmt.Prose, Text: ":hammer_and_wrench: Running " + c.label() + "…"}}
	if c.arguments != "" {
		blocks = append(blocks, blockfmt.Preformatted(c.arguments, limits.ProseChars))
	}
	return blocks, fmt.Sprintf("Running %s…", c.displayName())
}

// resultBlocks replaces the card content once the tool returns.
func (c *toolCard) resultBlocks(result *agentstream.ToolResult, limits blockfmt.Limits) ([]blockfmt.Block, string) {
	status := ":white_check_mark: " + c.label() + " returned"
	verb := "returned"
	if result.IsError {
		status = ":x: " + c.label() + " failed"
		verb = "failed"
	}
	blocks := []blockfmt.Block{{Kind: blockfmt.Prose, Text: status}}
	if c.arguments != "" {
		blocks = append(blocks, blockfmt.Preformatted(c.arguments, limits.ProseChars))
	}
	output := agentstream.Preview(result.Result, agentstream.PreviewChars)
	if output == "" {
		blocks = append(blocks, blockfmt.Block{Kind: blockfmt.Prose, Text: "_no output_"})
	} else {
		blocks = append(blocks, blockfmt.Preformatted(output, limits.ProseChars))
	}
	return blocks, blockfmt.Truncate(fmt.Sprintf("%s %s: %s", c.displayName(), verb, output), fallbackChars)
}
