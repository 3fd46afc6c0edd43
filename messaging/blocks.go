// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"github.com/slack-go/slack"

	"github.com/bureau-foundation/courier/lib/blockfmt"
)

// Labels shown above an aside. The open label marks reasoning that is
// still streaming.
const (
	AsideOpenLabel   = "_Thinking…_"
	AsideClosedLabel = "_Thought_"
)

// SlackBlocks converts formatter blocks to Block Kit blocks, one for
// one. An aside renders as its label and a code block in a single
// section so the block count stays the formatter's.
func SlackBlocks(blocks []blockfmt.Block) []slack.Block {
	converted := make([]slack.Block, 0, len(blocks))
	for _, block := range blocks {
		switch block.Kind {
		case blockfmt.Prose:
			converted = append(converted, section(block.Text))
		case blockfmt.Aside:
			label := AsideClosedLabel
			if block.Open {
				label = AsideOpenLabel
			}
			converted = append(converted, section(label+"\n```"+block.Text+"```"))
		case blockfmt.Divider:
			converted = append(converted, slack.NewDividerBlock())
		}
	}
	return converted
}

func section(text string) *slack.SectionBlock {
	return slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)
}
