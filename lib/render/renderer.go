// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/bureau-foundation/courier/lib/agentstream"
	"github.com/bureau-foundation/courier/lib/blockfmt"
	"github.com/bureau-foundation/courier/lib/clock"
	"github.com/bureau-foundation/courier/lib/history"
	"github.com/bureau-foundation/courier/lib/markup"
	"github.com/bureau-foundation/courier/lib/netutil"
	"github.com/bureau-foundation/courier/lib/ref"
)

// fallbackChars bounds the plain-text fallback sent with every
// message, which Slack shows in notifications.
const fallbackChars = 150

// emptyResponse is written when a turn ends without any text.
const emptyResponse = "_No response._"

// Config holds a Renderer's collaborators and policy.
type Config struct {
	Agent    Agent
	Sink     MessageSink
	History  history.Store
	Identity IdentityResolver

	// Names attributes user history entries. Optional.
	Names DisplayNames

	// Zero values select DefaultPolicy, markup.DefaultMarkers,
	// blockfmt.DefaultLimits and DefaultPlaceholder.
	Policy      Policy
	Markers     markup.Markers
	Limits      blockfmt.Limits
	Placeholder string

	// HistoryLimit caps how many prior entries are sent to the agent.
	// Zero sends all of them.
	HistoryLimit int

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// NewTurnID defaults to uuid.NewString.
	NewTurnID func() string
}

// Renderer renders turns. It holds no per-turn state and is safe for
// concurrent use across threads.
type Renderer struct {
	config Config
}

// New validates config and returns a Renderer.
func New(config Config) (*Renderer, error) {
	if config.Agent == nil || config.Sink == nil || config.History == nil || config.Identity == nil {
		return nil, errors.New("render: Agent, Sink, History and Identity are required")
	}
	if config.Policy == (Policy{}) {
		config.Policy = DefaultPolicy
	}
	if config.Markers == (markup.Markers{}) {
		config.Markers = markup.DefaultMarkers
	}
	if config.Limits == (blockfmt.Limits{}) {
		config.Limits = blockfmt.DefaultLimits
	}
	if config.Placeholder == "" {
		config.Placeholder = DefaultPlaceholder
	}
	if err := config.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("render: policy: %w", err)
	}
	if err := config.Markers.Validate(); err != nil {
		return nil, err
	}
	if err := config.Limits.Validate(); err != nil {
		return nil, err
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.NewTurnID == nil {
		config.NewTurnID = uuid.NewString
	}
	return &Renderer{config: config}, nil
}

// Prompt is the user message that starts a turn.
type Prompt struct {
	Text   string
	Images []string

	// Author wrote the prompt. Zero when unknown.
	Author ref.UserID
}

// RenderTurn runs one turn to completion in thread. It returns nil
// when the agent finished, an error wrapping ErrIdentityUnavailable or
// ErrAgentFailed otherwise. Everything observable happens through the
// sink and the history store.
func (r *Renderer) RenderTurn(ctx context.Context, thread ref.ThreadRef, prompt Prompt) error {
	turnID := r.config.NewTurnID()
	t := &turn{
		config:   &r.config,
		thread:   thread,
		logger:   r.config.Logger.With("thread", thread.String(), "turn_id", turnID),
		buffer:   newResponseBuffer(r.config.Policy, r.config.Markers),
		identity: &messageIdentity{},
	}
	return t.run(ctx, prompt)
}

// turn is the state of one RenderTurn call.
type turn struct {
	config   *Config
	thread   ref.ThreadRef
	logger   *slog.Logger
	buffer   *responseBuffer
	identity *messageIdentity

	// earlier is the assistant text already committed this turn, in
	// stream order.
	earlier strings.Builder
}

func (t *turn) run(ctx context.Context, prompt Prompt) error {
	self, err := t.config.Identity.Identity(ctx)
	if err != nil {
		t.logger.Error("resolving bot identity failed", "stage", "identity", "error", err)
		blocks := []blockfmt.Block{errorBlock("I couldn't start: my Slack identity is unavailable. Please try again shortly.")}
		if _, postErr := t.config.Sink.Post(ctx, t.thread, blocks, "I couldn't start."); postErr != nil {
			t.logger.Error("posting initialization error failed", "stage", "identity", "error", postErr)
		}
		return fmt.Errorf("%w: %w", ErrIdentityUnavailable, err)
	}

	text := strings.TrimSpace(strings.ReplaceAll(prompt.Text, self.Mention(), ""))

	t.postPlaceholder(ctx)

	entries, err := t.config.History.History(ctx, t.thread)
	if err != nil {
		t.logger.Warn("reading history failed, continuing without it", "stage", "history", "error", err)
		entries = nil
	}
	t.commit(ctx, history.Entry{Role: agentstream.RoleUser, Content: text, Author: t.authorName(ctx, prompt.Author)})

	stream, err := t.config.Agent.Stream(ctx, agentstream.Request{
		Prompt:  agentstream.Prompt{Text: text, Images: prompt.Images},
		History: history.Messages(entries, t.config.HistoryLimit),
	})
	if err != nil {
		t.logger.Error("opening agent stream failed", "stage", "agent", "error", err)
		t.fail(ctx, "The agent could not be reached.")
		return fmt.Errorf("%w: %w", ErrAgentFailed, err)
	}
	defer stream.Close()

	for {
		event, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				t.finish(ctx, nil)
				return nil
			}
			if netutil.IsExpectedCloseError(err) {
				t.logger.Warn("agent stream closed early, keeping partial answer", "stage", "agent", "error", err)
				t.finish(ctx, nil)
				return nil
			}
			t.logger.Error("agent stream failed", "stage", "agent", "error", err)
			t.fail(ctx, "The agent stream failed.")
			return fmt.Errorf("%w: %w", ErrAgentFailed, err)
		}

		switch event.Type {
		case agentstream.EventTextDelta:
			t.text(ctx, event.Text.Text)
		case agentstream.EventToolStart:
			t.toolStart(ctx, event.ToolStart)
		case agentstream.EventToolResult:
			t.toolResult(ctx, event.ToolResult)
		case agentstream.EventFinal:
			t.finish(ctx, event.Final)
			return nil
		case agentstream.EventError:
			t.logger.Error("agent reported an error", "stage", "agent", "detail", event.Error.Detail)
			t.fail(ctx, event.Error.Detail)
			return fmt.Errorf("%w: %s", ErrAgentFailed, event.Error.Detail)
		default:
			t.logger.Debug("ignoring agent event", "stage", "agent", "type", string(event.Type))
		}
	}
}

func (t *turn) authorName(ctx context.Context, author ref.UserID) string {
	if author.IsZero() || t.config.Names == nil {
		return ""
	}
	name, err := t.config.Names.DisplayName(ctx, author)
	if err != nil {
		t.logger.Debug("resolving author name failed", "stage", "history", "user", author.String(), "error", err)
		return ""
	}
	return name
}

func (t *turn) postPlaceholder(ctx context.Context) {
	blocks := []blockfmt.Block{{Kind: blockfmt.Prose, Text: t.config.Placeholder}}
	message, err := t.config.Sink.Post(ctx, t.thread, blocks, blockfmt.PlainText(blocks, fallbackChars))
	if err != nil {
		t.logger.Warn("posting placeholder failed", "stage", "placeholder", "error", err)
		return
	}
	t.transition(t.identity.placeholderPosted(&Handle{Message: message, Role: RolePlaceholder, Blocks: blocks}))
}

// text handles one delta.
func (t *turn) text(ctx context.Context, delta string) {
	reason := t.buffer.add(delta, t.config.Clock.Now())
	if reason == noFlush {
		return
	}
	t.flush(ctx, reason.String())
}

// flush renders the whole buffer and writes it to the content target,
// posting a new message when there is none. Failures keep the buffer.
func (t *turn) flush(ctx context.Context, stage string) {
	segments := t.buffer.segments()
	blocks, stats := blockfmt.FormatStats(segments, t.config.Limits)
	t.buffer.markFlushed(t.config.Clock.Now())
	if len(blocks) == 0 {
		return
	}
	if stats.Degraded() {
		t.logger.Info("formatting degraded", "stage", "format",
			"forced_cuts", stats.ForcedCuts,
			"truncated_asides", stats.TruncatedAsides,
			"dropped_blocks", stats.DroppedBlocks,
		)
	}
	// A withheld partial marker is not on screen yet, so settle still
	// owes the message its complete rendering.
	if t.writeContent(ctx, blocks, stage) && t.buffer.complete(segments) {
		t.buffer.markShown()
	}
}

// writeContent sends prose blocks to the content target or a new
// message and records the outcome. It reports success.
func (t *turn) writeContent(ctx context.Context, blocks []blockfmt.Block, stage string) bool {
	fallback := blockfmt.PlainText(blocks, fallbackChars)
	target := t.identity.contentTarget()
	if target == nil {
		message, err := t.config.Sink.Post(ctx, t.thread, blocks, fallback)
		if err != nil {
			t.logger.Warn("posting content failed", "stage", stage, "error", err)
			return false
		}
		target = &Handle{Message: message, Role: RoleStreamingContent}
	} else if err := t.config.Sink.Update(ctx, target.Message, blocks, fallback); err != nil {
		t.logger.Warn("updating content failed", "stage", stage, "message", target.Message.String(), "error", err)
		return false
	}
	target.Blocks = blocks
	t.transition(t.identity.contentWritten(target))
	return true
}

// settle force-flushes unflushed text and commits the buffer to
// history. The buffer is reset either way.
func (t *turn) settle(ctx context.Context, stage string) {
	if t.buffer.empty() {
		t.buffer.reset()
		return
	}
	if !t.buffer.shown() {
		blocks := blockfmt.Format(markup.ParseComplete(t.buffer.text, t.config.Markers), t.config.Limits)
		if len(blocks) > 0 {
			t.writeContent(ctx, blocks, stage)
		}
	}
	t.commit(ctx, history.Entry{Role: agentstream.RoleAssistant, Content: t.buffer.text})
	t.earlier.WriteString(t.buffer.text)
	t.buffer.reset()
}

func (t *turn) toolStart(ctx context.Context, start *agentstream.ToolStart) {
	hadText := !t.buffer.empty()
	t.settle(ctx, "tool_start")

	card := newToolCard(start)
	blocks, fallback := card.startBlocks(t.config.Limits)
	// A placeholder nothing was written to becomes the tool card
	// instead of a new announcement, so no "working" message is left
	// above the card.
	if placeholder := t.identity.untouchedPlaceholder(); placeholder != nil && !hadText {
		if err := t.config.Sink.Update(ctx, placeholder.Message, blocks, fallback); err != nil {
			t.logger.Warn("converting placeholder to tool card failed", "stage", "tool_start",
				"message", placeholder.Message.String(), "tool", card.name, "error", err)
			return
		}
		card.handle = placeholder
	} else {
		message, err := t.config.Sink.Post(ctx, t.thread, blocks, fallback)
		if err != nil {
			t.logger.Warn("posting tool card failed", "stage", "tool_start", "tool", card.name, "error", err)
			return
		}
		card.handle = &Handle{Message: message}
	}
	card.handle.Blocks = blocks
	t.transition(t.identity.cardPosted(card))
	t.logger.Debug("tool started", "stage", "tool_start", "message", card.handle.Message.String(), "tool", card.name)
}

func (t *turn) toolResult(ctx context.Context, result *agentstream.ToolResult) {
	t.settle(ctx, "tool_result")

	card := t.identity.takeCard(result.Name)
	if card == nil {
		t.logger.Warn("tool result without an announcement", "stage", "tool_result", "tool", result.Name)
		card = &toolCard{name: result.Name}
		blocks, fallback := card.resultBlocks(result, t.config.Limits)
		if _, err := t.config.Sink.Post(ctx, t.thread, blocks, fallback); err != nil {
			t.logger.Warn("posting tool result failed", "stage", "tool_result", "tool", result.Name, "error", err)
		}
	} else {
		blocks, fallback := card.resultBlocks(result, t.config.Limits)
		if err := t.config.Sink.Update(ctx, card.handle.Message, blocks, fallback); err != nil {
			t.logger.Warn("updating tool card failed", "stage", "tool_result",
				"message", card.handle.Message.String(), "tool", card.name, "error", err)
		} else {
			card.handle.Blocks = blocks
		}
	}

	switch t.identity.phase {
	case PhaseToolAnnouncement, PhaseStreamingContent:
		t.transition(t.identity.release())
	}
}

// finish writes the final answer and ends the turn.
func (t *turn) finish(ctx context.Context, final *agentstream.Final) {
	var content string
	var metadata map[string]any
	if final != nil {
		content = final.Content
		metadata = final.Metadata
	}
	text := finalText(t.earlier.String(), t.buffer.text, content)

	if strings.TrimSpace(text) != "" {
		blocks := blockfmt.Format(markup.ParseComplete(text, t.config.Markers), t.config.Limits)
		if len(blocks) > 0 {
			t.writeFinal(ctx, blocks)
		}
		t.commit(ctx, history.Entry{Role: agentstream.RoleAssistant, Content: text, Metadata: metadata})
	} else if placeholder := t.identity.untouchedPlaceholder(); placeholder != nil {
		blocks := []blockfmt.Block{{Kind: blockfmt.Prose, Text: emptyResponse}}
		if err := t.config.Sink.Update(ctx, placeholder.Message, blocks, "No response."); err != nil {
			t.logger.Warn("updating placeholder failed", "stage", "final", "message", placeholder.Message.String(), "error", err)
		}
	}
	t.buffer.reset()
	t.transition(t.identity.finalize())
}

// writeFinal writes to the content target, else the untouched
// placeholder, else a new message.
func (t *turn) writeFinal(ctx context.Context, blocks []blockfmt.Block) {
	if t.identity.contentTarget() == nil {
		if placeholder := t.identity.untouchedPlaceholder(); placeholder != nil {
			t.identity.active = placeholder
		}
	}
	t.writeContent(ctx, blocks, "final")
}

// finalText combines the current message's streamed text with the
// final answer. The answer may repeat text streamed into this message or
// into earlier messages of the turn.
func finalText(earlier, streamed, content string) string {
	if earlier != "" && strings.HasPrefix(content, earlier) {
		content = strings.TrimLeft(content[len(earlier):], " \t\r\n")
	}
	switch {
	case content == "":
		return streamed
	case strings.HasPrefix(content, streamed):
		return content
	case strings.HasSuffix(streamed, content):
		return streamed
	case streamed != "" && strings.HasSuffix(content, streamed):
		return streamed
	case strings.TrimSpace(streamed) == "":
		return content
	default:
		return streamed + "\n\n" + content
	}
}

// fail appends an error block to the best available message and ends
// the turn.
func (t *turn) fail(ctx context.Context, detail string) {
	target := t.identity.active
	var blocks []blockfmt.Block
	if !t.buffer.empty() {
		if target != nil && target.Role == RoleToolAnnouncement {
			target = nil
		}
		blocks = blockfmt.Format(markup.ParseComplete(t.buffer.text, t.config.Markers), t.config.Limits)
		t.commit(ctx, history.Entry{Role: agentstream.RoleAssistant, Content: t.buffer.text})
	} else if target != nil && target.Role != RolePlaceholder {
		blocks = append(blocks, target.Blocks...)
	}
	blocks = blockfmt.Clamp(append(blocks, errorBlock(detail)), t.config.Limits.MaxBlocks)
	fallback := blockfmt.Truncate("Error: "+detail, fallbackChars)

	if target == nil {
		target = t.identity.untouchedPlaceholder()
	}
	if target != nil {
		if err := t.config.Sink.Update(ctx, target.Message, blocks, fallback); err != nil {
			t.logger.Error("rendering error block failed", "stage", "error", "message", target.Message.String(), "error", err)
		}
	} else if _, err := t.config.Sink.Post(ctx, t.thread, blocks, fallback); err != nil {
		t.logger.Error("posting error block failed", "stage", "error", "error", err)
	}
	t.buffer.reset()
	t.transition(t.identity.finalize())
}

func errorBlock(detail string) blockfmt.Block {
	return blockfmt.Block{Kind: blockfmt.Prose, Text: ":warning: " + blockfmt.Literal(detail)}
}

func (t *turn) commit(ctx context.Context, entry history.Entry) {
	if strings.TrimSpace(entry.Content) == "" {
		return
	}
	if err := t.config.History.Append(ctx, t.thread, entry); err != nil {
		t.logger.Warn("appending to history failed", "stage", "history", "role", string(entry.Role), "error", err)
	}
}

// transition logs an invalid phase change. The turn continues.
func (t *turn) transition(err error) {
	if err != nil {
		t.logger.Error("message identity", "stage", "identity", "phase", t.identity.phase.String(), "error", err)
	}
}
