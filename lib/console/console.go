// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package console is a message sink that draws turns on a terminal
// instead of posting them to Slack. Every post and update is printed as
// a framed snapshot of the message, so a transcript replay shows how
// the Slack thread would evolve.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/bureau-foundation/courier/lib/blockfmt"
	"github.com/bureau-foundation/courier/lib/clock"
	"github.com/bureau-foundation/courier/lib/ref"
)

const defaultWidth = 80

// Config configures a Sink.
type Config struct {
	// Output receives the rendered frames. Nil means os.Stdout.
	Output io.Writer

	// Width wraps prose. Zero uses the terminal width when Output is a
	// terminal, else 80.
	Width int

	// NoColor disables styling even on a terminal.
	NoColor bool

	// Clock seeds message timestamps. Nil means clock.Real().
	Clock clock.Clock
}

// Sink implements render.MessageSink on a terminal. It is safe for
// concurrent use.
type Sink struct {
	output io.Writer
	width  int
	styles styles
	epoch  int64

	mu       sync.Mutex
	sequence int
	order    []ref.MessageRef
	messages map[ref.MessageRef][]blockfmt.Block
}

type styles struct {
	header   lipgloss.Style
	label    lipgloss.Style
	aside    lipgloss.Style
	divider  lipgloss.Style
	fallback lipgloss.Style
}

// New returns a Sink writing to config.Output.
func New(config Config) *Sink {
	output := config.Output
	if output == nil {
		output = os.Stdout
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	terminal := false
	width := config.Width
	if file, ok := output.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		terminal = true
		if width == 0 {
			if columns, _, err := term.GetSize(int(file.Fd())); err == nil && columns > 0 {
				width = columns
			}
		}
	}
	if width <= 0 {
		width = defaultWidth
	}

	profile := termenv.Ascii
	if terminal && !config.NoColor {
		profile = termenv.ANSI256
	}
	renderer := lipgloss.NewRenderer(output, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)

	return &Sink{
		output:   output,
		width:    width,
		styles:   newStyles(renderer),
		epoch:    clk.Now().Unix(),
		messages: make(map[ref.MessageRef][]blockfmt.Block),
	}
}

func newStyles(renderer *lipgloss.Renderer) styles {
	return styles{
		header:   renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		label:    renderer.NewStyle().Italic(true).Foreground(lipgloss.Color("13")),
		aside:    renderer.NewStyle().Faint(true).Border(lipgloss.NormalBorder(), false, false, false, true).PaddingLeft(1),
		divider:  renderer.NewStyle().Foreground(lipgloss.Color("8")),
		fallback: renderer.NewStyle().Faint(true),
	}
}

// Post prints a new message and returns a reference minted from a
// per-sink counter.
func (s *Sink) Post(ctx context.Context, thread ref.ThreadRef, blocks []blockfmt.Block, fallback string) (ref.MessageRef, error) {
	channel := "C0CONSOLE"
	if !thread.Channel.IsZero() {
		channel = thread.Channel.String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequence++
	message, err := ref.NewMessageRef(channel, fmt.Sprintf("%d.%06d", s.epoch, s.sequence))
	if err != nil {
		return ref.MessageRef{}, fmt.Errorf("console: minting message reference: %w", err)
	}
	s.order = append(s.order, message)
	s.messages[message] = append([]blockfmt.Block(nil), blocks...)
	return message, s.print("posted", message, blocks, fallback)
}

// Update reprints a message with new content.
func (s *Sink) Update(ctx context.Context, message ref.MessageRef, blocks []blockfmt.Block, fallback string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[message]; !ok {
		return fmt.Errorf("console: update of unknown message %s", message)
	}
	s.messages[message] = append([]blockfmt.Block(nil), blocks...)
	return s.print("updated", message, blocks, fallback)
}

func (s *Sink) print(action string, message ref.MessageRef, blocks []blockfmt.Block, fallback string) error {
	var frame strings.Builder
	frame.WriteString(s.styles.header.Render(fmt.Sprintf("── %s %s", action, message.TS)))
	frame.WriteByte('\n')
	frame.WriteString(s.render(blocks))
	frame.WriteByte('\n')
	if fallback != "" {
		frame.WriteString(s.styles.fallback.Render("notification: " + fallback))
		frame.WriteByte('\n')
	}
	if _, err := io.WriteString(s.output, frame.String()); err != nil {
		return fmt.Errorf("console: writing frame: %w", err)
	}
	return nil
}

func (s *Sink) render(blocks []blockfmt.Block) string {
	parts := make([]string, 0, len(blocks))
	for _, block := range blocks {
		switch block.Kind {
		case blockfmt.Prose:
			parts = append(parts, ansi.Wordwrap(block.Text, s.width, ""))
		case blockfmt.Aside:
			label := "Thought"
			if block.Open {
				label = "Thinking…"
			}
			body := s.styles.aside.Width(max(s.width-2, 1)).Render(block.Text)
			parts = append(parts, s.styles.label.Render(label)+"\n"+body)
		case blockfmt.Divider:
			parts = append(parts, s.styles.divider.Render(strings.Repeat("─", s.width)))
		}
	}
	return strings.Join(parts, "\n")
}

// Messages returns the posted messages in posting order.
func (s *Sink) Messages() []ref.MessageRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ref.MessageRef(nil), s.order...)
}

// Text returns the current content of message without styling.
func (s *Sink) Text(message ref.MessageRef) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ansi.Strip(s.render(s.messages[message]))
}
